// Command orders prints read models from the read database as JSON.
//
//	orders order R123456789
//	orders list [-state complete] [-user usr_...]
//	orders stock var_...
//	orders locations [-all]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/badogar/solidus/internal/config"
	"github.com/badogar/solidus/internal/domain/money"
	"github.com/badogar/solidus/internal/infrastructure/logging"
	"github.com/badogar/solidus/internal/infrastructure/store"
	"github.com/badogar/solidus/internal/query"
)

var errUsage = errors.New("usage: orders order <number> | list [-state s] [-user id] | stock <variant> | locations [-all]")

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Must("error").Fatal("load config", zap.Error(err))
	}
	logger := logging.Must(cfg.Log.Level).Named("orders")

	db, err := store.ConnectPostgres(context.Background(), cfg.Postgres.DSN, 2, 1, cfg.Postgres.ConnMaxLifetime)
	if err != nil {
		logger.Fatal("connect read database", zap.Error(err))
	}
	defer db.Close()

	formatter, err := money.ParseFormatter(cfg.Store.Locale, cfg.Store.Currency)
	if err != nil {
		logger.Fatal("store currency", zap.Error(err))
	}
	queries := query.NewHandler(store.NewPostgresReadStore(db, logger), formatter)

	if err := run(os.Args[1:], queries, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

func run(args []string, q *query.Handler, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	var result any
	switch cmd, rest := args[0], args[1:]; cmd {
	case "order":
		if len(rest) != 1 {
			return errUsage
		}
		summary, ok := q.GetOrderSummary(rest[0])
		if !ok {
			return fmt.Errorf("order %s not found", rest[0])
		}
		result = summary

	case "list":
		fs := flag.NewFlagSet("list", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		state := fs.String("state", "", "only orders in this state")
		user := fs.String("user", "", "only orders of this user")
		if err := fs.Parse(rest); err != nil {
			return errUsage
		}
		switch {
		case *user != "":
			result = q.ListOrdersByUser(*user)
		case *state != "":
			result = q.ListOrdersByState(*state)
		default:
			result = q.ListAllOrders()
		}

	case "stock":
		if len(rest) != 1 {
			return errUsage
		}
		result = q.GetVariantStock(rest[0])

	case "locations":
		fs := flag.NewFlagSet("locations", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		all := fs.Bool("all", false, "include inactive locations")
		if err := fs.Parse(rest); err != nil {
			return errUsage
		}
		result = q.ListStockLocations(!*all)

	default:
		return errUsage
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
