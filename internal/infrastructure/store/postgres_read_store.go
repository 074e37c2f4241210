package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/badogar/solidus/internal/readmodel"
)

var readTables = map[string]string{
	readmodel.CollectionOrders:    "read_orders",
	readmodel.CollectionInventory: "read_inventory",
	readmodel.CollectionVariants:  "read_variants",
	readmodel.CollectionLocations: "read_stock_locations",
	readmodel.CollectionUsers:     "read_users",
}

// PostgresReadStore implements ReadStoreInterface using PostgreSQL
type PostgresReadStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresReadStore creates a new PostgreSQL-based read store
func NewPostgresReadStore(db *sql.DB, logger *zap.Logger) *PostgresReadStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresReadStore{db: db, logger: logger.Named("read_store")}
}

// Set stores a read model
func (rs *PostgresReadStore) Set(collection, id string, data any) {
	var err error
	switch m := data.(type) {
	case *readmodel.OrderReadModel:
		err = rs.setOrder(rs.db, m)
	case *readmodel.InventoryReadModel:
		err = rs.setInventory(rs.db, m)
	case *readmodel.VariantReadModel:
		err = rs.setVariant(rs.db, m)
	case *readmodel.StockLocationReadModel:
		err = rs.setLocation(rs.db, m)
	case *readmodel.UserReadModel:
		err = rs.setUser(rs.db, m)
	default:
		rs.logger.Warn("unsupported read model", zap.String("collection", collection), zap.String("id", id))
		return
	}
	if err != nil {
		rs.logger.Error("set failed", zap.String("collection", collection), zap.String("id", id), zap.Error(err))
	}
}

// Get retrieves a read model by id
func (rs *PostgresReadStore) Get(collection, id string) (any, bool) {
	m, err := rs.get(rs.db, collection, id)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			rs.logger.Error("get failed", zap.String("collection", collection), zap.String("id", id), zap.Error(err))
		}
		return nil, false
	}
	return m, m != nil
}

// GetAll retrieves all items in a collection
func (rs *PostgresReadStore) GetAll(collection string) []any {
	var (
		items []any
		err   error
	)
	switch collection {
	case readmodel.CollectionOrders:
		items, err = rs.queryOrders(`SELECT ` + orderColumns + ` FROM read_orders ORDER BY created_at DESC`)
	case readmodel.CollectionInventory:
		items, err = rs.queryMany(`SELECT id, stock_location_id, variant_id, count_on_hand, backordered FROM read_inventory ORDER BY id`,
			func(sc scanner) (any, error) { return scanInventory(sc) })
	case readmodel.CollectionVariants:
		items, err = rs.queryMany(`SELECT id, sku, name, price, weight, created_at, updated_at FROM read_variants ORDER BY sku`,
			func(sc scanner) (any, error) { return scanVariant(sc) })
	case readmodel.CollectionLocations:
		items, err = rs.queryMany(`SELECT id, name, code, priority, active, created_at, updated_at FROM read_stock_locations ORDER BY priority, code`,
			func(sc scanner) (any, error) { return scanLocation(sc) })
	case readmodel.CollectionUsers:
		items, err = rs.queryMany(`SELECT id, email, guest, created_at, updated_at FROM read_users ORDER BY created_at DESC`,
			func(sc scanner) (any, error) { return scanUser(sc) })
	}
	if err != nil {
		rs.logger.Error("get all failed", zap.String("collection", collection), zap.Error(err))
		return nil
	}
	return items
}

// Delete removes a read model
func (rs *PostgresReadStore) Delete(collection, id string) {
	table, ok := readTables[collection]
	if !ok {
		return
	}
	if _, err := rs.db.Exec("DELETE FROM "+table+" WHERE id = $1", id); err != nil {
		rs.logger.Error("delete failed", zap.String("collection", collection), zap.String("id", id), zap.Error(err))
	}
}

// Update reads the row with FOR UPDATE, applies updateFn and writes it back in one transaction
func (rs *PostgresReadStore) Update(collection, id string, updateFn func(current any) any) bool {
	tx, err := rs.db.Begin()
	if err != nil {
		rs.logger.Error("begin update failed", zap.Error(err))
		return false
	}
	defer func() { _ = tx.Rollback() }()

	current, err := rs.get(tx, collection, id, " FOR UPDATE")
	if err != nil || current == nil {
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			rs.logger.Error("update read failed", zap.String("collection", collection), zap.String("id", id), zap.Error(err))
		}
		return false
	}

	switch m := updateFn(current).(type) {
	case *readmodel.OrderReadModel:
		err = rs.setOrder(tx, m)
	case *readmodel.InventoryReadModel:
		err = rs.setInventory(tx, m)
	case *readmodel.VariantReadModel:
		err = rs.setVariant(tx, m)
	case *readmodel.StockLocationReadModel:
		err = rs.setLocation(tx, m)
	case *readmodel.UserReadModel:
		err = rs.setUser(tx, m)
	}
	if err == nil {
		err = tx.Commit()
	}
	if err != nil {
		rs.logger.Error("update write failed", zap.String("collection", collection), zap.String("id", id), zap.Error(err))
		return false
	}
	return true
}

// UpdateOrderTotals writes the four order totals in a single statement
func (rs *PostgresReadStore) UpdateOrderTotals(id string, itemTotal, adjustmentTotal, paymentTotal, total decimal.Decimal, at time.Time) bool {
	res, err := rs.db.Exec(`
		UPDATE read_orders SET
			item_total = $2,
			adjustment_total = $3,
			payment_total = $4,
			total = $5,
			updated_at = $6
		WHERE id = $1
	`, id, itemTotal, adjustmentTotal, paymentTotal, total, at)
	if err != nil {
		rs.logger.Error("update totals failed", zap.String("order", id), zap.Error(err))
		return false
	}
	n, _ := res.RowsAffected()
	return n == 1
}

// ListOrdersByState returns the orders currently in state, newest first
func (rs *PostgresReadStore) ListOrdersByState(state string) []*readmodel.OrderReadModel {
	items, err := rs.queryOrders(`SELECT `+orderColumns+` FROM read_orders WHERE state = $1 ORDER BY created_at DESC`, state)
	if err != nil {
		rs.logger.Error("list orders by state failed", zap.String("state", state), zap.Error(err))
		return nil
	}
	orders := make([]*readmodel.OrderReadModel, 0, len(items))
	for _, item := range items {
		orders = append(orders, item.(*readmodel.OrderReadModel))
	}
	return orders
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func (rs *PostgresReadStore) get(db execer, collection, id string, suffix ...string) (any, error) {
	lock := ""
	if len(suffix) > 0 {
		lock = suffix[0]
	}
	switch collection {
	case readmodel.CollectionOrders:
		return scanOrder(db.QueryRow(`SELECT `+orderColumns+` FROM read_orders WHERE id = $1`+lock, id))
	case readmodel.CollectionInventory:
		return scanInventory(db.QueryRow(`SELECT id, stock_location_id, variant_id, count_on_hand, backordered FROM read_inventory WHERE id = $1`+lock, id))
	case readmodel.CollectionVariants:
		return scanVariant(db.QueryRow(`SELECT id, sku, name, price, weight, created_at, updated_at FROM read_variants WHERE id = $1`+lock, id))
	case readmodel.CollectionLocations:
		return scanLocation(db.QueryRow(`SELECT id, name, code, priority, active, created_at, updated_at FROM read_stock_locations WHERE id = $1`+lock, id))
	case readmodel.CollectionUsers:
		return scanUser(db.QueryRow(`SELECT id, email, guest, created_at, updated_at FROM read_users WHERE id = $1`+lock, id))
	}
	return nil, nil
}

func (rs *PostgresReadStore) queryMany(q string, scan func(scanner) (any, error), args ...any) ([]any, error) {
	rows, err := rs.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []any
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Orders

const orderColumns = `id, user_id, state, line_items, item_count, item_total, adjustment_total, payment_total, total, completed_at, created_at, updated_at`

func (rs *PostgresReadStore) queryOrders(q string, args ...any) ([]any, error) {
	return rs.queryMany(q, func(sc scanner) (any, error) { return scanOrder(sc) }, args...)
}

func scanOrder(sc scanner) (*readmodel.OrderReadModel, error) {
	var o readmodel.OrderReadModel
	var items []byte
	var completedAt sql.NullTime
	if err := sc.Scan(&o.ID, &o.UserID, &o.State, &items, &o.ItemCount, &o.ItemTotal, &o.AdjustmentTotal,
		&o.PaymentTotal, &o.Total, &completedAt, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &o.LineItems); err != nil {
			return nil, err
		}
	}
	if completedAt.Valid {
		t := completedAt.Time
		o.CompletedAt = &t
	}
	return &o, nil
}

func (rs *PostgresReadStore) setOrder(db execer, o *readmodel.OrderReadModel) error {
	items, err := json.Marshal(o.LineItems)
	if err != nil {
		return err
	}
	_, err = db.Exec(`
		INSERT INTO read_orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			state = EXCLUDED.state,
			line_items = EXCLUDED.line_items,
			item_count = EXCLUDED.item_count,
			item_total = EXCLUDED.item_total,
			adjustment_total = EXCLUDED.adjustment_total,
			payment_total = EXCLUDED.payment_total,
			total = EXCLUDED.total,
			completed_at = EXCLUDED.completed_at,
			updated_at = EXCLUDED.updated_at
	`, o.ID, o.UserID, o.State, items, o.ItemCount, o.ItemTotal, o.AdjustmentTotal, o.PaymentTotal, o.Total,
		nullTime(o.CompletedAt), o.CreatedAt, o.UpdatedAt)
	return err
}

// Inventory

func scanInventory(sc scanner) (*readmodel.InventoryReadModel, error) {
	var inv readmodel.InventoryReadModel
	if err := sc.Scan(&inv.ID, &inv.StockLocationID, &inv.VariantID, &inv.CountOnHand, &inv.Backordered); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (rs *PostgresReadStore) setInventory(db execer, inv *readmodel.InventoryReadModel) error {
	_, err := db.Exec(`
		INSERT INTO read_inventory (id, stock_location_id, variant_id, count_on_hand, backordered, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			count_on_hand = EXCLUDED.count_on_hand,
			backordered = EXCLUDED.backordered,
			updated_at = EXCLUDED.updated_at
	`, inv.ID, inv.StockLocationID, inv.VariantID, inv.CountOnHand, inv.Backordered, time.Now())
	return err
}

// Variants

func scanVariant(sc scanner) (*readmodel.VariantReadModel, error) {
	var v readmodel.VariantReadModel
	if err := sc.Scan(&v.ID, &v.SKU, &v.Name, &v.Price, &v.Weight, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return nil, err
	}
	return &v, nil
}

func (rs *PostgresReadStore) setVariant(db execer, v *readmodel.VariantReadModel) error {
	_, err := db.Exec(`
		INSERT INTO read_variants (id, sku, name, price, weight, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			sku = EXCLUDED.sku,
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			weight = EXCLUDED.weight,
			updated_at = EXCLUDED.updated_at
	`, v.ID, v.SKU, v.Name, v.Price, v.Weight, v.CreatedAt, v.UpdatedAt)
	return err
}

// Stock locations

func scanLocation(sc scanner) (*readmodel.StockLocationReadModel, error) {
	var l readmodel.StockLocationReadModel
	if err := sc.Scan(&l.ID, &l.Name, &l.Code, &l.Priority, &l.Active, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

func (rs *PostgresReadStore) setLocation(db execer, l *readmodel.StockLocationReadModel) error {
	_, err := db.Exec(`
		INSERT INTO read_stock_locations (id, name, code, priority, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			code = EXCLUDED.code,
			priority = EXCLUDED.priority,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at
	`, l.ID, l.Name, l.Code, l.Priority, l.Active, l.CreatedAt, l.UpdatedAt)
	return err
}

// Users

func scanUser(sc scanner) (*readmodel.UserReadModel, error) {
	var u readmodel.UserReadModel
	if err := sc.Scan(&u.ID, &u.Email, &u.Guest, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (rs *PostgresReadStore) setUser(db execer, u *readmodel.UserReadModel) error {
	_, err := db.Exec(`
		INSERT INTO read_users (id, email, guest, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			guest = EXCLUDED.guest,
			updated_at = EXCLUDED.updated_at
	`, u.ID, u.Email, u.Guest, u.CreatedAt, u.UpdatedAt)
	return err
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
