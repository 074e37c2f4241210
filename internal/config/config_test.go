package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"

	"github.com/badogar/solidus/internal/domain/zone"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(WithoutSystemEnv(), WithEnvFile(""))
	require.NoError(t, err)

	assert.Equal(t, "USD", cfg.Store.Currency)
	assert.Equal(t, "en-US", cfg.Store.Locale)
	assert.Equal(t, 10, cfg.Store.SnapshotThreshold)
	assert.Equal(t, BackendMemory, cfg.Events.Backend)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 25, cfg.Postgres.MaxOpenConns)
	assert.Equal(t, 5*time.Minute, cfg.Postgres.ConnMaxLifetime)
	assert.Empty(t, cfg.Redis.Addr)
	assert.True(t, cfg.Store.Pricing.TaxRate.IsZero())
	assert.Equal(t, "5", cfg.Store.Pricing.ShippingBase.String())
	assert.False(t, cfg.Store.Pricing.FreeShipping)

	unit, err := cfg.Store.CurrencyUnit()
	require.NoError(t, err)
	assert.Equal(t, currency.USD, unit)

	tag, err := cfg.Store.LanguageTag()
	require.NoError(t, err)
	assert.Equal(t, language.AmericanEnglish, tag)
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(WithoutSystemEnv(), WithEnvFile(""), WithEnvMap(map[string]string{
		"STORE_CURRENCY":    "eur",
		"STORE_LOCALE":      "de-DE",
		"EVENT_STORE":       "Postgres",
		"KAFKA_BROKERS":     "k1:9092, k2:9092,,",
		"REDIS_ADDR":        "redis:6379",
		"ORDER_LOCK_TTL":    "3s",
		"LOG_LEVEL":         "debug",
		"SMTP_FROM":         "shop@example.com",
		"REDIS_DB":          "2",
		"DYNAMODB_ENDPOINT": "http://localhost:8000",
		"TAX_RATE":          "0.08",
		"TAX_ZONE":          "country:us, state:CA-QC",
		"FREE_SHIPPING":     "true",
	}))
	require.NoError(t, err)

	assert.Equal(t, "EUR", cfg.Store.Currency)
	assert.Equal(t, BackendPostgres, cfg.Events.Backend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 3*time.Second, cfg.Redis.LockTTL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "http://localhost:8000", cfg.Dynamo.Endpoint)
	assert.Equal(t, "0.08", cfg.Store.Pricing.TaxRate.String())
	assert.Equal(t, []zone.Member{{Kind: zone.KindCountry, ID: "US"}, {Kind: zone.KindState, ID: "CA-QC"}}, cfg.Store.Pricing.TaxZone)
	assert.True(t, cfg.Store.Pricing.FreeShipping)
}

func TestLoad_EnvFileFillsGaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("STORE_CURRENCY=JPY\nSTORE_LOCALE=ja-JP\n"), 0o600))

	cfg, err := Load(WithoutSystemEnv(), WithEnvFile(path), WithEnvMap(map[string]string{"STORE_LOCALE": "en-GB"}))
	require.NoError(t, err)

	assert.Equal(t, "JPY", cfg.Store.Currency)
	assert.Equal(t, "en-GB", cfg.Store.Locale)
}

func TestLoad_MissingEnvFileIsFine(t *testing.T) {
	_, err := Load(WithoutSystemEnv(), WithEnvFile(filepath.Join(t.TempDir(), "absent.env")))
	assert.NoError(t, err)
}

func TestLoad_ValidationErrors(t *testing.T) {
	_, err := Load(WithoutSystemEnv(), WithEnvFile(""), WithEnvMap(map[string]string{
		"STORE_CURRENCY":        "XXXX",
		"EVENT_STORE":           "mongo",
		"SNAPSHOT_THRESHOLD":    "ten",
		"ORDER_NUMBER_ATTEMPTS": "0",
		"FREE_SHIPPING":         "maybe",
		"SHIPPING_BASE":         "-1",
		"TAX_ZONE":              "planet:mars",
	}))

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Problems, 7)
	assert.Contains(t, err.Error(), "TAX_ZONE")
	assert.Contains(t, err.Error(), "EVENT_STORE")
	assert.Contains(t, err.Error(), "SNAPSHOT_THRESHOLD")
}
