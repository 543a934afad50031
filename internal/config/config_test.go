package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "CORS_ALLOWED_ORIGINS", "IDEMPOTENCY_TTL",
		"TICKET_STORE_DRIVER", "TICKET_STORE_PATH", "TICKET_STORE_DSN",
		"TICKET_STORE_DOCUMENT", "TICKET_STORE_STRICT", "ADMIN_SECRET",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 10*time.Minute, cfg.Server.IdempotencyTTL)
	assert.Equal(t, DriverFile, cfg.Store.Driver)
	assert.Equal(t, "support_chat.json", cfg.Store.Path)
	assert.False(t, cfg.Store.Strict)
	assert.False(t, cfg.Admin.Enabled())
}

func TestLoadServerAddr(t *testing.T) {
	clearEnv(t)

	t.Setenv("PORT", "127.0.0.1:9000")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)

	t.Setenv("PORT", "90 00")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoadStoreDrivers(t *testing.T) {
	clearEnv(t)

	t.Setenv("TICKET_STORE_DRIVER", "SQLite")
	t.Setenv("TICKET_STORE_PATH", "/var/lib/support/chat.json")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "/var/lib/support/chat.db", cfg.Store.DSN)

	t.Setenv("TICKET_STORE_DRIVER", "postgres")
	_, err = Load()
	assert.Error(t, err, "postgres without a DSN must fail")

	t.Setenv("TICKET_STORE_DSN", "postgres://localhost/support")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/support", cfg.Store.DSN)

	t.Setenv("TICKET_STORE_DRIVER", "mongo")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoadInvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("TICKET_STORE_STRICT", "maybe")
	_, err := Load()
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv("IDEMPOTENCY_TTL", "soon")
	_, err = Load()
	assert.Error(t, err)

	for _, ttl := range []string{"0", "0s", "-1m"} {
		clearEnv(t)
		t.Setenv("IDEMPOTENCY_TTL", ttl)
		_, err = Load()
		assert.Error(t, err, ttl)
	}
}

func TestLoadListsAndSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("ADMIN_SECRET", " s3cret ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "s3cret", cfg.Admin.Secret)
	assert.True(t, cfg.Admin.Enabled())
}

func TestOpenStoreFileAndSQLite(t *testing.T) {
	dir := t.TempDir()

	fileCfg := StoreConfig{Driver: DriverFile, Path: dir + "/chat.json"}
	store, closer, err := fileCfg.OpenStore(context.Background())
	require.NoError(t, err)
	require.NotNil(t, store)
	assert.NoError(t, closer.Close())

	sqliteCfg := StoreConfig{Driver: DriverSQLite, DSN: dir + "/chat.db", Document: "support_chat"}
	store, closer, err = sqliteCfg.OpenStore(context.Background())
	require.NoError(t, err)
	defer closer.Close()

	tickets, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tickets)
}
