package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "test.db")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")

	cfg, _, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.NoError(t, cfg.Validate())
}

func TestLoadRejectsBadTimeout(t *testing.T) {
	t.Setenv("REQUEST_TIMEOUT", "soon")
	_, _, err := Load("")
	assert.Error(t, err)
}

func TestValidateUnknownDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "oracle")
	cfg, _, err := Load("")
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())
}

func TestDSNPrefersURL(t *testing.T) {
	d := DatabaseConfig{URL: "postgres://u@h/db", Host: "ignored"}
	assert.Equal(t, "postgres://u@h/db", d.DSN())

	d = DatabaseConfig{Host: "h", Port: "5432", User: "u", Password: "p", Name: "db", SSLMode: "disable"}
	assert.Equal(t, "host=h port=5432 user=u password=p dbname=db sslmode=disable", d.DSN())
}

func TestLoadMatchingConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matching.yaml")
	require.NoError(t, os.WriteFile(path, []byte("threshold: 75\ndate_weight: 0.25\ndescription_weight: 0.25\n"), 0o600))

	cfg, err := LoadMatchingConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 75.0, cfg.Threshold)
	assert.Equal(t, 0.5, cfg.AmountWeight)
	assert.Equal(t, 0.25, cfg.DateWeight)
}

func TestLoadMatchingConfigRejectsBadWeights(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matching.yaml")
	require.NoError(t, os.WriteFile(path, []byte("amount_weight: 0.9\n"), 0o600))

	_, err := LoadMatchingConfig(path)
	assert.Error(t, err)
}
