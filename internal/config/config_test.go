package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("RECON_TEST_DSN", "file:test.db")

	path := writeConfig(t, `
server:
  addr: ":9090"
database:
  driver: sqlite
  dsn: ${RECON_TEST_DSN}
matching:
  auto_attach_threshold: 0.75
  workers: 8
logging:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "file:test.db", cfg.Database.DSN)
	assert.Equal(t, 0.75, cfg.Matching.AutoAttachThreshold)
	assert.Equal(t, 8, cfg.Matching.Workers)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Unset keys keep their defaults.
	assert.Equal(t, 30, cfg.Matching.DateCutoffDays)
	assert.Equal(t, 0.35, cfg.Matching.Weights.Amount)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "server: [unterminated"))
		assert.Error(t, err)
	})

	t.Run("weights do not sum to one", func(t *testing.T) {
		_, err := Load(writeConfig(t, `
matching:
  weights:
    amount: 0.9
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "matching")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"cutoff", func(c *Config) { c.Matching.DateCutoffDays = 0 }, "date_cutoff_days"},
		{"min score", func(c *Config) { c.Matching.MinScore = 1.5 }, "min_score"},
		{"threshold below floor", func(c *Config) { c.Matching.AutoAttachThreshold = 0.1 }, "auto_attach_threshold"},
		{"driver", func(c *Config) { c.Database.Driver = "mysql" }, "unsupported driver"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "local.db")
	t.Setenv("MATCH_AUTO_ATTACH_THRESHOLD", "0.8")
	t.Setenv("MATCH_WORKERS", "not-a-number")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg := LoadFromEnv()
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "local.db", cfg.Database.DSN)
	assert.Equal(t, 0.8, cfg.Matching.AutoAttachThreshold)
	assert.Equal(t, 4, cfg.Matching.Workers)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "db.internal")

	cfg := LoadFromEnv()
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Contains(t, cfg.Database.DSN, "host=db.internal")
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadOrEnvWithPath_FallsBackToEnv(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":7000")

	cfg, err := LoadOrEnvWithPath(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
}

func TestLoadOrEnvWithPath_InvalidFileIsAnError(t *testing.T) {
	t.Run("weights fail validation", func(t *testing.T) {
		path := writeConfig(t, `
database:
  driver: sqlite
matching:
  weights:
    amount: 0.9
    vendor: 0.9
`)
		cfg, err := LoadOrEnvWithPath(path)
		require.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "weights")
	})

	t.Run("file does not parse", func(t *testing.T) {
		cfg, err := LoadOrEnvWithPath(writeConfig(t, "database: [sqlite"))
		require.Error(t, err)
		assert.Nil(t, cfg)
	})
}

func TestLoadFromEnv_MatchingTuning(t *testing.T) {
	t.Setenv("MATCH_WEIGHT_AMOUNT", "0.40")
	t.Setenv("MATCH_WEIGHT_VENDOR", "0.20")
	t.Setenv("MATCH_AMOUNT_TOLERANCE", "0.05")
	t.Setenv("MATCH_PATTERN_AMOUNT_THRESHOLD", "0.95")

	cfg := LoadFromEnv()
	assert.Equal(t, 0.40, cfg.Matching.Weights.Amount)
	assert.Equal(t, 0.20, cfg.Matching.Weights.Vendor)
	assert.Equal(t, 0.20, cfg.Matching.Weights.InvoiceNumber)
	assert.Equal(t, 0.05, cfg.Matching.AmountTolerance)
	assert.Equal(t, 0.95, cfg.Matching.PatternAmountThreshold)
	assert.NoError(t, cfg.Validate())
}

func TestInitDB(t *testing.T) {
	db, err := InitDB(DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "init.db")})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.NoError(t, sqlDB.Ping())
	sqlDB.Close()

	_, err = InitDB(DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}
