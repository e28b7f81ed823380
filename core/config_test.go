package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvKeys = []string{
	"CONFIG_FILE", "PORT", "LOG_DIR", "LOG_LEVEL", "LOG_FORMAT", "DATABASE_URL", "DATABASE_URL_LOCAL",
	"REDIS_URL", "SECRET_KEY", "ALGORITHM", "ACCESS_TOKEN_EXPIRE_MINUTES", "ALLOWED_ORIGINS",
	"AUTO_MIGRATE", "AUDIT_STREAM_MAX",
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnvKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearConfigEnv(t)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "HS256", cfg.Algorithm)
	assert.Equal(t, 30, cfg.AccessTokenExpireMinutes)
	assert.Equal(t, 30*time.Minute, cfg.TokenLifetime())
	assert.True(t, cfg.AutoMigrate)
	assert.Equal(t, 1000, cfg.AuditStreamMax)
	assert.Empty(t, cfg.AllowedOrigins)
	// No secret configured.
	assert.Error(t, cfg.Validate())
}

func TestLoadFileThenEnv(t *testing.T) {
	clearConfigEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9000"
secret_key: from-file
algorithm: hs384
access_token_expire_minutes: 45
allowed_origins: ["https://a.example"]
auto_migrate: false
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "9100")
	t.Setenv("ALLOWED_ORIGINS", "https://b.example, https://c.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, "from-file", cfg.SecretKey)
	assert.Equal(t, "HS384", cfg.Algorithm)
	assert.Equal(t, 45, cfg.AccessTokenExpireMinutes)
	assert.Equal(t, []string{"https://b.example", "https://c.example"}, cfg.AllowedOrigins)
	assert.False(t, cfg.AutoMigrate)
	assert.NoError(t, cfg.Validate())
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [unclosed"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	_, err = Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	ok := Config{SecretKey: "s", Algorithm: "HS256", AccessTokenExpireMinutes: 5}
	assert.NoError(t, ok.Validate())

	bad := ok
	bad.Algorithm = "RS256"
	assert.ErrorContains(t, bad.Validate(), "ALGORITHM")

	bad = ok
	bad.AccessTokenExpireMinutes = 0
	assert.ErrorContains(t, bad.Validate(), "ACCESS_TOKEN_EXPIRE_MINUTES")

	bad = Config{}
	err := bad.Validate()
	assert.ErrorContains(t, err, "SECRET_KEY")
	assert.ErrorContains(t, err, "ALGORITHM")
}

func TestParseCSV(t *testing.T) {
	assert.Nil(t, parseCSV(""))
	assert.Equal(t, []string{"a", "b"}, parseCSV(" a ,, b ,"))
}
