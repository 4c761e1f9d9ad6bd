package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "brandinglab-backend", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, 55, cfg.CRM.RateLimitCalls)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 3, cfg.Queue.MaxRetries)
	assert.Contains(t, cfg.Import.RequiredFields, "transactionId")
	assert.NotZero(t, cfg.Import.LockTTL)
	assert.NotZero(t, cfg.Labeling.RequestDelay)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("BRANDINGLAB_APP_PORT", "9090")
	t.Setenv("BRANDINGLAB_CRM_BASE_URL", "https://crm.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, "https://crm.example.com", cfg.CRM.BaseURL)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "app",
		Password: "p@ss/word",
		DBName:   "brandinglab",
		SSLMode:  "require",
	}

	dsn := d.DSN()
	assert.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "db.internal:5433")
	assert.Contains(t, dsn, "sslmode=require")
	assert.NotContains(t, dsn, "p@ss/word")
}

func TestRedisConfig_Addr(t *testing.T) {
	r := RedisConfig{Host: "cache", Port: 6380}
	assert.Equal(t, "cache:6380", r.Addr())
}

func TestValidate_Production(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.App.Env = "production"

	err := cfg.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password")
}
