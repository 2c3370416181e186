package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ADMIN_EMAILS", " Boss@Example.com ,, ")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.StorageDriver)
	assert.Equal(t, int64(50), cfg.TeacherGrantLimit)
	assert.Equal(t, int64(1000), cfg.AdminGrantLimit)
	assert.Equal(t, "ifpr.edu.br", cfg.InstitutionDomain)
	assert.Equal(t, "estudantes", cfg.StudentSubdomain)
	assert.Equal(t, []string{"boss@example.com"}, cfg.AdminEmails)
	assert.Equal(t, 3*time.Hour, cfg.JWTTTL)
	assert.Equal(t, "events", cfg.BonusScope)
	assert.Equal(t, "max", cfg.OverlapPolicy)
	assert.Equal(t, 50, cfg.RankingDefaultLimit)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			StorageDriver:       DriverMemory,
			JWTSecret:           "s",
			JWTTTL:              time.Hour,
			RequestTimeout:      time.Second,
			InstitutionDomain:   "ifpr.edu.br",
			TeacherGrantLimit:   50,
			AdminGrantLimit:     1000,
			BonusScope:          "events",
			OverlapPolicy:       "max",
			SignInMaxFailures:   5,
			SignInCooldown:      time.Minute,
			SignUpMaxAttempts:   3,
			SignUpCooldown:      time.Minute,
			ReadRetryAttempts:   3,
			IdempotencyTTL:      time.Hour,
			RankingDefaultLimit: 50,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.StorageDriver = "mongo" }, wantErr: true},
		{name: "postgres without uri", mutate: func(c *Config) { c.StorageDriver = DriverPostgres }, wantErr: true},
		{name: "bad bonus scope", mutate: func(c *Config) { c.BonusScope = "weekends" }, wantErr: true},
		{name: "bad overlap policy", mutate: func(c *Config) { c.OverlapPolicy = "sum" }, wantErr: true},
		{name: "zero teacher limit", mutate: func(c *Config) { c.TeacherGrantLimit = 0 }, wantErr: true},
		{name: "negative starting coins", mutate: func(c *Config) { c.StartingCoins = -1 }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
