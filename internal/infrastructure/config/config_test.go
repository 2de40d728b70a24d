package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 25, cfg.DatabaseMaxConns)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "redis", cfg.IdempotencyBackend)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, 16, cfg.HierarchyMaxDepth)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("IDEMPOTENCY_BACKEND", "postgres")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "postgres", cfg.IdempotencyBackend)
}

func TestLoadInvalidIdempotencyBackend(t *testing.T) {
	t.Setenv("IDEMPOTENCY_BACKEND", "memcached")

	_, err := Load()
	require.Error(t, err)
}

func TestRoleLevels(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    map[string]int
		wantErr bool
	}{
		{
			name: "default role ladder",
			raw:  "SUPER_ADMIN:0,WHITELABEL:1,MASTER_DISTRIBUTOR:2,DISTRIBUTOR:3,RETAILER:4",
			want: map[string]int{
				"SUPER_ADMIN":        0,
				"WHITELABEL":         1,
				"MASTER_DISTRIBUTOR": 2,
				"DISTRIBUTOR":        3,
				"RETAILER":           4,
			},
		},
		{
			name: "whitespace tolerated",
			raw:  " ADMIN : 0 , AGENT : 1 ",
			want: map[string]int{"ADMIN": 0, "AGENT": 1},
		},
		{
			name:    "missing level",
			raw:     "ADMIN",
			wantErr: true,
		},
		{
			name:    "non-numeric level",
			raw:     "ADMIN:first",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{HierarchyRoleLevels: tt.raw}
			got, err := cfg.RoleLevels()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEligibleRoles(t *testing.T) {
	cfg := &Config{HierarchyEligibleRoles: "DISTRIBUTOR, RETAILER"}
	assert.Equal(t, map[string]bool{"DISTRIBUTOR": true, "RETAILER": true}, cfg.EligibleRoles())

	cfg = &Config{HierarchyEligibleRoles: ""}
	assert.Empty(t, cfg.EligibleRoles())
}
