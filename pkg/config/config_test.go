package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetscale/fleetd/pkg/models"
)

func TestLoad_DefaultsWithoutConfigFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "fleetd", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Mode)
	assert.Equal(t, "mock", cfg.Telemetry.Type)
	assert.Equal(t, 120, cfg.Ingest.WindowSize)
	assert.Equal(t, 2, cfg.Policy.MinInstances)
	assert.Equal(t, 50, cfg.Policy.MaxInstances)
	assert.Equal(t, 3*time.Minute, cfg.Policy.ScaleUpCooldown)
	assert.Equal(t, 10*time.Minute, cfg.Policy.ScaleDownCooldown)
	assert.Equal(t, 0.7, cfg.Policy.TargetUtilization)
	assert.Equal(t, 30*time.Second, cfg.Policy.TickInterval)
	assert.Equal(t, "sum", cfg.Policy.Aggregation)
	assert.Equal(t, 0.05, cfg.Analyzer.DispersionFloor)
	assert.Equal(t, 14, cfg.Forecast.MinHistory)
	assert.Equal(t, 0.5, cfg.Elasticity.MinTrust)
	assert.Equal(t, []string{"default"}, cfg.Fleets)

	require.NoError(t, cfg.Validate())
}

func TestLoad_ConfigFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
app:
  name: fleetd-test
  mode: test
policy:
  max_instances: 12
  aggregation: max
fleets:
  - web
  - workers
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "fleetd-test", cfg.App.Name)
	assert.Equal(t, "test", cfg.App.Mode)
	assert.Equal(t, 12, cfg.Policy.MaxInstances)
	assert.Equal(t, "max", cfg.Policy.Aggregation)
	assert.Equal(t, []string{"web", "workers"}, cfg.Fleets)

	// Untouched sections keep their defaults.
	assert.Equal(t, 2, cfg.Policy.MinInstances)
	assert.Equal(t, "mock", cfg.Telemetry.Type)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("FLEETD_APP_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.App.LogLevel)
}

func TestLoad_MissingExplicitFileFails(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := Load("")
	require.NoError(t, err)
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing app name",
			mutate:  func(c *Config) { c.App.Name = "" },
			wantErr: "app.name",
		},
		{
			name:    "bad mode",
			mutate:  func(c *Config) { c.App.Mode = "staging" },
			wantErr: "app.mode",
		},
		{
			name:    "bad telemetry type",
			mutate:  func(c *Config) { c.Telemetry.Type = "grpc" },
			wantErr: "telemetry.type",
		},
		{
			name:    "min above max",
			mutate:  func(c *Config) { c.Policy.MinInstances = 20; c.Policy.MaxInstances = 5 },
			wantErr: "policy.max_instances",
		},
		{
			name:    "target utilization out of range",
			mutate:  func(c *Config) { c.Policy.TargetUtilization = 1.2 },
			wantErr: "policy.target_utilization",
		},
		{
			name:    "target plus urgent margin too high",
			mutate:  func(c *Config) { c.Policy.TargetUtilization = 0.9; c.Policy.UrgentMargin = 0.2 },
			wantErr: "urgent_margin",
		},
		{
			name:    "bad aggregation",
			mutate:  func(c *Config) { c.Policy.Aggregation = "avg" },
			wantErr: "policy.aggregation",
		},
		{
			name:    "no fleets",
			mutate:  func(c *Config) { c.Fleets = nil },
			wantErr: "at least one fleet",
		},
		{
			name:    "database enabled requires host",
			mutate:  func(c *Config) { c.Database.Enabled = true; c.Database.Host = "" },
			wantErr: "database.host",
		},
		{
			name: "production rejects default secrets",
			mutate: func(c *Config) {
				c.App.Mode = "production"
			},
			wantErr: "jwt_secret",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
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

func TestPolicyConfig_ToScalingPolicy(t *testing.T) {
	cfg := validConfig(t)
	cfg.Policy.Aggregation = "max"
	cfg.Policy.SingleInstanceUrgent = true

	policy := cfg.Policy.ToScalingPolicy()

	assert.Equal(t, cfg.Policy.MinInstances, policy.MinInstances)
	assert.Equal(t, cfg.Policy.MaxInstances, policy.MaxInstances)
	assert.Equal(t, cfg.Policy.ScaleUpCooldown, policy.ScaleUpCooldown)
	assert.Equal(t, cfg.Policy.TargetUtilization, policy.TargetUtilization)
	assert.Equal(t, models.AggregateMax, policy.Aggregation)
	assert.True(t, policy.SingleInstanceUrgent)
}
