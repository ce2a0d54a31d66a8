package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/fleetd")
	}

	v.SetEnvPrefix("FLEETD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file: defaults plus environment.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "fleetd")
	v.SetDefault("app.mode", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.shutdown_timeout", "30s")

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "fleetd")
	v.SetDefault("database.user", "fleetd")
	v.SetDefault("database.password", "fleetd")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.ssl_mode", "disable")

	// Telemetry defaults
	v.SetDefault("telemetry.type", "mock")
	v.SetDefault("telemetry.endpoint", "http://localhost:9000")
	v.SetDefault("telemetry.timeout", "5s")
	v.SetDefault("telemetry.retry_attempts", 3)
	v.SetDefault("telemetry.retry_delay", "1s")
	v.SetDefault("telemetry.circuit_breaker.max_failures", 5)
	v.SetDefault("telemetry.circuit_breaker.timeout", "30s")

	// Ingest defaults
	v.SetDefault("ingest.window_size", 120)

	// Analyzer defaults
	v.SetDefault("analyzer.hotspot_factor", 1.5)
	v.SetDefault("analyzer.hotspot_debounce", 2)
	v.SetDefault("analyzer.underutilized_debounce", 5)
	v.SetDefault("analyzer.utilization_weight", 0.7)
	v.SetDefault("analyzer.dispersion_floor", 0.05)

	// Forecast defaults
	v.SetDefault("forecast.trend_window", 20)
	v.SetDefault("forecast.error_window", 10)
	v.SetDefault("forecast.min_history", 14)
	v.SetDefault("forecast.max_history", 360)

	// Elasticity defaults
	v.SetDefault("elasticity.retention", "720h")
	v.SetDefault("elasticity.speed_ref", "60s")
	v.SetDefault("elasticity.min_trust", 0.5)

	// Executor defaults
	v.SetDefault("executor.type", "simulated")
	v.SetDefault("executor.provision_time", "10s")
	v.SetDefault("executor.drain_time", "5s")
	v.SetDefault("executor.failure_rate", 0.0)

	// Policy defaults
	v.SetDefault("policy.min_instances", 2)
	v.SetDefault("policy.max_instances", 50)
	v.SetDefault("policy.scale_up_cooldown", "3m")
	v.SetDefault("policy.scale_down_cooldown", "10m")
	v.SetDefault("policy.target_utilization", 0.7)
	v.SetDefault("policy.sla_max_latency_ms", 500.0)
	v.SetDefault("policy.sla_min_availability", 0.995)
	v.SetDefault("policy.sla_max_error_rate", 0.01)
	v.SetDefault("policy.cost_weight", 0.5)
	v.SetDefault("policy.tick_interval", "30s")
	v.SetDefault("policy.urgent_margin", 0.15)
	v.SetDefault("policy.safety_buffer", 0.20)
	v.SetDefault("policy.aggregation", "sum")
	v.SetDefault("policy.forecast_horizon", "5m")
	v.SetDefault("policy.apply_deadline", "2m")
	v.SetDefault("policy.single_instance_urgent", false)

	// Fleets managed at startup
	v.SetDefault("fleets", []string{"default"})

	// API defaults
	v.SetDefault("api.enabled", true)
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_timeout", "15s")
	v.SetDefault("api.write_timeout", "15s")
	v.SetDefault("api.idle_timeout", "60s")
	v.SetDefault("api.operator_token", "change-me-in-production")
	v.SetDefault("api.jwt_secret", "change-me-in-production")
	v.SetDefault("api.jwt_duration", "24h")
	v.SetDefault("api.jwt_issuer", "fleetd")
	v.SetDefault("api.default_limit", 50)
	v.SetDefault("api.max_limit", 500)

	// WebSocket defaults
	v.SetDefault("websocket.max_connections", 1000)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.write_timeout", "10s")
	v.SetDefault("websocket.pong_timeout", "60s")
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("websocket.read_buffer_size", 1024)
	v.SetDefault("websocket.write_buffer_size", 1024)
	v.SetDefault("websocket.client_buffer", 64)

	// Events defaults
	v.SetDefault("events.buffer_size", 100)
}
