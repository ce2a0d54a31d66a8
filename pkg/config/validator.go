package config

import (
	"errors"
	"fmt"
)

func (c *Config) Validate() error {
	var errs []error

	if c.App.Name == "" {
		errs = append(errs, errors.New("app.name is required"))
	}

	validModes := map[string]bool{"development": true, "production": true, "test": true}
	if !validModes[c.App.Mode] {
		errs = append(errs, fmt.Errorf("app.mode must be one of: development, production, test"))
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.App.LogLevel] {
		errs = append(errs, fmt.Errorf("app.log_level must be one of: debug, info, warn, error"))
	}

	if c.Database.Enabled {
		if c.Database.Host == "" {
			errs = append(errs, errors.New("database.host is required"))
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, errors.New("database.port must be between 1 and 65535"))
		}
		if c.Database.Name == "" {
			errs = append(errs, errors.New("database.name is required"))
		}
		if c.Database.MaxConnections <= 0 {
			errs = append(errs, errors.New("database.max_connections must be positive"))
		}
	}

	validTelemetry := map[string]bool{"http": true, "mock": true}
	if !validTelemetry[c.Telemetry.Type] {
		errs = append(errs, errors.New("telemetry.type must be one of: http, mock"))
	}
	if c.Telemetry.Timeout <= 0 {
		errs = append(errs, errors.New("telemetry.timeout must be positive"))
	}

	if c.Ingest.WindowSize <= 0 {
		errs = append(errs, errors.New("ingest.window_size must be positive"))
	}

	if c.Analyzer.HotspotFactor <= 0 {
		errs = append(errs, errors.New("analyzer.hotspot_factor must be positive"))
	}
	if c.Analyzer.HotspotDebounce <= 0 {
		errs = append(errs, errors.New("analyzer.hotspot_debounce must be positive"))
	}
	if c.Analyzer.UnderutilizedDebounce <= 0 {
		errs = append(errs, errors.New("analyzer.underutilized_debounce must be positive"))
	}
	if c.Analyzer.UtilizationWeight < 0 || c.Analyzer.UtilizationWeight > 1 {
		errs = append(errs, errors.New("analyzer.utilization_weight must be between 0 and 1"))
	}
	if c.Analyzer.DispersionFloor < 0 || c.Analyzer.DispersionFloor >= 1 {
		errs = append(errs, errors.New("analyzer.dispersion_floor must be in [0, 1)"))
	}

	if c.Forecast.MinHistory <= 0 {
		errs = append(errs, errors.New("forecast.min_history must be positive"))
	}
	if c.Forecast.MaxHistory < c.Forecast.MinHistory {
		errs = append(errs, errors.New("forecast.max_history must be >= min_history"))
	}

	if c.Elasticity.MinTrust < 0 || c.Elasticity.MinTrust > 1 {
		errs = append(errs, errors.New("elasticity.min_trust must be between 0 and 1"))
	}

	validExecutors := map[string]bool{"simulated": true}
	if !validExecutors[c.Executor.Type] {
		errs = append(errs, errors.New("executor.type must be: simulated"))
	}
	if c.Executor.FailureRate < 0 || c.Executor.FailureRate >= 1 {
		errs = append(errs, errors.New("executor.failure_rate must be in [0, 1)"))
	}

	errs = append(errs, c.Policy.validate()...)

	if len(c.Fleets) == 0 {
		errs = append(errs, errors.New("at least one fleet is required"))
	}

	if c.API.Enabled {
		if c.API.Port <= 0 || c.API.Port > 65535 {
			errs = append(errs, errors.New("api.port must be between 1 and 65535"))
		}
		if c.App.Mode == "production" && c.API.JWTSecret == "change-me-in-production" {
			errs = append(errs, errors.New("api.jwt_secret must be changed in production"))
		}
		if c.App.Mode == "production" && c.API.OperatorToken == "change-me-in-production" {
			errs = append(errs, errors.New("api.operator_token must be changed in production"))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}

	return nil
}

func (p PolicyConfig) validate() []error {
	var errs []error

	if p.MinInstances <= 0 {
		errs = append(errs, errors.New("policy.min_instances must be positive"))
	}
	if p.MaxInstances < p.MinInstances {
		errs = append(errs, errors.New("policy.max_instances must be >= min_instances"))
	}
	if p.TargetUtilization <= 0 || p.TargetUtilization >= 1 {
		errs = append(errs, errors.New("policy.target_utilization must be in (0, 1)"))
	}
	if p.TargetUtilization+p.UrgentMargin >= 1 {
		errs = append(errs, errors.New("policy.target_utilization plus urgent_margin must be below 1"))
	}
	if p.TickInterval <= 0 {
		errs = append(errs, errors.New("policy.tick_interval must be positive"))
	}
	if p.ScaleUpCooldown < 0 || p.ScaleDownCooldown < 0 {
		errs = append(errs, errors.New("policy cooldowns must not be negative"))
	}
	if p.Aggregation != "sum" && p.Aggregation != "max" {
		errs = append(errs, errors.New("policy.aggregation must be one of: sum, max"))
	}
	if p.ForecastHorizon <= 0 {
		errs = append(errs, errors.New("policy.forecast_horizon must be positive"))
	}

	return errs
}
