package config

import (
	"time"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Ingest     IngestConfig     `mapstructure:"ingest"`
	Analyzer   AnalyzerConfig   `mapstructure:"analyzer"`
	Forecast   ForecastConfig   `mapstructure:"forecast"`
	Elasticity ElasticityConfig `mapstructure:"elasticity"`
	Executor   ExecutorConfig   `mapstructure:"executor"`
	Policy     PolicyConfig     `mapstructure:"policy"`
	Fleets     []string         `mapstructure:"fleets"`
	API        APIConfig        `mapstructure:"api"`
	WebSocket  WebSocketConfig  `mapstructure:"websocket"`
	Events     EventsConfig     `mapstructure:"events"`
}

type AppConfig struct {
	Name            string        `mapstructure:"name"`
	Mode            string        `mapstructure:"mode"`
	LogLevel        string        `mapstructure:"log_level"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	MaxConnections  int           `mapstructure:"max_connections"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type TelemetryConfig struct {
	Type           string               `mapstructure:"type"`
	Endpoint       string               `mapstructure:"endpoint"`
	Timeout        time.Duration        `mapstructure:"timeout"`
	RetryAttempts  int                  `mapstructure:"retry_attempts"`
	RetryDelay     time.Duration        `mapstructure:"retry_delay"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	MaxFailures int           `mapstructure:"max_failures"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type IngestConfig struct {
	WindowSize int `mapstructure:"window_size"`
}

type AnalyzerConfig struct {
	HotspotFactor         float64 `mapstructure:"hotspot_factor"`
	HotspotDebounce       int     `mapstructure:"hotspot_debounce"`
	UnderutilizedDebounce int     `mapstructure:"underutilized_debounce"`
	UtilizationWeight     float64 `mapstructure:"utilization_weight"`
	DispersionFloor       float64 `mapstructure:"dispersion_floor"`
}

type ForecastConfig struct {
	TrendWindow int `mapstructure:"trend_window"`
	ErrorWindow int `mapstructure:"error_window"`
	MinHistory  int `mapstructure:"min_history"`
	MaxHistory  int `mapstructure:"max_history"`
}

type ElasticityConfig struct {
	Retention time.Duration `mapstructure:"retention"`
	SpeedRef  time.Duration `mapstructure:"speed_ref"`
	MinTrust  float64       `mapstructure:"min_trust"`
}

type ExecutorConfig struct {
	Type          string        `mapstructure:"type"`
	ProvisionTime time.Duration `mapstructure:"provision_time"`
	DrainTime     time.Duration `mapstructure:"drain_time"`
	FailureRate   float64       `mapstructure:"failure_rate"`
}

type PolicyConfig struct {
	MinInstances         int           `mapstructure:"min_instances"`
	MaxInstances         int           `mapstructure:"max_instances"`
	ScaleUpCooldown      time.Duration `mapstructure:"scale_up_cooldown"`
	ScaleDownCooldown    time.Duration `mapstructure:"scale_down_cooldown"`
	TargetUtilization    float64       `mapstructure:"target_utilization"`
	SLAMaxLatencyMS      float64       `mapstructure:"sla_max_latency_ms"`
	SLAMinAvailability   float64       `mapstructure:"sla_min_availability"`
	SLAMaxErrorRate      float64       `mapstructure:"sla_max_error_rate"`
	CostWeight           float64       `mapstructure:"cost_weight"`
	TickInterval         time.Duration `mapstructure:"tick_interval"`
	UrgentMargin         float64       `mapstructure:"urgent_margin"`
	SafetyBuffer         float64       `mapstructure:"safety_buffer"`
	Aggregation          string        `mapstructure:"aggregation"`
	ForecastHorizon      time.Duration `mapstructure:"forecast_horizon"`
	ApplyDeadline        time.Duration `mapstructure:"apply_deadline"`
	SingleInstanceUrgent bool          `mapstructure:"single_instance_urgent"`
}

type APIConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Port          int           `mapstructure:"port"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
	OperatorToken string        `mapstructure:"operator_token"`
	JWTSecret     string        `mapstructure:"jwt_secret"`
	JWTDuration   time.Duration `mapstructure:"jwt_duration"`
	JWTIssuer     string        `mapstructure:"jwt_issuer"`
	DefaultLimit  int           `mapstructure:"default_limit"`
	MaxLimit      int           `mapstructure:"max_limit"`
	CORS          CORSConfig    `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type WebSocketConfig struct {
	MaxConnections  int           `mapstructure:"max_connections"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	PongTimeout     time.Duration `mapstructure:"pong_timeout"`
	MaxMessageSize  int64         `mapstructure:"max_message_size"`
	ReadBufferSize  int           `mapstructure:"read_buffer_size"`
	WriteBufferSize int           `mapstructure:"write_buffer_size"`
	ClientBuffer    int           `mapstructure:"client_buffer"`
}

type EventsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}
