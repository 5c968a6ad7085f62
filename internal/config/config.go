package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	WebSocket  WebSocketConfig  `mapstructure:"websocket"`
	Data       DataConfig       `mapstructure:"data"`
	Reports    ReportsConfig    `mapstructure:"reports"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Detectors  DetectorsConfig  `mapstructure:"detectors"`
	Portfolio  PortfolioConfig  `mapstructure:"portfolio"`
	RootCause  RootCauseConfig  `mapstructure:"root_cause"`
	Predict    PredictConfig    `mapstructure:"predict"`
	Alerts     AlertsConfig     `mapstructure:"alerts"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Security   SecurityConfig   `mapstructure:"security"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Path           string          `mapstructure:"path"`
	MigrationsPath string          `mapstructure:"migrations_path"`
	MaxConnections int             `mapstructure:"max_connections"`
	Migration      MigrationConfig `mapstructure:"migration"`
}

type MigrationConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

type AuthConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	JWTSecret   string `mapstructure:"jwt_secret"`
	TokenExpiry int    `mapstructure:"token_expiry"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type WebSocketConfig struct {
	PingInterval int `mapstructure:"ping_interval"`
	PongTimeout  int `mapstructure:"pong_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

// DataConfig describes where per-property clean datasets come from
type DataConfig struct {
	InputDir        string `mapstructure:"input_dir"`
	FilePattern     string `mapstructure:"file_pattern"`
	ExpectedDays    int    `mapstructure:"expected_days"`
	MinQualityScore int    `mapstructure:"min_quality_score"`
}

// ReportsConfig controls report output and archival
type ReportsConfig struct {
	OutputDir        string `mapstructure:"output_dir"`
	ArchiveEnabled   bool   `mapstructure:"archive_enabled"`
	ArchiveAfterDays int    `mapstructure:"archive_after_days"`
	CompressionLevel int    `mapstructure:"compression_level"`
}

type PipelineConfig struct {
	Workers int `mapstructure:"workers"`
}

// DetectorsConfig carries the tuning thresholds for all detectors.
// The defaults come from production calibration; treat them as data,
// not as constants to re-derive.
type DetectorsConfig struct {
	Disaster    DisasterConfig    `mapstructure:"disaster"`
	Spam        SpamConfig        `mapstructure:"spam"`
	Record      RecordConfig      `mapstructure:"record"`
	Trend       TrendConfig       `mapstructure:"trend"`
	Segment     SegmentConfig     `mapstructure:"segment"`
	Statistical StatisticalConfig `mapstructure:"statistical"`
}

type DisasterConfig struct {
	MinSessions         float64 `mapstructure:"min_sessions"`
	TrackingMinBaseline float64 `mapstructure:"tracking_min_baseline"`
	DropPct             float64 `mapstructure:"drop_pct"`
}

type SpamConfig struct {
	ZThreshold         float64 `mapstructure:"z_threshold"`
	BounceRateGate     float64 `mapstructure:"bounce_rate_gate"`
	MinDurationSeconds float64 `mapstructure:"min_duration_seconds"`
	BaselineDays       int     `mapstructure:"baseline_days"`
}

type RecordConfig struct {
	MinSessions float64 `mapstructure:"min_sessions"`
	HistoryDays int     `mapstructure:"history_days"`
}

type TrendConfig struct {
	RecentDays   int     `mapstructure:"recent_days"`
	BaselineDays int     `mapstructure:"baseline_days"`
	MinSessions  float64 `mapstructure:"min_sessions"`
	ChangePct    float64 `mapstructure:"change_pct"`
}

type SegmentConfig struct {
	ZThreshold float64 `mapstructure:"z_threshold"`
	WarningZ   float64 `mapstructure:"warning_z"`
}

type StatisticalConfig struct {
	ZThreshold    float64 `mapstructure:"z_threshold"`
	IQRMultiplier float64 `mapstructure:"iqr_multiplier"`
}

type PortfolioConfig struct {
	PatternThreshold    float64 `mapstructure:"pattern_threshold"`
	CascadeWindowDays   int     `mapstructure:"cascade_window_days"`
	CascadeMinDays      int     `mapstructure:"cascade_min_days"`
	CorrelationMinCount int     `mapstructure:"correlation_min_count"`
}

type RootCauseConfig struct {
	CalendarPath string  `mapstructure:"calendar_path"`
	WindowDays   int     `mapstructure:"window_days"`
	MinScore     float64 `mapstructure:"min_score"`
}

type PredictConfig struct {
	HorizonDays     int     `mapstructure:"horizon_days"`
	TrendDecay      float64 `mapstructure:"trend_decay"`
	SeasonalMinDays int     `mapstructure:"seasonal_min_days"`
}

type AlertsConfig struct {
	CriticalThreshold float64           `mapstructure:"critical_threshold"`
	WarningThreshold  float64           `mapstructure:"warning_threshold"`
	Suppression       SuppressionConfig `mapstructure:"suppression"`
}

type SuppressionConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	TTL     string `mapstructure:"ttl"`
}

// RedisConfig contains the optional suppression-cache backend
type RedisConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	KeyPrefix    string `mapstructure:"key_prefix"`
}

type SchedulerConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Cron     string `mapstructure:"cron"`
	Timezone string `mapstructure:"timezone"`
}

type MonitoringConfig struct {
	Enabled    bool             `mapstructure:"enabled"`
	Prefix     string           `mapstructure:"prefix"`
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type SecurityConfig struct {
	EnableCORS     bool     `mapstructure:"enable_cors"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads configuration from the given file, or from the default
// search paths when path is empty.
func Load(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
	}

	// Set defaults
	setDefaults()

	// Read environment variables
	viper.AutomaticEnv()

	// Override specific values from env
	viper.BindEnv("auth.jwt_secret", "JWT_SECRET")
	viper.BindEnv("server.port", "PORT")
	viper.BindEnv("database.path", "DATABASE_PATH")
	viper.BindEnv("logging.level", "LOG_LEVEL")
	viper.BindEnv("data.input_dir", "SCOUT_DATA_DIR")
	viper.BindEnv("reports.output_dir", "SCOUT_REPORTS_DIR")
	viper.BindEnv("root_cause.calendar_path", "SCOUT_CALENDAR_PATH")
	viper.BindEnv("pipeline.workers", "SCOUT_WORKERS")
	viper.BindEnv("scheduler.enabled", "SCOUT_SCHEDULER_ENABLED")
	viper.BindEnv("scheduler.cron", "SCOUT_SCHEDULE")
	viper.BindEnv("redis.enabled", "REDIS_ENABLED")
	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Validate the configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// Validate validates the configuration for completeness and correctness
func (c *Config) Validate() error {
	var errors []string

	// Validate server configuration
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errors = append(errors, "server.port must be between 1 and 65535")
	}
	if c.Server.Host == "" {
		errors = append(errors, "server.host is required")
	}

	// Validate database configuration
	if c.Database.Path == "" {
		errors = append(errors, "database.path is required")
	}

	// Validate authentication configuration
	if c.Auth.Enabled && (c.Auth.JWTSecret == "" || c.Auth.JWTSecret == "your-secret-key-here") {
		errors = append(errors, "auth.jwt_secret must be set to a secure value when enabled")
	}
	if c.Auth.Enabled && c.Auth.TokenExpiry <= 0 {
		errors = append(errors, "auth.token_expiry must be greater than 0 when enabled")
	}

	// Validate data source configuration
	if c.Data.InputDir == "" {
		errors = append(errors, "data.input_dir is required")
	}
	if c.Data.FilePattern == "" {
		errors = append(errors, "data.file_pattern is required")
	}
	if c.Data.MinQualityScore < 0 || c.Data.MinQualityScore > 100 {
		errors = append(errors, "data.min_quality_score must be between 0 and 100")
	}

	// Validate report output configuration
	if c.Reports.OutputDir == "" {
		errors = append(errors, "reports.output_dir is required")
	}
	if c.Reports.ArchiveEnabled && c.Reports.ArchiveAfterDays <= 0 {
		errors = append(errors, "reports.archive_after_days must be greater than 0 when archiving is enabled")
	}

	// Validate pipeline configuration
	if c.Pipeline.Workers <= 0 {
		errors = append(errors, "pipeline.workers must be greater than 0")
	}

	// Validate detector thresholds
	if c.Detectors.Spam.ZThreshold <= 0 {
		errors = append(errors, "detectors.spam.z_threshold must be greater than 0")
	}
	if c.Detectors.Spam.BaselineDays <= 0 {
		errors = append(errors, "detectors.spam.baseline_days must be greater than 0")
	}
	if c.Detectors.Record.MinSessions < 0 {
		errors = append(errors, "detectors.record.min_sessions must be non-negative")
	}
	if c.Detectors.Trend.RecentDays <= 0 || c.Detectors.Trend.BaselineDays <= 0 {
		errors = append(errors, "detectors.trend windows must be greater than 0")
	}
	if c.Detectors.Trend.ChangePct <= 0 {
		errors = append(errors, "detectors.trend.change_pct must be greater than 0")
	}
	if c.Detectors.Segment.ZThreshold <= 0 {
		errors = append(errors, "detectors.segment.z_threshold must be greater than 0")
	}
	if c.Detectors.Statistical.ZThreshold <= 0 {
		errors = append(errors, "detectors.statistical.z_threshold must be greater than 0")
	}
	if c.Detectors.Statistical.IQRMultiplier <= 0 {
		errors = append(errors, "detectors.statistical.iqr_multiplier must be greater than 0")
	}

	// Validate portfolio configuration
	if c.Portfolio.PatternThreshold <= 0 || c.Portfolio.PatternThreshold > 1 {
		errors = append(errors, "portfolio.pattern_threshold must be in (0, 1]")
	}
	if c.Portfolio.CascadeWindowDays <= 0 {
		errors = append(errors, "portfolio.cascade_window_days must be greater than 0")
	}

	// Validate root cause configuration
	if c.RootCause.CalendarPath == "" {
		errors = append(errors, "root_cause.calendar_path is required")
	}
	if c.RootCause.WindowDays < 0 {
		errors = append(errors, "root_cause.window_days must be non-negative")
	}
	if c.RootCause.MinScore < 0 || c.RootCause.MinScore > 1 {
		errors = append(errors, "root_cause.min_score must be in [0, 1]")
	}

	// Validate prediction configuration
	if c.Predict.HorizonDays <= 0 {
		errors = append(errors, "predict.horizon_days must be greater than 0")
	}
	if c.Predict.TrendDecay <= 0 || c.Predict.TrendDecay > 1 {
		errors = append(errors, "predict.trend_decay must be in (0, 1]")
	}

	// Validate alert thresholds
	if c.Alerts.WarningThreshold >= c.Alerts.CriticalThreshold {
		errors = append(errors, "alerts.warning_threshold must be below alerts.critical_threshold")
	}

	// Validate Redis configuration if enabled
	if c.Redis.Enabled {
		if c.Redis.Host == "" {
			errors = append(errors, "redis.host is required when Redis is enabled")
		}
		if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
			errors = append(errors, "redis.port must be between 1 and 65535")
		}
	}

	// Validate scheduler configuration if enabled
	if c.Scheduler.Enabled {
		if c.Scheduler.Cron == "" {
			errors = append(errors, "scheduler.cron is required when the scheduler is enabled")
		}
		if c.Scheduler.Timezone == "" {
			errors = append(errors, "scheduler.timezone is required when the scheduler is enabled")
		}
	}

	// If there are validation errors, return them
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 3001)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.mode", "development")

	// Database defaults
	viper.SetDefault("database.path", "./data/scout.db")
	viper.SetDefault("database.migrations_path", "./migrations")
	viper.SetDefault("database.max_connections", 25)
	viper.SetDefault("database.migration.enabled", true)
	viper.SetDefault("database.migration.auto_migrate", true)

	// Auth defaults
	viper.SetDefault("auth.enabled", false)
	viper.SetDefault("auth.token_expiry", 3600)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	// WebSocket defaults
	viper.SetDefault("websocket.ping_interval", 30)
	viper.SetDefault("websocket.pong_timeout", 60)
	viper.SetDefault("websocket.write_timeout", 10)

	// Data source defaults
	viper.SetDefault("data.input_dir", "./data")
	viper.SetDefault("data.file_pattern", "scout_production_clean_*.json")
	viper.SetDefault("data.expected_days", 7)
	viper.SetDefault("data.min_quality_score", 0)

	// Report defaults
	viper.SetDefault("reports.output_dir", "./data/reports")
	viper.SetDefault("reports.archive_enabled", true)
	viper.SetDefault("reports.archive_after_days", 30)
	viper.SetDefault("reports.compression_level", 6)

	// Pipeline defaults
	viper.SetDefault("pipeline.workers", 4)

	// Disaster detector defaults
	viper.SetDefault("detectors.disaster.min_sessions", 10.0)
	viper.SetDefault("detectors.disaster.tracking_min_baseline", 50.0)
	viper.SetDefault("detectors.disaster.drop_pct", 90.0)

	// Spam detector defaults
	viper.SetDefault("detectors.spam.z_threshold", 3.0)
	viper.SetDefault("detectors.spam.bounce_rate_gate", 85.0)
	viper.SetDefault("detectors.spam.min_duration_seconds", 10.0)
	viper.SetDefault("detectors.spam.baseline_days", 7)

	// Record detector defaults
	viper.SetDefault("detectors.record.min_sessions", 100.0)
	viper.SetDefault("detectors.record.history_days", 90)

	// Trend detector defaults
	viper.SetDefault("detectors.trend.recent_days", 30)
	viper.SetDefault("detectors.trend.baseline_days", 150)
	viper.SetDefault("detectors.trend.min_sessions", 50.0)
	viper.SetDefault("detectors.trend.change_pct", 15.0)

	// Segment detector defaults
	viper.SetDefault("detectors.segment.z_threshold", 2.0)
	viper.SetDefault("detectors.segment.warning_z", 2.5)

	// Statistical consensus defaults
	viper.SetDefault("detectors.statistical.z_threshold", 2.0)
	viper.SetDefault("detectors.statistical.iqr_multiplier", 1.5)

	// Portfolio analyzer defaults
	viper.SetDefault("portfolio.pattern_threshold", 0.3)
	viper.SetDefault("portfolio.cascade_window_days", 7)
	viper.SetDefault("portfolio.cascade_min_days", 3)
	viper.SetDefault("portfolio.correlation_min_count", 3)

	// Root cause defaults
	viper.SetDefault("root_cause.calendar_path", "./configs/calendar.yaml")
	viper.SetDefault("root_cause.window_days", 2)
	viper.SetDefault("root_cause.min_score", 0.3)

	// Prediction defaults
	viper.SetDefault("predict.horizon_days", 7)
	viper.SetDefault("predict.trend_decay", 0.9)
	viper.SetDefault("predict.seasonal_min_days", 28)

	// Alert classification defaults
	viper.SetDefault("alerts.critical_threshold", 70.0)
	viper.SetDefault("alerts.warning_threshold", 40.0)
	viper.SetDefault("alerts.suppression.enabled", false)
	viper.SetDefault("alerts.suppression.ttl", "72h")

	// Redis defaults
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.min_idle_conns", 2)
	viper.SetDefault("redis.key_prefix", "scout:")

	// Scheduler defaults (daily at 06:00 portfolio time)
	viper.SetDefault("scheduler.enabled", true)
	viper.SetDefault("scheduler.cron", "0 0 6 * * *")
	viper.SetDefault("scheduler.timezone", "America/New_York")

	// Monitoring defaults
	viper.SetDefault("monitoring.enabled", true)
	viper.SetDefault("monitoring.prefix", "scout")
	viper.SetDefault("monitoring.prometheus.enabled", true)
	viper.SetDefault("monitoring.prometheus.path", "/metrics")

	// Security defaults
	viper.SetDefault("security.enable_cors", true)
	viper.SetDefault("security.allowed_origins", []string{"*"})
}
