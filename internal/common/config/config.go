// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"server"`
	GenAI         GenAIConfig         `mapstructure:"genai"`
	Collaborators CollaboratorsConfig `mapstructure:"collaborators"`
	Pipeline      PipelineConfig      `mapstructure:"pipeline"`
	Retry         RetryConfig         `mapstructure:"retry"`
	Breaker       BreakerConfig       `mapstructure:"breaker"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Host              string   `mapstructure:"host"`
	Port              int      `mapstructure:"port"`
	ReadTimeout       int      `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout      int      `mapstructure:"write_timeout"` // milliseconds
	IdleTimeout       int      `mapstructure:"idle_timeout"`  // milliseconds
	CORSOrigins       []string `mapstructure:"cors_origins"`
	RateLimitRequests int      `mapstructure:"rate_limit_requests"`
	RateLimitWindow   int      `mapstructure:"rate_limit_window"` // milliseconds
	SessionTTL        int      `mapstructure:"session_ttl"`       // milliseconds
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// GenAIConfig holds settings for the text-generation collaborator.
type GenAIConfig struct {
	APIKey          string  `mapstructure:"api_key"`
	Model           string  `mapstructure:"model"`
	Timeout         int     `mapstructure:"timeout"` // milliseconds
	Temperature     float64 `mapstructure:"temperature"`
	MaxOutputTokens int     `mapstructure:"max_output_tokens"`
}

// ServiceConfig describes an HTTP sidecar collaborator.
type ServiceConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

// Enabled reports whether the collaborator has an endpoint configured.
func (s ServiceConfig) Enabled() bool {
	return s.BaseURL != ""
}

type CollaboratorsConfig struct {
	Weather ServiceConfig `mapstructure:"weather"`
	Details ServiceConfig `mapstructure:"details"`
}

// PipelineConfig holds the orchestrator bounds.
type PipelineConfig struct {
	MaxIntentIterations int `mapstructure:"max_intent_iterations"`
	TopN                int `mapstructure:"top_n"`
	ForecastHorizonDays int `mapstructure:"forecast_horizon_days"`
	StageTimeout        int `mapstructure:"stage_timeout"` // milliseconds
	EnrichConcurrency   int `mapstructure:"enrich_concurrency"`
}

// PolicyConfig mirrors resilience.Policy in config form.
type PolicyConfig struct {
	MaxAttempts          int     `mapstructure:"max_attempts"`
	ExponentialBase      float64 `mapstructure:"exponential_base"`
	InitialDelay         int     `mapstructure:"initial_delay"` // milliseconds
	RetryableStatusCodes []int   `mapstructure:"retryable_status_codes"`
}

type RetryConfig struct {
	Tight PolicyConfig `mapstructure:"tight"`
	Loose PolicyConfig `mapstructure:"loose"`
}

type BreakerConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	MaxRequests      uint32 `mapstructure:"max_requests"`
	Interval         int    `mapstructure:"interval"` // milliseconds
	Timeout          int    `mapstructure:"timeout"`  // milliseconds
	FailureThreshold uint32 `mapstructure:"failure_threshold"`
}

type RedisConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Address     string `mapstructure:"address"`
	Password    string `mapstructure:"password"`
	DB          int    `mapstructure:"db"`
	DetailTTL   int    `mapstructure:"detail_ttl"`   // milliseconds
	ForecastTTL int    `mapstructure:"forecast_ttl"` // milliseconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}
