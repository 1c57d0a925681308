// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath("../../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	// base config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// environment overlay, optional
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills secrets and deployment knobs from well-known
// environment variables when the YAML left them empty.
func overrideEmptyConfig(cfg *Config) {
	if cfg.GenAI.APIKey == "" {
		for _, name := range []string{"GOOGLE_API_KEY", "GENAI_API_KEY", "GEMINI_API_KEY"} {
			if val := os.Getenv(name); val != "" {
				cfg.GenAI.APIKey = val
				break
			}
		}
	}

	if val := os.Getenv("CORS_ORIGINS"); val != "" {
		var origins []string
		for _, origin := range strings.Split(val, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
		if len(origins) > 0 {
			cfg.Server.CORSOrigins = origins
		}
	}

	if cfg.Redis.Address == "" {
		if val := os.Getenv("REDIS_ADDRESS"); val != "" {
			cfg.Redis.Address = val
		}
	}

	if cfg.Collaborators.Weather.APIKey == "" {
		if val := os.Getenv("WEATHER_API_KEY"); val != "" {
			cfg.Collaborators.Weather.APIKey = val
		}
	}
	if cfg.Collaborators.Details.APIKey == "" {
		if val := os.Getenv("DETAILS_API_KEY"); val != "" {
			cfg.Collaborators.Details.APIKey = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "gem-finder"
	}
	if cfg.App.Version == "" {
		cfg.App.Version = "1.0.0"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}

	// Server defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 180000
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 60000
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"http://localhost:3000"}
	}
	if cfg.Server.RateLimitRequests == 0 {
		cfg.Server.RateLimitRequests = 30
	}
	if cfg.Server.RateLimitWindow == 0 {
		cfg.Server.RateLimitWindow = 60000
	}
	if cfg.Server.SessionTTL == 0 {
		cfg.Server.SessionTTL = 30 * 60 * 1000
	}

	// GenAI defaults
	if cfg.GenAI.Model == "" {
		cfg.GenAI.Model = "gemini-2.5-flash"
	}
	if cfg.GenAI.Timeout == 0 {
		cfg.GenAI.Timeout = 60000
	}
	if cfg.GenAI.Temperature == 0 {
		cfg.GenAI.Temperature = 0.7
	}
	if cfg.GenAI.MaxOutputTokens == 0 {
		cfg.GenAI.MaxOutputTokens = 4096
	}

	if cfg.Collaborators.Weather.Timeout == 0 {
		cfg.Collaborators.Weather.Timeout = 10000
	}
	if cfg.Collaborators.Details.Timeout == 0 {
		cfg.Collaborators.Details.Timeout = 10000
	}

	// Pipeline bounds
	if cfg.Pipeline.MaxIntentIterations == 0 {
		cfg.Pipeline.MaxIntentIterations = 5
	}
	if cfg.Pipeline.TopN == 0 {
		cfg.Pipeline.TopN = 3
	}
	if cfg.Pipeline.ForecastHorizonDays == 0 {
		cfg.Pipeline.ForecastHorizonDays = 16
	}
	if cfg.Pipeline.StageTimeout == 0 {
		cfg.Pipeline.StageTimeout = 90000
	}
	if cfg.Pipeline.EnrichConcurrency == 0 {
		cfg.Pipeline.EnrichConcurrency = 3
	}

	// Retry presets
	if cfg.Retry.Tight.MaxAttempts == 0 {
		cfg.Retry.Tight = PolicyConfig{
			MaxAttempts:          3,
			ExponentialBase:      2,
			InitialDelay:         1000,
			RetryableStatusCodes: []int{429, 500, 503},
		}
	}
	if cfg.Retry.Loose.MaxAttempts == 0 {
		cfg.Retry.Loose = PolicyConfig{
			MaxAttempts:          5,
			ExponentialBase:      7,
			InitialDelay:         1000,
			RetryableStatusCodes: []int{429, 500, 503, 504},
		}
	}

	// Breaker defaults
	if cfg.Breaker.MaxRequests == 0 {
		cfg.Breaker.MaxRequests = 1
	}
	if cfg.Breaker.Interval == 0 {
		cfg.Breaker.Interval = 60000
	}
	if cfg.Breaker.Timeout == 0 {
		cfg.Breaker.Timeout = 30000
	}
	if cfg.Breaker.FailureThreshold == 0 {
		cfg.Breaker.FailureThreshold = 5
	}

	// Cache TTLs
	if cfg.Redis.DetailTTL == 0 {
		cfg.Redis.DetailTTL = 6 * 60 * 60 * 1000
	}
	if cfg.Redis.ForecastTTL == 0 {
		cfg.Redis.ForecastTTL = 60 * 60 * 1000
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if cfg.Pipeline.MaxIntentIterations < 1 {
		return fmt.Errorf("pipeline.max_intent_iterations must be positive")
	}
	if cfg.Pipeline.TopN < 1 || cfg.Pipeline.TopN > 3 {
		return fmt.Errorf("pipeline.top_n must be between 1 and 3")
	}

	for name, p := range map[string]PolicyConfig{"tight": cfg.Retry.Tight, "loose": cfg.Retry.Loose} {
		if p.MaxAttempts < 1 {
			return fmt.Errorf("retry.%s.max_attempts must be positive", name)
		}
		if p.ExponentialBase < 1 {
			return fmt.Errorf("retry.%s.exponential_base must be >= 1", name)
		}
		if p.InitialDelay < 0 {
			return fmt.Errorf("retry.%s.initial_delay must not be negative", name)
		}
	}

	if cfg.Redis.Enabled && cfg.Redis.Address == "" {
		return fmt.Errorf("redis.address is required when redis is enabled")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
