// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Places    PlacesConfig    `mapstructure:"places"`
	Predictor PredictorConfig `mapstructure:"predictor"`
	Email     EmailConfig     `mapstructure:"email"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	Index      string   `mapstructure:"index"`
	URL        string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// --- Specific Configuration Sections ---

// FeedConfig holds settings for the municipal business-license feed.
type FeedConfig struct {
	URL     string `mapstructure:"url"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

// PlacesConfig holds settings for the external place-lookup API.
type PlacesConfig struct {
	BaseURL           string  `mapstructure:"base_url"`
	APIKey            string  `mapstructure:"api_key"`
	Timeout           int     `mapstructure:"timeout"`            // milliseconds
	MinCallIntervalMs int     `mapstructure:"min_call_interval"`  // milliseconds between calls
	CacheTTL          int     `mapstructure:"cache_ttl"`          // milliseconds
	MonthlyBudgetUSD  float64 `mapstructure:"monthly_budget_usd"` // soft spend ceiling
}

// PredictorConfig holds the similarity-rating thresholds. The zero value is
// replaced by defaults in applyDefaults; tuning happens in config, not code.
type PredictorConfig struct {
	MaxCuisineMiles   float64 `mapstructure:"max_cuisine_miles"`
	MaxProximityMiles float64 `mapstructure:"max_proximity_miles"`
	MinSimilar        int     `mapstructure:"min_similar"`
	DefaultRating     float64 `mapstructure:"default_rating"`
}

// EmailConfig holds settings for the new-business digest.
type EmailConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	FromEmail  string   `mapstructure:"from_email"`
	Recipients []string `mapstructure:"recipients"`
	AWSRegion  string   `mapstructure:"aws_region"`
}

// RetryConfig holds the shared backoff settings for external calls.
type RetryConfig struct {
	MaxRetries  int `mapstructure:"max_retries"`
	BaseDelayMs int `mapstructure:"base_delay"` // milliseconds
	MaxDelayMs  int `mapstructure:"max_delay"`  // milliseconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
