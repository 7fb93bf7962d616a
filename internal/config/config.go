package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the ATLAS intake service
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Backend   BackendConfig   `yaml:"backend"`
	Feed      FeedConfig      `yaml:"feed"`
	Billing   BillingConfig   `yaml:"billing"`
	Discharge DischargeConfig `yaml:"discharge"`
	Prefs     PrefsConfig     `yaml:"prefs"`
	Journal   JournalConfig   `yaml:"journal"`
}

// ServerConfig holds local API server configuration
type ServerConfig struct {
	Port        int    `yaml:"port"`
	Environment string `yaml:"environment"`
}

// BackendConfig holds hospital backend configuration
type BackendConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// FeedConfig holds live feed configuration
type FeedConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

// BillingConfig holds billing configuration
type BillingConfig struct {
	// TransportFee is the fixed ambulance transport charge folded into
	// every bill total by the backend. Used only for the derived invoice
	// decomposition; the backend owns the real fee model.
	TransportFee float64 `yaml:"transport_fee"`
}

// DischargeConfig holds discharge workflow configuration
type DischargeConfig struct {
	ConfirmationWindow time.Duration `yaml:"confirmation_window"`
}

// PrefsConfig holds local preference store configuration
type PrefsConfig struct {
	DataPath     string `yaml:"data_path"`
	DefaultTheme string `yaml:"default_theme"`
}

// JournalConfig holds event journal configuration
type JournalConfig struct {
	Enabled bool `yaml:"enabled"`
	// MaxEvents caps the in-memory journal; oldest events are dropped
	// once the cap is reached.
	MaxEvents int `yaml:"max_events"`
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := LoadFromEnv()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        getEnvInt("PORT", 3010),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Backend: BackendConfig{
			BaseURL: getEnv("ATLAS_BACKEND_URL", "http://localhost:8080/api"),
			Timeout: getEnvDuration("ATLAS_BACKEND_TIMEOUT", 30*time.Second),
		},
		Feed: FeedConfig{
			RefreshInterval: getEnvDuration("FEED_REFRESH_INTERVAL", 5*time.Second),
		},
		Billing: BillingConfig{
			TransportFee: getEnvFloat("BILLING_TRANSPORT_FEE", 100),
		},
		Discharge: DischargeConfig{
			ConfirmationWindow: getEnvDuration("DISCHARGE_CONFIRMATION_WINDOW", 3*time.Second),
		},
		Prefs: PrefsConfig{
			DataPath:     getEnv("PREFS_DATA_PATH", "./data"),
			DefaultTheme: getEnv("PREFS_DEFAULT_THEME", "dark"),
		},
		Journal: JournalConfig{
			Enabled:   getEnvBool("JOURNAL_ENABLED", true),
			MaxEvents: getEnvInt("JOURNAL_MAX_EVENTS", 10000),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
