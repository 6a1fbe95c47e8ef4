package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	once    sync.Once
	initErr error
)

// Init initializes the configuration system
// This should be called once at application startup
func Init() error {
	once.Do(func() {
		// Set default values
		setDefaults()

		// Set up environment variable reading for overrides
		viper.SetEnvPrefix("MEMORYBOOK")
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.AutomaticEnv()

		// Load config from fixed location (cleaned for safety)
		configPath := filepath.Clean("./config/settings.yaml")
		viper.SetConfigFile(configPath)

		// Try to read the config file
		if err := viper.ReadInConfig(); err != nil {
			// If the config file doesn't exist, just use defaults and env vars
			if !os.IsNotExist(err) {
				initErr = fmt.Errorf("error reading config file %s: %w", configPath, err)
				return
			}
		}

		// Validate the configuration
		if err := validate(); err != nil {
			initErr = fmt.Errorf("invalid configuration: %w", err)
		}
	})

	return initErr
}

// GetConfig returns the current configuration as a struct
// Init() must be called before using this
func GetConfig() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}

// GetString returns a string config value
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetFloat64 returns a float64 config value
func GetFloat64(key string) float64 {
	return viper.GetFloat64(key)
}

// GetDuration returns a time.Duration config value
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// validate validates the configuration using Viper values
func validate() error {
	port := viper.GetInt("server.port")
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid server port: %d", port)
	}

	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		fmt.Println("Warning: No database path configured")
	}

	threshold := viper.GetFloat64("ocr.confidence_threshold")
	if threshold < 0 || threshold > 1 {
		return fmt.Errorf("invalid ocr confidence threshold: %f (must be in [0,1])", threshold)
	}

	rate := viper.GetFloat64("tts.speaking_rate")
	if rate < 0.25 || rate > 4.0 {
		return fmt.Errorf("invalid tts speaking rate: %f (provider accepts [0.25,4.0])", rate)
	}

	// Auto-correct invalid worker count
	if viper.GetInt("processing.workers") <= 0 {
		viper.Set("processing.workers", 2)
	}

	// Auto-correct invalid extraction concurrency
	if viper.GetInt("processing.extraction_concurrency") <= 0 {
		viper.Set("processing.extraction_concurrency", 4)
	}

	return nil
}

// Validate validates a Config struct (for testing)
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.OCR.ConfidenceThreshold < 0 || c.OCR.ConfidenceThreshold > 1 {
		return fmt.Errorf("invalid ocr confidence threshold: %f", c.OCR.ConfidenceThreshold)
	}

	if c.Processing.Workers <= 0 {
		c.Processing.Workers = 2
	}

	if c.Processing.ExtractionConcurrency <= 0 {
		c.Processing.ExtractionConcurrency = 4
	}

	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Environment defaults
	viper.SetDefault("environment", "development")

	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)
	viper.SetDefault("server.max_header_bytes", 1048576)

	// Database defaults
	viper.SetDefault("database.path", "./data/memorybook.db")
	viper.SetDefault("database.log_queries", false)

	// Processing defaults
	viper.SetDefault("processing.workers", 2)
	viper.SetDefault("processing.poll_interval", 2*time.Second)
	viper.SetDefault("processing.job_timeout", 15*time.Minute)
	viper.SetDefault("processing.retry_attempts", 3)
	viper.SetDefault("processing.retry_delay", 500*time.Millisecond)
	viper.SetDefault("processing.extraction_concurrency", 4)
	viper.SetDefault("processing.job_retention_days", 30)

	// OCR collaborator defaults
	viper.SetDefault("ocr.timeout", 60*time.Second)
	viper.SetDefault("ocr.requests_per_second", 5.0)
	viper.SetDefault("ocr.burst", 5)
	viper.SetDefault("ocr.confidence_threshold", 0.7)
	viper.SetDefault("ocr.language_hints", []string{"en"})

	// TTS collaborator defaults
	viper.SetDefault("tts.timeout", 120*time.Second)
	viper.SetDefault("tts.requests_per_second", 2.0)
	viper.SetDefault("tts.burst", 2)
	viper.SetDefault("tts.voice", "en-US-Neural2-F")
	viper.SetDefault("tts.language_code", "en-US")
	viper.SetDefault("tts.speaking_rate", 1.0)
	viper.SetDefault("tts.sample_rate", 24000)
	viper.SetDefault("tts.max_request_chars", 4500)

	// Storage defaults
	viper.SetDefault("storage.bucket", "")
	viper.SetDefault("storage.cdn_domain", "")
	viper.SetDefault("storage.upload_timeout", 5*time.Minute)

	// Rate limiting defaults
	viper.SetDefault("rate_limiting.enabled", true)
	viper.SetDefault("rate_limiting.requests_per_second", 10)
	viper.SetDefault("rate_limiting.burst", 20)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.verbose", false)
}
