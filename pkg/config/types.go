package config

import "time"

// Config represents the complete application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Processing   ProcessingConfig   `mapstructure:"processing"`
	OCR          OCRConfig          `mapstructure:"ocr"`
	TTS          TTSConfig          `mapstructure:"tts"`
	Storage      StorageConfig      `mapstructure:"storage"`
	RateLimiting RateLimitConfig    `mapstructure:"rate_limiting"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path       string `mapstructure:"path"`
	LogQueries bool   `mapstructure:"log_queries"`
}

// ProcessingConfig contains pipeline worker settings
type ProcessingConfig struct {
	Workers               int           `mapstructure:"workers"`
	PollInterval          time.Duration `mapstructure:"poll_interval"`
	JobTimeout            time.Duration `mapstructure:"job_timeout"`
	RetryAttempts         int           `mapstructure:"retry_attempts"`
	RetryDelay            time.Duration `mapstructure:"retry_delay"`
	ExtractionConcurrency int           `mapstructure:"extraction_concurrency"`
	JobRetentionDays      int           `mapstructure:"job_retention_days"`
}

// OCRConfig contains text extraction collaborator settings
type OCRConfig struct {
	Timeout             time.Duration `mapstructure:"timeout"`
	RequestsPerSecond   float64       `mapstructure:"requests_per_second"`
	Burst               int           `mapstructure:"burst"`
	ConfidenceThreshold float64       `mapstructure:"confidence_threshold"`
	LanguageHints       []string      `mapstructure:"language_hints"`
}

// TTSConfig contains narration synthesis collaborator settings
type TTSConfig struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	Voice             string        `mapstructure:"voice"`
	LanguageCode      string        `mapstructure:"language_code"`
	SpeakingRate      float64       `mapstructure:"speaking_rate"`
	SampleRate        int           `mapstructure:"sample_rate"`
	MaxRequestChars   int           `mapstructure:"max_request_chars"`
}

// StorageConfig contains object storage / CDN settings
type StorageConfig struct {
	Bucket        string        `mapstructure:"bucket"`
	CDNDomain     string        `mapstructure:"cdn_domain"`
	UploadTimeout time.Duration `mapstructure:"upload_timeout"`
}

// RateLimitConfig contains HTTP per-client rate limiting settings
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerSecond int  `mapstructure:"requests_per_second"`
	Burst             int  `mapstructure:"burst"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Verbose bool   `mapstructure:"verbose"`
}
