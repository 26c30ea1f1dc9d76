// Package config loads runtime settings from the environment.
package config

import (
	"os"
	"strconv"
	"time"

	"pdftools/pdf"
)

const (
	// DefaultPort is the default server port
	DefaultPort = "4000"

	// DefaultTTLMinutes is how long a job's files stay downloadable
	DefaultTTLMinutes = 15

	// DefaultMaxFileMB is the default upload limit per file
	DefaultMaxFileMB = 100

	// DefaultCORSOrigin allows any origin
	DefaultCORSOrigin = "*"

	// DefaultTempDir is where job directories are created
	DefaultTempDir = "./tmp"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"

	DefaultGhostscript = "gs"
	DefaultPdftoppm    = "pdftoppm"
	DefaultSoffice     = "soffice"
)

// Config holds application configuration
type Config struct {
	Port       string
	TTL        time.Duration
	MaxFileMB  int64
	CORSOrigin string
	TempDir    string

	LogLevel  string
	LogFormat string

	Tools pdf.Tools
}

// MaxFileSize is the upload limit in bytes.
func (c *Config) MaxFileSize() int64 {
	return c.MaxFileMB * 1024 * 1024
}

// Load reads the configuration from the environment, falling back to defaults
// for unset or malformed values. Setting a tool variable to "-" disables it.
func Load() *Config {
	return &Config{
		Port:       getEnv("PORT", DefaultPort),
		TTL:        time.Duration(getEnvInt64("TTL_MINUTES", DefaultTTLMinutes)) * time.Minute,
		MaxFileMB:  getEnvInt64("MAX_FILE_MB", DefaultMaxFileMB),
		CORSOrigin: getEnv("CORS_ORIGIN", DefaultCORSOrigin),
		TempDir:    getEnv("TEMP_DIR", DefaultTempDir),
		LogLevel:   getEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat:  getEnv("LOG_FORMAT", DefaultLogFormat),
		Tools: pdf.Tools{
			Ghostscript: getTool("GHOSTSCRIPT_BIN", DefaultGhostscript),
			Pdftoppm:    getTool("PDFTOPPM_BIN", DefaultPdftoppm),
			Soffice:     getTool("SOFFICE_BIN", DefaultSoffice),
			Timeout:     time.Duration(getEnvInt64("TOOL_TIMEOUT_SECONDS", int64(pdf.DefaultCLITimeout/time.Second))) * time.Second,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil && intValue > 0 {
			return intValue
		}
	}
	return defaultValue
}

func getTool(key, defaultValue string) string {
	if value := getEnv(key, defaultValue); value != "-" {
		return value
	}
	return ""
}
