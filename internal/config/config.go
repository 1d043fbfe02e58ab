// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Server   ServerConfig
	Data     DataConfig
	Nfc      NfcConfig
	Hardware HardwareConfig
	Led      LedConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Name         string
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
}

// DataConfig holds persistence paths.
type DataConfig struct {
	// BasePath is the root data directory (default: ~/MusicBox/data).
	BasePath string
	// TagDBPath is the Badger directory for NFC tag records ({base}/tags).
	TagDBPath string
	// CatalogPath is the SQLite playlist catalog file ({base}/catalog.db).
	CatalogPath string
}

// NfcConfig holds association session tuning.
type NfcConfig struct {
	// SessionTimeout is the default lifetime of a link session (default: 60s).
	SessionTimeout time.Duration
	// SweepInterval is how often expired sessions are reaped (default: 5s).
	// Expiry is cooperative: a session can outlive its deadline by up to
	// one sweep interval.
	SweepInterval time.Duration
	// SuccessGrace is how long a successful session stays visible before
	// it is removed from the live table (default: 2s).
	SuccessGrace time.Duration
}

// HardwareConfig holds NFC reader configuration.
type HardwareConfig struct {
	// Mock replaces the PN532 reader with an in-process mock (default: false).
	Mock bool
	// SerialPort is the UART device of the PN532 board (default: /dev/ttyAMA0).
	SerialPort string
	// BaudRate for the UART link (default: 115200).
	BaudRate int
	// PollInterval between tag polls (default: 200ms).
	PollInterval time.Duration
}

// LedConfig holds status LED configuration.
type LedConfig struct {
	// Enabled turns the GPIO status LED on (default: false; requires a Pi).
	Enabled bool
	// Pin is the GPIO line name (default: GPIO17).
	Pin string
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := flag.String("data-path", "", "Base path for data storage")
	serverName := flag.String("server-name", "", "Name for the server")

	serverPort := flag.String("port", "", "Server port (default: 8080)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")

	sessionTimeout := flag.String("session-timeout", "", "Default association session timeout (default: 60s)")
	sweepInterval := flag.String("sweep-interval", "", "Expired session sweep interval (default: 5s)")
	successGrace := flag.String("success-grace", "", "Grace period before a successful session is removed (default: 2s)")

	hardwareMock := flag.String("hardware-mock", "", "Use a mock NFC reader (default: false)")
	serialPort := flag.String("serial-port", "", "PN532 UART device (default: /dev/ttyAMA0)")
	baudRate := flag.String("baud-rate", "", "PN532 UART baud rate (default: 115200)")
	pollInterval := flag.String("poll-interval", "", "Tag poll interval (default: 200ms)")

	ledEnabled := flag.String("led-enabled", "", "Drive the GPIO status LED (default: false)")
	ledPin := flag.String("led-pin", "", "Status LED GPIO line (default: GPIO17)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Name: getConfigValue(*serverName, "SERVER_NAME", "Music Box"),
			Port: getConfigValue(*serverPort, "SERVER_PORT", "8080"),
		},
		Data: DataConfig{
			BasePath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Hardware: HardwareConfig{
			Mock:       getBoolConfigValue(*hardwareMock, "HARDWARE_MOCK", false),
			SerialPort: getConfigValue(*serialPort, "SERIAL_PORT", "/dev/ttyAMA0"),
			BaudRate:   getIntConfigValue(*baudRate, "BAUD_RATE", 115200),
		},
		Led: LedConfig{
			Enabled: getBoolConfigValue(*ledEnabled, "LED_ENABLED", false),
			Pin:     getConfigValue(*ledPin, "LED_PIN", "GPIO17"),
		},
	}

	// Parse durations.
	durations := []struct {
		dst     *time.Duration
		flagVal string
		envKey  string
		def     string
	}{
		{&cfg.Server.ReadTimeout, *readTimeout, "SERVER_READ_TIMEOUT", "15s"},
		{&cfg.Server.WriteTimeout, *writeTimeout, "SERVER_WRITE_TIMEOUT", "15s"},
		{&cfg.Server.IdleTimeout, *idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"},
		{&cfg.Nfc.SessionTimeout, *sessionTimeout, "NFC_SESSION_TIMEOUT", "60s"},
		{&cfg.Nfc.SweepInterval, *sweepInterval, "NFC_SWEEP_INTERVAL", "5s"},
		{&cfg.Nfc.SuccessGrace, *successGrace, "NFC_SUCCESS_GRACE", "2s"},
		{&cfg.Hardware.PollInterval, *pollInterval, "POLL_INTERVAL", "200ms"},
	}
	for _, d := range durations {
		str := getConfigValue(d.flagVal, d.envKey, d.def)
		parsed, err := time.ParseDuration(str)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", strings.ToLower(d.envKey), str, err)
		}
		*d.dst = parsed
	}

	// Expand and derive data paths.
	if err := cfg.expandDataPaths(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.BasePath == "" {
		return errors.New("data base path cannot be empty after expansion")
	}

	if c.Nfc.SessionTimeout <= 0 {
		return errors.New("session timeout must be positive")
	}
	if c.Nfc.SweepInterval <= 0 {
		return errors.New("sweep interval must be positive")
	}

	if c.Hardware.BaudRate <= 0 {
		return fmt.Errorf("invalid baud rate: %d", c.Hardware.BaudRate)
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPaths expands the base path and derives the tag DB and catalog paths.
func (c *Config) expandDataPaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "MusicBox", "data")

	expanded, err := expandPath(c.Data.BasePath, defaultPath)
	if err != nil {
		return err
	}
	c.Data.BasePath = expanded
	c.Data.TagDBPath = filepath.Join(expanded, "tags")
	c.Data.CatalogPath = filepath.Join(expanded, "catalog.db")
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}

	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)

		// Env vars take precedence over .env file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
