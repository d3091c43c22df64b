package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// FileEnv names the environment variable pointing at an optional YAML file.
const FileEnv = "CONFIG_FILE"

// Load reads configuration in three layers: struct-tag defaults, then the
// YAML file named by CONFIG_FILE (if any), then environment variables.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	return LoadFile(os.Getenv(FileEnv))
}

// LoadFile is Load with an explicit YAML path. An empty path skips the file layer.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{}

	if err := applyDefaults(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration and panics on error.
// Use this only in main() where early termination is desired.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// applyDefaults recursively sets every field that carries a default tag.
func applyDefaults(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		if !fieldVal.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := applyDefaults(fieldVal); err != nil {
				return err
			}
			continue
		}

		defaultVal := field.Tag.Get("default")
		if defaultVal == "" {
			continue
		}
		if err := setField(fieldVal, defaultVal); err != nil {
			return fmt.Errorf("invalid default for %s=%q: %w", field.Name, defaultVal, err)
		}
	}

	return nil
}

// loadStruct recursively overrides struct fields from environment variables
// and enforces required tags against the merged result.
func loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		// Skip unexported fields
		if !fieldVal.CanSet() {
			continue
		}

		// Recurse into nested structs
		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal); err != nil {
				return err
			}
			continue
		}

		envName := field.Tag.Get("env")
		envAlt := field.Tag.Get("envAlt")
		required := field.Tag.Get("required") == "true"

		if envName == "" {
			continue
		}

		// Try primary env var, then alternate
		value := os.Getenv(envName)
		if value == "" && envAlt != "" {
			value = os.Getenv(envAlt)
		}

		if value == "" {
			if required && fieldVal.IsZero() {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		// Handle time.Duration specially
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			// Split comma-separated values, trim whitespace
			parts := strings.Split(value, ",")
			result := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					result = append(result, p)
				}
			}
			field.Set(reflect.ValueOf(result))
		} else {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Engine validation
	if c.Engine.URL == "" {
		errs = append(errs, "ENGINE_URL is required")
	} else if !hasEngineScheme(c.Engine.URL) {
		errs = append(errs, "ENGINE_URL must start with clickhouse://, postgres:// or postgresql://")
	}
	if c.Engine.MaxConns < c.Engine.MinConns {
		errs = append(errs, fmt.Sprintf("ENGINE_MAX_CONNS (%d) must be >= ENGINE_MIN_CONNS (%d)",
			c.Engine.MaxConns, c.Engine.MinConns))
	}
	if c.Engine.MaxConns <= 0 {
		errs = append(errs, "ENGINE_MAX_CONNS must be positive")
	}
	if c.Engine.MinConns < 0 {
		errs = append(errs, "ENGINE_MIN_CONNS must be non-negative")
	}
	if c.Engine.QueryTimeout <= 0 {
		errs = append(errs, "ENGINE_QUERY_TIMEOUT must be positive")
	}

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Page validation
	if c.Page.DefaultLimit <= 0 {
		errs = append(errs, "PAGE_DEFAULT_LIMIT must be positive")
	}
	if c.Page.MaxLimit < c.Page.DefaultLimit {
		errs = append(errs, fmt.Sprintf("PAGE_MAX_LIMIT (%d) must be >= PAGE_DEFAULT_LIMIT (%d)",
			c.Page.MaxLimit, c.Page.DefaultLimit))
	}

	// Mutation validation
	if c.Mutation.Timeout <= 0 {
		errs = append(errs, "MUTATION_TIMEOUT must be positive")
	}
	if c.Mutation.Sync < 0 || c.Mutation.Sync > 2 {
		errs = append(errs, fmt.Sprintf("MUTATION_SYNC (%d) must be 0, 1 or 2", c.Mutation.Sync))
	}

	// Export validation
	if c.Export.DefaultRowCap <= 0 {
		errs = append(errs, "EXPORT_DEFAULT_ROW_CAP must be positive")
	}
	if c.Export.MaxRowCap < c.Export.DefaultRowCap {
		errs = append(errs, fmt.Sprintf("EXPORT_MAX_ROW_CAP (%d) must be >= EXPORT_DEFAULT_ROW_CAP (%d)",
			c.Export.MaxRowCap, c.Export.DefaultRowCap))
	}
	if c.Export.MaxConcurrent <= 0 {
		errs = append(errs, "EXPORT_MAX_CONCURRENT must be positive")
	}
	if c.Export.MaxWaitTime <= 0 {
		errs = append(errs, "EXPORT_MAX_WAIT_TIME must be positive")
	}
	if c.Export.FlushEvery <= 0 {
		errs = append(errs, "EXPORT_FLUSH_EVERY must be positive")
	}

	// Rate limit validation
	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

func hasEngineScheme(url string) bool {
	for _, prefix := range []string{"clickhouse://", "postgres://", "postgresql://"} {
		if strings.HasPrefix(url, prefix) {
			return true
		}
	}
	return false
}

// String returns a safe string representation of the config for logging.
// Sensitive values like engine URLs are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("Engine: {URL: [MASKED], MaxConns: %d, MinConns: %d}, ",
		c.Engine.MaxConns, c.Engine.MinConns))
	b.WriteString(fmt.Sprintf("Page: {DefaultLimit: %d, MaxLimit: %d}, ",
		c.Page.DefaultLimit, c.Page.MaxLimit))
	b.WriteString(fmt.Sprintf("Mutation: {Sync: %d, VerifyUnique: %v}, ",
		c.Mutation.Sync, c.Mutation.VerifyUnique))
	b.WriteString(fmt.Sprintf("Export: {DefaultRowCap: %d, MaxConcurrent: %d}, ",
		c.Export.DefaultRowCap, c.Export.MaxConcurrent))
	b.WriteString(fmt.Sprintf("Rate: {Enabled: %v, RequestsPerMinute: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
