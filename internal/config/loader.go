package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// lookupFunc reports the value of an environment variable.
type lookupFunc func(key string) (string, bool)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
func Load() (*Config, error) {
	return load(os.LookupEnv)
}

func load(lookup lookupFunc) (*Config, error) {
	cfg := &Config{}

	var errs []error
	for _, section := range []any{&cfg.Database, &cfg.Load, &cfg.Logging} {
		errs = append(errs, fill(reflect.ValueOf(section).Elem(), lookup)...)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// fill sets every tagged field of section. Each bad value is reported, not
// just the first.
func fill(section reflect.Value, lookup lookupFunc) []error {
	var errs []error
	t := section.Type()

	for i := range t.NumField() {
		field := t.Field(i)
		names := envNames(field.Tag)
		if len(names) == 0 {
			continue
		}

		value, ok := firstSet(lookup, names)
		if !ok {
			value, ok = field.Tag.Lookup("default")
		}
		if !ok {
			continue
		}

		parse, found := parserFor(field.Type)
		if !found {
			errs = append(errs, fmt.Errorf("%s: unsupported field type %s", names[0], field.Type))
			continue
		}
		if err := parse(section.Field(i), value); err != nil {
			errs = append(errs, fmt.Errorf("invalid value for %s=%q: %w", names[0], value, err))
		}
	}

	return errs
}

// envNames lists the primary variable followed by its alternate, if any.
func envNames(tag reflect.StructTag) []string {
	var names []string
	for _, key := range []string{"env", "envAlt"} {
		if name := tag.Get(key); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func firstSet(lookup lookupFunc, names []string) (string, bool) {
	for _, name := range names {
		if v, ok := lookup(name); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

type fieldParser func(dst reflect.Value, raw string) error

var durationType = reflect.TypeOf(time.Duration(0))

func parserFor(t reflect.Type) (fieldParser, bool) {
	if t == durationType {
		return parseDuration, true
	}
	switch t.Kind() {
	case reflect.String:
		return func(dst reflect.Value, raw string) error {
			dst.SetString(raw)
			return nil
		}, true
	case reflect.Int, reflect.Int64:
		return parseInt, true
	case reflect.Bool:
		return parseBool, true
	}
	return nil, false
}

func parseDuration(dst reflect.Value, raw string) error {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	dst.SetInt(int64(d))
	return nil
}

func parseInt(dst reflect.Value, raw string) error {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, dst.Type().Bits())
	if err != nil {
		return fmt.Errorf("invalid integer: %w", err)
	}
	dst.SetInt(n)
	return nil
}

func parseBool(dst reflect.Value, raw string) error {
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid boolean: %w", err)
	}
	dst.SetBool(b)
	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	db := c.Database
	switch strings.ToLower(db.Driver) {
	case DriverSQLite:
		check(db.Path != "", "DB_PATH is required when DB_DRIVER is sqlite")
	case DriverPostgres:
		check(db.URL != "", "DATABASE_URL is required when DB_DRIVER is postgres")
	default:
		check(false, "DB_DRIVER (%q) must be one of: sqlite, postgres", db.Driver)
	}
	check(db.MaxConns >= db.MinConns, "DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", db.MaxConns, db.MinConns)
	check(db.MaxConns > 0, "DB_MAX_CONNS must be positive")
	check(db.MinConns >= 0, "DB_MIN_CONNS must be non-negative")

	ld := c.Load
	check(ld.ChunkSize > 0, "LOAD_CHUNK_SIZE must be positive")
	check(ld.MaxFeedSize > 0, "LOAD_MAX_FEED_SIZE must be positive")
	check(ld.Timeout > 0, "LOAD_TIMEOUT must be positive")
	check(ld.HistoryLimit > 0, "LOAD_HISTORY_LIMIT must be positive")

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		check(false, "LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		check(false, "LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format)
	}

	if len(problems) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// String returns a safe string representation of the config for logging.
// The database URL is masked.
func (c *Config) String() string {
	url := ""
	if c.Database.URL != "" {
		url = "[MASKED]"
	}
	return fmt.Sprintf("Config{Database: {Driver: %q, URL: %s, Path: %q, MaxConns: %d, MinConns: %d}, "+
		"Load: {ChunkSize: %d, MaxFeedSize: %d, Timeout: %s}, "+
		"Logging: {Level: %q, Format: %q, AddSource: %t}}",
		c.Database.Driver, url, c.Database.Path, c.Database.MaxConns, c.Database.MinConns,
		c.Load.ChunkSize, c.Load.MaxFeedSize, c.Load.Timeout,
		c.Logging.Level, c.Logging.Format, c.Logging.AddSource)
}
