// Package config loads quoteforms settings from a file, a .env file and the
// process environment, in that order of increasing precedence.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "QUOTEFORMS_"

// Duration is a time.Duration that reads as "30s" in every config format.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	Server  ServerConfig  `json:"server" yaml:"server" toml:"server"`
	Backend BackendConfig `json:"backend" yaml:"backend" toml:"backend"`
	Forms   FormsConfig   `json:"forms" yaml:"forms" toml:"forms"`
	Store   StoreConfig   `json:"store" yaml:"store" toml:"store"`
	Log     LogConfig     `json:"log" yaml:"log" toml:"log"`
}

type ServerConfig struct {
	Addr            string   `json:"addr" yaml:"addr" toml:"addr"`
	ShutdownTimeout Duration `json:"shutdownTimeout" yaml:"shutdownTimeout" toml:"shutdownTimeout"`
	SessionTTL      Duration `json:"sessionTTL" yaml:"sessionTTL" toml:"sessionTTL"`
	SecureCookies   bool     `json:"secureCookies" yaml:"secureCookies" toml:"secureCookies"`
}

// BackendConfig points the wizard at the quote API. An empty URL means the
// API served by this process.
type BackendConfig struct {
	URL     string   `json:"url" yaml:"url" toml:"url"`
	Timeout Duration `json:"timeout" yaml:"timeout" toml:"timeout"`
}

// FormsConfig selects where definitions come from. An empty Dir uses the
// definitions compiled into the binary.
type FormsConfig struct {
	Dir   string `json:"dir" yaml:"dir" toml:"dir"`
	Watch bool   `json:"watch" yaml:"watch" toml:"watch"`
}

type StoreConfig struct {
	Driver string `json:"driver" yaml:"driver" toml:"driver"`
	DSN    string `json:"dsn" yaml:"dsn" toml:"dsn"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level" toml:"level"`
	Format string `json:"format" yaml:"format" toml:"format"`
}

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"

	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: Duration(10 * time.Second),
			SessionTTL:      Duration(2 * time.Hour),
		},
		Backend: BackendConfig{Timeout: Duration(30 * time.Second)},
		Store:   StoreConfig{Driver: StoreMemory},
		Log:     LogConfig{Level: "info", Format: LogFormatJSON},
	}
}

// Option configures Load.
type Option func(*loader)

// WithEnvFile reads overrides from a dotenv file. Missing files are ignored.
func WithEnvFile(path string) Option {
	return func(l *loader) {
		l.envFile = path
	}
}

// WithLookupEnv replaces os.LookupEnv.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(l *loader) {
		if fn != nil {
			l.lookup = fn
		}
	}
}

type loader struct {
	envFile string
	lookup  func(string) (string, bool)
	dotenv  map[string]string
}

// Load reads path (YAML, TOML or JSON by extension; empty for none), layers
// dotenv and environment overrides on top of the defaults and validates the
// result.
func Load(path string, opts ...Option) (Config, error) {
	l := &loader{envFile: ".env", lookup: os.LookupEnv}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}

	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := decode(path, raw, &cfg); err != nil {
			return Config{}, err
		}
	}

	if l.envFile != "" {
		values, err := godotenv.Read(l.envFile)
		switch {
		case err == nil:
			l.dotenv = values
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("config: read %s: %w", l.envFile, err)
		}
	}
	if err := l.applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(path string, raw []byte, cfg *Config) error {
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, cfg)
	case ".toml":
		_, err = toml.Decode(string(raw), cfg)
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		err = dec.Decode(cfg)
	default:
		return fmt.Errorf("config: unsupported file type %q", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (l *loader) env(key string) (string, bool) {
	if value, ok := l.lookup(EnvPrefix + key); ok {
		return value, true
	}
	value, ok := l.dotenv[EnvPrefix+key]
	return value, ok
}

func (l *loader) applyEnv(cfg *Config) error {
	strs := map[string]*string{
		"ADDR":         &cfg.Server.Addr,
		"BACKEND_URL":  &cfg.Backend.URL,
		"FORMS_DIR":    &cfg.Forms.Dir,
		"STORE_DRIVER": &cfg.Store.Driver,
		"STORE_DSN":    &cfg.Store.DSN,
		"LOG_LEVEL":    &cfg.Log.Level,
		"LOG_FORMAT":   &cfg.Log.Format,
	}
	for key, target := range strs {
		if value, ok := l.env(key); ok {
			*target = strings.TrimSpace(value)
		}
	}

	durations := map[string]*Duration{
		"SHUTDOWN_TIMEOUT": &cfg.Server.ShutdownTimeout,
		"SESSION_TTL":      &cfg.Server.SessionTTL,
		"BACKEND_TIMEOUT":  &cfg.Backend.Timeout,
	}
	for key, target := range durations {
		if value, ok := l.env(key); ok {
			if err := target.UnmarshalText([]byte(value)); err != nil {
				return fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err)
			}
		}
	}

	bools := map[string]*bool{
		"SECURE_COOKIES": &cfg.Server.SecureCookies,
		"FORMS_WATCH":    &cfg.Forms.Watch,
	}
	for key, target := range bools {
		if value, ok := l.env(key); ok {
			parsed, err := strconv.ParseBool(strings.TrimSpace(value))
			if err != nil {
				return fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err)
			}
			*target = parsed
		}
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Server.Addr) == "" {
		problems = append(problems, "server.addr is required")
	}
	if c.Server.ShutdownTimeout <= 0 {
		problems = append(problems, "server.shutdownTimeout must be positive")
	}
	if c.Server.SessionTTL <= 0 {
		problems = append(problems, "server.sessionTTL must be positive")
	}
	if c.Backend.Timeout <= 0 {
		problems = append(problems, "backend.timeout must be positive")
	}
	if c.Forms.Watch && c.Forms.Dir == "" {
		problems = append(problems, "forms.watch needs forms.dir")
	}
	switch c.Store.Driver {
	case StoreMemory:
	case StoreSQLite:
		if c.Store.DSN == "" {
			problems = append(problems, "store.dsn is required for sqlite")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown store.driver %q", c.Store.Driver))
	}
	switch c.Log.Format {
	case LogFormatJSON, LogFormatConsole:
	default:
		problems = append(problems, fmt.Sprintf("unknown log.format %q", c.Log.Format))
	}
	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// BackendURL returns the configured quote API base, falling back to this
// server's own address.
func (c Config) BackendURL() string {
	if c.Backend.URL != "" {
		return strings.TrimRight(c.Backend.URL, "/")
	}
	addr := c.Server.Addr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}
