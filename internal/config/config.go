// Package config loads the settings of the netdav command from a JSON
// file with NETDAV_* environment overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/adamwoolhether/netdav/client"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "NETDAV_"

// Config holds the connection and logging settings.
type Config struct {
	URL              string            `json:"url" validate:"required,url"`
	User             string            `json:"user"`
	Password         string            `json:"password"`
	Headers          map[string]string `json:"headers"`
	DisableBasicAuth bool              `json:"disable_basic_auth"`
	UserAgent        string            `json:"user_agent"`
	Timeout          int64             `json:"timeout" validate:"gte=0"`
	ConnectTimeout   int64             `json:"connect_timeout" validate:"gte=0"`
	ReadTimeout      int64             `json:"read_timeout" validate:"gte=0"`
	RPS              int               `json:"rps" validate:"gte=0"`
	Burst            int               `json:"burst" validate:"required_with=RPS,gte=0"`
	LogLevel         string            `json:"log_level" validate:"oneof=debug info warn error"`
}

// Default returns the settings used when nothing overrides them.
func Default() *Config {
	return &Config{
		UserAgent: "netdav",
		Timeout:   600,
		LogLevel:  "info",
	}
}

// Parse reads f over the defaults, applies the environment and validates.
func Parse(f string) (*Config, error) {
	raw, err := os.ReadFile(f)
	if err != nil {
		return nil, fmt.Errorf("read file:%w", err)
	}

	c := Default()
	if err := json.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("unmarshal file:%w", err)
	}

	return finish(c, os.LookupEnv)
}

// Override adjusts a loaded Config before it is validated.
type Override func(*Config)

// WithURL replaces the configured URL when url is not empty.
func WithURL(url string) Override {
	return func(c *Config) {
		if url != "" {
			c.URL = url
		}
	}
}

// Load reads the first candidate file that exists, or starts from the
// defaults when none does. The environment and then overrides are
// applied before validation.
func Load(candidates []string, overrides ...Override) (*Config, error) {
	c := Default()
	for _, f := range candidates {
		if f == "" {
			continue
		}

		raw, err := os.ReadFile(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read file %s:%w", f, err)
		}

		if err := json.Unmarshal(raw, c); err != nil {
			return nil, fmt.Errorf("unmarshal file %s:%w", f, err)
		}
		break
	}

	return finish(c, os.LookupEnv, overrides...)
}

func finish(c *Config, lookup func(string) (string, bool), overrides ...Override) (*Config, error) {
	if err := applyEnv(c, lookup); err != nil {
		return nil, err
	}

	for _, o := range overrides {
		o(c)
	}

	if err := Validate(c); err != nil {
		return nil, err
	}

	return c, nil
}

func applyEnv(c *Config, lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"URL":        &c.URL,
		"USER":       &c.User,
		"PASSWORD":   &c.Password,
		"USER_AGENT": &c.UserAgent,
		"LOG_LEVEL":  &c.LogLevel,
	}
	for key, dst := range str {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}

	num := map[string]*int64{
		"TIMEOUT":         &c.Timeout,
		"CONNECT_TIMEOUT": &c.ConnectTimeout,
		"READ_TIMEOUT":    &c.ReadTimeout,
	}
	for key, dst := range num {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			}
			*dst = n
		}
	}

	if v, ok := lookup(EnvPrefix + "DISABLE_BASIC_AUTH"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sDISABLE_BASIC_AUTH: %w", EnvPrefix, err)
		}
		c.DisableBasicAuth = b
	}

	return nil
}

// Level maps LogLevel to a slog level.
func (c *Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return slog.LevelInfo
	}

	return l
}

// Options translates the settings into client options.
func (c *Config) Options(logger *slog.Logger) []client.Option {
	opts := []client.Option{client.WithLogger(logger)}

	if c.User != "" {
		opts = append(opts, client.WithCredentials(c.User, c.Password))
	}
	if len(c.Headers) > 0 {
		opts = append(opts, client.WithHeaders(c.Headers))
	}
	if c.DisableBasicAuth {
		opts = append(opts, client.WithDisableBasicAuth())
	}
	if c.UserAgent != "" {
		opts = append(opts, client.WithUserAgent(c.UserAgent))
	}
	if c.Timeout > 0 {
		opts = append(opts, client.WithTimeout(time.Duration(c.Timeout)*time.Second))
	}
	if c.ConnectTimeout > 0 {
		opts = append(opts, client.WithConnectTimeout(time.Duration(c.ConnectTimeout)*time.Second))
	}
	if c.ReadTimeout > 0 {
		opts = append(opts, client.WithReadTimeout(time.Duration(c.ReadTimeout)*time.Second))
	}
	if c.RPS > 0 {
		opts = append(opts, client.WithThrottle(c.RPS, c.Burst))
	}

	return opts
}
