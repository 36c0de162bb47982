// Package config loads process configuration from defaults, an optional
// YAML file and DOCSTATUS_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	strutil "docstatus/pkg/platform/strings"
)

const (
	EnvPrefix      = "DOCSTATUS"
	configName     = "docstatus"
	DefaultUA      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36 Edg/124.0.0.0"
	DefaultChecker = "https://pasport.org.ua/solutions/checker"
)

// Config is the fully resolved process configuration.
type Config struct {
	HTTP    HTTP
	Log     Log
	Chrome  Chrome
	Checker Checker
	Cache   Cache
	Breaker Breaker
}

// HTTP captures HTTP server level configuration.
type HTTP struct {
	Addr string
	// APIToken guards the status endpoint when set.
	APIToken       string
	RequestTimeout time.Duration
}

type Log struct {
	Level  string
	Format string
}

type Chrome struct {
	Headless  bool
	Args      []string
	PoolSize  int
	UserAgent string
	ExecPath  string
}

type Checker struct {
	TargetURL      string
	RequestTimeout time.Duration
	MarkerTimeout  time.Duration
}

type Cache struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

type Breaker struct {
	FailureThreshold int
	Cooldown         time.Duration
}

// NewViper returns a viper instance bound to the environment with every
// default registered.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.api_token", "")
	v.SetDefault("http.request_timeout", 15*time.Second)
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "json")
	v.SetDefault("chrome.headless", true)
	v.SetDefault("chrome.args", []string{"--no-sandbox", "--disable-setuid-sandbox"})
	v.SetDefault("chrome.pool_size", 5)
	v.SetDefault("chrome.user_agent", DefaultUA)
	v.SetDefault("chrome.exec_path", "")
	v.SetDefault("checker.target_url", DefaultChecker)
	v.SetDefault("checker.request_timeout", 10*time.Second)
	v.SetDefault("checker.marker_timeout", 10*time.Second)
	v.SetDefault("cache.ttl", 4*time.Hour)
	v.SetDefault("cache.sweep_interval", 30*time.Minute)
	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.cooldown", time.Minute)
}

// ReadFile reads path, or docstatus.yaml from the working directory or
// ~/.config/docstatus when path is empty. A missing default file is not an
// error. It returns the file actually used.
func ReadFile(v *viper.Viper, path string) (string, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", configName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("read config: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

// Load resolves a Config from v and validates it.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		HTTP: HTTP{
			Addr:           v.GetString("http.addr"),
			APIToken:       v.GetString("http.api_token"),
			RequestTimeout: v.GetDuration("http.request_timeout"),
		},
		Log: Log{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
		Chrome: Chrome{
			Headless:  v.GetBool("chrome.headless"),
			Args:      strutil.CompactFields(v.GetStringSlice("chrome.args")),
			PoolSize:  v.GetInt("chrome.pool_size"),
			UserAgent: v.GetString("chrome.user_agent"),
			ExecPath:  v.GetString("chrome.exec_path"),
		},
		Checker: Checker{
			TargetURL:      v.GetString("checker.target_url"),
			RequestTimeout: v.GetDuration("checker.request_timeout"),
			MarkerTimeout:  v.GetDuration("checker.marker_timeout"),
		},
		Cache: Cache{
			TTL:           v.GetDuration("cache.ttl"),
			SweepInterval: v.GetDuration("cache.sweep_interval"),
		},
		Breaker: Breaker{
			FailureThreshold: v.GetInt("breaker.failure_threshold"),
			Cooldown:         v.GetDuration("breaker.cooldown"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if c.HTTP.RequestTimeout <= 0 {
		errs = append(errs, errors.New("http.request_timeout must be positive"))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		errs = append(errs, fmt.Errorf("log.format %q is not json or text", c.Log.Format))
	}
	if c.Chrome.PoolSize <= 0 {
		errs = append(errs, errors.New("chrome.pool_size must be positive"))
	}
	if u, err := url.Parse(c.Checker.TargetURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("checker.target_url %q is not an http(s) url", c.Checker.TargetURL))
	}
	if c.Checker.RequestTimeout <= 0 {
		errs = append(errs, errors.New("checker.request_timeout must be positive"))
	}
	if c.Checker.MarkerTimeout <= 0 {
		errs = append(errs, errors.New("checker.marker_timeout must be positive"))
	}
	if c.Cache.TTL <= 0 || c.Cache.SweepInterval <= 0 {
		errs = append(errs, errors.New("cache.ttl and cache.sweep_interval must be positive"))
	} else if c.Cache.TTL < c.Cache.SweepInterval {
		errs = append(errs, fmt.Errorf("cache.ttl %s is shorter than cache.sweep_interval %s", c.Cache.TTL, c.Cache.SweepInterval))
	}
	if c.Breaker.FailureThreshold <= 0 {
		errs = append(errs, errors.New("breaker.failure_threshold must be positive"))
	}
	if c.Breaker.Cooldown <= 0 {
		errs = append(errs, errors.New("breaker.cooldown must be positive"))
	}
	return errors.Join(errs...)
}
