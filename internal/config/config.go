package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/vango-dev/navkit/pkg/kernel"
	"github.com/vango-dev/navkit/pkg/router"
)

const (
	// ConfigFileName is the configuration file name without extension.
	ConfigFileName = "navkit"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "NAVKIT"

	// DefaultRoutes is the default route file.
	DefaultRoutes = "routes.yaml"

	// DefaultAddr is the default serve address.
	DefaultAddr = ":8080"

	// DefaultReadLimit is the default WebSocket frame limit in bytes.
	DefaultReadLimit = 16 << 10

	// DefaultPopRate is the default number of browser pops accepted per
	// second on one connection.
	DefaultPopRate = 20
)

// Config is the complete process configuration.
type Config struct {
	// Base is the mount prefix all routes live under.
	Base string `mapstructure:"base"`

	// Routes is the route file, a local path or s3://bucket/key.
	Routes string `mapstructure:"routes"`

	// CacheSize bounds the kernel match cache.
	CacheSize int `mapstructure:"cache_size"`

	// GuardTimeout bounds the guard protocol of one navigation.
	GuardTimeout time.Duration `mapstructure:"guard_timeout"`

	// TimeoutPolicy is "fail-open" or "fail-closed".
	TimeoutPolicy string `mapstructure:"timeout_policy"`

	// Watch reloads a local route file into live kernels when it changes.
	Watch bool `mapstructure:"watch"`

	Log    LogConfig    `mapstructure:"log"`
	Server ServerConfig `mapstructure:"server"`
	S3     S3Config     `mapstructure:"s3"`

	configPath string
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig configures `navkit serve`.
type ServerConfig struct {
	Addr      string  `mapstructure:"addr"`
	ReadLimit int64   `mapstructure:"read_limit"`
	PopRate   float64 `mapstructure:"pop_rate"`

	// Hash selects hash history instead of browser history.
	Hash bool `mapstructure:"hash"`
}

// S3Config configures the S3 route source.
type S3Config struct {
	Region string `mapstructure:"region"`

	// Endpoint overrides the S3 endpoint for compatible stores.
	Endpoint string `mapstructure:"endpoint"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		Base:          "/",
		Routes:        DefaultRoutes,
		CacheSize:     router.DefaultCacheSize,
		GuardTimeout:  kernel.DefaultGuardTimeout,
		TimeoutPolicy: kernel.FailOpen.String(),
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr:      DefaultAddr,
			ReadLimit: DefaultReadLimit,
			PopRate:   DefaultPopRate,
		},
	}
}

// SetDefaults registers every key and its default on v. Environment
// overrides only apply to registered keys.
func SetDefaults(v *viper.Viper) {
	d := New()
	v.SetDefault("base", d.Base)
	v.SetDefault("routes", d.Routes)
	v.SetDefault("cache_size", d.CacheSize)
	v.SetDefault("guard_timeout", d.GuardTimeout)
	v.SetDefault("timeout_policy", d.TimeoutPolicy)
	v.SetDefault("watch", d.Watch)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.read_limit", d.Server.ReadLimit)
	v.SetDefault("server.pop_rate", d.Server.PopRate)
	v.SetDefault("server.hash", d.Server.Hash)
	v.SetDefault("s3.region", d.S3.Region)
	v.SetDefault("s3.endpoint", d.S3.Endpoint)
}

// BindFlags binds flags to configuration keys. The map is keyed by
// configuration key; flags that are not defined are skipped.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) error {
	for key, name := range keys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("config: bind --%s: %w", name, err)
		}
	}
	return nil
}

// Load reads configuration into v and decodes it. With file empty,
// navkit.yaml is searched for in the working directory and may be
// absent; an explicit file must exist.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(ConfigFileName)
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.configPath = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the file the configuration was read from, or "".
func (c *Config) Path() string {
	return c.configPath
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if c.CacheSize < 0 {
		return fmt.Errorf("config: cache_size must not be negative, got %d", c.CacheSize)
	}
	if c.GuardTimeout <= 0 {
		return fmt.Errorf("config: guard_timeout must be positive, got %s", c.GuardTimeout)
	}
	if _, ok := kernel.ParseTimeoutPolicy(c.TimeoutPolicy); !ok {
		return fmt.Errorf("config: timeout_policy must be fail-open or fail-closed, got %q", c.TimeoutPolicy)
	}
	switch c.Log.Format {
	case "text", "json", "logfmt":
	default:
		return fmt.Errorf("config: log.format must be text, json or logfmt, got %q", c.Log.Format)
	}
	if c.Server.ReadLimit <= 0 {
		return fmt.Errorf("config: server.read_limit must be positive, got %d", c.Server.ReadLimit)
	}
	if c.Server.PopRate < 0 {
		return fmt.Errorf("config: server.pop_rate must not be negative, got %v", c.Server.PopRate)
	}
	return nil
}

// Policy returns the parsed guard timeout policy.
func (c *Config) Policy() kernel.TimeoutPolicy {
	p, _ := kernel.ParseTimeoutPolicy(c.TimeoutPolicy)
	return p
}

// KernelOptions returns the kernel options this configuration selects.
func (c *Config) KernelOptions() []kernel.Option {
	return []kernel.Option{
		kernel.WithBase(c.Base),
		kernel.WithCacheSize(c.CacheSize),
		kernel.WithGuardTimeout(c.GuardTimeout),
		kernel.WithTimeoutPolicy(c.Policy()),
	}
}
