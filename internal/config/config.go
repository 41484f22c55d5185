package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/oy3o/mbuf"
)

// Defaults used when neither flags, environment nor a config file set a value.
const (
	DefaultIterations = 100000
	DefaultMinSize    = 64
	DefaultMaxSize    = 16 << 10
	DefaultGrowRatio  = 0.05
	DefaultLogLevel   = "info"
)

// EnvPrefix prefixes every environment override, e.g. MBUF_MAX_SIZE.
const EnvPrefix = "MBUF"

// Config represents the load driver configuration
type Config struct {
	Iterations  int            `mapstructure:"iterations"`
	MinSize     int            `mapstructure:"min-size"`
	MaxSize     int            `mapstructure:"max-size"`
	GrowRatio   float64        `mapstructure:"grow-ratio"` // share of messages that overshoot their size
	Seed        uint64         `mapstructure:"seed"`
	Warm        bool           `mapstructure:"warm"` // run Pool.Initialize before the workload
	MetricsAddr string         `mapstructure:"metrics-addr"`
	LogLevel    string         `mapstructure:"log-level"`
	Quotas      map[string]int `mapstructure:"quotas"` // class -> warm-up quota
}

// Load reads configuration from, in increasing precedence: defaults, the
// optional YAML file, MBUF_* environment variables and explicitly set flags.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("iterations", DefaultIterations)
	v.SetDefault("min-size", DefaultMinSize)
	v.SetDefault("max-size", DefaultMaxSize)
	v.SetDefault("grow-ratio", DefaultGrowRatio)
	v.SetDefault("seed", 1)
	v.SetDefault("warm", true)
	v.SetDefault("log-level", DefaultLogLevel)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Iterations <= 0 {
		return errors.New("iterations must be greater than 0")
	}

	if config.MinSize < 0 {
		return errors.New("min-size must not be negative")
	}

	if config.MaxSize < config.MinSize {
		return fmt.Errorf("max-size %d is smaller than min-size %d", config.MaxSize, config.MinSize)
	}

	if config.MaxSize > mbuf.MaxCapacity {
		return fmt.Errorf("max-size %d exceeds %d", config.MaxSize, mbuf.MaxCapacity)
	}

	if config.GrowRatio < 0 || config.GrowRatio > 1 {
		return fmt.Errorf("grow-ratio %v must be within [0, 1]", config.GrowRatio)
	}

	switch config.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log-level %q", config.LogLevel)
	}

	_, err := config.PoolQuotas()
	return err
}

// PoolQuotas returns the configured warm-up quotas keyed by capacity class.
func (c *Config) PoolQuotas() (map[int]int, error) {
	quotas := make(map[int]int, len(c.Quotas))
	for key, n := range c.Quotas {
		class, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("quota key %q is not a size: %w", key, err)
		}
		if got, ok := mbuf.ClassFor(class); !ok || got != class {
			return nil, fmt.Errorf("quota key %d is not a capacity class", class)
		}
		if n < 0 {
			return nil, fmt.Errorf("quota for class %d must not be negative", class)
		}
		quotas[class] = n
	}
	return quotas, nil
}
