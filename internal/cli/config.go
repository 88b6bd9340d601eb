package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/roach88/bedquilt/internal/querysql"
	"github.com/roach88/bedquilt/internal/store"
)

// EnvPrefix prefixes every environment override, e.g. BEDQUILT_DATABASE_DSN.
const EnvPrefix = "BEDQUILT"

// Config is the merged configuration: defaults, then the config file, then
// BEDQUILT_* environment variables, then explicitly set flags.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Split    SplitConfig    `mapstructure:"split"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int    `mapstructure:"max_conns"`
}

// SplitConfig configures the query splitter.
type SplitConfig struct {
	MaxDepth  int `mapstructure:"max_depth"`
	CacheSize int `mapstructure:"cache_size"`
}

// flagKeys maps command flags to config keys.
var flagKeys = map[string]string{
	"dsn":       "database.dsn",
	"max-depth": "split.max_depth",
}

// LoadConfig loads configuration. path may be empty. Flags present in flags
// and listed in flagKeys override the other sources when set.
func LoadConfig(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_conns", store.DefaultMaxConns)
	v.SetDefault("split.max_depth", querysql.DefaultMaxDepth)
	v.SetDefault("split.cache_size", store.DefaultCacheSize)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.Split.MaxDepth <= 0 {
		return nil, fmt.Errorf("split.max_depth must be positive, got %d", cfg.Split.MaxDepth)
	}
	if cfg.Database.MaxConns < 0 {
		return nil, fmt.Errorf("database.max_conns must not be negative, got %d", cfg.Database.MaxConns)
	}
	return &cfg, nil
}

// StoreConfig converts the database and split settings for store.Open.
func (c *Config) StoreConfig() store.Config {
	return store.Config{
		DSN:       c.Database.DSN,
		MaxConns:  c.Database.MaxConns,
		MaxDepth:  c.Split.MaxDepth,
		CacheSize: c.Split.CacheSize,
	}
}
