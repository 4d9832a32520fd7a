package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultPath = "config.yaml"

type Config struct {
	Download   DownloadConfig   `mapstructure:"download" yaml:"download"`
	Validation ValidationConfig `mapstructure:"validation" yaml:"validation"`
	Games      GamesConfig      `mapstructure:"games" yaml:"games"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
	Store      StoreConfig      `mapstructure:"store" yaml:"store"`

	Port string `mapstructure:"port" yaml:"port"`
}

type DownloadConfig struct {
	OutDir             string        `mapstructure:"out_dir" yaml:"out_dir"`
	MaxConcurrent      int           `mapstructure:"max_concurrent" yaml:"max_concurrent"`
	MaxRetries         int           `mapstructure:"max_retries" yaml:"max_retries"`
	RetryDelay         time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
	MaxRetryDelay      time.Duration `mapstructure:"max_retry_delay" yaml:"max_retry_delay"`
	MirrorFailover     int           `mapstructure:"mirror_failover" yaml:"mirror_failover"`
	Timeout            time.Duration `mapstructure:"timeout" yaml:"timeout"`
	LargeFileTimeout   time.Duration `mapstructure:"large_file_timeout" yaml:"large_file_timeout"`
	LargeFileThreshold int64         `mapstructure:"large_file_threshold" yaml:"large_file_threshold"`
	AllowResume        bool          `mapstructure:"allow_resume" yaml:"allow_resume"`
	UserAgent          string        `mapstructure:"user_agent" yaml:"user_agent"`
	ChunkParallelism   int           `mapstructure:"chunk_parallelism" yaml:"chunk_parallelism"`
	PriorityOrder      string        `mapstructure:"priority_order" yaml:"priority_order"`
}

type ValidationConfig struct {
	Async         bool `mapstructure:"async" yaml:"async"`
	MaxConcurrent int  `mapstructure:"max_concurrent" yaml:"max_concurrent"`
}

type GamesConfig struct {
	SteamRoots []string          `mapstructure:"steam_roots" yaml:"steam_roots"`
	Paths      map[string]string `mapstructure:"paths" yaml:"paths"`
}

type LogConfig struct {
	Path          string `mapstructure:"path" yaml:"path"`
	Level         string `mapstructure:"level" yaml:"level"`
	IncludeStdout bool   `mapstructure:"include_stdout" yaml:"include_stdout"`
}

type StoreConfig struct {
	Driver      string `mapstructure:"driver" yaml:"driver"`
	SQLitePath  string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn" yaml:"postgres_dsn"`
}

// Load reads path on top of the defaults. The default config.yaml is
// optional; an explicitly named file must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = defaultPath
		if _, err := os.Stat(path); os.IsNotExist(err) {
			// Docker images mount their config here
			if _, errEx := os.Stat("/config/config.yaml"); errEx == nil {
				path = "/config/config.yaml"
			} else {
				path = ""
			}
		}
	} else if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// Support Environment Variables
	v.SetEnvPrefix("MODFETCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")

	v.SetDefault("download.out_dir", "./downloads")
	v.SetDefault("download.max_concurrent", 4)
	v.SetDefault("download.max_retries", 3)
	v.SetDefault("download.retry_delay", time.Second)
	v.SetDefault("download.max_retry_delay", 60*time.Second)
	v.SetDefault("download.mirror_failover", 2)
	v.SetDefault("download.timeout", 30*time.Second)
	v.SetDefault("download.large_file_timeout", 600*time.Second)
	v.SetDefault("download.large_file_threshold", int64(100_000_000))
	v.SetDefault("download.allow_resume", true)
	v.SetDefault("download.user_agent", "modfetch/1.0")
	v.SetDefault("download.chunk_parallelism", 4)
	v.SetDefault("download.priority_order", "asc")

	v.SetDefault("validation.async", true)
	v.SetDefault("validation.max_concurrent", 4)

	v.SetDefault("games.steam_roots", []string{})
	v.SetDefault("games.paths", map[string]string{})

	v.SetDefault("log.path", "modfetch.log")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.include_stdout", true)

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "./data/modfetch.db")
	v.SetDefault("store.postgres_dsn", "")
}

func (c *Config) validate() error {
	d := &c.Download

	if d.OutDir == "" {
		d.OutDir = "./downloads"
	}

	if d.MaxConcurrent <= 0 {
		return errors.New("download.max_concurrent must be at least 1")
	}

	if d.MaxRetries < 0 {
		return errors.New("download.max_retries cannot be negative")
	}

	if d.RetryDelay > d.MaxRetryDelay {
		return fmt.Errorf("download.retry_delay (%s) exceeds max_retry_delay (%s)", d.RetryDelay, d.MaxRetryDelay)
	}

	if d.MirrorFailover <= 0 {
		// Default to a sane value
		d.MirrorFailover = 1
	}

	if d.ChunkParallelism <= 0 {
		d.ChunkParallelism = 1
	}

	switch strings.ToLower(d.PriorityOrder) {
	case "asc", "desc":
	default:
		return fmt.Errorf("download.priority_order must be asc or desc, got %q", d.PriorityOrder)
	}

	if c.Validation.MaxConcurrent <= 0 {
		c.Validation.MaxConcurrent = 1
	}

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return errors.New("store.sqlite_path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.PostgresDSN == "" {
			return errors.New("store.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	return nil
}
