// Package config loads shufflebench settings from a YAML file overlaid by
// SHUFFLEIO_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/unkn0wn-root/shuffleio"
	"github.com/unkn0wn-root/shuffleio/store"
)

// Backend selects the store implementation.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendBigcache Backend = "bigcache"
	BackendRedis    Backend = "redis"
)

type Redis struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	Namespace string        `yaml:"namespace"`
	TTL       time.Duration `yaml:"ttl"`
}

type Bigcache struct {
	HardMaxCacheSizeMB int           `yaml:"hard_max_mb"`
	LifeWindow         time.Duration `yaml:"life_window"`
}

type Config struct {
	Environment string  `yaml:"environment"`
	LogLevel    string  `yaml:"log_level"`
	MetricsAddr string  `yaml:"metrics_addr"`
	Backend     Backend `yaml:"backend"`

	JobID           string `yaml:"job_id"`
	Mode            string `yaml:"mode"`
	ObjectClass     string `yaml:"object_class"`
	ObjectHint      string `yaml:"object_hint"`
	SerializeCreate bool   `yaml:"serialize_create"`

	WriteBufferSize   int   `yaml:"write_buffer_size"`
	FlushParallelism  int   `yaml:"flush_parallelism"`
	ReadParallelism   int   `yaml:"read_parallelism"`
	BlockCacheMaxCost int64 `yaml:"block_cache_max_cost"`

	Redis    Redis    `yaml:"redis"`
	Bigcache Bigcache `yaml:"bigcache"`

	// Resolved by Load.
	ParsedMode  shuffleio.Mode    `yaml:"-"`
	ParsedClass store.ObjectClass `yaml:"-"`
	ParsedHint  store.ObjectHint  `yaml:"-"`
}

func defaults() *Config {
	return &Config{
		Environment: "development",
		LogLevel:    "info",
		Backend:     BackendMemory,
		JobID:       "app-0000-0001",
		Mode:        "sync",
		ObjectClass: "OC_UNKNOWN",
		ObjectHint:  "HINT_NONE",
		Redis: Redis{
			Addr:      "localhost:6379",
			Namespace: "shuffleio",
		},
	}
}

// Load reads path (optional), applies environment overrides, and validates.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Environment = getEnv("SHUFFLEIO_ENV", c.Environment)
	c.LogLevel = getEnv("SHUFFLEIO_LOG_LEVEL", c.LogLevel)
	c.MetricsAddr = getEnv("SHUFFLEIO_METRICS_ADDR", c.MetricsAddr)
	c.Backend = Backend(getEnv("SHUFFLEIO_BACKEND", string(c.Backend)))
	c.JobID = getEnv("SHUFFLEIO_JOB_ID", c.JobID)
	c.Mode = getEnv("SHUFFLEIO_MODE", c.Mode)
	c.ObjectClass = getEnv("SHUFFLEIO_OBJECT_CLASS", c.ObjectClass)
	c.ObjectHint = getEnv("SHUFFLEIO_OBJECT_HINT", c.ObjectHint)
	c.Redis.Addr = getEnv("SHUFFLEIO_REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("SHUFFLEIO_REDIS_PASSWORD", c.Redis.Password)

	var err error
	if c.SerializeCreate, err = getEnvBool("SHUFFLEIO_SERIALIZE_CREATE", c.SerializeCreate); err != nil {
		return err
	}
	if c.Redis.DB, err = getEnvInt("SHUFFLEIO_REDIS_DB", c.Redis.DB); err != nil {
		return err
	}
	if c.WriteBufferSize, err = getEnvInt("SHUFFLEIO_WRITE_BUFFER_SIZE", c.WriteBufferSize); err != nil {
		return err
	}
	return nil
}

func (c *Config) validate() error {
	var errs []error
	var err error

	if _, err = shuffleio.ParseJobID(c.JobID); err != nil {
		errs = append(errs, err)
	}
	if c.ParsedMode, err = shuffleio.ParseMode(c.Mode); err != nil {
		errs = append(errs, err)
	}
	if c.ParsedClass, err = store.ParseObjectClass(c.ObjectClass); err != nil {
		errs = append(errs, err)
	}
	if c.ParsedHint, err = store.ParseObjectHint(c.ObjectHint); err != nil {
		errs = append(errs, err)
	}
	switch c.Backend {
	case BackendMemory, BackendBigcache:
	case BackendRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis backend requires redis.addr"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}
	if c.WriteBufferSize < 0 || c.FlushParallelism < 0 || c.ReadParallelism < 0 || c.BlockCacheMaxCost < 0 {
		errs = append(errs, errors.New("sizes and parallelism must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Options maps the config onto shuffleio.Options; Store, Logger and Hooks
// are left for the caller.
func (c *Config) Options() shuffleio.Options {
	return shuffleio.Options{
		JobID:             c.JobID,
		Mode:              c.ParsedMode,
		ObjectClass:       c.ParsedClass,
		ObjectHint:        c.ParsedHint,
		SerializeCreate:   c.SerializeCreate,
		WriteBufferSize:   c.WriteBufferSize,
		FlushParallelism:  c.FlushParallelism,
		ReadParallelism:   c.ReadParallelism,
		BlockCacheMaxCost: c.BlockCacheMaxCost,
	}
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, def bool) (bool, error) {
	v := getEnv(key, "")
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
