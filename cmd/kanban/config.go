package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/acksell/kanban/dynamodb/ddbsdk"
	"github.com/acksell/kanban/kanbanddb"
	"gopkg.in/yaml.v3"
)

const (
	configFileName = "kanban.yaml"
	envPrefix      = "KANBAN_"

	backendAWS   = "aws"
	backendLocal = "local"
)

// Config holds everything serve needs. Sources apply in order: defaults,
// kanban.yaml, KANBAN_* environment variables, flags.
type Config struct {
	// ConfigPath overrides the discovery of kanban.yaml.
	ConfigPath string `yaml:"-"`

	Addr string `yaml:"addr"`

	// Backend is "aws" or "local" (badger, in memory unless DataDir is set).
	Backend  string `yaml:"backend"`
	Table    string `yaml:"table"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
	DataDir  string `yaml:"dataDir"`

	RedisURL string        `yaml:"redisURL"`
	CacheTTL time.Duration `yaml:"cacheTTL"`

	BoardCheck bool `yaml:"boardCheck"`
	PageSize   int  `yaml:"pageSize"`

	Delete DeleteConfig `yaml:"delete"`

	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"`
}

type DeleteConfig struct {
	BatchSize   int `yaml:"batchSize"`
	MaxAttempts int `yaml:"maxAttempts"`
	Concurrency int `yaml:"concurrency"`
}

func DefaultConfig() Config {
	return Config{
		Addr:     ":8080",
		Backend:  backendAWS,
		Table:    kanbanddb.DefaultTableName,
		CacheTTL: 30 * time.Second,
		PageSize: 100,
		Delete: DeleteConfig{
			BatchSize:   ddbsdk.MaxBatchWriteItems,
			MaxAttempts: 5,
			Concurrency: 1,
		},
		LogLevel:  "info",
		LogFormat: "text",
	}
}

func (c Config) Validate() error {
	var errs []error
	switch c.Backend {
	case backendAWS, backendLocal:
	default:
		errs = append(errs, fmt.Errorf("backend must be %q or %q, got %q", backendAWS, backendLocal, c.Backend))
	}
	if c.Table == "" {
		errs = append(errs, errors.New("table is required"))
	}
	if c.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("pageSize must be positive, got %d", c.PageSize))
	}
	if c.Delete.BatchSize < 1 || c.Delete.BatchSize > ddbsdk.MaxBatchWriteItems {
		errs = append(errs, fmt.Errorf("delete.batchSize must be between 1 and %d, got %d", ddbsdk.MaxBatchWriteItems, c.Delete.BatchSize))
	}
	if c.Delete.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("delete.maxAttempts must be positive, got %d", c.Delete.MaxAttempts))
	}
	if c.Delete.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("delete.concurrency must be positive, got %d", c.Delete.Concurrency))
	}
	if c.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("cacheTTL must not be negative, got %s", c.CacheTTL))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logFormat must be text or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

func bindFlags(fs *flag.FlagSet, c *Config) {
	fs.StringVar(&c.ConfigPath, "config", c.ConfigPath, "path to "+configFileName+" (default: search from the working directory upwards)")
	fs.StringVar(&c.Addr, "addr", c.Addr, "HTTP listen address")
	fs.StringVar(&c.Backend, "backend", c.Backend, "storage backend: aws or local")
	fs.StringVar(&c.Table, "table", c.Table, "DynamoDB table name")
	fs.StringVar(&c.Region, "region", c.Region, "AWS region")
	fs.StringVar(&c.Endpoint, "endpoint", c.Endpoint, "custom DynamoDB endpoint, e.g. DynamoDB Local")
	fs.StringVar(&c.DataDir, "data", c.DataDir, "badger directory for the local backend (empty for in-memory)")
	fs.StringVar(&c.RedisURL, "redis", c.RedisURL, "redis URL for the board cache (empty disables it)")
	fs.DurationVar(&c.CacheTTL, "cache-ttl", c.CacheTTL, "board cache TTL")
	fs.BoolVar(&c.BoardCheck, "board-check", c.BoardCheck, "reject tasks for boards that do not exist")
	fs.IntVar(&c.PageSize, "page-size", c.PageSize, "items per query or scan page")
	fs.IntVar(&c.Delete.BatchSize, "delete-batch-size", c.Delete.BatchSize, "keys per BatchWriteItem when deleting a board")
	fs.IntVar(&c.Delete.MaxAttempts, "delete-max-attempts", c.Delete.MaxAttempts, "attempts per delete batch")
	fs.IntVar(&c.Delete.Concurrency, "delete-concurrency", c.Delete.Concurrency, "delete batches run at once")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "log format: text or json")
}

// LoadConfig resolves the configuration for args (without the subcommand).
func LoadConfig(args []string, getenv func(string) string, wd string) (Config, error) {
	// First pass only finds -config; the second pass lets flags win over
	// the file and the environment.
	probe := DefaultConfig()
	probeFlags := flag.NewFlagSet("serve", flag.ContinueOnError)
	probeFlags.SetOutput(io.Discard)
	bindFlags(probeFlags, &probe)
	if err := probeFlags.Parse(args); err != nil && !errors.Is(err, flag.ErrHelp) {
		return Config{}, err
	}

	cfg := DefaultConfig()
	path := probe.ConfigPath
	if path == "" {
		path = getenv(envPrefix + "CONFIG")
	}
	if path == "" {
		path = findConfigFile(wd)
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
		cfg.ConfigPath = path
	}
	if err := applyEnv(getenv, &cfg); err != nil {
		return Config{}, err
	}

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	bindFlags(fs, &cfg)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if fs.NArg() > 0 {
		return Config{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return cfg, cfg.Validate()
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// findConfigFile searches for kanban.yaml walking up from dir.
func findConfigFile(dir string) string {
	if dir == "" {
		return ""
	}
	for {
		path := filepath.Join(dir, configFileName)
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func applyEnv(getenv func(string) string, cfg *Config) error {
	strs := map[string]*string{
		"ADDR":       &cfg.Addr,
		"BACKEND":    &cfg.Backend,
		"TABLE":      &cfg.Table,
		"REGION":     &cfg.Region,
		"ENDPOINT":   &cfg.Endpoint,
		"DATA_DIR":   &cfg.DataDir,
		"REDIS_URL":  &cfg.RedisURL,
		"LOG_LEVEL":  &cfg.LogLevel,
		"LOG_FORMAT": &cfg.LogFormat,
	}
	for name, dst := range strs {
		if v := getenv(envPrefix + name); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"PAGE_SIZE":           &cfg.PageSize,
		"DELETE_BATCH_SIZE":   &cfg.Delete.BatchSize,
		"DELETE_MAX_ATTEMPTS": &cfg.Delete.MaxAttempts,
		"DELETE_CONCURRENCY":  &cfg.Delete.Concurrency,
	}
	for name, dst := range ints {
		v := getenv(envPrefix + name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", envPrefix, name, err)
		}
		*dst = n
	}

	if v := getenv(envPrefix + "CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sCACHE_TTL: %w", envPrefix, err)
		}
		cfg.CacheTTL = d
	}
	if v := getenv(envPrefix + "BOARD_CHECK"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sBOARD_CHECK: %w", envPrefix, err)
		}
		cfg.BoardCheck = b
	}
	return nil
}
