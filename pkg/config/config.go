// Package config handles phenograph configuration.
//
// Configuration is layered: built-in defaults, then an optional YAML file,
// then environment variables. Load applies all three; LoadFromEnv skips
// the file.
//
// Example Usage:
//
//	cfg, err := config.Load("./phenograph.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Invalid config: %v", err)
//	}
//
// Environment Variables:
//
// Data sources:
//   - PHENOGRAPH_DATA_DIR="./hpo" (hp.obo and annotation files)
//   - PHENOGRAPH_TRANSITIVE=true
//   - PHENOGRAPH_SNAPSHOT_FILE="./hpo.phg"
//   - PHENOGRAPH_STORE_DIR="./data/store"
//   - PHENOGRAPH_SNAPSHOT="hpo-2024-04-26"
//
// Scoring:
//   - PHENOGRAPH_IC_KIND="omim"
//   - PHENOGRAPH_SIMILARITY_METHOD="graphic"
//   - PHENOGRAPH_COMBINER="funSimAvg"
//   - PHENOGRAPH_WORKERS=8
//
// Runtime:
//   - PHENOGRAPH_POOL_ENABLED=true
//   - PHENOGRAPH_POOL_MAX_SIZE=65536
//   - PHENOGRAPH_MEMORY_LIMIT="2GB"
//   - PHENOGRAPH_GC_PERCENT=100
//   - PHENOGRAPH_LOG_LEVEL="info"
//   - PHENOGRAPH_LOG_FORMAT="text"
//
// Server:
//   - PHENOGRAPH_ADDRESS="0.0.0.0"
//   - PHENOGRAPH_PORT=8080
//   - PHENOGRAPH_READ_TIMEOUT=30s
//   - PHENOGRAPH_WRITE_TIMEOUT=60s
//   - PHENOGRAPH_SHUTDOWN_TIMEOUT=10s
//   - PHENOGRAPH_CACHE_SIZE=1024
//   - PHENOGRAPH_CACHE_TTL=10m
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/orneryd/phenograph/pkg/linkage"
	"github.com/orneryd/phenograph/pkg/ontology"
	"github.com/orneryd/phenograph/pkg/pool"
	"github.com/orneryd/phenograph/pkg/similarity"
)

// Config holds all phenograph configuration.
//
// Configuration is organized into logical sections:
//   - Data: where the ontology comes from
//   - Similarity: default scoring choices
//   - Pool and Runtime: scratch buffers and Go runtime limits
//   - Logging and Server
type Config struct {
	Data       DataConfig       `yaml:"data"`
	Similarity SimilarityConfig `yaml:"similarity"`

	// Workers bounds batch parallelism. 0 means one worker per CPU.
	Workers int `yaml:"workers"`

	Pool    PoolConfig    `yaml:"pool"`
	Runtime RuntimeConfig `yaml:"runtime"`
	Logging LoggingConfig `yaml:"logging"`
	Server  ServerConfig  `yaml:"server"`
}

// DataConfig selects the ontology source. The first configured source
// wins in this order: Snapshot (with StoreDir), SnapshotFile, Dir. With
// none set the builtin ontology is used.
type DataConfig struct {
	// Dir holds hp.obo, phenotype.hpoa and the gene annotation file
	Dir string `yaml:"dir"`
	// Transitive reads phenotype_to_genes.txt instead of genes_to_phenotype.txt
	Transitive bool `yaml:"transitive"`
	// SnapshotFile is a binary snapshot on disk
	SnapshotFile string `yaml:"snapshot_file"`
	// StoreDir is the badger snapshot store directory
	StoreDir string `yaml:"store_dir"`
	// Snapshot names a snapshot inside StoreDir
	Snapshot string `yaml:"snapshot"`
}

// SimilarityConfig holds the default scoring choices.
type SimilarityConfig struct {
	Kind     string `yaml:"kind"`
	Method   string `yaml:"method"`
	Combiner string `yaml:"combiner"`
	Linkage  string `yaml:"linkage"`
}

// PoolConfig mirrors pool.PoolConfig.
type PoolConfig struct {
	Enabled bool `yaml:"enabled"`
	MaxSize int  `yaml:"max_size"`
}

// RuntimeConfig holds Go runtime settings.
type RuntimeConfig struct {
	// MemoryLimit accepts "512MB", "2GB", "0" or "unlimited"
	MemoryLimit string `yaml:"memory_limit"`
	GCPercent   int    `yaml:"gc_percent"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level (debug, info, warn, error)
	Level string `yaml:"level"`
	// Format (text, json)
	Format string `yaml:"format"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// CacheSize bounds the response cache, 0 disables it.
	CacheSize int           `yaml:"cache_size"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Similarity: SimilarityConfig{
			Kind:     "omim",
			Method:   "graphic",
			Combiner: "funSimAvg",
			Linkage:  "single",
		},
		Pool: PoolConfig{
			Enabled: true,
			MaxSize: 1 << 16,
		},
		Runtime: RuntimeConfig{
			MemoryLimit: "0",
			GCPercent:   100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Address:         "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CacheSize:       1024,
			CacheTTL:        10 * time.Minute,
		},
	}
}

// LoadFromEnv returns the defaults overlaid with environment variables.
func LoadFromEnv() *Config {
	c := Default()
	c.applyEnv()
	return c
}

// Load reads defaults, then the YAML file at path (skipped when path is
// empty), then environment variables.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		if err := c.loadFile(path); err != nil {
			return nil, err
		}
	}
	c.applyEnv()
	return c, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Data.Dir = getEnv("PHENOGRAPH_DATA_DIR", c.Data.Dir)
	c.Data.Transitive = getEnvBool("PHENOGRAPH_TRANSITIVE", c.Data.Transitive)
	c.Data.SnapshotFile = getEnv("PHENOGRAPH_SNAPSHOT_FILE", c.Data.SnapshotFile)
	c.Data.StoreDir = getEnv("PHENOGRAPH_STORE_DIR", c.Data.StoreDir)
	c.Data.Snapshot = getEnv("PHENOGRAPH_SNAPSHOT", c.Data.Snapshot)

	c.Similarity.Kind = getEnv("PHENOGRAPH_IC_KIND", c.Similarity.Kind)
	c.Similarity.Method = getEnv("PHENOGRAPH_SIMILARITY_METHOD", c.Similarity.Method)
	c.Similarity.Combiner = getEnv("PHENOGRAPH_COMBINER", c.Similarity.Combiner)
	c.Similarity.Linkage = getEnv("PHENOGRAPH_LINKAGE", c.Similarity.Linkage)
	c.Workers = getEnvInt("PHENOGRAPH_WORKERS", c.Workers)

	c.Pool.Enabled = getEnvBool("PHENOGRAPH_POOL_ENABLED", c.Pool.Enabled)
	c.Pool.MaxSize = getEnvInt("PHENOGRAPH_POOL_MAX_SIZE", c.Pool.MaxSize)
	c.Runtime.MemoryLimit = getEnv("PHENOGRAPH_MEMORY_LIMIT", c.Runtime.MemoryLimit)
	c.Runtime.GCPercent = getEnvInt("PHENOGRAPH_GC_PERCENT", c.Runtime.GCPercent)

	c.Logging.Level = getEnv("PHENOGRAPH_LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("PHENOGRAPH_LOG_FORMAT", c.Logging.Format)

	c.Server.Address = getEnv("PHENOGRAPH_ADDRESS", c.Server.Address)
	c.Server.Port = getEnvInt("PHENOGRAPH_PORT", c.Server.Port)
	c.Server.ReadTimeout = getEnvDuration("PHENOGRAPH_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvDuration("PHENOGRAPH_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.ShutdownTimeout = getEnvDuration("PHENOGRAPH_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
	c.Server.CacheSize = getEnvInt("PHENOGRAPH_CACHE_SIZE", c.Server.CacheSize)
	c.Server.CacheTTL = getEnvDuration("PHENOGRAPH_CACHE_TTL", c.Server.CacheTTL)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if _, err := ontology.ParseICKind(c.Similarity.Kind); err != nil {
		errs = append(errs, err)
	}
	if _, err := similarity.ParseMethod(c.Similarity.Method); err != nil {
		errs = append(errs, err)
	}
	if _, err := similarity.ParseCombiner(c.Similarity.Combiner); err != nil {
		errs = append(errs, err)
	}
	if _, err := linkage.ParseMethod(c.Similarity.Linkage); err != nil {
		errs = append(errs, err)
	}
	if c.Data.Snapshot != "" && c.Data.StoreDir == "" {
		errs = append(errs, fmt.Errorf("snapshot %q given without a store directory", c.Data.Snapshot))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("invalid worker count: %d", c.Workers))
	}
	if c.Pool.MaxSize <= 0 {
		errs = append(errs, fmt.Errorf("invalid pool max size: %d", c.Pool.MaxSize))
	}
	if _, err := parseMemorySize(c.Runtime.MemoryLimit); err != nil {
		errs = append(errs, err)
	}
	if _, err := parseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("invalid log format: %q", c.Logging.Format))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port: %d", c.Server.Port))
	}
	if c.Server.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("invalid cache size: %d", c.Server.CacheSize))
	}
	if c.Server.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("invalid cache ttl: %s", c.Server.CacheTTL))
	}
	return errors.Join(errs...)
}

// String returns a one-line summary suitable for logging.
func (c *Config) String() string {
	source := "builtin"
	switch {
	case c.Data.Snapshot != "":
		source = "store:" + c.Data.StoreDir + "#" + c.Data.Snapshot
	case c.Data.SnapshotFile != "":
		source = "snapshot:" + c.Data.SnapshotFile
	case c.Data.Dir != "":
		source = "dir:" + c.Data.Dir
	}
	return fmt.Sprintf(
		"Config{Source: %s, Transitive: %v, Similarity: %s/%s/%s, Workers: %d, HTTP: %s:%d}",
		source, c.Data.Transitive,
		c.Similarity.Method, c.Similarity.Kind, c.Similarity.Combiner,
		c.Workers,
		c.Server.Address, c.Server.Port,
	)
}

// Addr is the listen address of the HTTP server.
func (c ServerConfig) Addr() string {
	return c.Address + ":" + strconv.Itoa(c.Port)
}

// Apply installs the pool settings.
func (c PoolConfig) Apply() {
	pool.Configure(pool.PoolConfig{Enabled: c.Enabled, MaxSize: c.MaxSize})
}

// Apply applies the runtime memory settings to the Go runtime.
// Should be called early in main() before heavy allocations.
func (c RuntimeConfig) Apply() error {
	limit, err := parseMemorySize(c.MemoryLimit)
	if err != nil {
		return err
	}
	if limit > 0 {
		debug.SetMemoryLimit(limit)
	}
	if c.GCPercent != 100 {
		debug.SetGCPercent(c.GCPercent)
	}
	return nil
}

// Handler builds the slog handler described by c.
func (c LoggingConfig) Handler(w io.Writer) (slog.Handler, error) {
	level, err := parseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(c.Format) {
	case "", "text":
		return slog.NewTextHandler(w, opts), nil
	case "json":
		return slog.NewJSONHandler(w, opts), nil
	default:
		return nil, fmt.Errorf("invalid log format: %q", c.Format)
	}
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level: %q", s)
	}
	return level, nil
}

// Helper functions for environment variable parsing

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(val)
		return val == "true" || val == "1" || val == "yes" || val == "on"
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		// Try parsing as seconds
		if secs, err := strconv.Atoi(val); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultVal
}

// parseMemorySize parses a human-readable memory size string.
// Supports: "1024", "1KB", "1MB", "1GB", "1TB", "0", "unlimited"
func parseMemorySize(s string) (int64, error) {
	s = strings.TrimSpace(strings.ToUpper(s))
	if s == "" || s == "0" || s == "UNLIMITED" {
		return 0, nil
	}
	raw := s

	s = strings.TrimSuffix(s, "B")

	var multiplier int64 = 1
	switch {
	case strings.HasSuffix(s, "K"):
		multiplier = 1024
		s = strings.TrimSuffix(s, "K")
	case strings.HasSuffix(s, "M"):
		multiplier = 1024 * 1024
		s = strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "G"):
		multiplier = 1024 * 1024 * 1024
		s = strings.TrimSuffix(s, "G")
	case strings.HasSuffix(s, "T"):
		multiplier = 1024 * 1024 * 1024 * 1024
		s = strings.TrimSuffix(s, "T")
	}

	val, err := strconv.ParseInt(s, 10, 64)
	if err != nil || val < 0 {
		return 0, fmt.Errorf("invalid memory size: %q", raw)
	}
	return val * multiplier, nil
}
