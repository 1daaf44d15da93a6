// Package config loads stackdoc's settings.
//
// Sources are applied lowest to highest: built-in defaults, the YAML config
// file, a .env file in the working directory, STACKDOC_* environment
// variables, and finally command-line flags (applied by the CLI).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/stackdoc/pkg/errors"
)

const appName = "stackdoc"

// Store kinds.
const (
	StoreIPFS  = "ipfs"
	StoreLocal = "local"
)

// Cache backends.
const (
	CacheFile   = "file"
	CacheSQLite = "sqlite"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Config is the complete stackdoc configuration.
type Config struct {
	Store       StoreConfig `yaml:"store"`
	Cache       CacheConfig `yaml:"cache"`
	Index       IndexConfig `yaml:"index"`
	Build       BuildConfig `yaml:"build"`
	MetricsFile string      `yaml:"metrics_file,omitempty"`
}

// StoreConfig selects where documentation is published.
type StoreConfig struct {
	Kind     string   `yaml:"kind"`      // "ipfs" or "local"
	IPFSAPI  string   `yaml:"ipfs_api"`  // host:port of the IPFS HTTP API
	LocalDir string   `yaml:"local_dir"` // block directory of the local store
	S3       S3Config `yaml:"s3"`        // when Bucket is set, the local store keeps blocks in S3
}

// S3Config configures an S3-compatible block bucket.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region,omitempty"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// CacheConfig selects the build cache backend.
type CacheConfig struct {
	Backend       string `yaml:"backend"`
	Dir           string `yaml:"dir"`
	SQLitePath    string `yaml:"sqlite_path,omitempty"`
	RedisAddr     string `yaml:"redis_addr,omitempty"`
	RedisPassword string `yaml:"redis_password,omitempty"`
	RedisDB       int    `yaml:"redis_db,omitempty"`
	MemorySize    int    `yaml:"memory_size,omitempty"` // in-process LRU in front of the backend; 0 disables
}

// IndexConfig locates the global index.
type IndexConfig struct {
	Pointer string `yaml:"pointer"`
}

// BuildConfig configures the toolchain and workspace.
type BuildConfig struct {
	Workspace string `yaml:"workspace"` // parent of per-run temp directories
	Cargo     string `yaml:"cargo"`
	Toolchain string `yaml:"toolchain"`
	Verify    bool   `yaml:"verify"` // check crate checksums against the registry
}

// Default returns the built-in configuration.
func Default() *Config {
	cache := cacheHome()
	return &Config{
		Store: StoreConfig{
			Kind:     StoreIPFS,
			IPFSAPI:  "localhost:5001",
			LocalDir: filepath.Join(dataHome(), "blocks"),
			S3:       S3Config{UseSSL: true},
		},
		Cache: CacheConfig{
			Backend:    CacheFile,
			Dir:        cache,
			SQLitePath: filepath.Join(cache, "builds.db"),
			RedisAddr:  "localhost:6379",
		},
		Index: IndexConfig{
			Pointer: filepath.Join(dataHome(), "index"),
		},
		Build: BuildConfig{
			Workspace: os.TempDir(),
			Cargo:     "cargo",
			Toolchain: "nightly",
			Verify:    true,
		},
	}
}

// Load builds the configuration from defaults, the config file, .env and
// the environment. An empty path reads DefaultPath if it exists; an explicit
// path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if err := cfg.loadFile(path, explicit); err != nil {
		return nil, err
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "load .env")
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) && !required {
		return nil
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config")
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config %s", path)
	}
	return nil
}

// envVar maps one STACKDOC_* variable onto the config.
type envVar struct {
	name string
	set  func(c *Config, v string) error
}

func str(field func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func boolean(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}

func integer(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

var envVars = []envVar{
	{"STACKDOC_STORE", str(func(c *Config) *string { return &c.Store.Kind })},
	{"STACKDOC_IPFS_API", str(func(c *Config) *string { return &c.Store.IPFSAPI })},
	{"STACKDOC_LOCAL_DIR", str(func(c *Config) *string { return &c.Store.LocalDir })},
	{"STACKDOC_S3_ENDPOINT", str(func(c *Config) *string { return &c.Store.S3.Endpoint })},
	{"STACKDOC_S3_BUCKET", str(func(c *Config) *string { return &c.Store.S3.Bucket })},
	{"STACKDOC_S3_REGION", str(func(c *Config) *string { return &c.Store.S3.Region })},
	{"STACKDOC_S3_ACCESS_KEY", str(func(c *Config) *string { return &c.Store.S3.AccessKey })},
	{"STACKDOC_S3_SECRET_KEY", str(func(c *Config) *string { return &c.Store.S3.SecretKey })},
	{"STACKDOC_S3_USE_SSL", boolean(func(c *Config) *bool { return &c.Store.S3.UseSSL })},
	{"STACKDOC_CACHE", str(func(c *Config) *string { return &c.Cache.Backend })},
	{"STACKDOC_CACHE_DIR", str(func(c *Config) *string { return &c.Cache.Dir })},
	{"STACKDOC_SQLITE_PATH", str(func(c *Config) *string { return &c.Cache.SQLitePath })},
	{"STACKDOC_REDIS_ADDR", str(func(c *Config) *string { return &c.Cache.RedisAddr })},
	{"STACKDOC_REDIS_PASSWORD", str(func(c *Config) *string { return &c.Cache.RedisPassword })},
	{"STACKDOC_REDIS_DB", integer(func(c *Config) *int { return &c.Cache.RedisDB })},
	{"STACKDOC_MEMORY_CACHE", integer(func(c *Config) *int { return &c.Cache.MemorySize })},
	{"STACKDOC_INDEX", str(func(c *Config) *string { return &c.Index.Pointer })},
	{"STACKDOC_WORKSPACE", str(func(c *Config) *string { return &c.Build.Workspace })},
	{"STACKDOC_CARGO", str(func(c *Config) *string { return &c.Build.Cargo })},
	{"STACKDOC_TOOLCHAIN", str(func(c *Config) *string { return &c.Build.Toolchain })},
	{"STACKDOC_VERIFY", boolean(func(c *Config) *bool { return &c.Build.Verify })},
	{"STACKDOC_METRICS_FILE", str(func(c *Config) *string { return &c.MetricsFile })},
}

// ApplyEnv overrides fields from STACKDOC_* variables found by lookup.
// Empty values are ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	for _, e := range envVars {
		v, ok := lookup(e.name)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		if err := e.set(c, strings.TrimSpace(v)); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "%s=%q", e.name, v)
		}
	}
	return nil
}

// Validate checks enumerated fields and required paths.
func (c *Config) Validate() error {
	switch c.Store.Kind {
	case StoreIPFS, StoreLocal:
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown store kind %q (want ipfs or local)", c.Store.Kind)
	}
	switch c.Cache.Backend {
	case CacheFile, CacheSQLite, CacheRedis, CacheNone:
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q (want file, sqlite, redis or none)", c.Cache.Backend)
	}
	if c.Cache.Dir == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "cache directory is not set")
	}
	if c.Index.Pointer == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "index pointer path is not set")
	}
	if c.Cache.MemorySize < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "memory cache size must not be negative")
	}
	return nil
}

// LockPath is the advisory lock held while a build runs.
func (c *Config) LockPath() string { return filepath.Join(c.Cache.Dir, appName+".lock") }

// BuildCacheDir holds file-backend build cache entries.
func (c *Config) BuildCacheDir() string { return filepath.Join(c.Cache.Dir, "builds") }

// CratesDir holds downloaded crate archives.
func (c *Config) CratesDir() string { return filepath.Join(c.Cache.Dir, "crates") }

// HTTPCacheDir holds cached registry responses.
func (c *Config) HTTPCacheDir() string { return filepath.Join(c.Cache.Dir, "http") }

// StoreScope distinguishes build cache entries of different stores; a hash
// from one store means nothing to another.
func (c *Config) StoreScope() string {
	switch {
	case c.Store.Kind == StoreIPFS:
		return StoreIPFS + ":"
	case c.Store.S3.Bucket != "":
		return "s3:" + c.Store.S3.Bucket + ":"
	default:
		return StoreLocal + ":"
	}
}

// String renders the configuration as YAML with secrets masked.
func (c *Config) String() string {
	masked := *c
	if masked.Store.S3.SecretKey != "" {
		masked.Store.S3.SecretKey = "****"
	}
	if masked.Cache.RedisPassword != "" {
		masked.Cache.RedisPassword = "****"
	}
	data, err := yaml.Marshal(&masked)
	if err != nil {
		return fmt.Sprintf("%+v", masked)
	}
	return string(data)
}

// DefaultPath is the config file read when --config is not given.
func DefaultPath() string {
	return filepath.Join(configHome(), appName, "config.yaml")
}

func cacheHome() string {
	return xdgDir("XDG_CACHE_HOME", ".cache")
}

func dataHome() string {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func configHome() string {
	if d := os.Getenv("XDG_CONFIG_HOME"); d != "" {
		return d
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config")
}

// xdgDir returns $env/stackdoc, else ~/fallback/stackdoc.
func xdgDir(env, fallback string) string {
	if d := os.Getenv(env); d != "" {
		return filepath.Join(d, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appName)
	}
	return filepath.Join(home, fallback, appName)
}
