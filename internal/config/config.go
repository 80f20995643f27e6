// Package config loads kindview settings from a TOML file.
//
//	environment = "notebook"
//	max_deferrals = 16
//
//	[assets]
//	vega = "https://cdn.example.com/vega@5.js"
//
//	[cache]
//	backend = "redis"
//	ttl = "24h"
//
//	[redis]
//	addr = "localhost:6379"
//
//	[server]
//	addr = ":8080"
//
// Unset fields keep their defaults. Unknown keys are rejected.
package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/kindview/pkg/cache"
	"github.com/matzehuels/kindview/pkg/errors"
	"github.com/matzehuels/kindview/pkg/render"
	"github.com/matzehuels/kindview/pkg/render/asset"
	"github.com/matzehuels/kindview/pkg/render/builtin"
)

const appName = "kindview"

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Config is the complete kindview configuration.
type Config struct {
	Environment  string            `toml:"environment"`
	MaxDeferrals int               `toml:"max_deferrals"`
	MaxDepth     int               `toml:"max_depth"`
	Assets       map[string]string `toml:"assets"`
	Cache        Cache             `toml:"cache"`
	Redis        Redis             `toml:"redis"`
	Server       Server            `toml:"server"`
}

// Cache selects and tunes the artifact cache.
type Cache struct {
	Backend string        `toml:"backend"`
	Dir     string        `toml:"dir"`
	TTL     time.Duration `toml:"ttl"`
}

// Redis holds the connection settings for the redis backend.
type Redis struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Prefix   string `toml:"prefix"`
}

// Server holds HTTP server settings.
type Server struct {
	Addr         string        `toml:"addr"`
	ReadTimeout  time.Duration `toml:"read_timeout"`
	WriteTimeout time.Duration `toml:"write_timeout"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Environment:  render.DefaultEnvironment,
		MaxDeferrals: render.DefaultMaxDeferrals,
		MaxDepth:     render.DefaultMaxDepth,
		Cache: Cache{
			Backend: BackendFile,
			Dir:     defaultCacheDir(),
			TTL:     cache.TTLArtifact,
		},
		Redis: Redis{Addr: "localhost:6379", Prefix: appName + ":"},
		Server: Server{
			Addr:         ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/kindview/config.toml, falling back
// to ~/.config.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName, "config.toml")
}

func defaultCacheDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appName)
	}
	return filepath.Join(home, ".cache", appName)
}

// Load reads the file at path over the defaults and validates the result.
// An empty path reads [DefaultPath] and tolerates its absence.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path == "" {
		return cfg, cfg.Validate()
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return cfg, cfg.Validate()
		}
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, errors.New(errors.ErrCodeInvalidConfig, "config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return cfg, cfg.Validate()
}

// Parse decodes TOML text over the defaults and validates the result.
func Parse(text string) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(text, &cfg)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.New(errors.ErrCodeInvalidConfig, "unknown config key %s", undecoded[0].String())
	}
	return cfg, cfg.Validate()
}

// Validate checks every field.
func (c Config) Validate() error {
	if err := errors.ValidateEnvironment(c.Environment); err != nil {
		return err
	}
	if c.MaxDeferrals <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "max_deferrals must be positive, got %d", c.MaxDeferrals)
	}
	if c.MaxDepth <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "max_depth must be positive, got %d", c.MaxDepth)
	}
	if _, err := asset.DefaultCatalog().WithURLs(c.Assets); err != nil {
		return err
	}
	backends := []string{BackendFile, BackendRedis, BackendNone}
	if !slices.Contains(backends, c.Cache.Backend) {
		return errors.New(errors.ErrCodeInvalidConfig, "cache backend %q is not one of %s", c.Cache.Backend, strings.Join(backends, ", "))
	}
	if c.Cache.TTL < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "cache ttl cannot be negative")
	}
	if c.Cache.Backend == BackendFile && c.Cache.Dir == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "file cache needs a dir")
	}
	if c.Cache.Backend == BackendRedis && c.Redis.Addr == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "redis cache needs redis.addr")
	}
	return nil
}

// OpenCache returns the configured backend wrapped with cache hooks.
func (c Config) OpenCache() (cache.Cache, error) {
	var backend cache.Cache
	switch c.Cache.Backend {
	case BackendNone:
		return cache.NewNullCache(), nil
	case BackendRedis:
		backend = cache.NewRedisCache(c.Redis.Addr, c.Redis.Password, c.Redis.DB, cache.WithRedisPrefix(c.Redis.Prefix))
	default:
		fc, err := cache.NewFileCache(c.Cache.Dir)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "open cache dir %s", c.Cache.Dir)
		}
		backend = fc
	}
	return cache.Instrument(backend), nil
}

// Builtin returns the renderer settings for output cached in c.
func (c Config) Builtin(store cache.Cache) builtin.Config {
	return builtin.Config{
		AssetURLs: c.Assets,
		Cache:     store,
		Keyer:     cache.NewScopedKeyer(nil, c.Environment+":"),
		TTL:       c.Cache.TTL,
	}
}

// EngineOptions returns the render options the configuration sets.
func (c Config) EngineOptions() []render.Option {
	return []render.Option{
		render.WithEnvironment(c.Environment),
		render.WithMaxDeferrals(c.MaxDeferrals),
		render.WithMaxDepth(c.MaxDepth),
	}
}
