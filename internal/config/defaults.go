package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

const (
	appName = "seed"

	// EnvPrefix prefixes environment overrides, e.g. SEED_CACHE_DIRECTORY.
	EnvPrefix = "SEED"

	DefaultCacheDepth     = 1
	DefaultOnConflict     = "fail"
	DefaultConcurrency    = 4
	DefaultInstallTimeout = 10 * time.Minute
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "pretty"
	DefaultProtectedFile  = "seed.jsonc"
)

// ConfigDir returns the directory holding config.yaml.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := homedir.Dir()
	if err != nil {
		return "." + appName
	}
	return filepath.Join(home, ".config", appName)
}

// CacheDir returns the default cache root.
func CacheDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, appName, "repos")
	}
	home, err := homedir.Dir()
	if err != nil {
		return filepath.Join("."+appName, "repos")
	}
	return filepath.Join(home, ".cache", appName, "repos")
}

// ConfigFilePath returns the default config file path.
func ConfigFilePath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("cache.directory", CacheDir())
	v.SetDefault("cache.depth", DefaultCacheDepth)

	v.SetDefault("fetch.on_conflict", DefaultOnConflict)
	v.SetDefault("fetch.prefer_offline", false)
	v.SetDefault("fetch.concurrency", DefaultConcurrency)
	v.SetDefault("fetch.token", "")

	v.SetDefault("install.timeout", DefaultInstallTimeout)

	v.SetDefault("protected", []string{DefaultProtectedFile})

	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.format", DefaultLogFormat)
}
