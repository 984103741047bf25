// Package config loads the seed CLI configuration from defaults, a YAML
// file, SEED_* environment variables and bound command-line flags.
package config

import (
	"strings"
	"time"

	platformerrors "github.com/jmgilman/seed/errors"
	"github.com/jmgilman/seed/stage"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config is the CLI configuration.
type Config struct {
	Cache     CacheConfig       `mapstructure:"cache" yaml:"cache"`
	Fetch     FetchConfig       `mapstructure:"fetch" yaml:"fetch"`
	Install   InstallConfig     `mapstructure:"install" yaml:"install"`
	Providers map[string]string `mapstructure:"providers" yaml:"providers"`
	Protected []string          `mapstructure:"protected" yaml:"protected"`
	Logging   LoggingConfig     `mapstructure:"logging" yaml:"logging"`
}

// CacheConfig contains cache store settings.
type CacheConfig struct {
	Directory string `mapstructure:"directory" yaml:"directory"`
	Depth     int    `mapstructure:"depth" yaml:"depth"`
}

// FetchConfig contains acquisition defaults.
type FetchConfig struct {
	OnConflict    string `mapstructure:"on_conflict" yaml:"on_conflict"`
	PreferOffline bool   `mapstructure:"prefer_offline" yaml:"prefer_offline"`
	Concurrency   int    `mapstructure:"concurrency" yaml:"concurrency"`
	Token         string `mapstructure:"token" yaml:"token"`
}

// InstallConfig contains dependency installation settings.
type InstallConfig struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Load reads configuration into v and returns it. path names an explicit
// config file; when empty the default locations are searched and a
// missing file is not an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	setDefaults(v)

	if path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return nil, platformerrors.WrapWithContext(err, platformerrors.CodeInvalidInput,
				"invalid config path", map[string]interface{}{"path": path})
		}
		v.SetConfigFile(expanded)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(ConfigDir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !platformerrors.As(err, &notFound) {
			return nil, platformerrors.Wrap(err, platformerrors.CodeInvalidInput, "failed to read config file")
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, platformerrors.Wrap(err, platformerrors.CodeInvalidInput, "failed to decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects invalid values and replaces out-of-range ones with
// defaults.
func (c *Config) Validate() error {
	if c.Cache.Directory == "" {
		c.Cache.Directory = CacheDir()
	}
	dir, err := homedir.Expand(c.Cache.Directory)
	if err != nil {
		return platformerrors.WrapWithContext(err, platformerrors.CodeInvalidInput,
			"invalid cache directory", map[string]interface{}{"field": "cache.directory"})
	}
	c.Cache.Directory = dir

	if c.Cache.Depth < 0 {
		c.Cache.Depth = DefaultCacheDepth
	}
	if c.Fetch.Concurrency < 1 {
		c.Fetch.Concurrency = DefaultConcurrency
	}
	if c.Install.Timeout <= 0 {
		c.Install.Timeout = DefaultInstallTimeout
	}

	policy, err := stage.ParseConflictPolicy(c.Fetch.OnConflict)
	if err != nil {
		return platformerrors.WithContext(err, "field", "fetch.on_conflict")
	}
	c.Fetch.OnConflict = string(policy)

	for name, tmpl := range c.Providers {
		if !strings.Contains(tmpl, "{repo}") {
			return platformerrors.WithContextMap(
				platformerrors.New(platformerrors.CodeInvalidInput, "provider template must contain {repo}"),
				map[string]interface{}{"field": "providers." + name, "template": tmpl})
		}
	}

	if len(c.Protected) == 0 {
		c.Protected = []string{DefaultProtectedFile}
	}

	switch c.Logging.Format {
	case "pretty", "json":
	case "":
		c.Logging.Format = DefaultLogFormat
	default:
		return platformerrors.WithContextMap(
			platformerrors.Newf(platformerrors.CodeInvalidInput, "unknown log format %q", c.Logging.Format),
			map[string]interface{}{"field": "logging.format"})
	}
	return nil
}
