// Package config provides configuration loading and validation for resolvr.
// It handles reading configuration from an optional YAML file, providing
// defaults, and ensuring all settings are sane before a run starts.
//
// A Config is constructed once, before the pipeline is launched, and is
// never mutated afterwards; the CLI layers its flag values on top of the
// loaded file before validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lc/resolvr/internal/filesys"
)

var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrNoConfig is returned when the configuration file is not found.
	ErrNoConfig = errors.New("configuration file not found")
)

const (
	// DefaultConfigPath is the default path for the configuration file,
	// relative to the user's home directory.
	DefaultConfigPath = ".resolvr/config.yaml"
	// DefaultTimeout is the default timeout for a single DNS query.
	DefaultTimeout = 5 * time.Second
	// DefaultAttempts is the default number of tries per query.
	DefaultAttempts = 2
	// DefaultHostConcurrency bounds how many hosts are resolved at once.
	DefaultHostConcurrency = 320
	// DefaultCacheSize is the size of the per-run answer cache.
	DefaultCacheSize = 4096
	// DefaultFormat is the default output format.
	DefaultFormat = "json"
)

// Config holds the full run configuration.
type Config struct {
	Resolve ResolveConfig `yaml:"resolve"`
	Output  OutputConfig  `yaml:"output"`
}

// ResolveConfig holds query and concurrency settings.
type ResolveConfig struct {
	Timeout         time.Duration `yaml:"timeout"`
	Attempts        int           `yaml:"attempts"`
	HostConcurrency int           `yaml:"host_concurrency"`
	CacheSize       int           `yaml:"cache_size"`
}

// OutputConfig holds serialization settings. An empty Path means the
// serialized results are written to standard output.
type OutputConfig struct {
	Format string `yaml:"format"`
	Path   string `yaml:"path"`
}

// Provider defines the interface for loading configuration.
type Provider interface {
	Load() (*Config, error)
}

// FSProvider implements Provider using the local filesystem.
type FSProvider struct {
	fs   filesys.ReadFS
	path string
}

var _ Provider = (*FSProvider)(nil)

// New creates a configuration provider using the default configuration
// path under the user's home directory. If the home directory cannot be
// determined it falls back to the current directory.
func New() Provider {
	home, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not determine home directory: %v\n", err)
		home = ""
	}
	return NewWithPath(filesys.OS(), filepath.Join(home, DefaultConfigPath))
}

// NewWithPath creates a provider with a specific filesystem and path.
func NewWithPath(fs filesys.ReadFS, path string) Provider {
	return &FSProvider{
		fs:   fs,
		path: path,
	}
}

// Default returns a configuration with preset values. It is used when
// no configuration file exists.
func Default() *Config {
	return &Config{
		Resolve: ResolveConfig{
			Timeout:         DefaultTimeout,
			Attempts:        DefaultAttempts,
			HostConcurrency: DefaultHostConcurrency,
			CacheSize:       DefaultCacheSize,
		},
		Output: OutputConfig{
			Format: DefaultFormat,
		},
	}
}

// Load loads the configuration from the provider's path, falling back
// to Default when the file does not exist.
func (p *FSProvider) Load() (*Config, error) {
	cfg, err := p.loadAndParse()
	if err != nil {
		if errors.Is(err, ErrNoConfig) {
			return Default(), nil
		}
		return nil, err
	}

	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return cfg, nil
}

// Validate checks the configuration before a run.
func (c *Config) Validate() error {
	if c.Resolve.Timeout < time.Second {
		return errors.New("timeout must be at least 1 second")
	}
	if c.Resolve.Attempts < 1 {
		return errors.New("attempts must be at least 1")
	}
	if c.Resolve.HostConcurrency < 1 {
		return errors.New("host concurrency must be at least 1")
	}
	if c.Resolve.CacheSize < 1 {
		return errors.New("cache size must be at least 1")
	}
	if c.Output.Format != "json" && c.Output.Format != "csv" {
		return fmt.Errorf("unknown output format %q", c.Output.Format)
	}
	return nil
}

// fillDefaults replaces zero values with their defaults so a partial
// config file does not have to repeat them.
func (c *Config) fillDefaults() {
	d := Default()
	if c.Resolve.Timeout == 0 {
		c.Resolve.Timeout = d.Resolve.Timeout
	}
	if c.Resolve.Attempts == 0 {
		c.Resolve.Attempts = d.Resolve.Attempts
	}
	if c.Resolve.HostConcurrency == 0 {
		c.Resolve.HostConcurrency = d.Resolve.HostConcurrency
	}
	if c.Resolve.CacheSize == 0 {
		c.Resolve.CacheSize = d.Resolve.CacheSize
	}
	if c.Output.Format == "" {
		c.Output.Format = d.Output.Format
	}
}

func (p *FSProvider) loadAndParse() (*Config, error) {
	f, err := p.fs.Open(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoConfig
		}
		return nil, fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config file: %w", err)
	}

	return &cfg, nil
}
