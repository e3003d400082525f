// Package config provides configuration management for vpnonline.
// Values are layered by viper: built-in defaults, an optional YAML file,
// VPNONLINE_* environment variables and finally command line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/yllada/vpnonline/common"
)

// Config represents the application configuration.
type Config struct {
	// StateDir is the root holding credentials, definitions and logs.
	StateDir string `mapstructure:"state_dir" yaml:"state_dir"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	// LogToFile additionally writes logs below StateDir/logs.
	LogToFile bool `mapstructure:"log_to_file" yaml:"log_to_file"`
	// Color selects search highlighting: "auto", "always" or "never".
	Color string `mapstructure:"color" yaml:"color"`

	Definitions DefinitionsConfig `mapstructure:"definitions" yaml:"definitions"`
	Client      ClientConfig      `mapstructure:"client" yaml:"client"`
	Credentials CredentialsConfig `mapstructure:"credentials" yaml:"credentials"`
}

// DefinitionsConfig describes where definitions come from and how they are filtered.
type DefinitionsConfig struct {
	URL           string        `mapstructure:"url" yaml:"url"`
	UserAgent     string        `mapstructure:"user_agent" yaml:"user_agent"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Extensions    []string      `mapstructure:"extensions" yaml:"extensions"`
	BrokenOptions []string      `mapstructure:"broken_options" yaml:"broken_options"`
}

// ClientConfig describes the external VPN client invocation.
type ClientConfig struct {
	// Binary is the client executable, looked up in PATH when not absolute.
	Binary string `mapstructure:"binary" yaml:"binary"`
	// Elevate is an optional command prefix such as "sudo" or "pkexec".
	Elevate []string `mapstructure:"elevate" yaml:"elevate,omitempty"`
	// ExtraArgs are appended after the definition and credential arguments.
	ExtraArgs []string `mapstructure:"extra_args" yaml:"extra_args,omitempty"`
	// StopTimeout is the grace period between SIGTERM and SIGKILL on interrupt.
	StopTimeout time.Duration `mapstructure:"stop_timeout" yaml:"stop_timeout"`
}

// CredentialsConfig selects the credential backend.
type CredentialsConfig struct {
	// Backend is "file" (credentials.txt) or "keyring" (system keyring).
	Backend string `mapstructure:"backend" yaml:"backend"`
}

// DefaultConfig returns the default configuration rooted at stateDir.
func DefaultConfig(stateDir string) *Config {
	return &Config{
		StateDir:  stateDir,
		LogLevel:  "warn",
		LogToFile: false,
		Color:     common.ColorAuto,
		Definitions: DefinitionsConfig{
			URL:           common.DefaultDefinitionsURL,
			UserAgent:     common.DefaultUserAgent,
			Timeout:       common.DefaultFetchTimeout,
			Extensions:    []string{common.DefinitionExtension},
			BrokenOptions: append([]string(nil), common.BrokenDefinitionOptions...),
		},
		Client: ClientConfig{
			Binary:      common.DefaultClientBinary,
			StopTimeout: common.DefaultStopTimeout,
		},
		Credentials: CredentialsConfig{
			Backend: common.CredentialBackendFile,
		},
	}
}

// Options tell Load where to look besides the defaults.
type Options struct {
	// File is an explicit configuration file. When empty,
	// <state dir>/config.yaml is used if it exists.
	File string
	// Flags are bound over every other source. Recognized names:
	// state-dir, verbose.
	Flags *pflag.FlagSet
}

// Load builds the effective configuration.
func Load(opts Options) (*Config, error) {
	defaultStateDir, err := common.DefaultStateDir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v, DefaultConfig(defaultStateDir))

	v.SetEnvPrefix(common.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.Flags != nil {
		if f := opts.Flags.Lookup("state-dir"); f != nil {
			if err := v.BindPFlag("state_dir", f); err != nil {
				return nil, fmt.Errorf("error binding flags: %w", err)
			}
		}
	}

	file := opts.File
	explicit := file != ""
	if !explicit {
		file = filepath.Join(v.GetString("state_dir"), common.ConfigFileName)
	}

	if err := readFile(v, file, explicit); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing configuration: %w", err)
	}

	if opts.Flags != nil {
		if verbose, err := opts.Flags.GetBool("verbose"); err == nil && verbose {
			cfg.LogLevel = "debug"
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("state_dir", d.StateDir)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_to_file", d.LogToFile)
	v.SetDefault("color", d.Color)
	v.SetDefault("definitions.url", d.Definitions.URL)
	v.SetDefault("definitions.user_agent", d.Definitions.UserAgent)
	v.SetDefault("definitions.timeout", d.Definitions.Timeout)
	v.SetDefault("definitions.extensions", d.Definitions.Extensions)
	v.SetDefault("definitions.broken_options", d.Definitions.BrokenOptions)
	v.SetDefault("client.binary", d.Client.Binary)
	v.SetDefault("client.elevate", d.Client.Elevate)
	v.SetDefault("client.extra_args", d.Client.ExtraArgs)
	v.SetDefault("client.stop_timeout", d.Client.StopTimeout)
	v.SetDefault("credentials.backend", d.Credentials.Backend)
}

// readFile merges a YAML file into v. A missing file is only an error when
// it was requested explicitly.
func readFile(v *viper.Viper, file string, explicit bool) error {
	if _, err := os.Stat(file); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("error opening configuration: %w", err)
	}

	v.SetConfigFile(file)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading configuration: %w", err)
	}
	common.LogDebug("Loaded configuration from %s", file)
	return nil
}

// validate verifies that configuration values are usable
func (c *Config) validate() error {
	if strings.TrimSpace(c.StateDir) == "" {
		return fmt.Errorf("%w: state_dir is empty", common.ErrInvalidConfig)
	}
	if _, err := common.ParseLogLevel(c.LogLevel); err != nil {
		return err
	}

	switch c.Color {
	case common.ColorAuto, common.ColorAlways, common.ColorNever:
	default:
		return fmt.Errorf("%w: unknown color mode %q", common.ErrInvalidConfig, c.Color)
	}

	switch c.Credentials.Backend {
	case common.CredentialBackendFile, common.CredentialBackendKeyring:
	default:
		return fmt.Errorf("%w: unknown credentials backend %q", common.ErrInvalidConfig, c.Credentials.Backend)
	}

	if strings.TrimSpace(c.Definitions.URL) == "" {
		return fmt.Errorf("%w: definitions.url is empty", common.ErrInvalidConfig)
	}
	if len(c.Definitions.Extensions) == 0 {
		return fmt.Errorf("%w: definitions.extensions is empty", common.ErrInvalidConfig)
	}
	if strings.TrimSpace(c.Client.Binary) == "" {
		return fmt.Errorf("%w: client.binary is empty", common.ErrInvalidConfig)
	}
	return nil
}

// Save writes the configuration to path as YAML
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), common.StateDirPerm); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("error serializing configuration: %w", err)
	}

	if err := os.WriteFile(path, data, common.PrivateFilePerm); err != nil {
		return fmt.Errorf("error saving configuration: %w", err)
	}

	return nil
}

// Path returns the default configuration file location for this state dir.
func (c *Config) Path() string {
	return filepath.Join(c.StateDir, common.ConfigFileName)
}

// DefinitionsDir returns the definition cache directory.
func (c *Config) DefinitionsDir() string {
	return filepath.Join(c.StateDir, common.DefinitionsDirName)
}

// CredentialsFile returns the plain text credentials file.
func (c *Config) CredentialsFile() string {
	return filepath.Join(c.StateDir, common.CredentialsFileName)
}

// RunDir returns the directory for temporary auth files.
func (c *Config) RunDir() string {
	return filepath.Join(c.StateDir, common.RunDirName)
}

// LogDir returns the log directory.
func (c *Config) LogDir() string {
	return filepath.Join(c.StateDir, common.LogDirName)
}
