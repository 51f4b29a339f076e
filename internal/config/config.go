package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/stagerunner/internal/foundation/errors"
)

// DefaultFileName is looked up in the working directory when no --config is given.
const DefaultFileName = "stagerunner.yaml"

// Config represents the application configuration
type Config struct {
	Workspace   WorkspaceConfig `yaml:"workspace"`
	Source      SourceConfig    `yaml:"source"`
	Tools       ToolsConfig     `yaml:"tools"`
	Serve       ServeConfig     `yaml:"serve"`
	StepTimeout string          `yaml:"step_timeout,omitempty"` // e.g. "30m"; empty means no timeout
	Metrics     MetricsConfig   `yaml:"metrics"`
	History     HistoryConfig   `yaml:"history"`
	Notify      NotifyConfig    `yaml:"notify"`
}

// WorkspaceConfig controls where sibling repositories are cloned and where steps run.
type WorkspaceConfig struct {
	Dir       string `yaml:"dir"`
	Ephemeral bool   `yaml:"ephemeral"` // clone into a timestamped directory removed after the run
}

// SourceConfig describes how external source dependencies are fetched.
type SourceConfig struct {
	BaseURL      string                `yaml:"base_url"`
	Branch       string                `yaml:"branch"`
	Depth        int                   `yaml:"depth"`
	Repositories map[string]Repository `yaml:"repositories,omitempty"` // per-repository overrides keyed by name
	Retry        RetryConfig           `yaml:"retry"`
}

// Repository overrides the location of a single sibling repository.
type Repository struct {
	URL    string `yaml:"url,omitempty"`
	Branch string `yaml:"branch,omitempty"`
}

// RetryConfig configures clone retries. MaxRetries of zero disables retrying.
type RetryConfig struct {
	MaxRetries   int              `yaml:"max_retries"`
	Backoff      RetryBackoffMode `yaml:"backoff"`
	InitialDelay string           `yaml:"initial_delay"`
	MaxDelay     string           `yaml:"max_delay"`
}

// ToolsConfig names the executables steps invoke. Names are resolved against
// the execution context, so an activated virtualenv takes precedence.
type ToolsConfig struct {
	Virtualenv string   `yaml:"virtualenv"`
	Pip        string   `yaml:"pip"`
	Python     string   `yaml:"python"`
	Nosetests  string   `yaml:"nosetests"`
	Flake8     string   `yaml:"flake8"`
	NoseArgs   []string `yaml:"nose_args"`
}

// ServeConfig configures the background static file server of the integration stage.
type ServeConfig struct {
	Dir  string `yaml:"dir"`
	Port int    `yaml:"port"`
}

// MetricsConfig enables the Prometheus textfile export when Textfile is set.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// HistoryConfig enables the SQLite run history when Path is set.
type HistoryConfig struct {
	Path string `yaml:"path,omitempty"`
}

// NotifyConfig enables NATS step events when NATSURL is set.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject"`
}

// Default returns the configuration that reproduces the upstream CI script.
func Default() *Config {
	return &Config{
		Workspace: WorkspaceConfig{Dir: "."},
		Source: SourceConfig{
			BaseURL: "https://github.com/cloudify-cosmo",
			Branch:  "master",
			Depth:   1,
			Retry: RetryConfig{
				Backoff:      RetryBackoffLinear,
				InitialDelay: "1s",
				MaxDelay:     "30s",
			},
		},
		Tools: ToolsConfig{
			Virtualenv: "virtualenv",
			Pip:        "pip",
			Python:     "python",
			Nosetests:  "nosetests",
			Flake8:     "flake8",
			NoseArgs:   []string{"--nologcapture", "--nocapture"},
		},
		Serve:  ServeConfig{Dir: ".", Port: 8000},
		Notify: NotifyConfig{Subject: "stagerunner.events"},
	}
}

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	// .env is optional; absence is not an error
	_ = loadEnvFile()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, ferrors.ConfigError(fmt.Sprintf("configuration file not found: %s", configPath)).
			WithContext("path", configPath).
			Build()
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to read config file").
			Fatal().
			WithContext("path", configPath).
			Build()
	}

	// Expand environment variables in the YAML content
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to unmarshal config").
			Fatal().
			WithContext("path", configPath).
			Build()
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Resolve loads configPath when given. With an empty path it loads
// DefaultFileName if present and otherwise returns Default().
func Resolve(configPath string) (*Config, error) {
	if configPath != "" {
		return Load(configPath)
	}
	if _, err := os.Stat(DefaultFileName); err == nil {
		return Load(DefaultFileName)
	}
	_ = loadEnvFile()
	return Default(), nil
}

// applyDefaults fills fields that a config file explicitly blanked.
func (c *Config) applyDefaults() {
	d := Default()
	if c.Workspace.Dir == "" {
		c.Workspace.Dir = d.Workspace.Dir
	}
	if c.Source.BaseURL == "" {
		c.Source.BaseURL = d.Source.BaseURL
	}
	c.Source.BaseURL = strings.TrimRight(c.Source.BaseURL, "/")
	if c.Source.Branch == "" {
		c.Source.Branch = d.Source.Branch
	}
	if mode := NormalizeRetryBackoff(string(c.Source.Retry.Backoff)); mode != "" {
		c.Source.Retry.Backoff = mode
	} else {
		c.Source.Retry.Backoff = d.Source.Retry.Backoff
	}
	setIfEmpty(&c.Tools.Virtualenv, d.Tools.Virtualenv)
	setIfEmpty(&c.Tools.Pip, d.Tools.Pip)
	setIfEmpty(&c.Tools.Python, d.Tools.Python)
	setIfEmpty(&c.Tools.Nosetests, d.Tools.Nosetests)
	setIfEmpty(&c.Tools.Flake8, d.Tools.Flake8)
	setIfEmpty(&c.Serve.Dir, d.Serve.Dir)
	if c.Serve.Port == 0 {
		c.Serve.Port = d.Serve.Port
	}
	setIfEmpty(&c.Notify.Subject, d.Notify.Subject)
}

func setIfEmpty(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

// RepositoryURL returns the clone URL for a sibling repository.
func (c *Config) RepositoryURL(name string) string {
	if r, ok := c.Source.Repositories[name]; ok && r.URL != "" {
		return r.URL
	}
	return c.Source.BaseURL + "/" + name
}

// RepositoryBranch returns the branch to check out for a sibling repository.
func (c *Config) RepositoryBranch(name string) string {
	if r, ok := c.Source.Repositories[name]; ok && r.Branch != "" {
		return r.Branch
	}
	return c.Source.Branch
}

// StepTimeoutDuration returns the per-step timeout, zero meaning unbounded.
func (c *Config) StepTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.StepTimeout)
	return d
}

// InitialDelayDuration parses the configured first retry delay.
func (r RetryConfig) InitialDelayDuration() time.Duration {
	d, _ := time.ParseDuration(r.InitialDelay)
	return d
}

// MaxDelayDuration parses the configured retry delay cap.
func (r RetryConfig) MaxDelayDuration() time.Duration {
	d, _ := time.ParseDuration(r.MaxDelay)
	return d
}
