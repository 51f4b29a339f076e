package config

import (
	"fmt"
	"net/url"
	"time"

	ferrors "git.home.luguber.info/inful/stagerunner/internal/foundation/errors"
)

// Validate checks the configuration after defaults have been applied.
func (c *Config) Validate() error {
	if c.Source.Depth < 0 {
		return invalid("source.depth cannot be negative", c.Source.Depth)
	}
	if c.Source.Retry.MaxRetries < 0 {
		return invalid("source.retry.max_retries cannot be negative", c.Source.Retry.MaxRetries)
	}
	for _, field := range []struct{ name, value string }{
		{"source.retry.initial_delay", c.Source.Retry.InitialDelay},
		{"source.retry.max_delay", c.Source.Retry.MaxDelay},
		{"step_timeout", c.StepTimeout},
	} {
		if field.value == "" {
			continue
		}
		d, err := time.ParseDuration(field.value)
		if err != nil || d < 0 {
			return invalid(field.name+" must be a non-negative duration", field.value)
		}
	}
	if c.Serve.Port < 1 || c.Serve.Port > 65535 {
		return invalid("serve.port must be between 1 and 65535", c.Serve.Port)
	}
	if _, err := url.Parse(c.Source.BaseURL); err != nil {
		return invalid("source.base_url is not a valid URL", c.Source.BaseURL)
	}
	for name, repo := range c.Source.Repositories {
		if repo.URL == "" {
			continue
		}
		if _, err := url.Parse(repo.URL); err != nil {
			return invalid(fmt.Sprintf("source.repositories.%s.url is not a valid URL", name), repo.URL)
		}
	}
	return nil
}

func invalid(message string, value any) error {
	return ferrors.ConfigError(message).WithContext("value", value).Build()
}
