package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/stagerunner/internal/foundation/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stagerunner.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ".", cfg.Workspace.Dir)
	assert.Equal(t, "https://github.com/cloudify-cosmo", cfg.Source.BaseURL)
	assert.Equal(t, "master", cfg.Source.Branch)
	assert.Equal(t, 1, cfg.Source.Depth)
	assert.Equal(t, 0, cfg.Source.Retry.MaxRetries)
	assert.Equal(t, []string{"--nologcapture", "--nocapture"}, cfg.Tools.NoseArgs)
	assert.Equal(t, 8000, cfg.Serve.Port)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverridesAndExpandsEnv(t *testing.T) {
	t.Setenv("STAGERUNNER_TEST_BRANCH", "3.2")
	path := writeConfig(t, `
workspace:
  dir: /tmp/ci
source:
  base_url: https://git.example.com/mirror/
  branch: ${STAGERUNNER_TEST_BRANCH}
  repositories:
    cloudify-dsl-parser:
      url: https://git.example.com/forks/dsl-parser
      branch: fix
  retry:
    max_retries: 2
    backoff: EXPONENTIAL
tools:
  pip: /opt/pip
serve:
  port: 53229
step_timeout: 45m
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/ci", cfg.Workspace.Dir)
	assert.Equal(t, "https://git.example.com/mirror", cfg.Source.BaseURL)
	assert.Equal(t, "3.2", cfg.Source.Branch)
	assert.Equal(t, RetryBackoffExponential, cfg.Source.Retry.Backoff)
	assert.Equal(t, 2, cfg.Source.Retry.MaxRetries)
	assert.Equal(t, "/opt/pip", cfg.Tools.Pip)
	assert.Equal(t, "nosetests", cfg.Tools.Nosetests, "unset tools keep defaults")
	assert.Equal(t, 53229, cfg.Serve.Port)
	assert.Equal(t, 45*time.Minute, cfg.StepTimeoutDuration())

	assert.Equal(t, "https://git.example.com/forks/dsl-parser", cfg.RepositoryURL("cloudify-dsl-parser"))
	assert.Equal(t, "fix", cfg.RepositoryBranch("cloudify-dsl-parser"))
	assert.Equal(t, "https://git.example.com/mirror/cloudify-rest-client", cfg.RepositoryURL("cloudify-rest-client"))
	assert.Equal(t, "3.2", cfg.RepositoryBranch("cloudify-rest-client"))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "source: [unterminated")
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"negative depth":    func(c *Config) { c.Source.Depth = -1 },
		"negative retries":  func(c *Config) { c.Source.Retry.MaxRetries = -1 },
		"bad timeout":       func(c *Config) { c.StepTimeout = "soon" },
		"bad initial delay": func(c *Config) { c.Source.Retry.InitialDelay = "-1s" },
		"port out of range": func(c *Config) { c.Serve.Port = 70000 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
		})
	}
}

func TestResolveWithoutFileReturnsDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Resolve("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestResolvePicksUpDefaultFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(DefaultFileName, []byte("serve:\n  port: 9000\n"), 0o600))

	cfg, err := Resolve("")
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Serve.Port)
}

func TestLoadEnvFileDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("STAGERUNNER_EXISTING", "process")
	require.NoError(t, os.WriteFile(".env", []byte("STAGERUNNER_EXISTING=file\nSTAGERUNNER_FROM_FILE=yes\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("STAGERUNNER_FROM_FILE") })

	require.NoError(t, loadEnvFile())
	assert.Equal(t, "process", os.Getenv("STAGERUNNER_EXISTING"))
	assert.Equal(t, "yes", os.Getenv("STAGERUNNER_FROM_FILE"))
}

func TestNormalizeRetryBackoff(t *testing.T) {
	assert.Equal(t, RetryBackoffFixed, NormalizeRetryBackoff(" Fixed "))
	assert.Equal(t, RetryBackoffLinear, NormalizeRetryBackoff("linear"))
	assert.Equal(t, RetryBackoffExponential, NormalizeRetryBackoff("exponential"))
	assert.Equal(t, RetryBackoffMode(""), NormalizeRetryBackoff("random"))
}
