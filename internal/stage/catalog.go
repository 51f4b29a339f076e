package stage

import (
	"fmt"
	"sort"

	"git.home.luguber.info/inful/stagerunner/internal/config"
)

// Sibling repositories cloned by the stages.
const (
	RepoDSLParser     = "cloudify-dsl-parser"
	RepoRestClient    = "cloudify-rest-client"
	RepoPluginsCommon = "cloudify-plugins-common"
)

// LintTargets are the directories the lint stage checks, in order.
var LintTargets = []string{
	"plugins/agent-installer",
	"plugins/plugin-installer",
	"plugins/windows-agent-installer",
	"plugins/windows-plugin-installer",
	"rest-service",
	"tests",
	"workflows",
}

func env(dir string) Step { return Step{Kind: KindEnv, Guarded: true, Target: dir} }
func clone(repo string) Step { return Step{Kind: KindClone, Guarded: true, Repo: repo} }
func installRepo(repo string) Step {
	return Step{Kind: KindInstall, Guarded: true, Repo: repo, Target: "."}
}
func installDir(dir string, args ...string) Step {
	return Step{Kind: KindInstall, Guarded: true, Dir: dir, Target: ".", Args: args}
}
func installPackage(spec string) Step { return Step{Kind: KindInstall, Guarded: true, Target: spec} }
func test(suite string) Step           { return Step{Kind: KindTest, Guarded: true, Target: suite} }
func lint(dir string) Step             { return Step{Kind: KindLint, Guarded: true, Target: dir} }
func shell(command string, args ...string) Step {
	return Step{Kind: KindShell, Command: command, Args: args}
}

// Catalog holds the stages available to one invocation.
type Catalog struct {
	stages map[ID]Stage
}

// NewCatalog builds the built-in stages from configuration.
func NewCatalog(cfg *config.Config) *Catalog {
	c := &Catalog{stages: make(map[ID]Stage)}
	c.add(Stage{ID: Plugins, Steps: []Step{
		env("package/linux/env"),
		clone(RepoRestClient),
		clone(RepoPluginsCommon),
		installRepo(RepoRestClient),
		installRepo(RepoPluginsCommon),
		installDir("plugins/agent-installer"),
		installDir("plugins/plugin-installer"),
		installPackage("nose"),
		test("plugins/agent-installer/worker_installer/tests"),
		test("plugins/plugin-installer/plugin_installer/tests"),
	}})
	c.add(Stage{ID: RestService, Steps: []Step{
		clone(RepoDSLParser),
		clone(RepoRestClient),
		installRepo(RepoDSLParser),
		installRepo(RepoRestClient),
		installDir("rest-service", "-r", "dev-requirements.txt"),
		test("rest-service/manager_rest/test"),
	}})

	// The system package prelude runs before fail-fast is switched on.
	c.add(Stage{ID: IntegrationTests, Steps: []Step{
		shell("sudo", "apt-get", "update"),
		shell("sudo", "apt-get", "install", "-qy", "python-dbus"),
		shell("dpkg", "-L", "python-dbus"),
		env(".venv-integration"),
		clone(RepoDSLParser),
		clone(RepoRestClient),
		clone(RepoPluginsCommon),
		installRepo(RepoDSLParser),
		installRepo(RepoRestClient),
		installRepo(RepoPluginsCommon),
		installDir("rest-service", "-r", "dev-requirements.txt"),
		installDir("plugins/agent-installer"),
		installDir("plugins/plugin-installer"),
		installDir("tests"),
		{Kind: KindServe, Dir: cfg.Serve.Dir, Port: cfg.Serve.Port},
		test("tests/workflow_tests"),
	}})

	lintSteps := []Step{installPackage("flake8")}
	for _, dir := range LintTargets {
		lintSteps = append(lintSteps, lint(dir))
	}
	c.add(Stage{ID: Lint, Steps: lintSteps})
	return c
}

func (c *Catalog) add(s Stage) {
	if err := s.Validate(); err != nil {
		panic(fmt.Sprintf("invalid built-in stage: %v", err))
	}
	c.stages[s.ID] = s
}

// Lookup returns the stage for a command-line name or canonical ID.
func (c *Catalog) Lookup(name string) (Stage, bool) {
	id, ok := Parse(name)
	if !ok {
		return Stage{}, false
	}
	s, ok := c.stages[id]
	s.Steps = append([]Step(nil), s.Steps...)
	return s, ok
}

// IDs returns the registered stage IDs sorted by name.
func (c *Catalog) IDs() []ID {
	ids := make([]ID, 0, len(c.stages))
	for id := range c.stages {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
