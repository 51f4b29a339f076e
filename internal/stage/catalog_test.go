package stage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/stagerunner/internal/config"
)

func kinds(s Stage) []Kind {
	out := make([]Kind, len(s.Steps))
	for i, st := range s.Steps {
		out[i] = st.Kind
	}
	return out
}

func TestParse(t *testing.T) {
	cases := map[string]ID{
		"test-plugins":          Plugins,
		"test-rest-service":     RestService,
		"run-integration-tests": IntegrationTests,
		"flake8":                Lint,
		"lint":                  Lint,
		" rest-service ":        RestService,
	}
	for in, want := range cases {
		got, ok := Parse(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := Parse("test-everything")
	assert.False(t, ok)
	_, ok = Parse("")
	assert.False(t, ok)
}

func TestAliasesCoverEveryStage(t *testing.T) {
	catalog := NewCatalog(config.Default())
	seen := map[ID]bool{}
	for _, alias := range Aliases() {
		s, ok := catalog.Lookup(alias)
		require.True(t, ok, alias)
		seen[s.ID] = true
	}
	assert.Len(t, seen, len(catalog.IDs()))
}

func TestRestServicePlan(t *testing.T) {
	s, ok := NewCatalog(config.Default()).Lookup("test-rest-service")
	require.True(t, ok)

	assert.Equal(t, []Kind{KindClone, KindClone, KindInstall, KindInstall, KindInstall, KindTest}, kinds(s))
	assert.Equal(t, RepoDSLParser, s.Steps[0].Repo)
	assert.Equal(t, []string{"-r", "dev-requirements.txt"}, s.Steps[4].Args)
	assert.Equal(t, "rest-service/manager_rest/test", s.Steps[5].Target)
	for _, st := range s.Steps {
		assert.True(t, st.Guarded, st.Label())
	}
}

func TestLintPlanHasSevenTargetsInOrder(t *testing.T) {
	s, ok := NewCatalog(config.Default()).Lookup("flake8")
	require.True(t, ok)

	var targets []string
	for _, st := range s.Steps {
		if st.Kind == KindLint {
			targets = append(targets, st.Target)
		}
	}
	assert.Equal(t, LintTargets, targets)
	assert.Len(t, targets, 7)
	assert.Equal(t, KindInstall, s.Steps[0].Kind)
	assert.Equal(t, "flake8", s.Steps[0].Target)
}

func TestIntegrationPlanGuards(t *testing.T) {
	cfg := config.Default()
	cfg.Serve.Port = 53229
	s, ok := NewCatalog(cfg).Lookup("run-integration-tests")
	require.True(t, ok)

	for i := 0; i < 3; i++ {
		assert.Equal(t, KindShell, s.Steps[i].Kind)
		assert.False(t, s.Steps[i].Guarded, "prelude runs before fail-fast")
	}
	assert.Equal(t, KindEnv, s.Steps[3].Kind)
	assert.True(t, s.Steps[3].Guarded)

	serve := s.Steps[len(s.Steps)-2]
	assert.Equal(t, KindServe, serve.Kind)
	assert.False(t, serve.Guarded)
	assert.Equal(t, 53229, serve.Port)
	assert.Equal(t, KindTest, s.Steps[len(s.Steps)-1].Kind)
}

func TestPluginsPlanStartsWithEnvironment(t *testing.T) {
	s, ok := NewCatalog(config.Default()).Lookup(string(Plugins))
	require.True(t, ok)
	assert.Equal(t, KindEnv, s.Steps[0].Kind)
	assert.Equal(t, "package/linux/env", s.Steps[0].Target)
	assert.Equal(t, KindTest, s.Steps[len(s.Steps)-1].Kind)
}

func TestLookupReturnsCopy(t *testing.T) {
	catalog := NewCatalog(config.Default())
	s, _ := catalog.Lookup("flake8")
	s.Steps[0].Target = "mutated"

	again, _ := catalog.Lookup("flake8")
	assert.Equal(t, "flake8", again.Steps[0].Target)
}

func TestLookupUnknown(t *testing.T) {
	_, ok := NewCatalog(config.Default()).Lookup("deploy")
	assert.False(t, ok)
}

func TestStageValidate(t *testing.T) {
	bad := []Stage{
		{ID: "x", Steps: []Step{{Kind: KindClone}}},
		{ID: "x", Steps: []Step{{Kind: KindInstall}}},
		{ID: "x", Steps: []Step{{Kind: KindServe}}},
		{ID: "x", Steps: []Step{{Kind: KindShell}}},
		{ID: "x", Steps: []Step{{Kind: KindLint}}},
		{ID: "x", Steps: []Step{{Kind: "teleport"}}},
	}
	for _, s := range bad {
		assert.Error(t, s.Validate(), s.Steps[0].Kind)
	}
	assert.NoError(t, Stage{ID: "ok", Steps: []Step{installRepo(RepoRestClient)}}.Validate())
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "clone cloudify-rest-client", clone(RepoRestClient).Label())
	assert.Equal(t, "install cloudify-rest-client", installRepo(RepoRestClient).Label())
	assert.Equal(t, "install rest-service", installDir("rest-service").Label())
	assert.Equal(t, "install nose", installPackage("nose").Label())
	assert.Equal(t, "lint tests", lint("tests").Label())
	assert.Equal(t, "dpkg -L python-dbus", shell("dpkg", "-L", "python-dbus").Label())
	assert.Equal(t, "serve . on :8000", Step{Kind: KindServe, Dir: ".", Port: 8000}.Label())
	assert.Equal(t, "custom", Step{Kind: KindTest, Name: "custom"}.Label())
}
