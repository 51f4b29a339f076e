package stage

import (
	"fmt"
	"strings"
)

// ID identifies a stage.
type ID string

const (
	Plugins          ID = "plugins"
	RestService      ID = "rest-service"
	IntegrationTests ID = "integration-tests"
	Lint             ID = "lint"
)

// aliases maps the CI job names accepted on the command line to stage IDs.
var aliases = map[string]ID{
	"test-plugins":          Plugins,
	"test-rest-service":     RestService,
	"run-integration-tests": IntegrationTests,
	"flake8":                Lint,
}

// Aliases returns the command-line names in a fixed order.
func Aliases() []string {
	return []string{"test-plugins", "test-rest-service", "run-integration-tests", "flake8"}
}

// Parse maps a command-line name or canonical ID to a stage ID.
func Parse(name string) (ID, bool) {
	name = strings.TrimSpace(name)
	if id, ok := aliases[name]; ok {
		return id, true
	}
	switch ID(name) {
	case Plugins, RestService, IntegrationTests, Lint:
		return ID(name), true
	}
	return "", false
}

// Kind tags the variant of a step.
type Kind string

const (
	KindEnv     Kind = "env"     // create and activate an isolated environment
	KindClone   Kind = "clone"   // fetch an external source dependency
	KindInstall Kind = "install" // install a package into the environment
	KindServe   Kind = "serve"   // start a detached background service
	KindTest    Kind = "test"    // invoke a test suite
	KindLint    Kind = "lint"    // run static analysis over a directory
	KindShell   Kind = "shell"   // arbitrary configuration command
)

// Step is one action of a stage. Which fields matter depends on Kind:
//
//	env      Target is the virtualenv directory
//	clone    Repo names the dependency
//	install  Target is the package spec installed from Dir, or Repo names a
//	         cloned dependency installed from its checkout; Args are extra pip arguments
//	serve    Dir is served on Port
//	test     Target is the suite passed to the test runner
//	lint     Target is the directory linted
//	shell    Command and Args are run verbatim
type Step struct {
	Kind    Kind
	Name    string
	Guarded bool // failure aborts the stage
	Dir     string
	Target  string
	Args    []string
	Repo    string
	Port    int
	Command string
}

// Label returns Name, or a description derived from the variant.
func (s Step) Label() string {
	if s.Name != "" {
		return s.Name
	}
	switch s.Kind {
	case KindClone:
		return "clone " + s.Repo
	case KindInstall:
		if s.Repo != "" {
			return "install " + s.Repo
		}
		if s.Dir != "" {
			return "install " + s.Dir
		}
		return "install " + s.Target
	case KindServe:
		return fmt.Sprintf("serve %s on :%d", s.Dir, s.Port)
	case KindShell:
		return strings.TrimSpace(s.Command + " " + strings.Join(s.Args, " "))
	default:
		return string(s.Kind) + " " + s.Target
	}
}

// Stage is a named, ordered sequence of steps.
type Stage struct {
	ID    ID
	Steps []Step
}

// Validate checks that every step carries the fields its variant needs.
func (s Stage) Validate() error {
	for i, st := range s.Steps {
		var missing string
		switch st.Kind {
		case KindEnv, KindTest, KindLint:
			if st.Target == "" {
				missing = "target"
			}
		case KindInstall:
			if st.Target == "" && st.Repo == "" {
				missing = "target or repo"
			}
		case KindClone:
			if st.Repo == "" {
				missing = "repo"
			}
		case KindServe:
			if st.Port <= 0 {
				missing = "port"
			}
		case KindShell:
			if st.Command == "" {
				missing = "command"
			}
		default:
			return fmt.Errorf("stage %s step %d: unknown kind %q", s.ID, i, st.Kind)
		}
		if missing != "" {
			return fmt.Errorf("stage %s step %d (%s): missing %s", s.ID, i, st.Kind, missing)
		}
	}
	return nil
}
