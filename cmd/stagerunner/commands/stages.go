package commands

import (
	"fmt"
	"io"
	"os"

	"git.home.luguber.info/inful/stagerunner/internal/stage"
)

// StagesCmd implements the 'stages' command.
type StagesCmd struct {
	Steps bool `short:"s" help:"Also list each stage's steps"`

	out io.Writer
}

// Run lists the stages by their command-line name.
func (s *StagesCmd) Run(root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	out := s.out
	if out == nil {
		out = os.Stdout
	}
	writeStages(out, stage.NewCatalog(cfg), s.Steps)
	return nil
}

func writeStages(w io.Writer, catalog *stage.Catalog, withSteps bool) {
	for _, alias := range stage.Aliases() {
		st, ok := catalog.Lookup(alias)
		if !ok {
			continue
		}
		_, _ = fmt.Fprintf(w, "%-22s %-18s %d steps\n", alias, st.ID, len(st.Steps))
		if !withSteps {
			continue
		}
		for i, step := range st.Steps {
			mark := ""
			if !step.Guarded {
				mark = " (continues on failure)"
			}
			_, _ = fmt.Fprintf(w, "  %2d. %s%s\n", i+1, step.Label(), mark)
		}
	}
}
