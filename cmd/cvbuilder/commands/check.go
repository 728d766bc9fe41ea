package commands

import (
	"fmt"
	"io"
	"os"

	"git.home.luguber.info/inful/cvbuilder/internal/build"
	ferrors "git.home.luguber.info/inful/cvbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/cvbuilder/internal/output"
)

// CheckCmd implements the 'check' command. It exits non-zero when any
// fragment on disk differs from what generate would write.
type CheckCmd struct {
	Output string `short:"o" help:"Output directory (overrides output.directory)" type:"path"`
	Diff   bool   `short:"d" help:"Print a diff for every stale fragment"`
}

func (c *CheckCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	res, err := build.NewService(g.Logger).Run(ctx, build.Request{Config: cfg, OutputDir: c.Output, Check: true})
	if err != nil {
		return err
	}
	printDrifts(os.Stdout, res.Drifts, c.Diff)
	if res.Status == build.StatusStale {
		return ferrors.ValidationError(fmt.Sprintf("%d of %d fragments are out of date", len(res.Drifts), res.Checked)).
			WithContext("output", res.OutputDir).
			Build()
	}
	fmt.Printf("All %d fragments are up to date\n", res.Checked)
	return nil
}

func printDrifts(w io.Writer, drifts []output.Drift, withDiff bool) {
	for _, d := range drifts {
		if d.Missing {
			_, _ = fmt.Fprintf(w, "missing  %s\n", d.Path)
			continue
		}
		_, _ = fmt.Fprintf(w, "stale    %s\n", d.Path)
		if withDiff {
			_, _ = fmt.Fprintln(w, d.Diff)
		}
	}
}
