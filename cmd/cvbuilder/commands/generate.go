package commands

import (
	"fmt"

	"git.home.luguber.info/inful/cvbuilder/internal/build"
)

// GenerateCmd implements the 'generate' command.
type GenerateCmd struct {
	Output string `short:"o" help:"Output directory (overrides output.directory)" type:"path"`
}

func (c *GenerateCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	res, err := build.NewService(g.Logger).Run(ctx, build.Request{Config: cfg, OutputDir: c.Output})
	if err != nil {
		return err
	}
	fmt.Printf("Generated %d fragments in %s", res.Summary.Rendered, res.OutputDir)
	if res.Summary.Skipped > 0 {
		fmt.Printf(" (%d records skipped, see log)", res.Summary.Skipped)
	}
	fmt.Println()
	return nil
}
