package commands

import (
	"context"
	"time"

	"git.home.luguber.info/inful/cvbuilder/internal/build"
	"git.home.luguber.info/inful/cvbuilder/internal/config"
	"git.home.luguber.info/inful/cvbuilder/internal/logfields"
	"git.home.luguber.info/inful/cvbuilder/internal/watch"
)

// WatchCmd implements the 'watch' command: one full run, then a run per
// debounced burst of changes until interrupted.
type WatchCmd struct {
	Output   string        `short:"o" help:"Output directory (overrides output.directory)" type:"path"`
	Debounce time.Duration `help:"Quiet period before regenerating" default:"500ms"`
}

func (c *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	svc := build.NewService(g.Logger)
	run := func(ctx context.Context) error {
		// Reload so edits to the configuration file take effect.
		current, err := config.Load(root.Config)
		if err != nil {
			return err
		}
		res, err := svc.Run(ctx, build.Request{Config: current, OutputDir: c.Output})
		if err != nil {
			return err
		}
		g.Logger.Info("Fragments regenerated",
			logfields.RunID(res.RunID),
			logfields.Count(res.Summary.Rendered),
			logfields.OutputPath(res.OutputDir))
		return nil
	}

	if err := run(ctx); err != nil {
		g.Logger.Error("Initial generation failed", logfields.Error(err))
	}

	w, err := watch.New(watchPaths(cfg, root.Config), run, c.Debounce, g.Logger)
	if err != nil {
		return err
	}
	g.Logger.Info("Watching for changes", logfields.Count(len(w.Paths())))
	return w.Run(ctx)
}

// watchPaths lists the configuration file, every job source and the
// template override directory.
func watchPaths(cfg *config.Config, configPath string) []string {
	paths := []string{configPath}
	for _, job := range cfg.Jobs {
		paths = append(paths, cfg.SourcePath(job))
	}
	if dir := cfg.TemplateDir(); dir != "" {
		paths = append(paths, dir)
	}
	return paths
}
