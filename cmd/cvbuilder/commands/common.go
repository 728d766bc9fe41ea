// Package commands implements the cvbuilder subcommands.
package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/cvbuilder/internal/config"
)

// Global carries state shared by subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"cvbuilder.yaml" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Generate  GenerateCmd  `cmd:"" help:"Generate all configured fragments"`
	Check     CheckCmd     `cmd:"" help:"Report fragments that are missing or out of date without writing"`
	Watch     WatchCmd     `cmd:"" help:"Regenerate fragments whenever sources or templates change"`
	Init      InitCmd      `cmd:"" help:"Write a default configuration file"`
	Templates TemplatesCmd `cmd:"" help:"List content types and where their templates come from"`
}

// NewGlobal returns the shared state with a stderr logger used until the
// configuration is read.
func NewGlobal(verbose bool) *Global {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return &Global{Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))}
}

// loadConfig reads the configuration and swaps g.Logger for one built from
// its logging section.
func loadConfig(g *Global, root *CLI) (*config.Config, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, err
	}
	g.Logger = config.NewLogger(cfg.Logging, root.Verbose, os.Stderr)
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
