package main

import (
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/cvbuilder/cmd/cvbuilder/commands"
	ferrors "git.home.luguber.info/inful/cvbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/cvbuilder/internal/version"
)

func main() {
	cli := &commands.CLI{}
	ctx := kong.Parse(cli,
		kong.Name("cvbuilder"),
		kong.Description("Generate LaTeX CV and resume fragments from structured records."),
		kong.Vars{"version": version.String()},
	)

	global := commands.NewGlobal(cli.Verbose)
	err := ctx.Run(global, cli)
	os.Exit(ferrors.NewCLIErrorAdapter(cli.Verbose, global.Logger).HandleError(err))
}
