package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/pagebuilder/cmd/pagebuilder/commands"
	ferrors "git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("pagebuilder"),
		kong.Description("Render a tree of Markdown documents with front matter into a static site."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	err := parser.Run(&commands.Global{Out: os.Stdout})
	ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
