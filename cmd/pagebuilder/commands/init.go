package commands

import (
	"fmt"
	"path/filepath"

	"git.home.luguber.info/inful/pagebuilder/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force  bool   `help:"Overwrite existing configuration file"`
	Output string `short:"o" name:"output" help:"Directory for the generated config file"`
}

func (i *InitCmd) Run(g *Global, root *CLI) error {
	cfgPath := root.Config
	if i.Output != "" {
		cfgPath = filepath.Join(i.Output, config.DefaultFileName)
	}

	out := g.out()
	_, _ = fmt.Fprintf(out, "Writing configuration to %s\n", cfgPath)
	if err := config.Init(cfgPath, i.Force); err != nil {
		_, _ = fmt.Fprintln(out, "Initialization failed")
		return err
	}
	_, _ = fmt.Fprintln(out, "initialized successfully")
	return nil
}
