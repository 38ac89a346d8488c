package commands

import (
	"fmt"
	"io"

	"git.home.luguber.info/inful/pagebuilder/internal/build"
	ferrors "git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/pipeline"
)

// CheckCmd implements the 'check' command: a build that writes nothing.
type CheckCmd struct {
	Drafts bool `help:"Include drafts"`
	Strict bool `help:"Treat warnings as errors"`
}

func (c *CheckCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if c.Drafts {
		cfg.Content.IncludeDrafts = true
	}

	ctx, cancel := interruptContext()
	defer cancel()

	res, err := build.NewService().Run(ctx, build.Request{Config: cfg, DryRun: true})
	if err != nil {
		return err
	}

	out := g.out()
	printDiagnostics(out, res.Report)
	_, _ = fmt.Fprintf(out, "%d document(s) checked: %d error(s), %d warning(s)\n",
		res.Report.Documents, len(res.Report.Errors), len(res.Report.Warnings))

	if err := res.Err(); err != nil {
		return err
	}
	if c.Strict && len(res.Report.Warnings) > 0 {
		return ferrors.RenderError(fmt.Sprintf("%d warning(s) with --strict", len(res.Report.Warnings))).Build()
	}
	return nil
}

// printDiagnostics prints one compiler-style line per error and warning.
func printDiagnostics(out io.Writer, report *pipeline.Report) {
	for _, e := range report.Errors {
		loc := e.Path()
		if line := e.Line(); line > 0 {
			loc = fmt.Sprintf("%s:%d", loc, line)
		}
		kind := e.Kind()
		if kind == "" {
			kind = string(e.Category())
		}
		msg := e.Message()
		if cause := e.Cause(); cause != nil {
			msg = fmt.Sprintf("%s: %v", msg, cause)
		}
		_, _ = fmt.Fprintf(out, "%s: error: %s: %s\n", loc, kind, msg)
	}
	for _, w := range report.Warnings {
		_, _ = fmt.Fprintf(out, "%s: warning: %s: %s\n", w.Path, w.Kind, w.Message)
	}
}
