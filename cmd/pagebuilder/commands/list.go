package commands

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"git.home.luguber.info/inful/pagebuilder/internal/build"
	"git.home.luguber.info/inful/pagebuilder/internal/page"
	"git.home.luguber.info/inful/pagebuilder/internal/posts"
)

// ListCmd implements the 'list' command.
type ListCmd struct {
	Drafts bool `help:"Include drafts"`
	JSON   bool `name:"json" help:"Print pages as JSON"`
}

type listedPage struct {
	Slug       string   `json:"slug"`
	Title      string   `json:"title"`
	Path       string   `json:"path"`
	Order      *int     `json:"order,omitempty"`
	Date       string   `json:"date,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Categories []string `json:"categories,omitempty"`
}

func (l *ListCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if l.Drafts {
		cfg.Content.IncludeDrafts = true
	}

	ctx, cancel := interruptContext()
	defer cancel()

	res, err := build.NewService().Run(ctx, build.Request{Config: cfg, DryRun: true})
	if err != nil {
		return err
	}

	pages := make([]listedPage, 0, len(res.Report.Pages))
	for _, p := range res.Report.Pages {
		pages = append(pages, toListed(p))
	}

	out := g.out()
	if l.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(pages); err != nil {
			return fmt.Errorf("encode pages: %w", err)
		}
	} else {
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "ORDER\tSLUG\tTITLE\tDATE\tTAGS")
		for _, p := range pages {
			order := "-"
			if p.Order != nil {
				order = strconv.Itoa(*p.Order)
			}
			slug := "/" + p.Slug
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", order, slug, p.Title, p.Date, strings.Join(p.Tags, ","))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	// Failed documents are not listed but still fail the command.
	printDiagnostics(out, res.Report)
	return res.Err()
}

func toListed(p *page.Page) listedPage {
	lp := listedPage{
		Slug:       p.Slug,
		Title:      p.Title,
		Path:       p.Path,
		Order:      p.Order,
		Tags:       p.Tags.Values(),
		Categories: p.Categories.Values(),
	}
	if !p.Date.IsZero() {
		lp.Date = p.Date.Format(posts.DateLayout)
	}
	return lp
}
