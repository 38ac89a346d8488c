package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	ferrors "git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/posts"
)

// RollCmd implements the 'roll' command.
type RollCmd struct {
	Post string `arg:"" help:"Dated post to roll, relative to the working directory or content root"`
	Date string `help:"Target date (YYYY-MM-DD); defaults to today"`
}

func (r *RollCmd) Run(g *Global, root *CLI) error {
	target := time.Now()
	if r.Date != "" {
		d, err := time.Parse(posts.DateLayout, r.Date)
		if err != nil {
			return ferrors.ValidationError(fmt.Sprintf("invalid --date %q, want YYYY-MM-DD", r.Date)).Build()
		}
		target = d
	}

	p, err := r.resolve(root)
	if err != nil {
		return err
	}

	rolled, err := posts.Roll(p, target)
	switch {
	case errors.Is(err, posts.ErrNotDated), errors.Is(err, posts.ErrTargetExists):
		return ferrors.ValidationError("cannot roll post").WithPath(p).WithCause(err).Build()
	case err != nil:
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "roll post").WithPath(p).Build()
	}

	if rolled == p {
		_, _ = fmt.Fprintf(g.out(), "%s is already dated %s\n", p, target.Format(posts.DateLayout))
		return nil
	}
	_, _ = fmt.Fprintf(g.out(), "Rolled %s -> %s\n", p, rolled)
	return nil
}

// resolve finds the post as given, or under the configured content root.
func (r *RollCmd) resolve(root *CLI) (string, error) {
	if _, err := os.Stat(r.Post); err == nil {
		return r.Post, nil
	}
	if !filepath.IsAbs(r.Post) {
		cfg, err := loadConfig(root)
		if err != nil {
			return "", err
		}
		candidate := filepath.Join(cfg.Content.Root, r.Post)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", ferrors.NewError(ferrors.CategoryNotFound, "post not found").WithPath(r.Post).Build()
}
