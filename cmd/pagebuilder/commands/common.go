package commands

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/pagebuilder/internal/config"
	"git.home.luguber.info/inful/pagebuilder/internal/logfields"
)

// Global carries state shared by every command.
type Global struct {
	Out io.Writer
}

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// baseContext is the parent of every command context.
var baseContext = context.Background

// interruptContext is canceled on SIGINT or SIGTERM, which the error adapter
// maps to exit code 130.
func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(baseContext(), syscall.SIGINT, syscall.SIGTERM)
}

// CLI definition and global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"pagebuilder.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build BuildCmd `cmd:"" help:"Render the content tree and publish the site"`
	Check CheckCmd `cmd:"" help:"Render every document and report errors without writing output"`
	List  ListCmd  `cmd:"" help:"List pages in navigation order"`
	Roll  RollCmd  `cmd:"" help:"Move a dated post to today's date"`
	Init  InitCmd  `cmd:"" help:"Initialize a new configuration file"`
}

// AfterApply runs after flag parsing; setup logging once. Commands that load
// a configuration file refine it with configureLogging.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// loadConfig loads the configuration named by --config. When the flag was
// left at its default and no such file exists, built-in defaults relative
// to the working directory are used.
func loadConfig(root *CLI) (*config.Config, error) {
	cfg, err := config.Load(root.Config)
	if err == nil {
		configureLogging(cfg, root.Verbose)
		return cfg, nil
	}
	if root.Config == config.DefaultFileName {
		if _, statErr := os.Stat(root.Config); errors.Is(statErr, fs.ErrNotExist) {
			slog.Debug("No configuration file; using defaults", logfields.Path(root.Config))
			cfg = config.Default()
			configureLogging(cfg, root.Verbose)
			return cfg, nil
		}
	}
	return nil, err
}

// configureLogging replaces the default logger with one matching the
// configured level and format. -v always wins over the configured level.
func configureLogging(cfg *config.Config, verbose bool) {
	level := cfg.Logging.Level.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Logging.Format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
