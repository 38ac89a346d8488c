package errors

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// CLIErrorAdapter handles error presentation and exit code determination for the CLI.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
	out     io.Writer
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{
		verbose: verbose,
		logger:  logger,
		out:     os.Stderr,
	}
}

// ExitCodeFor determines the appropriate exit code for an error.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	if classified, ok := AsClassified(err); ok {
		return exitCodeFromCategory(classified.Category())
	}
	return 1
}

func exitCodeFromCategory(category ErrorCategory) int {
	switch category {
	case CategoryValidation:
		return 2 // Invalid usage
	case CategoryLoad, CategoryParse, CategoryRender:
		return 3 // One or more documents failed
	case CategoryNotFound:
		return 4
	case CategoryConfig:
		return 7
	case CategoryFileSystem, CategoryPublish:
		return 11
	case CategoryCanceled:
		return 130
	case CategoryInternal:
		return 10
	default:
		return 1
	}
}

// FormatError formats an error for user-friendly display.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	classified, ok := AsClassified(err)
	if !ok {
		return fmt.Sprintf("Error: %v", err)
	}
	if a.verbose || classified.Category() != CategoryInternal {
		return "Error: " + classified.Error()
	}
	return "Internal error occurred (use -v for details)"
}

// HandleError processes an error and exits the program with appropriate code.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}
	code := a.Report(err)
	os.Exit(code)
}

// Report logs and prints err and returns the exit code without exiting.
func (a *CLIErrorAdapter) Report(err error) int {
	if err == nil {
		return 0
	}
	if a.shouldLog(err) {
		a.logError(err)
	}
	_, _ = fmt.Fprintln(a.out, a.FormatError(err))
	return a.ExitCodeFor(err)
}

func (a *CLIErrorAdapter) shouldLog(err error) bool {
	if a.verbose {
		return true
	}
	if classified, ok := AsClassified(err); ok {
		return classified.Severity() == SeverityFatal
	}
	return true
}

func (a *CLIErrorAdapter) logError(err error) {
	classified, ok := AsClassified(err)
	if !ok {
		a.logger.Error("Unclassified error", "error", err)
		return
	}
	attrs := []slog.Attr{
		slog.String("category", string(classified.Category())),
	}
	if path := classified.Path(); path != "" {
		attrs = append(attrs, slog.String(ContextPath, path))
	}
	if kind := classified.Kind(); kind != "" {
		attrs = append(attrs, slog.String(ContextKind, kind))
	}
	a.logger.LogAttrs(context.Background(), slogLevelFromSeverity(classified.Severity()), classified.Message(), attrs...)
}

func slogLevelFromSeverity(severity ErrorSeverity) slog.Level {
	switch severity {
	case SeverityInfo:
		return slog.LevelInfo
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
