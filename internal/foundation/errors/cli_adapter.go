package errors

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// CLIErrorAdapter turns errors into exit codes, log records and a line on stderr.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
	out     io.Writer
}

// NewCLIErrorAdapter creates an adapter writing to stderr.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{verbose: verbose, logger: logger, out: os.Stderr}
}

// ExitCodeFor maps an error to a process exit code.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	ce, ok := AsClassified(err)
	if !ok {
		return 1
	}
	switch ce.Category() {
	case CategoryValidation:
		return 2
	case CategoryNotFound:
		return 4
	case CategoryConfig:
		return 7
	case CategoryGit, CategoryNotify, CategoryNetwork:
		return 8
	case CategoryInternal:
		return 10
	case CategoryContent, CategoryFileSystem, CategoryRender, CategoryLedger:
		return 11
	case CategoryDaemon, CategoryRuntime:
		return 12
	default:
		return 1
	}
}

// FormatError renders the user-facing message.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	ce, ok := AsClassified(err)
	if !ok {
		return fmt.Sprintf("Error: %v", err)
	}
	if a.verbose {
		return ce.Error()
	}
	if ce.Category() == CategoryInternal {
		return "Internal error occurred (use -v for details)"
	}
	if ce.Cause() != nil {
		return fmt.Sprintf("Error: %s: %v", ce.Message(), ce.Cause())
	}
	return "Error: " + ce.Message()
}

// Handle logs err, prints it and returns the exit code. It does not exit.
func (a *CLIErrorAdapter) Handle(err error) int {
	if err == nil {
		return 0
	}
	a.logError(err)
	_, _ = fmt.Fprintln(a.out, a.FormatError(err))
	return a.ExitCodeFor(err)
}

// HandleError handles err and terminates the process with its exit code.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}
	os.Exit(a.Handle(err))
}

func (a *CLIErrorAdapter) logError(err error) {
	ce, ok := AsClassified(err)
	if !ok {
		a.logger.Error("Unclassified error", "error", err)
		return
	}
	if !a.verbose && ce.Severity() != SeverityFatal {
		return
	}
	attrs := []slog.Attr{slog.String("category", string(ce.Category()))}
	if ce.CanRetry() {
		attrs = append(attrs, slog.Bool("retryable", true))
	}
	for k, v := range ce.Context() {
		attrs = append(attrs, slog.Any(k, v))
	}
	a.logger.LogAttrs(context.Background(), levelFor(ce.Severity()), ce.Message(), attrs...)
}

func levelFor(severity ErrorSeverity) slog.Level {
	switch severity {
	case SeverityInfo:
		return slog.LevelInfo
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
