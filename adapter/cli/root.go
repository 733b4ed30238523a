package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/atriumhq/atrium/pkg/observability"
)

var (
	verbose bool
	logger  *slog.Logger
)

type startedAtKey struct{}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "atrium",
	Short: "Atrium - extensible DAV server",
	Long: `Atrium is a CalDAV/CardDAV server whose behavior is assembled at
runtime from the extensions installed apps declare.

	Apps ship a descriptor naming the plugins, collections, and
	address book or calendar providers they contribute; Atrium
	discovers, resolves, and mounts them.`,
	PersistentPreRun:  startCommand,
	PersistentPostRun: endCommand,
}

// startCommand stamps the command context with a fresh correlation ID. The
// platform logger picks the ID up from the context, so every log line below
// this command can be tied together.
func startCommand(cmd *cobra.Command, _ []string) {
	if verbose {
		cfg := observability.DefaultLogConfig()
		cfg.Level = observability.LogLevelDebug
		logger = observability.NewLogger(cfg)
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx := observability.WithCorrelationID(cmd.Context(), "")
	ctx = context.WithValue(ctx, startedAtKey{}, time.Now())
	cmd.SetContext(ctx)

	logger.InfoContext(ctx, "command start", "command", cmd.CommandPath())
}

func endCommand(cmd *cobra.Command, _ []string) {
	if logger == nil {
		logger = slog.Default()
	}

	ctx := cmd.Context()
	started, ok := ctx.Value(startedAtKey{}).(time.Time)
	if !ok {
		return
	}

	logger.InfoContext(ctx, "command end",
		"command", cmd.CommandPath(),
		"duration_ms", time.Since(started).Milliseconds(),
	)
}

// Execute runs the CLI. The context cancels long-running commands on
// shutdown signals.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// SetLogger sets the CLI logger.
func SetLogger(l *slog.Logger) {
	logger = l
}
