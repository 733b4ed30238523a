package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/atriumhq/atrium/adapter/dav"
	"github.com/atriumhq/atrium/pkg/l10n"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the DAV server",
	Long: `Populate the extension registry from enabled apps and serve the
assembled DAV surface over HTTP. The process exits cleanly on SIGINT
or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.Extensions == nil {
			return fmt.Errorf("application not initialized - state store required")
		}

		ctx := cmd.Context()

		host := dav.NewHost(app.Extensions, app.Publisher, app.Metrics, logger)
		if err := host.Bootstrap(ctx); err != nil {
			return fmt.Errorf("failed to bootstrap extensions: %w", err)
		}

		cfg := dav.DefaultServerConfig()
		switch {
		case serveAddr != "":
			cfg.Addr = serveAddr
		case app.HTTPAddr != "":
			cfg.Addr = app.HTTPAddr
		}

		srv := dav.NewServer(cfg, host, app.Health, app.Metrics, logger)

		fmt.Println(l10n.T("serve.starting", cfg.Addr))

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		fmt.Println(l10n.T("serve.shutting_down"))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides ATRIUM_HTTP_ADDR)")
	rootCmd.AddCommand(serveCmd)
}
