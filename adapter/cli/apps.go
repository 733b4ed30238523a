package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/atriumhq/atrium/internal/appstore"
	"github.com/atriumhq/atrium/internal/platform/eventbus"
	"github.com/atriumhq/atrium/pkg/l10n"
)

var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "Manage installed apps",
	Long:  "List installed apps and control which ones contribute extensions to the DAV server.",
}

var appsListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List installed apps",
	Aliases: []string{"ls"},
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.State == nil {
			return fmt.Errorf("application not initialized - state store required")
		}

		ctx := cmd.Context()
		records, err := app.State.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list apps: %w", err)
		}

		if len(records) == 0 {
			fmt.Println(l10n.T("apps.list.empty"))
			return nil
		}

		fmt.Println(l10n.T("apps.list.header"))
		fmt.Println(strings.Repeat("-", 60))

		for _, record := range records {
			// The display name lives in the descriptor; an app whose
			// files are gone still lists under its ID.
			name := ""
			if info, err := app.Store.Info(ctx, record.AppID); err == nil {
				name = info.Name
			}
			fmt.Println(formatAppRow(record, name))
		}

		return nil
	},
}

var appsEnableCmd = &cobra.Command{
	Use:   "enable <app-id>",
	Short: "Enable an app",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setAppEnabled(cmd, args[0], true)
	},
}

var appsDisableCmd = &cobra.Command{
	Use:   "disable <app-id>",
	Short: "Disable an app",
	Long:  "Disable an app so its extensions are skipped the next time the server starts.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setAppEnabled(cmd, args[0], false)
	},
}

var appsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile install state with apps on disk",
	Long: `Scan the app directories and update the install state: apps found on
disk but not yet recorded are registered as new installs, and version
changes are picked up. Enabled/disabled flags are preserved.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.StateStore == nil {
			return fmt.Errorf("application not initialized - state store required")
		}

		ctx := cmd.Context()
		installed, err := app.StateStore.Sync(ctx)
		if err != nil {
			return fmt.Errorf("failed to sync apps: %w", err)
		}

		for _, record := range installed {
			app.publishEvent(ctx, eventbus.RoutingKeyAppInstalled, map[string]any{
				"app_id":  record.AppID,
				"version": record.Version,
			})
		}

		if len(installed) > 0 {
			fmt.Println(l10n.T("apps.sync.recorded", len(installed)))
		} else {
			fmt.Println(l10n.T("apps.sync.clean"))
		}
		return nil
	},
}

func setAppEnabled(cmd *cobra.Command, appID string, enabled bool) error {
	app := GetApp()
	if app == nil || app.State == nil {
		return fmt.Errorf("application not initialized - state store required")
	}

	if err := app.State.SetEnabled(cmd.Context(), appID, enabled); err != nil {
		if appstore.IsAppNotFound(err) {
			return errors.New(l10n.T("apps.not_found", appID))
		}
		return fmt.Errorf("failed to update app %q: %w", appID, err)
	}

	app.publishEvent(cmd.Context(), eventbus.RoutingKeyAppToggled, map[string]any{
		"app_id":  appID,
		"enabled": enabled,
	})

	if enabled {
		fmt.Println(l10n.T("apps.enabled", appID))
	} else {
		fmt.Println(l10n.T("apps.disabled", appID))
	}
	return nil
}

func formatAppRow(record *appstore.InstallRecord, name string) string {
	state := "disabled"
	if record.Enabled {
		state = "enabled"
	}
	if name == "" {
		name = record.AppID
	}

	row := fmt.Sprintf("  %s (%s) v%s [%s]", name, record.AppID, record.Version, state)
	if len(record.Types) > 0 {
		row += fmt.Sprintf("\n    types: %s", strings.Join(record.Types, ", "))
	}
	return row
}

func init() {
	appsCmd.AddCommand(appsListCmd)
	appsCmd.AddCommand(appsEnableCmd)
	appsCmd.AddCommand(appsDisableCmd)
	appsCmd.AddCommand(appsSyncCmd)
	rootCmd.AddCommand(appsCmd)
}
