package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/atriumhq/atrium/pkg/l10n"
)

var extensionsCmd = &cobra.Command{
	Use:   "extensions",
	Short: "Inspect the extensions installed apps contribute",
}

var extensionsListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List the extensions enabled apps contribute",
	Aliases: []string{"ls"},
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.Extensions == nil {
			return fmt.Errorf("application not initialized - state store required")
		}

		ctx := cmd.Context()

		plugins, err := app.Extensions.AppPlugins(ctx)
		if err != nil {
			return fmt.Errorf("failed to load extensions: %w", err)
		}
		collections, err := app.Extensions.AppCollections(ctx)
		if err != nil {
			return fmt.Errorf("failed to load extensions: %w", err)
		}
		books, err := app.Extensions.AddressBookPlugins(ctx)
		if err != nil {
			return fmt.Errorf("failed to load extensions: %w", err)
		}
		calendars, err := app.Extensions.CalendarPlugins(ctx)
		if err != nil {
			return fmt.Errorf("failed to load extensions: %w", err)
		}

		total := len(plugins) + len(collections) + len(books) + len(calendars)
		if total == 0 {
			fmt.Println(l10n.T("extensions.list.empty"))
			return nil
		}

		fmt.Println(l10n.T("extensions.list.header"))
		fmt.Println(strings.Repeat("-", 60))

		if len(plugins) > 0 {
			fmt.Printf("\nServer plugins (%d):\n", len(plugins))
			for _, p := range plugins {
				if features := p.Features(); len(features) > 0 {
					fmt.Printf("  %s [%s]\n", p.PluginName(), strings.Join(features, ", "))
				} else {
					fmt.Printf("  %s\n", p.PluginName())
				}
			}
		}

		if len(collections) > 0 {
			fmt.Printf("\nCollections (%d):\n", len(collections))
			for _, c := range collections {
				fmt.Printf("  %s\n", c.CollectionName())
			}
		}

		if len(books) > 0 {
			fmt.Printf("\nAddress book providers (%d):\n", len(books))
			for _, b := range books {
				fmt.Printf("  %s\n", b.ProviderName())
			}
		}

		if len(calendars) > 0 {
			fmt.Printf("\nCalendar providers (%d):\n", len(calendars))
			for _, c := range calendars {
				fmt.Printf("  %s\n", c.ProviderName())
			}
		}

		return nil
	},
}

func init() {
	extensionsCmd.AddCommand(extensionsListCmd)
	rootCmd.AddCommand(extensionsCmd)
}
