package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/atriumhq/atrium/internal/appstore/catalog"
	"github.com/atriumhq/atrium/pkg/l10n"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Browse and search the Atrium app catalog",
	Long:  "Commands for discovering installable apps in the remote Atrium catalog.",
}

var catalogSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search for apps in the catalog",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.Catalog == nil {
			return fmt.Errorf("catalog not available")
		}

		query := strings.Join(args, " ")

		entries, err := app.Catalog.Search(cmd.Context(), query)
		if err != nil {
			if errors.Is(err, catalog.ErrUnavailable) {
				return errors.New(l10n.T("catalog.unavailable"))
			}
			return fmt.Errorf("search failed: %w", err)
		}

		if len(entries) == 0 {
			fmt.Println(l10n.T("catalog.search.empty", query))
			return nil
		}

		fmt.Printf("\n%s\n", l10n.T("catalog.search.header", query))
		fmt.Println(strings.Repeat("-", 60))

		for i := range entries {
			printEntrySummary(&entries[i])
		}

		return nil
	},
}

var catalogShowCmd = &cobra.Command{
	Use:   "show <app-id>",
	Short: "Show detailed information about a catalog app",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.Catalog == nil {
			return fmt.Errorf("catalog not available")
		}

		appID := args[0]

		entry, err := app.Catalog.Show(cmd.Context(), appID)
		if err != nil {
			switch {
			case errors.Is(err, catalog.ErrNotFound):
				fmt.Println(l10n.T("catalog.show.not_found", appID))
				return nil
			case errors.Is(err, catalog.ErrUnavailable):
				return errors.New(l10n.T("catalog.unavailable"))
			}
			return fmt.Errorf("failed to fetch app: %w", err)
		}

		fmt.Printf("\n%s\n", entry.Name)
		fmt.Println(strings.Repeat("=", len(entry.Name)))
		fmt.Printf("ID: %s\n", entry.ID)
		fmt.Printf("Version: %s\n", entry.Version)

		if entry.Description != "" {
			fmt.Printf("\n%s\n", entry.Description)
		}

		fmt.Println()

		if entry.Author != "" {
			fmt.Printf("Author: %s\n", entry.Author)
		}
		if entry.License != "" {
			fmt.Printf("License: %s\n", entry.License)
		}
		if entry.Homepage != "" {
			fmt.Printf("Homepage: %s\n", entry.Homepage)
		}
		if len(entry.Types) > 0 {
			fmt.Printf("Types: %s\n", strings.Join(entry.Types, ", "))
		}

		fmt.Printf("Downloads: %s\n", formatNumber(entry.Downloads))
		if entry.Rating > 0 {
			fmt.Printf("Rating: %.1f/5\n", entry.Rating)
		}
		if entry.Verified {
			fmt.Println("Badges: Verified")
		}

		return nil
	},
}

func printEntrySummary(entry *catalog.Entry) {
	badges := ""
	if entry.Verified {
		badges += " [verified]"
	}

	fmt.Printf("\n  %s%s\n", entry.Name, badges)
	fmt.Printf("    %s | v%s | %s downloads\n",
		entry.ID,
		entry.Version,
		formatNumber(entry.Downloads),
	)
	if entry.Description != "" {
		desc := entry.Description
		if len(desc) > 80 {
			desc = desc[:77] + "..."
		}
		fmt.Printf("    %s\n", desc)
	}
}

func formatNumber(n int64) string {
	if n >= 1000000 {
		return fmt.Sprintf("%.1fM", float64(n)/1000000)
	}
	if n >= 1000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%d", n)
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogSearchCmd)
	catalogCmd.AddCommand(catalogShowCmd)
}
