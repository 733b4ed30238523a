package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of backing services",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.Health == nil {
			return fmt.Errorf("app not initialized")
		}

		overall := app.Health.GetOverallHealth(cmd.Context())

		names := make([]string, 0, len(overall.Checks))
		for name := range overall.Checks {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			result := overall.Checks[name]
			if result.Message != "" {
				fmt.Printf("%-10s %s (%s)\n", name, result.Status, result.Message)
			} else {
				fmt.Printf("%-10s %s\n", name, result.Status)
			}
		}

		fmt.Printf("overall    %s\n", overall.Status)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
