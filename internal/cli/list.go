package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frankdev0428/bap/internal/database"
	"github.com/frankdev0428/bap/internal/output"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List matches",
	Long: `List matches, newest first.

Examples:
  bap list                       # all matches
  bap list --subscription=5f0c   # one subscription's matches
  bap list --limit=20            # most recent 20
  bap list -o json               # output as JSON`,
	RunE: runList,
}

var (
	listSubscription string
	listLimit        int
)

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(subscriptionsCmd)

	listCmd.Flags().StringVar(&listSubscription, "subscription", "", "Filter by subscription ID")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Maximum number of results")
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	matches, err := db.ListMatches(ctx, listSubscription, listLimit)
	if err != nil {
		return fmt.Errorf("failed to list matches: %w", err)
	}
	return output.Output(outputFmt, matches)
}

var subscriptionsCmd = &cobra.Command{
	Use:   "subscriptions",
	Short: "List enabled subscriptions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		db, err := database.Open(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		subs, err := db.ListEnabledSubscriptions(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list subscriptions: %w", err)
		}
		return output.Output(outputFmt, subs)
	},
}
