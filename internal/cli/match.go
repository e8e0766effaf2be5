package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/frankdev0428/bap/internal/database"
	"github.com/frankdev0428/bap/internal/matcher"
	"github.com/frankdev0428/bap/internal/output"
	"github.com/frankdev0428/bap/internal/policy"
	"github.com/frankdev0428/bap/internal/randx"
)

var matchCmd = &cobra.Command{
	Use:   "match [subscription]",
	Short: "Run a match/target cycle",
	Long: `Run a match and target cycle for one subscription, or for every
enabled subscription when none is given.

Examples:
  bap match                          # process all enabled subscriptions
  bap match 5f0c...                  # process one subscription
  bap match --matching=force         # match even if the cadence says wait
  bap match --targeting=force-submit # target for submission right now
  bap match --targeting=webhook      # renewal webhook path, skips the settle window`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMatch,
}

var (
	matchMode   string
	targetMode  string
	matchDryRun bool
	matchDay    int
)

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringVar(&matchMode, "matching", "", "matching mode (none, force)")
	matchCmd.Flags().StringVar(&targetMode, "targeting", "", "targeting mode (none, force-target, force-submit, webhook)")
	matchCmd.Flags().BoolVar(&matchDryRun, "dry-run", false, "compute decisions without writing anything")
	matchCmd.Flags().IntVar(&matchDay, "day", 0, "day offset treated as today, for backfilling a missed sweep")
}

func runMatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	opts := matcher.Options{DryRun: matchDryRun, DayOffset: matchDay}
	if opts.Match, err = policy.ParseMatchMode(matchMode); err != nil {
		return err
	}
	if opts.Target, err = policy.ParseTargetMode(targetMode); err != nil {
		return err
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	m := matcher.New(db, cfg, slog.Default(), randx.New())

	if len(args) == 1 {
		res, err := m.ProcessSubscription(ctx, args[0], opts)
		if err != nil {
			return err
		}
		return output.Output(outputFmt, res)
	}

	results, err := m.ProcessAll(ctx, opts)
	if err != nil {
		return err
	}
	return output.Output(outputFmt, results)
}
