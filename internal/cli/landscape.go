package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/frankdev0428/bap/internal/database"
	"github.com/frankdev0428/bap/internal/matcher"
	"github.com/frankdev0428/bap/internal/output"
	"github.com/frankdev0428/bap/internal/randx"
)

var landscapeCmd = &cobra.Command{
	Use:   "landscape <book>",
	Short: "Score the open award landscape for a book",
	Long: `Score every open award cycle a book qualifies for, without creating
matches. The same history gates as the match sweep apply, so won or
rate-limited award families stay hidden.

Examples:
  bap landscape 5f0c...       # table of scored awards, best first
  bap landscape 5f0c... -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runLandscape,
}

func init() {
	rootCmd.AddCommand(landscapeCmd)
}

func runLandscape(cmd *cobra.Command, args []string) error {
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

	m := matcher.New(db, cfg, slog.Default(), randx.New())
	cands, err := m.Landscape(ctx, args[0], time.Now())
	if err != nil {
		return err
	}
	return output.Output(outputFmt, cands)
}
