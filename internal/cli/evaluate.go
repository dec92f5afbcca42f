package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"persona-engine/internal/app"
)

var (
	evaluateUser string
	evaluateDate string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate a single user and print the assignment as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		refDate, err := parseDateFlag(evaluateDate)
		if err != nil {
			return err
		}

		opts := app.EvaluateOptions{
			UserID:        evaluateUser,
			ReferenceDate: refDate,
		}
		return getApp().Evaluate(cmd.Context(), opts)
	},
}

func init() {
	evaluateCmd.Flags().StringVar(&evaluateUser, "user", "", "User id to evaluate")
	evaluateCmd.Flags().StringVar(&evaluateDate, "date", "", "Reference date (YYYY-MM-DD, default today)")
	_ = evaluateCmd.MarkFlagRequired("user")
}

func parseDateFlag(value string) (time.Time, error) {
	if value == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", value)
	}
	return parsed, nil
}
