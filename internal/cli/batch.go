package cli

import (
	"github.com/spf13/cobra"

	"persona-engine/internal/app"
)

var batchDate string

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Evaluate every user for one reference date",
	RunE: func(cmd *cobra.Command, args []string) error {
		refDate, err := parseDateFlag(batchDate)
		if err != nil {
			return err
		}

		return getApp().Batch(cmd.Context(), app.BatchOptions{ReferenceDate: refDate})
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchDate, "date", "", "Reference date (YYYY-MM-DD, default today)")
}
