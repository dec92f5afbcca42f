package cli

import (
	"time"

	"github.com/spf13/cobra"

	"persona-engine/internal/app"
)

var (
	exportFrom    string
	exportTo      string
	exportCSVPath string
	exportPNGPath string
	exportMaxRows int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export assignment history as CSV and/or a distribution chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ExportOptions{
			CSVPath: exportCSVPath,
			PNGPath: exportPNGPath,
			MaxRows: exportMaxRows,
		}

		var err error
		if opts.From, err = parseOptionalDate(exportFrom); err != nil {
			return err
		}
		if opts.To, err = parseOptionalDate(exportTo); err != nil {
			return err
		}

		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "Start of export range (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "End of export range (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Write assignments to this CSV file")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Write persona distribution chart to this PNG file")
	exportCmd.Flags().IntVar(&exportMaxRows, "max-rows", 0, "Cap exported rows (default from config)")
}

func parseOptionalDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := parseDateFlag(value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
