package cli

import (
	"github.com/spf13/cobra"
)

var validatePath string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the persona catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ValidateCatalog(cmd.Context(), validatePath)
	},
}

func init() {
	validateCmd.Flags().StringVar(&validatePath, "catalog", "", "Catalog path (default from config)")
}
