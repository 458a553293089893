package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"filesdash/xref/internal/export"
)

var schemaCmd = &cobra.Command{
	Use:       "schema [document]",
	Short:     "Print the JSON Schema of the output documents",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: export.Files,
	RunE: func(cmd *cobra.Command, args []string) error {
		var v any = export.Schemas()
		if len(args) == 1 {
			s, err := export.Schema(args[0])
			if err != nil {
				return err
			}
			v = s
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
