package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"pdftools/pdf"
)

func newInfoCommand(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "info <file.pdf>",
		Short: "Print page count, page sizes and rotations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			analysis, err := pdf.Analyze(a.engine, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(analysis)
			}

			fmt.Fprintf(out, "pages: %d\n", analysis.TotalPages)
			for _, p := range analysis.Pages {
				fmt.Fprintf(out, "%4d  %.0fx%.0f pt  rotation %d\n", p.Page, p.Width, p.Height, p.Rotation)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
