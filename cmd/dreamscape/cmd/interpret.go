// cmd/dreamscape/cmd/interpret.go
package cmd

import (
	"strings"

	"github.com/Corphon/DreamScape/internal/services"
	"github.com/spf13/cobra"
)

var interpretCmd = &cobra.Command{
	Use:   "interpret <narration>",
	Short: "Interpret a dream narration into a dream map",
	Long: `Interpret a narration and print the resulting dream map.

With --out the map is written to <out>/dream_<id>.json (or .md) instead.

Example:
  dreamscape interpret "I was flying over a dark forest"
  dreamscape interpret --format markdown --out ./dreams "a castle in the clouds"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInterpret,
}

func init() {
	rootCmd.AddCommand(interpretCmd)

	interpretCmd.Flags().String("out", "", "directory to write the export file into")
	interpretCmd.Flags().String("format", services.FormatJSON, "output format: json or markdown")
}

func runInterpret(cmd *cobra.Command, args []string) error {
	narration := strings.Join(args, " ")
	m, err := newEngine().Interpret(cmd.Context(), narration)
	if err != nil {
		return err
	}

	out, _ := cmd.Flags().GetString("out")
	format, _ := cmd.Flags().GetString("format")
	return writeExport(cmd, m, format, out)
}
