// cmd/dreamscape/cmd/export.go
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Corphon/DreamScape/internal/models"
	"github.com/Corphon/DreamScape/internal/services"
	"github.com/Corphon/DreamScape/internal/storage"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <dream.json>",
	Short: "Convert a saved dream map to another format",
	Long: `Read a dream map exported as JSON and write it again as json or markdown.

Example:
  dreamscape export --format markdown dream_ab12cd34e.json`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("out", "", "directory to write the export file into")
	exportCmd.Flags().String("format", services.FormatMarkdown, "output format: json or markdown")
}

func runExport(cmd *cobra.Command, args []string) error {
	m, err := loadDreamMap(args[0])
	if err != nil {
		return err
	}
	out, _ := cmd.Flags().GetString("out")
	format, _ := cmd.Flags().GetString("format")
	return writeExport(cmd, m, format, out)
}

// loadDreamMap reads and validates a JSON dream map.
func loadDreamMap(path string) (*models.DreamMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m models.DreamMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}

// writeExport prints the export, or saves it below dir when dir is set.
func writeExport(cmd *cobra.Command, m *models.DreamMap, format, dir string) error {
	if dir == "" {
		result, err := services.NewExportService(nil, "").Export(m, format)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), result.Content)
		return nil
	}

	fs, err := storage.NewFileStorage(dir)
	if err != nil {
		return err
	}
	defer fs.Close()

	result, err := services.NewExportService(fs, "").ExportFile(m, format)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), result.FilePath)
	return nil
}
