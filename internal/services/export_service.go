// internal/services/export_service.go
package services

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	apperrors "github.com/Corphon/DreamScape/internal/errors"
	"github.com/Corphon/DreamScape/internal/models"
	"github.com/Corphon/DreamScape/internal/storage"
	"github.com/Corphon/DreamScape/internal/utils"
)

// Export formats.
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// ExportService serialises dream maps for download and writes export files.
type ExportService struct {
	storage *storage.FileStorage
	dir     string
	now     func() time.Time
	metrics *utils.DreamMetrics
	logger  *utils.Logger
}

// NewExportService writes files into dir below fs. fs may be nil when only
// in-memory exports are needed.
func NewExportService(fs *storage.FileStorage, dir string) *ExportService {
	return &ExportService{
		storage: fs,
		dir:     dir,
		now:     time.Now,
		metrics: utils.NewDreamMetrics(),
		logger:  utils.GetLogger().WithComponent("export_service"),
	}
}

// ExportJSON renders the map as 2-space indented JSON.
func (s *ExportService) ExportJSON(m *models.DreamMap) ([]byte, error) {
	if m == nil {
		return nil, apperrors.NewValidationError("nothing to export", nil)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, apperrors.NewProcessingError("marshal dream map", err)
	}
	return data, nil
}

// Export renders the map in format without touching disk.
func (s *ExportService) Export(m *models.DreamMap, format string) (*models.ExportResult, error) {
	if m == nil {
		return nil, apperrors.NewValidationError("nothing to export", nil)
	}

	var content []byte
	fileName := models.ExportFileName(m.ID)
	switch strings.ToLower(format) {
	case FormatJSON, "":
		data, err := s.ExportJSON(m)
		if err != nil {
			return nil, err
		}
		content = data
		format = FormatJSON
	case FormatMarkdown, "md":
		content = []byte(renderMarkdown(m))
		fileName = strings.TrimSuffix(fileName, ".json") + ".md"
		format = FormatMarkdown
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("unsupported export format %q, supported: json, markdown", format), nil)
	}

	return &models.ExportResult{
		DreamID:     m.ID,
		Title:       m.Title,
		Format:      format,
		Content:     string(content),
		GeneratedAt: s.now(),
		FileName:    fileName,
		FileSize:    int64(len(content)),
		Stats:       Stats(m),
	}, nil
}

// ExportFile writes the export into the export directory.
func (s *ExportService) ExportFile(m *models.DreamMap, format string) (*models.ExportResult, error) {
	if s.storage == nil {
		return nil, apperrors.NewProcessingError("export storage is not configured", nil)
	}
	result, err := s.Export(m, format)
	if err != nil {
		return nil, err
	}

	if err := s.storage.SaveTextFile(s.dir, result.FileName, []byte(result.Content)); err != nil {
		return nil, apperrors.NewProcessingError("save export file", err)
	}
	result.FilePath = s.storage.Path(s.dir, result.FileName)

	s.metrics.Collector().IncrementCounter(utils.MetricExportsTotal)
	s.logger.Info("dream exported", map[string]interface{}{
		"dream_id": m.ID,
		"format":   result.Format,
		"path":     result.FilePath,
		"bytes":    result.FileSize,
	})
	return result, nil
}

// ListExports returns the export file names on disk.
func (s *ExportService) ListExports() ([]string, error) {
	if s.storage == nil {
		return nil, nil
	}
	return s.storage.ListFiles(s.dir, "")
}

// Stats summarises a map.
func Stats(m *models.DreamMap) *models.DreamExportStats {
	stats := &models.DreamExportStats{
		SceneCount:     len(m.Scenes),
		ElementsByKind: make(map[string]int),
	}

	moods := make(map[string]bool)
	palette := make(map[models.Color]bool)
	for _, sc := range m.Scenes {
		stats.ElementCount += len(sc.Elements)
		for _, el := range sc.Elements {
			stats.ElementsByKind[string(el.Kind)]++
		}
		moods[string(sc.Mood)] = true
		for _, c := range sc.Colors {
			palette[c] = true
		}
	}
	for mood := range moods {
		stats.Moods = append(stats.Moods, mood)
	}
	sort.Strings(stats.Moods)
	stats.PaletteSize = len(palette)
	return stats
}

func renderMarkdown(m *models.DreamMap) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", m.Title)
	fmt.Fprintf(&b, "> %s\n\n", strings.TrimSpace(m.Narration))
	for i, sc := range m.Scenes {
		fmt.Fprintf(&b, "## Scene %d: %s\n\n", i+1, sc.Title)
		fmt.Fprintf(&b, "- Mood: %s\n", sc.Mood)
		colors := make([]string, len(sc.Colors))
		for j, c := range sc.Colors {
			colors[j] = string(c)
		}
		fmt.Fprintf(&b, "- Palette: %s\n", strings.Join(colors, ", "))
		fmt.Fprintf(&b, "- Fog: density %.3f\n\n", sc.Fog.Density)
		b.WriteString("| Element | Kind | Color | Position |\n|---|---|---|---|\n")
		for _, el := range sc.Elements {
			fmt.Fprintf(&b, "| %s | %s | %s | (%.2f, %.2f, %.2f) |\n",
				el.Name, el.Kind, el.Color, el.Position.X, el.Position.Y, el.Position.Z)
		}
		b.WriteString("\n")
	}
	return b.String()
}
