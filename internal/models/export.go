// internal/models/export.go
package models

import (
	"time"
)

// ExportResult describes one exported dream map.
type ExportResult struct {
	DreamID     string            `json:"dream_id"`
	Title       string            `json:"title"`
	Format      string            `json:"format"`
	Content     string            `json:"content"`
	GeneratedAt time.Time         `json:"generated_at"`
	FileName    string            `json:"file_name"`
	FilePath    string            `json:"file_path,omitempty"` // empty when only rendered in memory
	FileSize    int64             `json:"file_size"`
	Stats       *DreamExportStats `json:"stats,omitempty"`
}

// DreamExportStats summarises the exported map.
type DreamExportStats struct {
	SceneCount     int            `json:"scene_count"`
	ElementCount   int            `json:"element_count"`
	ElementsByKind map[string]int `json:"elements_by_kind"`
	Moods          []string       `json:"moods"`
	PaletteSize    int            `json:"palette_size"`
}

// ExportFileName is the download name for a dream map.
func ExportFileName(dreamID string) string {
	return "dream_" + dreamID + ".json"
}
