// cmd/dreamscape/cmd/cmd_test.go
package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Corphon/DreamScape/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the CLI with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--seed", "7"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestInterpretPrintsJSON(t *testing.T) {
	out, err := run(t, "interpret", "--out", "", "--format", "json", "I", "was", "flying", "over", "a", "dark", "forest")
	require.NoError(t, err)

	var m models.DreamMap
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	require.Len(t, m.Scenes, 1)
	assert.Equal(t, "I was flying over a dark forest", m.Narration)
	assert.NoError(t, m.Validate())
}

func TestInterpretWritesExportFile(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, "interpret", "--out", dir, "--format", "markdown", "a castle by the sea")
	require.NoError(t, err)

	path := strings.TrimSpace(out)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, ".md"))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "a castle by the sea")
}

func TestInterpretRejectsUnknownFormat(t *testing.T) {
	_, err := run(t, "interpret", "--out", "", "--format", "xml", "castle")
	assert.Error(t, err)
}

func TestExportConvertsSavedMap(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, "interpret", "--out", dir, "--format", "json", "a dragon in the storm")
	require.NoError(t, err)
	saved := strings.TrimSpace(out)

	out, err = run(t, "export", "--out", "", "--format", "markdown", saved)
	require.NoError(t, err)
	assert.Contains(t, out, "a dragon in the storm")
}

func TestExportRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"id":"x","scenes":[]}`), 0644))

	_, err := run(t, "export", "--out", "", path)
	assert.Error(t, err)
}

func TestRenderWritesPNG(t *testing.T) {
	for _, mode := range []string{"2d", "3d"} {
		t.Run(mode, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "frame.png")
			out, err := run(t, "render", "--in", "", "--mode", mode, "--text", "a dark forest", "--width", "64", "--height", "48", "--dpr", "1", "--scene", "0", "--t", "500ms", "--out", path)
			require.NoError(t, err)
			assert.Contains(t, out, "64x48")

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")))
		})
	}
}

func TestRenderValidatesArguments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")

	_, err := run(t, "render", "--in", "", "--mode", "4d", "--text", "castle", "--scene", "0", "--width", "64", "--height", "48", "--out", path)
	assert.Error(t, err)

	_, err = run(t, "render", "--in", "", "--mode", "2d", "--text", "castle", "--scene", "3", "--width", "64", "--height", "48", "--out", path)
	assert.Error(t, err)

	_, err = run(t, "render", "--in", "", "--text", "", "--mode", "2d", "--scene", "0", "--out", path)
	assert.Error(t, err)
	assert.NoFileExists(t, path)
}
