// internal/services/export_service_test.go
package services

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"

	apperrors "github.com/Corphon/DreamScape/internal/errors"
	"github.com/Corphon/DreamScape/internal/interpreter"
	"github.com/Corphon/DreamScape/internal/models"
	"github.com/Corphon/DreamScape/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShareTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m, err := f.dreams.Interpret(ctx, "s1", dragonDream)
	require.NoError(t, err)

	share := NewShareService(f.repo, interpreter.NewSeededSource(3))
	token, ok := share.GenerateShareToken(ctx, "s1", m.ID)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(token, ShareTokenPrefix))
	assert.Len(t, token, len(ShareTokenPrefix)+9)

	got, ok := share.RetrieveByToken(ctx, token)
	require.True(t, ok, "tokens resolve from any session")
	assert.Equal(t, m.ID, got.ID)
	assert.True(t, got.IsPublic)
	assert.Equal(t, token, got.ShareToken)

	again, ok := share.GenerateShareToken(ctx, "s1", m.ID)
	require.True(t, ok)
	assert.NotEqual(t, token, again)
	_, ok = share.RetrieveByToken(ctx, token)
	assert.False(t, ok, "re-sharing replaces the token")

	tok, ok := share.GenerateShareToken(ctx, "s1", "missing")
	assert.False(t, ok)
	assert.Empty(t, tok)
	_, ok = share.GenerateShareToken(ctx, "s2", m.ID)
	assert.False(t, ok)
	_, ok = share.RetrieveByToken(ctx, "share_nothing")
	assert.False(t, ok)
}

func exportFixture(t *testing.T) (*ExportService, *models.DreamMap, *storage.FileStorage) {
	t.Helper()
	fs, err := storage.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(fs.Close)

	m, err := newStubProvider().Interpret(context.Background(), dragonDream)
	require.NoError(t, err)
	return NewExportService(fs, "exports"), m, fs
}

func TestExportJSONIsIndented(t *testing.T) {
	svc, m, _ := exportFixture(t)
	data, err := svc.ExportJSON(m)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(string(data), "{\n  \"id\": "))
	var back models.DreamMap
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, *m, back)

	_, err = svc.ExportJSON(nil)
	assert.True(t, apperrors.IsValidationError(err))
}

func TestExportFileWritesDreamJSON(t *testing.T) {
	svc, m, fs := exportFixture(t)

	res, err := svc.ExportFile(m, "json")
	require.NoError(t, err)
	assert.Equal(t, "dream_"+m.ID+".json", res.FileName)
	assert.Equal(t, fs.Path("exports", res.FileName), res.FilePath)

	onDisk, err := os.ReadFile(res.FilePath)
	require.NoError(t, err)
	assert.Equal(t, res.Content, string(onDisk))
	assert.Equal(t, int64(len(onDisk)), res.FileSize)

	require.NotNil(t, res.Stats)
	assert.Equal(t, 1, res.Stats.SceneCount)
	assert.Equal(t, 3, res.Stats.ElementCount)
	assert.Equal(t, map[string]int{"location": 1, "object": 1, "creature": 1}, res.Stats.ElementsByKind)
	assert.Equal(t, []string{"ominous"}, res.Stats.Moods)

	names, err := svc.ListExports()
	require.NoError(t, err)
	assert.Equal(t, []string{res.FileName}, names)
}

func TestExportMarkdownAndUnknownFormat(t *testing.T) {
	svc, m, _ := exportFixture(t)

	res, err := svc.Export(m, "md")
	require.NoError(t, err)
	assert.Equal(t, FormatMarkdown, res.Format)
	assert.True(t, strings.HasSuffix(res.FileName, ".md"))
	assert.Contains(t, res.Content, "# "+m.Title)
	assert.Contains(t, res.Content, "| Dragon | creature | #DC2626 |")

	_, err = svc.Export(m, "pdf")
	assert.True(t, apperrors.IsValidationError(err))

	_, err = NewExportService(nil, "").ExportFile(m, "json")
	assert.Error(t, err)
}
