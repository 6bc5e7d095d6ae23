// internal/api/handlers_test.go
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Corphon/DreamScape/internal/config"
	"github.com/Corphon/DreamScape/internal/models"
	"github.com/Corphon/DreamScape/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpretDream(t *testing.T) {
	s := newTestServer(t)

	m := s.interpret(t, "s1", dragonDream)
	require.Len(t, m.Scenes, 1)
	scene := m.Scenes[0]
	assert.Equal(t, models.MoodOminous, scene.Mood)
	assert.Len(t, scene.Elements, 3)
	assert.Contains(t, scene.Colors, models.MustColor("#0A0A0A"))
	assert.False(t, m.IsPublic)

	var state models.SessionState
	envelope(t, s.do(t, http.MethodGet, "/api/session", "s1", nil), &state)
	assert.Equal(t, models.PhaseExploring, state.Phase)
	assert.Equal(t, m.ID, state.CurrentDreamMapID)
	assert.Equal(t, dragonDream, state.Recorder.Transcript)
}

func TestInterpretBlankNarration(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/dreams", "s1", InterpretRequest{Narration: "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := envelope(t, w, nil)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrorValidation, resp.Error.Code)

	var state models.SessionState
	envelope(t, s.do(t, http.MethodGet, "/api/session", "s1", nil), &state)
	assert.Equal(t, models.PhaseInput, state.Phase)
	assert.Empty(t, s.handler.DreamService.ListDreams(t.Context(), "s1"))

	w = s.do(t, http.MethodPost, "/api/dreams", "s1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDreamLookupAndShare(t *testing.T) {
	s := newTestServer(t)
	m := s.interpret(t, "s1", "a castle in the sky")

	var list []models.DreamMap
	envelope(t, s.do(t, http.MethodGet, "/api/dreams", "s1", nil), &list)
	require.Len(t, list, 1)
	assert.Equal(t, m.ID, list[0].ID)

	// maps are scoped to their session
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/dreams/"+m.ID, "s1", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/dreams/"+m.ID, "s2", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, "/api/dreams/missing/share", "s1", nil).Code)

	var shared struct {
		Token   string `json:"token"`
		DreamID string `json:"dream_id"`
	}
	w := s.do(t, http.MethodPost, "/api/dreams/"+m.ID+"/share", "s1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	envelope(t, w, &shared)
	assert.True(t, strings.HasPrefix(shared.Token, services.ShareTokenPrefix))

	var state models.SessionState
	envelope(t, s.do(t, http.MethodGet, "/api/session", "s1", nil), &state)
	assert.Equal(t, shared.Token, state.ShareToken)

	// tokens resolve from any session
	var got models.DreamMap
	w = s.do(t, http.MethodGet, "/api/share/"+shared.Token, "someone-else", nil)
	require.Equal(t, http.StatusOK, w.Code)
	envelope(t, w, &got)
	assert.Equal(t, m.ID, got.ID)
	assert.True(t, got.IsPublic)

	w = s.do(t, http.MethodGet, "/api/share/share_nothing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, ErrorShareNotFound, envelope(t, w, nil).Error.Code)
}

func TestExportDream(t *testing.T) {
	s := newTestServer(t)
	m := s.interpret(t, "s1", "peaceful ocean")

	w := s.do(t, http.MethodGet, "/api/dreams/"+m.ID+"/export", "s1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, fmt.Sprintf("attachment; filename=\"dream_%s.json\"", m.ID), w.Header().Get("Content-Disposition"))
	var exported models.DreamMap
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &exported))
	assert.Equal(t, m.ID, exported.ID)
	assert.Contains(t, w.Body.String(), "\n  \"id\"")

	w = s.do(t, http.MethodGet, "/api/dreams/"+m.ID+"/export?format=markdown&save=true", "s1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".md")
	assert.Contains(t, w.Body.String(), "| Ocean |")
	_, err := os.Stat(filepath.Join(s.exportDir, "dream_"+m.ID+".md"))
	assert.NoError(t, err)

	w = s.do(t, http.MethodGet, "/api/dreams/"+m.ID+"/export?format=xml", "s1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/dreams/nope/export", "s1", nil).Code)
}

func TestRenderFrame(t *testing.T) {
	s := newTestServer(t)
	m := s.interpret(t, "s1", dragonDream)
	base := "/api/dreams/" + m.ID + "/scenes/0/frame"

	for _, mode := range []string{"2d", "3d"} {
		t.Run(mode, func(t *testing.T) {
			w := s.do(t, http.MethodGet, base+"?mode="+mode+"&w=64&h=48&t=500&px=10&py=20", "s1", nil)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
			img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
			require.NoError(t, err)
			assert.Equal(t, 64, img.Bounds().Dx())
			assert.Equal(t, 48, img.Bounds().Dy())
		})
	}

	// mode falls back to the session's (3d by default)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, base, "s1", nil).Code)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, base+"?mode=4d", "s1", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, base+"?t=soon", "s1", nil).Code)
	for _, q := range []string{"t=NaN", "t=Inf", "t=-1", "t=1e300", "t=9223372036854", "px=NaN&py=1", "dpr=Infinity"} {
		w := s.do(t, http.MethodGet, base+"?mode=2d&w=16&h=16&"+q, "s1", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
		assert.Equal(t, ErrorInvalidRenderArg, envelope(t, w, nil).Error.Code, q)
	}
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, base+"?mode=2d&w=16&h=16&t=86400000.5", "s1", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/dreams/"+m.ID+"/scenes/x/frame", "s1", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/dreams/"+m.ID+"/scenes/4/frame", "s1", nil).Code)

	w := s.do(t, http.MethodGet, base+"?mode=2d&w=0&h=48", "s1", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, ErrorRenderUnavailable, envelope(t, w, nil).Error.Code)
}

func TestSessionEndpoints(t *testing.T) {
	s := newTestServer(t)

	var state models.SessionState
	w := s.do(t, http.MethodPut, "/api/session/mode", "s1", map[string]string{"mode": "2d"})
	require.Equal(t, http.StatusOK, w.Code)
	envelope(t, w, &state)
	assert.Equal(t, models.RenderMode2D, state.RenderMode)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPut, "/api/session/mode", "s1", map[string]string{"mode": "4d"}).Code)

	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPut, "/api/session/scene", "s1", map[string]int{"index": 0}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPut, "/api/session/scene", "s1", map[string]string{}).Code)

	w = s.do(t, http.MethodPut, "/api/session/transcript", "s1", InterpretRequest{Narration: "half a dream", Duration: 12})
	require.Equal(t, http.StatusOK, w.Code)
	envelope(t, w, &state)
	assert.Equal(t, 12, state.Recorder.Duration)

	s.interpret(t, "s1", "castle")
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPut, "/api/session/scene", "s1", map[string]int{"index": 0}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPut, "/api/session/scene", "s1", map[string]int{"index": 3}).Code)

	w = s.do(t, http.MethodPost, "/api/session/reset", "s1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var reset models.SessionState
	envelope(t, w, &reset)
	assert.Equal(t, models.PhaseInput, reset.Phase)
	assert.Equal(t, models.RenderMode3D, reset.RenderMode)
	assert.Empty(t, reset.CurrentDreamMapID)

	// session defaults when no id is sent
	envelope(t, s.do(t, http.MethodGet, "/api/session", "", nil), &state)
	assert.Equal(t, DefaultSessionID, state.ID)
	envelope(t, s.do(t, http.MethodGet, "/api/session?session_id=q1", "", nil), &state)
	assert.Equal(t, "q1", state.ID)
}

func TestAsyncInterpretationAndProgress(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/dreams/async", "s1", InterpretRequest{Narration: "serene forest"})
	require.Equal(t, http.StatusAccepted, w.Code)
	var accepted struct {
		TaskID string `json:"task_id"`
	}
	envelope(t, w, &accepted)
	require.NotEmpty(t, accepted.TaskID)

	// the stream ends once the task reaches a final state
	w = s.do(t, http.MethodGet, "/api/progress/"+accepted.TaskID, "s1", nil)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, "event: connected")
	assert.Contains(t, body, `"status":"completed"`)

	var state models.SessionState
	envelope(t, s.do(t, http.MethodGet, "/api/session", "s1", nil), &state)
	assert.Equal(t, models.PhaseExploring, state.Phase)

	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, "/api/cancel/"+accepted.TaskID, "s1", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, "/api/cancel/unknown", "s1", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/progress/unknown", "s1", nil).Code)

	w = s.do(t, http.MethodPost, "/api/dreams/async", "s1", InterpretRequest{Narration: ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSettingsEndpoints(t *testing.T) {
	s := newTestServer(t)

	var settings struct {
		Config    config.AppConfig `json:"config"`
		Providers []string         `json:"providers"`
	}
	envelope(t, s.do(t, http.MethodGet, "/api/settings", "", nil), &settings)
	assert.Contains(t, settings.Providers, "keyword")

	w := s.do(t, http.MethodPut, "/api/settings/render", "", map[string]interface{}{"frame_rate": 24})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 24, config.GetCurrentConfig().Render.FrameRate)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPut, "/api/settings/render", "", map[string]interface{}{"frame_rate": 0}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPut, "/api/settings/interpreter", "", map[string]string{"provider": "oracle"}).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPut, "/api/settings/interpreter", "", map[string]interface{}{
		"provider": "keyword",
		"settings": map[string]string{"latency_ms": "0"},
	}).Code)

	var history []services.ConfigChangeRecord
	envelope(t, s.do(t, http.MethodGet, "/api/settings/history", "", nil), &history)
	assert.Len(t, history, 2)
}

func TestMetricsAndHealth(t *testing.T) {
	s := newTestServer(t)
	s.interpret(t, "s1", "castle")

	var metrics map[string]interface{}
	w := s.do(t, http.MethodGet, "/api/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	envelope(t, w, &metrics)
	assert.Contains(t, metrics, "counters")
	assert.Contains(t, metrics, "live")

	resp := envelope(t, s.do(t, http.MethodGet, "/api/health", "", nil), nil)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.RequestID)
}
