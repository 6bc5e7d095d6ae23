// internal/api/handlers.go
package api

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/Corphon/DreamScape/internal/models"
	"github.com/Corphon/DreamScape/internal/render"
	"github.com/Corphon/DreamScape/internal/services"
	"github.com/Corphon/DreamScape/internal/utils"
	"github.com/gin-gonic/gin"
)

// Handler serves the DreamScape API.
type Handler struct {
	DreamService    *services.DreamService
	SessionService  *services.SessionService
	ShareService    *services.ShareService
	ExportService   *services.ExportService
	RenderService   *services.RenderService
	ProgressService *services.ProgressService
	ConfigService   *services.ConfigService

	Metrics  *utils.DreamMetrics
	Streams  *StreamManager
	Response *ResponseHelper
}

// NewHandler wires a handler over the services.
func NewHandler(
	dreamService *services.DreamService,
	sessionService *services.SessionService,
	shareService *services.ShareService,
	exportService *services.ExportService,
	renderService *services.RenderService,
	progressService *services.ProgressService,
	configService *services.ConfigService,
) *Handler {
	return &Handler{
		DreamService:    dreamService,
		SessionService:  sessionService,
		ShareService:    shareService,
		ExportService:   exportService,
		RenderService:   renderService,
		ProgressService: progressService,
		ConfigService:   configService,
		Metrics:         utils.NewDreamMetrics(),
		Streams:         NewStreamManager(),
		Response:        NewResponseHelper(),
	}
}

// InterpretRequest carries a narration to interpret.
type InterpretRequest struct {
	Narration string `json:"narration"`
	Duration  int    `json:"duration,omitempty"` // recording length in seconds
}

// InterpretDream interprets a narration and returns the new dream map.
func (h *Handler) InterpretDream(c *gin.Context) {
	var req InterpretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid request body", err.Error())
		return
	}
	sid := sessionID(c)
	if req.Duration > 0 {
		h.SessionService.SetTranscript(sid, req.Narration, req.Duration)
	}

	m, _, err := h.SessionService.Submit(c.Request.Context(), sid, req.Narration)
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Created(c, m, "dream interpreted")
}

// InterpretDreamAsync starts a background interpretation and returns its task id.
func (h *Handler) InterpretDreamAsync(c *gin.Context) {
	var req InterpretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid request body", err.Error())
		return
	}

	taskID, err := h.SessionService.SubmitAsync(sessionID(c), req.Narration)
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Accepted(c, gin.H{"task_id": taskID}, "interpretation started, subscribe to progress")
}

// SubscribeProgress streams a task's progress as server-sent events.
func (h *Handler) SubscribeProgress(c *gin.Context) {
	taskID := c.Param("taskID")
	tracker, exists := h.ProgressService.GetTracker(taskID)
	if !exists {
		h.Response.NotFound(c, "task")
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	clientGone := c.Request.Context().Done()
	updates := tracker.Subscribe()
	defer tracker.Unsubscribe(updates)

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	writeEvent(c, "connected", gin.H{"task_id": taskID})
	for {
		select {
		case <-clientGone:
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			writeEvent(c, "progress", update)
			if update.Final() {
				return
			}
		case <-ticker.C:
			writeEvent(c, "heartbeat", gin.H{"time": time.Now().Unix()})
		}
	}
}

func writeEvent(c *gin.Context, event string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, payload)
	c.Writer.Flush()
}

// CancelTask cancels a running background interpretation.
func (h *Handler) CancelTask(c *gin.Context) {
	taskID := c.Param("taskID")
	tracker, exists := h.ProgressService.GetTracker(taskID)
	if !exists {
		h.Response.NotFound(c, "task")
		return
	}
	if !h.ProgressService.Cancel(taskID) {
		h.Response.Error(c, http.StatusConflict, ErrorConflict, "task is not running", tracker.Snapshot().Status)
		return
	}
	h.Response.Success(c, gin.H{"task_id": taskID}, "task canceled")
}

// ListDreams lists the session's dream maps.
func (h *Handler) ListDreams(c *gin.Context) {
	h.Response.Success(c, h.DreamService.ListDreams(c.Request.Context(), sessionID(c)))
}

// GetDream returns one of the session's dream maps.
func (h *Handler) GetDream(c *gin.Context) {
	m, err := h.DreamService.GetDream(c.Request.Context(), sessionID(c), c.Param("id"))
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Success(c, m)
}

// ShareDream mints a share token for a dream map and makes it public.
func (h *Handler) ShareDream(c *gin.Context) {
	sid := sessionID(c)
	id := c.Param("id")
	token, ok := h.ShareService.GenerateShareToken(c.Request.Context(), sid, id)
	if !ok {
		h.Response.NotFound(c, "dream")
		return
	}
	h.SessionService.SetShareToken(sid, id, token)
	h.Response.Success(c, gin.H{"token": token, "dream_id": id}, "share token created")
}

// GetSharedDream resolves a share token from any session.
func (h *Handler) GetSharedDream(c *gin.Context) {
	m, ok := h.ShareService.RetrieveByToken(c.Request.Context(), c.Param("token"))
	if !ok {
		h.Response.NotFound(c, "share")
		return
	}
	h.Response.Success(c, m)
}

// ExportDream downloads a dream map. format is json (default) or markdown;
// save=true also writes the export under the export directory.
func (h *Handler) ExportDream(c *gin.Context) {
	m, err := h.DreamService.GetDream(c.Request.Context(), sessionID(c), c.Param("id"))
	if err != nil {
		h.Response.AppError(c, err)
		return
	}

	format := c.DefaultQuery("format", services.FormatJSON)
	var result *models.ExportResult
	if save, _ := strconv.ParseBool(c.Query("save")); save {
		result, err = h.ExportService.ExportFile(m, format)
	} else {
		result, err = h.ExportService.Export(m, format)
	}
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.ExportResponse(c, result)
}

// RenderFrame renders one scene frame as a PNG snapshot.
func (h *Handler) RenderFrame(c *gin.Context) {
	sid := sessionID(c)
	m, err := h.DreamService.GetDream(c.Request.Context(), sid, c.Param("id"))
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		h.Response.Error(c, http.StatusBadRequest, ErrorInvalidRenderArg, "scene index must be an integer")
		return
	}
	scene, ok := m.Scene(index)
	if !ok {
		h.Response.NotFound(c, "scene")
		return
	}

	args, err := h.parseRenderArgs(c, sid)
	if err != nil {
		h.Response.Error(c, http.StatusBadRequest, ErrorInvalidRenderArg, err.Error())
		return
	}

	frame, err := h.RenderService.RenderFrame(scene, args.mode, args.viewport, args.at, args.pointer)
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	data, err := services.EncodePNG(frame)
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.PNGResponse(c, data)
}

type renderArgs struct {
	mode     models.RenderMode
	viewport render.Viewport
	at       time.Duration
	pointer  *render.Pointer
}

// parseRenderArgs reads mode, t (ms), px/py, w/h and dpr. The mode defaults
// to the session's, the surface to the configured default.
func (h *Handler) parseRenderArgs(c *gin.Context, sid string) (renderArgs, error) {
	args := renderArgs{viewport: h.RenderService.DefaultViewport()}

	mode := c.Query("mode")
	if mode == "" {
		mode = string(h.SessionService.Get(sid).RenderMode)
	}
	parsed, err := models.ParseRenderMode(mode)
	if err != nil {
		return args, err
	}
	args.mode = parsed

	if v := c.Query("t"); v != "" {
		ms, err := parseFinite(v)
		if err != nil || ms < 0 || ms >= maxFrameMillis {
			return args, fmt.Errorf("t must be a non-negative number of milliseconds below %g", maxFrameMillis)
		}
		args.at = time.Duration(ms * float64(time.Millisecond))
	}
	if w := c.Query("w"); w != "" {
		if args.viewport.Width, err = strconv.Atoi(w); err != nil {
			return args, fmt.Errorf("w must be an integer")
		}
	}
	if hv := c.Query("h"); hv != "" {
		if args.viewport.Height, err = strconv.Atoi(hv); err != nil {
			return args, fmt.Errorf("h must be an integer")
		}
	}
	if d := c.Query("dpr"); d != "" {
		if args.viewport.DPR, err = parseFinite(d); err != nil {
			return args, fmt.Errorf("dpr must be a number")
		}
	}

	px, py := c.Query("px"), c.Query("py")
	if px != "" || py != "" {
		var p render.Pointer
		if p.X, err = parseFinite(px); err != nil {
			return args, fmt.Errorf("px must be a number")
		}
		if p.Y, err = parseFinite(py); err != nil {
			return args, fmt.Errorf("py must be a number")
		}
		args.pointer = &p
	}
	return args, nil
}

// maxFrameMillis keeps t*time.Millisecond inside a time.Duration.
const maxFrameMillis = float64(math.MaxInt64 / int64(time.Millisecond))

// parseFinite parses a float and rejects NaN and the infinities.
func parseFinite(v string) (float64, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q is not a finite number", v)
	}
	return f, nil
}

// GetSession returns the session state.
func (h *Handler) GetSession(c *gin.Context) {
	h.Response.Success(c, h.SessionService.Get(sessionID(c)))
}

// UpdateTranscript records the recorder transcript without interpreting it.
func (h *Handler) UpdateTranscript(c *gin.Context) {
	var req InterpretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid request body", err.Error())
		return
	}
	h.Response.Success(c, h.SessionService.SetTranscript(sessionID(c), req.Narration, req.Duration))
}

// SetRenderMode switches the session between 2d and 3d.
func (h *Handler) SetRenderMode(c *gin.Context) {
	var req struct {
		Mode models.RenderMode `json:"mode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid request body", err.Error())
		return
	}
	state, err := h.SessionService.SetRenderMode(sessionID(c), req.Mode)
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Success(c, state)
}

// SetSceneIndex selects a scene of the session's current dream.
func (h *Handler) SetSceneIndex(c *gin.Context) {
	var req struct {
		Index *int `json:"index"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Index == nil {
		h.Response.BadRequest(c, "index is required")
		return
	}
	state, err := h.SessionService.SetSceneIndex(c.Request.Context(), sessionID(c), *req.Index)
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Success(c, state)
}

// ResetSession stops the session's render loop and restores the initial state.
func (h *Handler) ResetSession(c *gin.Context) {
	sid := sessionID(c)
	h.RenderService.Unmount(sid)
	h.Response.Success(c, h.SessionService.Reset(sid), "session reset")
}

// GetSettings returns the configuration and the available providers.
func (h *Handler) GetSettings(c *gin.Context) {
	h.Response.Success(c, gin.H{
		"config":    h.ConfigService.GetCurrentConfig(),
		"providers": h.ConfigService.AvailableProviders(),
	})
}

// UpdateInterpreterSettings switches the interpretation provider.
func (h *Handler) UpdateInterpreterSettings(c *gin.Context) {
	var req struct {
		Provider string            `json:"provider" binding:"required"`
		Settings map[string]string `json:"settings"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "provider is required", err.Error())
		return
	}
	if req.Settings == nil {
		req.Settings = map[string]string{}
	}
	if err := h.ConfigService.UpdateInterpreterConfig(req.Provider, req.Settings, "api:"+sessionID(c)); err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Success(c, h.ConfigService.GetCurrentConfig(), "interpreter updated")
}

// UpdateRenderSettings replaces the render defaults.
func (h *Handler) UpdateRenderSettings(c *gin.Context) {
	rc := h.ConfigService.GetCurrentConfig().Render
	if err := c.ShouldBindJSON(&rc); err != nil {
		h.Response.BadRequest(c, "invalid request body", err.Error())
		return
	}
	if err := h.ConfigService.UpdateRenderConfig(rc, "api:"+sessionID(c)); err != nil {
		h.Response.AppError(c, err)
		return
	}
	h.Response.Success(c, h.ConfigService.GetCurrentConfig(), "render settings updated")
}

// GetSettingsHistory returns recent settings changes.
func (h *Handler) GetSettingsHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	h.Response.Success(c, h.ConfigService.GetChangeHistory(limit))
}

// GetMetrics returns the metrics snapshot plus live counts.
func (h *Handler) GetMetrics(c *gin.Context) {
	snapshot := h.Metrics.Collector().Snapshot()
	h.Response.Success(c, gin.H{
		"counters":   snapshot.Counters,
		"gauges":     snapshot.Gauges,
		"histograms": snapshot.Histograms,
		"live": gin.H{
			"render_loops": h.RenderService.LiveLoops(),
			"sessions":     h.SessionService.Count(),
			"tasks":        h.ProgressService.ActiveCount(),
			"streams":      h.Streams.Count(),
		},
	})
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	h.Response.Success(c, gin.H{"status": "ok", "time": time.Now().UTC()})
}
