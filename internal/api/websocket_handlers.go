// internal/api/websocket_handlers.go
package api

import (
	"encoding/json"
	"image"
	"net/http"
	"strconv"
	"time"

	"github.com/Corphon/DreamScape/internal/models"
	"github.com/Corphon/DreamScape/internal/render"
	"github.com/Corphon/DreamScape/internal/services"
	"github.com/gin-gonic/gin"
)

// clientMessage is a control message sent by the render client.
type clientMessage struct {
	Type   string  `json:"type"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	DPR    float64 `json:"dpr"`
}

func controlMessage(kind string, fields map[string]interface{}) []byte {
	msg := map[string]interface{}{"type": kind, "timestamp": time.Now().Format(time.RFC3339)}
	for k, v := range fields {
		msg[k] = v
	}
	data, _ := json.Marshal(msg)
	return data
}

func errorMessage(err error) []byte {
	_, code := statusForError(err)
	return controlMessage("error", map[string]interface{}{"code": code, "message": err.Error()})
}

// RenderWebSocket mounts a render loop for a scene and streams its frames as
// binary PNG messages. Closing the socket stops the loop.
func (h *Handler) RenderWebSocket(c *gin.Context) {
	sid := sessionID(c)
	m, err := h.DreamService.GetDream(c.Request.Context(), sid, c.Param("id"))
	if err != nil {
		h.Response.AppError(c, err)
		return
	}
	scene, ok := h.streamScene(c, sid, m)
	if !ok {
		return
	}
	args, err := h.parseRenderArgs(c, sid)
	if err != nil {
		h.Response.Error(c, http.StatusBadRequest, ErrorInvalidRenderArg, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Streams.logger.Warn("websocket upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}

	client := newStreamClient(conn, sid, m.ID, scene.ID, string(args.mode))
	h.Streams.register(client)
	defer h.Streams.unregister(client)
	go client.writePump()

	mount, err := h.RenderService.Mount(sid, scene, args.mode, args.viewport, func(frame *image.RGBA, seq uint64) {
		if client.busy() {
			return
		}
		data, err := services.EncodePNG(frame)
		if err != nil {
			return
		}
		client.SendFrame(data)
	})
	if err != nil {
		client.SendJSON(errorMessage(err))
		client.finish()
		return
	}
	client.SendJSON(controlMessage("connected", map[string]interface{}{
		"dream_id": m.ID,
		"scene_id": scene.ID,
		"mode":     args.mode,
	}))

	h.readControlMessages(client, mount)

	// Release waits for the loop, so no frame is sent after this.
	h.RenderService.Release(mount)
	client.finish()
}

// streamScene picks the scene named by the scene query, else the session's
// current scene when streaming its current dream, else the first.
func (h *Handler) streamScene(c *gin.Context, sid string, m *models.DreamMap) (*models.DreamScene, bool) {
	index := 0
	if v := c.Query("scene"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			h.Response.Error(c, http.StatusBadRequest, ErrorInvalidRenderArg, "scene must be an integer")
			return nil, false
		}
		index = parsed
	} else if state := h.SessionService.Get(sid); state.CurrentDreamMapID == m.ID {
		index = state.CurrentSceneIndex
	}

	scene, ok := m.Scene(index)
	if !ok {
		h.Response.NotFound(c, "scene")
		return nil, false
	}
	return scene, true
}

// readControlMessages applies pointer and resize messages until the client
// goes away.
func (h *Handler) readControlMessages(client *StreamClient, mount *services.Mount) {
	conn := client.conn
	conn.SetReadLimit(maxReadBytes)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		client.UpdatePing()
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		client.UpdatePing()
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			client.SendJSON(controlMessage("error", map[string]interface{}{
				"code":    ErrorBadRequest,
				"message": "malformed message",
			}))
			continue
		}

		switch msg.Type {
		case "pointer":
			mount.SetPointer(render.Pointer{X: msg.X, Y: msg.Y})
		case "resize":
			v := render.Viewport{Width: msg.Width, Height: msg.Height, DPR: msg.DPR}
			if v.DPR == 0 {
				v.DPR = 1
			}
			if err := mount.Resize(v); err != nil {
				client.SendJSON(errorMessage(err))
			}
		case "ping":
			client.SendJSON(controlMessage("pong", nil))
		default:
			client.SendJSON(controlMessage("error", map[string]interface{}{
				"code":    ErrorBadRequest,
				"message": "unknown message type " + strconv.Quote(msg.Type),
			}))
		}
	}
}

// GetWebSocketStatus lists the open render streams.
func (h *Handler) GetWebSocketStatus(c *gin.Context) {
	h.Response.Success(c, h.Streams.GetStatus())
}
