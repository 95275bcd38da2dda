package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"peerloop/api/internal/api/middleware"
	"peerloop/api/internal/core/services"
	"peerloop/api/internal/telemetry"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// We only stream OUT; inbound traffic is control frames.
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The chi CORS middleware already validated the Origin header.
		return true
	},
}

// ProgressHandler streams live completion snapshots of an evaluation to its
// manager over a WebSocket.
type ProgressHandler struct {
	Hub       *telemetry.Hub
	Responses *services.ResponseService
	Gate      *services.ManagerGate
	Logger    *slog.Logger
}

func NewProgressHandler(
	hub *telemetry.Hub,
	responses *services.ResponseService,
	gate *services.ManagerGate,
	logger *slog.Logger,
) *ProgressHandler {
	return &ProgressHandler{Hub: hub, Responses: responses, Gate: gate, Logger: logger}
}

// Stream handles GET /api/v1/evaluations/{id}/progress
func (h *ProgressHandler) Stream(w http.ResponseWriter, r *http.Request) {
	evalID, ok := evaluationID(w, r)
	if !ok {
		return
	}

	// The capability check happens before the upgrade so an attacker probing
	// evaluation ids gets a plain HTTP error, not a socket.
	if _, err := h.Gate.Authorize(r.Context(), evalID, middleware.ManagerToken(r)); err != nil {
		HandleError(w, r, err)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Error("websocket upgrade failed",
			slog.String("evaluation_id", evalID.String()),
			slog.String("error", err.Error()),
		)
		return
	}

	events := h.Hub.Subscribe(evalID.String())
	defer h.Hub.Unsubscribe(evalID.String(), events)

	// Send the current snapshot immediately so the dashboard isn't blank
	// until the next submission arrives.
	if snapshot, err := h.Responses.Progress(r.Context(), evalID); err == nil {
		ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := ws.WriteJSON(snapshot); err != nil {
			ws.Close()
			return
		}
	}

	go h.readPump(ws, evalID.String())
	h.writePump(ws, events, evalID.String())
}

// writePump streams hub events to the browser and keeps the connection alive
// with periodic pings.
func (h *ProgressHandler) writePump(ws *websocket.Conn, events <-chan telemetry.ProgressEvent, evalID string) {
	defer ws.Close()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stream closed"))
				return
			}
			if err := ws.WriteJSON(event); err != nil {
				h.Logger.Warn("progress write failed",
					slog.String("evaluation_id", evalID),
					slog.String("error", err.Error()),
				)
				return
			}

		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains control messages so disconnects are detected.
func (h *ProgressHandler) readPump(ws *websocket.Conn, evalID string) {
	defer ws.Close()

	ws.SetReadLimit(maxMessageSize)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.Logger.Warn("websocket closed unexpectedly",
					slog.String("evaluation_id", evalID),
					slog.String("error", err.Error()),
				)
			}
			return
		}
	}
}
