package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/wonny/swingscreener/internal/contracts"
	"github.com/wonny/swingscreener/pkg/logger"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StreamMessage is one frame of the progress stream
type StreamMessage struct {
	Type     string              `json:"type"` // progress | finished
	Progress *contracts.Progress `json:"progress,omitempty"`
	Run      *RunView            `json:"run,omitempty"`
}

// StreamHandler pushes scan progress over websocket
type StreamHandler struct {
	registry *Registry
	logger   *logger.Logger
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(registry *Registry, log *logger.Logger) *StreamHandler {
	return &StreamHandler{registry: registry, logger: log}
}

// StreamProgress sends a progress frame per batch, then a finished frame
// carrying the final run view, then closes.
// GET /ws/scans/{id}
func (h *StreamHandler) StreamProgress(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	// Subscribe before the handshake so no batch after it is missed
	events, unsubscribe, err := h.registry.Subscribe(id)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	defer unsubscribe()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	log := h.logger.WithRun(id)
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			log.Debug("Progress stream closed by client")
			return

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.WithError(err).Debug("Failed to send ping")
				return
			}

		case p, ok := <-events:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if ok {
				if err := conn.WriteJSON(StreamMessage{Type: "progress", Progress: &p}); err != nil {
					log.WithError(err).Debug("Failed to write progress")
					return
				}
				continue
			}

			view, err := h.registry.Get(id)
			if err == nil {
				view.Result = nil
				conn.WriteJSON(StreamMessage{Type: "finished", Run: &view})
			}
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "scan finished"),
				time.Now().Add(writeWait))
			return
		}
	}
}
