package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"condash/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for localhost usage
	},
}

// writeWait bounds one websocket write before the stream is dropped.
const writeWait = 10 * time.Second

// LogStreamer handles WebSocket connections for journal streaming
type LogStreamer struct {
	services ServiceManager
}

// NewLogStreamer creates a new log streamer
func NewLogStreamer(services ServiceManager) *LogStreamer {
	return &LogStreamer{services: services}
}

// HandleLogStream upgrades the connection and relays journal lines for
// one unit until the client disconnects or journalctl exits. The lines
// query parameter selects how much history the stream starts with.
func (ls *LogStreamer) HandleLogStream(w http.ResponseWriter, r *http.Request, scope, name string) {
	spec := models.ServiceSpec{Scope: models.Scope(scope), Name: name}
	if !spec.Scope.Valid() {
		errorResponse(w, http.StatusBadRequest, "invalid scope")
		return
	}
	lines, _ := strconv.Atoi(r.URL.Query().Get("lines"))

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Str("unit", name).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	log.Debug().Str("unit", name).Str("scope", scope).Msg("websocket connected")

	// Cancel streaming when the client goes away
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	logCh, err := ls.services.StreamLogs(ctx, spec, lines)
	if err != nil {
		log.Error().Err(err).Str("unit", name).Msg("failed to start log stream")
		conn.WriteMessage(websocket.TextMessage, []byte("Error: "+err.Error()))
		return
	}

	conn.WriteMessage(websocket.TextMessage, []byte("--- Streaming journal for "+name+" ---"))

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-logCh:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
				log.Debug().Err(err).Str("unit", name).Msg("websocket write failed")
				return
			}
		}
	}
}
