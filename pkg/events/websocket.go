package events

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WebSocket accepts emotion names from websocket clients. Mount it on an HTTP
// server and run it as a Source.
type WebSocket struct {
	upgrader websocket.Upgrader
	incoming chan string
	log      zerolog.Logger
}

func NewWebSocket(log zerolog.Logger) *WebSocket {
	return &WebSocket{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		incoming: make(chan string, 16),
		log:      log,
	}
}

type wsReply struct {
	Emotion string `json:"emotion,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (w *WebSocket) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	conn, err := w.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		w.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	log := w.log.With().Str("remote", r.RemoteAddr).Logger()
	log.Info().Msg("WebSocket client connected")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("WebSocket read failed")
			}
			return
		}

		emotion, err := ParseEmotion(string(data))
		if err != nil {
			if err := conn.WriteJSON(wsReply{Error: err.Error()}); err != nil {
				return
			}
			continue
		}

		select {
		case w.incoming <- emotion:
		case <-r.Context().Done():
			return
		}
		if err := conn.WriteJSON(wsReply{Emotion: emotion}); err != nil {
			return
		}
	}
}

func (w *WebSocket) Run(ctx context.Context, emit func(string)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case emotion := <-w.incoming:
			emit(emotion)
		}
	}
}
