package broadcast

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"fraud-detector/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	greetingType    = "connected"
	greetingMessage = "Connected to fraud alert stream"
	closeGrace      = time.Second
)

// WebsocketHub upgrades observer connections and registers them with the
// fan-out. Observers only receive; anything they send is discarded.
type WebsocketHub struct {
	fanout   *FanOut
	upgrader websocket.Upgrader
	log      *slog.Logger
}

func NewWebsocketHub(fanout *FanOut, log *slog.Logger) *WebsocketHub {
	return &WebsocketHub{
		fanout: fanout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

func (h *WebsocketHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	sub := newWebsocketSubscriber(conn)
	if err := sub.writeJSON(context.Background(), models.ObserverGreeting{Type: greetingType, Message: greetingMessage}); err != nil {
		h.log.Warn("failed to greet observer", slog.String("error", err.Error()))
		_ = sub.Close()
		return
	}

	h.fanout.Subscribe(sub)

	// The read loop only detects disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.fanout.Unsubscribe(sub.ID())
			return
		}
	}
}

type websocketSubscriber struct {
	id        string
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
}

func newWebsocketSubscriber(conn *websocket.Conn) *websocketSubscriber {
	return &websocketSubscriber{id: "ws-" + uuid.NewString(), conn: conn}
}

func (s *websocketSubscriber) ID() string { return s.id }

func (s *websocketSubscriber) Deliver(ctx context.Context, payload models.AlertPayload) error {
	return s.writeJSON(ctx, payload)
}

func (s *websocketSubscriber) writeJSON(ctx context.Context, v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(closeGrace * 5)
	}
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return s.conn.WriteJSON(v)
}

func (s *websocketSubscriber) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeGrace),
		)
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}
