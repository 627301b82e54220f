package http

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/quizdrill/quizdrill/internal/domain"
)

// LiveHandler pushes completed session records to connected parent
// dashboards over a websocket. It implements app.ResultSink.
type LiveHandler struct {
	upgrader websocket.Upgrader
	log      *zap.Logger

	mu          sync.Mutex
	subscribers map[chan domain.CompletedSession]struct{}
}

func NewLiveHandler(log *zap.Logger) *LiveHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &LiveHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log:         log,
		subscribers: make(map[chan domain.CompletedSession]struct{}),
	}
}

// Publish fans a record out to every subscriber. Slow consumers get their
// oldest pending update dropped rather than blocking the scoring path.
func (l *LiveHandler) Publish(rec domain.CompletedSession) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ch := range l.subscribers {
		select {
		case ch <- rec:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- rec
		}
	}
}

func (l *LiveHandler) subscribe() (chan domain.CompletedSession, func()) {
	ch := make(chan domain.CompletedSession, 8)
	l.mu.Lock()
	l.subscribers[ch] = struct{}{}
	l.mu.Unlock()

	cancel := func() {
		l.mu.Lock()
		if _, ok := l.subscribers[ch]; ok {
			delete(l.subscribers, ch)
			close(ch)
		}
		l.mu.Unlock()
	}
	return ch, cancel
}

type liveEvent struct {
	Type    string                  `json:"type"`
	Payload domain.CompletedSession `json:"payload"`
}

// ServeWS upgrades the request and streams sessionCompleted events until
// the client goes away.
func (l *LiveHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	updates, cancel := l.subscribe()
	defer cancel()

	// Reader goroutine: its only job is to notice the peer closing.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case rec, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(liveEvent{Type: "sessionCompleted", Payload: rec}); err != nil {
				l.log.Debug("ws write error", zap.Error(err))
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
