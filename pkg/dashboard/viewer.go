package dashboard

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/snapwyr/snapwyr-go/pkg/event"
)

// pushMessage is the wire shape for the request and clear frames, and for
// commands read back from viewers.
type pushMessage struct {
	Type string       `json:"type"`
	Data *event.Entry `json:"data,omitempty"`
}

// initMessage is the connect-time snapshot frame. The requests field is
// always present, as an empty array when nothing is buffered yet.
type initMessage struct {
	Type     string        `json:"type"`
	Requests []event.Entry `json:"requests"`
}

// viewerSendBuffer bounds the per-viewer outbound queue; a viewer that
// falls further behind than this starts losing messages rather than
// blocking the append path.
const viewerSendBuffer = 64

type viewer struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
}

func (v *viewer) close() {
	v.closeOnce.Do(func() {
		close(v.send)
		_ = v.conn.Close()
	})
}

// enqueue hands a frame to the viewer's writer without ever blocking the
// caller. Reports false when the frame was dropped.
func (v *viewer) enqueue(frame []byte) (ok bool) {
	defer func() {
		// send channel may close concurrently with a broadcast
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case v.send <- frame:
		return true
	default:
		return false
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	v := &viewer{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan []byte, viewerSendBuffer),
	}

	// Snapshot, init enqueue and registration happen under one lock so an
	// entry pushed around connect time reaches the viewer exactly once,
	// through either the snapshot or a later broadcast.
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		v.close()
		return
	}
	init, err := json.Marshal(initMessage{Type: "init", Requests: s.store.Snapshot()})
	if err == nil {
		v.enqueue(init)
	}
	s.viewers[v.id] = v
	s.mu.Unlock()

	go s.writeLoop(v)
	go s.readLoop(v)
}

func (s *Server) writeLoop(v *viewer) {
	for frame := range v.send {
		if err := v.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			s.remove(v)
			return
		}
	}
}

// readLoop watches for viewer commands and doubles as disconnect
// detection: a read error means the peer is gone.
func (s *Server) readLoop(v *viewer) {
	defer s.remove(v)
	for {
		_, data, err := v.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg pushMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == "clear" {
			s.Clear()
		}
	}
}

func (s *Server) remove(v *viewer) {
	s.mu.Lock()
	_, present := s.viewers[v.id]
	delete(s.viewers, v.id)
	s.mu.Unlock()

	v.close()
	if present {
		s.log.Debug("viewer disconnected", zap.String("viewer", v.id))
	}
}

// viewersLocked copies the current viewer set. Caller holds s.mu; taking
// the copy in the same critical section as the buffer mutation keeps the
// delivered stream consistent with the connect-time snapshot.
func (s *Server) viewersLocked() []*viewer {
	viewers := make([]*viewer, 0, len(s.viewers))
	for _, v := range s.viewers {
		viewers = append(viewers, v)
	}
	return viewers
}

// deliver sends a message to the given viewers, best effort. A slow viewer
// loses the frame; it recovers state on reconnect via init.
func (s *Server) deliver(viewers []*viewer, msg pushMessage) {
	frame, err := json.Marshal(msg)
	if err != nil {
		return
	}
	for _, v := range viewers {
		if !v.enqueue(frame) && s.dropWarn.Allow() {
			s.log.Warn("dropping frame for slow viewer", zap.String("viewer", v.id))
		}
	}
}
