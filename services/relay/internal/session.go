package internal

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/forge-ai/promptforge/shared/events"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 1 << 20
	sendBuffer     = 16
)

// keepalive is the ping/pong schedule of a session. pingPeriod must be
// shorter than pongWait.
type keepalive struct {
	pongWait   time.Duration
	pingPeriod time.Duration
}

var defaultKeepalive = keepalive{pongWait: 60 * time.Second, pingPeriod: 30 * time.Second}

var upgrader = websocket.Upgrader{
	CheckOrigin:    func(r *http.Request) bool { return true },
	ReadBufferSize: 4096, WriteBufferSize: 4096,
}

// session is one websocket connection: Open while both pumps run, Closed
// once either side fails. Closed is terminal.
type session struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	ka   keepalive

	done      chan struct{}
	closeOnce sync.Once
}

var _ Replier = (*session)(nil)

func newSession(conn *websocket.Conn, ka keepalive) *session {
	if ka.pongWait <= 0 || ka.pingPeriod <= 0 {
		ka = defaultKeepalive
	}
	return &session{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
		ka:   ka,
		done: make(chan struct{}),
	}
}

// Deliver hands a reply to the write pump. It never blocks past the
// session closing.
func (s *session) Deliver(resp events.GenerationResponse) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	b, err := json.Marshal(resp)
	if err != nil {
		log.Error().Err(err).Str("conn", s.id).Msg("encode reply")
		return false
	}
	return s.enqueue(b)
}

// enqueue reports true only if the session is still open once msg is
// buffered. The select may pick the send after close, so done is checked
// again.
func (s *session) enqueue(msg []byte) bool {
	select {
	case s.send <- msg:
	case <-s.done:
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

func (s *session) writePump() {
	ticker := time.NewTicker(s.ka.pingPeriod)
	defer func() {
		ticker.Stop()
		s.close()
	}()
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump decodes inbound requests and submits them in arrival order.
// Malformed messages are dropped; they never close the connection.
func (s *session) readPump(ctx context.Context, relay *Relay, m *Metrics) {
	defer s.close()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(s.ka.pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(s.ka.pongWait))
		return nil
	})

	for {
		kind, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("conn", s.id).Msg("connection lost")
			}
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(s.ka.pongWait))

		var req events.GenerationRequest
		if kind != websocket.TextMessage || json.Unmarshal(msg, &req) != nil {
			m.Malformed.Inc()
			log.Warn().Str("conn", s.id).Int("bytes", len(msg)).Msg("malformed request dropped")
			continue
		}

		// Pongs are only seen inside ReadMessage, so no deadline runs while
		// Submit waits for queue space.
		s.conn.SetReadDeadline(time.Time{})
		err = relay.Submit(ctx, req, s)
		if err != nil && ctx.Err() != nil {
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(s.ka.pongWait))
	}
}
