package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"driftguard/server/internal/net/proto"
)

const writeWait = 10 * time.Second

// sessionConn serializes writes to one websocket connection. Reads stay on
// the handler goroutine; writes may come from multiple places.
type sessionConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newSessionConn(conn *websocket.Conn) *sessionConn {
	return &sessionConn{conn: conn}
}

func (s *sessionConn) writeJSON(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *sessionConn) reject(reason string) {
	s.writeJSON(proto.RejectMessage{
		Ver:    proto.ProtocolVersion,
		Type:   proto.TypeReject,
		Reason: reason,
	})
}
