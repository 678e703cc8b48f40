package signal

import (
	"sync"
	"time"

	"github.com/dkeye/meetrelay/internal/core"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WsSignalConn is one signaling WebSocket. Writes happen only in the write pump;
// TrySend hands frames to it through a bounded queue.
type WsSignalConn struct {
	id    core.ConnID
	token string
	conn  *websocket.Conn
	send  chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newWsSignalConn(ws *websocket.Conn, token string, buffer int) *WsSignalConn {
	return &WsSignalConn{
		id:    core.ConnID(uuid.NewString()),
		token: token,
		conn:  ws,
		send:  make(chan core.Frame, buffer),
	}
}

func (c *WsSignalConn) ID() core.ConnID { return c.id }

// Token is the transport-level client identity the connection was opened with.
func (c *WsSignalConn) Token() string { return c.token }

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// Abort sends a policy-violation close frame before closing.
func (c *WsSignalConn) Abort(reason string) {
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("abort close frame")
	}
	c.Close()
}
