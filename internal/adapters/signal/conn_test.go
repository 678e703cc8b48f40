package signal

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/meetrelay/internal/core"
)

// pair returns a server-side WsSignalConn and the client socket it talks to.
func pair(t *testing.T, buffer int) (*WsSignalConn, *websocket.Conn) {
	t.Helper()
	conns := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- ws
	}))
	t.Cleanup(srv.Close)

	client, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = client.Close() })

	select {
	case ws := <-conns:
		return newWsSignalConn(ws, "token", buffer), client
	case <-time.After(2 * time.Second):
		t.Fatal("server side never upgraded")
		return nil, nil
	}
}

func TestTrySendBackpressure(t *testing.T) {
	c, _ := pair(t, 2)

	require.NoError(t, c.TrySend(core.Frame("a")))
	require.NoError(t, c.TrySend(core.Frame("b")))
	assert.ErrorIs(t, c.TrySend(core.Frame("c")), core.ErrBackpressure)
}

func TestTrySendAfterClose(t *testing.T) {
	c, _ := pair(t, 2)
	assert.NotEmpty(t, c.ID())
	assert.Equal(t, "token", c.Token())

	c.Close()
	c.Close()
	assert.ErrorIs(t, c.TrySend(core.Frame("a")), core.ErrConnClosed)
}

func TestAbortSendsPolicyViolation(t *testing.T) {
	c, client := pair(t, 2)

	c.Abort("protocol violation")

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := client.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "got %v", err)
	assert.ErrorIs(t, c.TrySend(core.Frame("a")), core.ErrConnClosed)
}
