package app

import (
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/meetrelay/internal/core"
	"github.com/dkeye/meetrelay/internal/domain"
)

type fakeConn struct {
	id core.ConnID

	mu     sync.Mutex
	frames []core.Frame
	fail   error
	closed int
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: core.ConnID(id)}
}

func (c *fakeConn) ID() core.ConnID { return c.id }

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
}

func (c *fakeConn) setFail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail = err
}

func (c *fakeConn) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type wireEvent struct {
	Type domain.EventKind `json:"type"`
	Data json.RawMessage  `json:"data"`
}

func (c *fakeConn) events(t *testing.T) []wireEvent {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]wireEvent, 0, len(c.frames))
	for _, f := range c.frames {
		var ev wireEvent
		require.NoError(t, json.Unmarshal(f, &ev))
		out = append(out, ev)
	}
	return out
}

func (c *fakeConn) eventsOf(t *testing.T, kind domain.EventKind) []wireEvent {
	t.Helper()
	var out []wireEvent
	for _, ev := range c.events(t) {
		if ev.Type == kind {
			out = append(out, ev)
		}
	}
	return out
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}

func decodeData[T any](t *testing.T, ev wireEvent) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(ev.Data, &v))
	return v
}

type harness struct {
	reg   *Registry
	rooms *Directory
	rt    *Router
	lc    *Lifecycle
}

func newHarness(policy Policy) *harness {
	reg := NewRegistry()
	rooms := NewDirectory()
	rt := NewRouter(reg, rooms, policy)
	return &harness{reg: reg, rooms: rooms, rt: rt, lc: NewLifecycle(rt)}
}

func (h *harness) connect(id string) *fakeConn {
	c := newFakeConn(id)
	h.lc.OnConnect(c)
	return c
}

func msg(kind, room, user string) *domain.Message {
	return &domain.Message{Type: kind, MeetingID: domain.RoomID(room), UserID: domain.ParticipantID(user)}
}

func (h *harness) join(t *testing.T, c *fakeConn, room, user string) {
	t.Helper()
	require.NoError(t, h.lc.Handle(c, msg("join", room, user)))
}
