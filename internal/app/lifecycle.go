package app

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dkeye/meetrelay/internal/core"
	"github.com/dkeye/meetrelay/internal/domain"
	"github.com/dkeye/meetrelay/internal/metric"
	"github.com/rs/zerolog/log"
)

// ConnState is the per-connection lifecycle state.
type ConnState int

const (
	StateOpen ConnState = iota
	StateJoined
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateJoined:
		return "joined"
	default:
		return "closed"
	}
}

type tracked struct {
	conn  core.SignalConnection
	state ConnState
}

// Lifecycle reacts to transport connect and disconnect and feeds messages to the Router.
// A connection absent from conns is Closed.
type Lifecycle struct {
	Router *Router

	mu    sync.Mutex
	conns map[core.ConnID]*tracked
}

func NewLifecycle(router *Router) *Lifecycle {
	return &Lifecycle{
		Router: router,
		conns:  make(map[core.ConnID]*tracked),
	}
}

// OnConnect registers a freshly opened connection in state Open.
func (l *Lifecycle) OnConnect(conn core.SignalConnection) {
	l.mu.Lock()
	l.conns[conn.ID()] = &tracked{conn: conn, state: StateOpen}
	l.mu.Unlock()
	metric.IncrementWSActiveConnections()
	log.Info().Str("module", "app.lifecycle").Str("conn", string(conn.ID())).Msg("connection open")
}

// Handle routes one message from conn. A protocol violation closes conn and
// runs cleanup before returning.
func (l *Lifecycle) Handle(conn core.SignalConnection, msg *domain.Message) error {
	if _, ok := l.State(conn.ID()); !ok {
		return fmt.Errorf("conn %s: %w", conn.ID(), domain.ErrConnectionClosed)
	}

	err := l.Router.Route(conn, msg)
	if errors.Is(err, domain.ErrProtocolViolation) {
		pid, _ := l.Router.Registry.ParticipantOf(conn.ID())
		log.Warn().Err(err).Str("module", "app.lifecycle").Str("conn", string(conn.ID())).Str("user", string(pid)).Msg("aborting connection")
		if a, ok := conn.(core.Aborter); ok {
			a.Abort(domain.ErrProtocolViolation.Error())
		} else {
			conn.Close()
		}
		l.OnDisconnect(conn.ID())
		return err
	}

	room, _, joined := l.Router.Rooms.RoomOf(conn.ID())
	next := StateOpen
	if joined {
		next = StateJoined
	}

	l.mu.Lock()
	t, ok := l.conns[conn.ID()]
	if ok && t.state != next {
		log.Info().Str("module", "app.lifecycle").Str("conn", string(conn.ID())).Str("room", string(room)).Str("from", t.state.String()).Str("to", next.String()).Msg("state change")
		t.state = next
	}
	l.mu.Unlock()

	if !ok {
		// Closed while this message was in flight; undo anything it re-added.
		l.purge(conn.ID())
		return fmt.Errorf("conn %s: %w", conn.ID(), domain.ErrConnectionClosed)
	}
	return err
}

// OnDisconnect moves conn to Closed. Only the first call performs cleanup.
func (l *Lifecycle) OnDisconnect(id core.ConnID) bool {
	l.mu.Lock()
	_, ok := l.conns[id]
	delete(l.conns, id)
	l.mu.Unlock()
	if !ok {
		return false
	}

	metric.DecrementWSActiveConnections()
	l.purge(id)
	log.Info().Str("module", "app.lifecycle").Str("conn", string(id)).Msg("connection closed")
	return true
}

// purge removes every trace of id from both registries and notifies the room it left.
// Safe to call repeatedly.
func (l *Lifecycle) purge(id core.ConnID) {
	l.Router.Registry.UnregisterByConnection(id)

	room, _, ok := l.Router.Rooms.RoomOf(id)
	if !ok {
		return
	}
	if pid, ok := l.Router.Rooms.Leave(room, id); ok {
		l.Router.Broadcast(room, "", domain.UserLeft(pid))
	}
}

// State reports the lifecycle state of id; ok is false once it is Closed.
func (l *Lifecycle) State(id core.ConnID) (ConnState, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.conns[id]
	if !ok {
		return StateClosed, false
	}
	return t.state, true
}

func (l *Lifecycle) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.conns)
}

// CloseAll closes every open transport. Cleanup follows through each
// connection's own disconnect path.
func (l *Lifecycle) CloseAll() {
	l.mu.Lock()
	conns := make([]core.SignalConnection, 0, len(l.conns))
	for _, t := range l.conns {
		conns = append(conns, t.conn)
	}
	l.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
	log.Info().Str("module", "app.lifecycle").Int("count", len(conns)).Msg("closed all connections")
}
