package app

import (
	"sync"

	"github.com/dkeye/meetrelay/internal/core"
	"github.com/dkeye/meetrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

// Registry binds participant ids to their live connection.
// At most one connection is bound per participant; a connection is bound to at most one participant.
type Registry struct {
	mu            sync.RWMutex
	byParticipant map[domain.ParticipantID]core.SignalConnection
	byConn        map[core.ConnID]domain.ParticipantID
}

func NewRegistry() *Registry {
	return &Registry{
		byParticipant: make(map[domain.ParticipantID]core.SignalConnection),
		byConn:        make(map[core.ConnID]domain.ParticipantID),
	}
}

// Register binds conn to pid and returns the connection it superseded, if any.
func (r *Registry) Register(pid domain.ParticipantID, conn core.SignalConnection) (core.SignalConnection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// conn may have been bound under another id before.
	if old, ok := r.byConn[conn.ID()]; ok && old != pid {
		if cur, ok := r.byParticipant[old]; ok && cur.ID() == conn.ID() {
			delete(r.byParticipant, old)
		}
	}

	prev, hadPrev := r.byParticipant[pid]
	if hadPrev && prev.ID() != conn.ID() {
		delete(r.byConn, prev.ID())
	} else {
		prev, hadPrev = nil, false
	}

	r.byParticipant[pid] = conn
	r.byConn[conn.ID()] = pid
	log.Info().Str("module", "app.registry").Str("user", string(pid)).Str("conn", string(conn.ID())).Bool("takeover", hadPrev).Msg("registered")
	return prev, hadPrev
}

func (r *Registry) Lookup(pid domain.ParticipantID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.byParticipant[pid]
	return conn, ok
}

// ParticipantOf returns the id conn is currently bound to.
func (r *Registry) ParticipantOf(id core.ConnID) (domain.ParticipantID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pid, ok := r.byConn[id]
	return pid, ok
}

// UnregisterByConnection removes the binding held by conn. Calling it again is a no-op.
func (r *Registry) UnregisterByConnection(id core.ConnID) (domain.ParticipantID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pid, ok := r.byConn[id]
	if !ok {
		return "", false
	}
	delete(r.byConn, id)
	if cur, ok := r.byParticipant[pid]; ok && cur.ID() == id {
		delete(r.byParticipant, pid)
	}
	log.Info().Str("module", "app.registry").Str("user", string(pid)).Str("conn", string(id)).Msg("unregistered")
	return pid, true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byParticipant)
}
