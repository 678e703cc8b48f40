package app

import (
	"cmp"
	"slices"
	"sync"

	"github.com/dkeye/meetrelay/internal/core"
	"github.com/dkeye/meetrelay/internal/domain"
	"github.com/dkeye/meetrelay/internal/metric"
	"github.com/rs/zerolog/log"
)

type member struct {
	conn core.SignalConnection
	pid  domain.ParticipantID
}

// Departure describes a connection moved out of its previous room by a join.
type Departure struct {
	Room        domain.RoomID
	Participant domain.ParticipantID
}

// JoinResult is what Directory.Join observed while adding a member.
type JoinResult struct {
	// Present lists the participants already in the room, excluding the joiner's id.
	Present []domain.ParticipantID
	// Moved is set when the connection was evicted from another room.
	Moved *Departure
	// Renamed is set when the connection was already in the room under another id.
	Renamed *Departure
	// Refreshed is true when the connection was already in the room under the same id.
	Refreshed bool
}

// Directory tracks which connections are present in which room.
// A connection is in at most one room. Empty rooms are removed immediately.
// Moving a connection touches two rooms, so both maps share one lock.
type Directory struct {
	mu     sync.RWMutex
	rooms  map[domain.RoomID]map[core.ConnID]member
	roomOf map[core.ConnID]domain.RoomID
}

func NewDirectory() *Directory {
	return &Directory{
		rooms:  make(map[domain.RoomID]map[core.ConnID]member),
		roomOf: make(map[core.ConnID]domain.RoomID),
	}
}

// Join adds conn to room, evicting it from any other room first.
// Joining the same room again only replaces the participant id.
func (d *Directory) Join(room domain.RoomID, conn core.SignalConnection, pid domain.ParticipantID) JoinResult {
	d.mu.Lock()
	defer d.mu.Unlock()

	var res JoinResult
	if prev, ok := d.roomOf[conn.ID()]; ok && prev != room {
		if old, ok := d.removeLocked(prev, conn.ID()); ok {
			res.Moved = &Departure{Room: prev, Participant: old}
			log.Info().Str("module", "app.directory").Str("conn", string(conn.ID())).Str("from_room", string(prev)).Str("room", string(room)).Msg("moved between rooms")
		}
	}

	members, ok := d.rooms[room]
	if !ok {
		members = make(map[core.ConnID]member)
		d.rooms[room] = members
		log.Info().Str("module", "app.directory").Str("room", string(room)).Msg("room created")
	}
	if cur, ok := members[conn.ID()]; ok {
		if cur.pid == pid {
			res.Refreshed = true
		} else {
			res.Renamed = &Departure{Room: room, Participant: cur.pid}
		}
	}
	for id, m := range members {
		if id != conn.ID() && m.pid != pid {
			res.Present = append(res.Present, m.pid)
		}
	}
	members[conn.ID()] = member{conn: conn, pid: pid}
	d.roomOf[conn.ID()] = room
	metric.SetRoomsActive(len(d.rooms))

	log.Info().Str("module", "app.directory").Str("room", string(room)).Str("conn", string(conn.ID())).Str("user", string(pid)).Int("members", len(members)).Msg("member added")
	return res
}

// Leave removes conn from room and returns the participant it was present as.
func (d *Directory) Leave(room domain.RoomID, id core.ConnID) (domain.ParticipantID, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.removeLocked(room, id)
}

func (d *Directory) removeLocked(room domain.RoomID, id core.ConnID) (domain.ParticipantID, bool) {
	members, ok := d.rooms[room]
	if !ok {
		return "", false
	}
	m, ok := members[id]
	if !ok {
		return "", false
	}
	delete(members, id)
	delete(d.roomOf, id)
	if len(members) == 0 {
		delete(d.rooms, room)
		log.Info().Str("module", "app.directory").Str("room", string(room)).Msg("room removed")
	}
	metric.SetRoomsActive(len(d.rooms))
	log.Info().Str("module", "app.directory").Str("room", string(room)).Str("conn", string(id)).Str("user", string(m.pid)).Msg("member removed")
	return m.pid, true
}

// Evict removes conn from whatever room it is in.
func (d *Directory) Evict(id core.ConnID) (Departure, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	room, ok := d.roomOf[id]
	if !ok {
		return Departure{}, false
	}
	pid, ok := d.removeLocked(room, id)
	if !ok {
		return Departure{}, false
	}
	return Departure{Room: room, Participant: pid}, true
}

// RoomOf returns the room conn is currently present in.
func (d *Directory) RoomOf(id core.ConnID) (domain.RoomID, domain.ParticipantID, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	room, ok := d.roomOf[id]
	if !ok {
		return "", "", false
	}
	return room, d.rooms[room][id].pid, true
}

// Targets snapshots every connection in room except exclude.
func (d *Directory) Targets(room domain.RoomID, exclude core.ConnID) []core.SignalConnection {
	d.mu.RLock()
	defer d.mu.RUnlock()
	members := d.rooms[room]
	out := make([]core.SignalConnection, 0, len(members))
	for id, m := range members {
		if id == exclude {
			continue
		}
		out = append(out, m.conn)
	}
	return out
}

func (d *Directory) MemberCount(room domain.RoomID) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms[room])
}

func (d *Directory) Members(room domain.RoomID) []core.MemberDTO {
	d.mu.RLock()
	defer d.mu.RUnlock()
	members := d.rooms[room]
	out := make([]core.MemberDTO, 0, len(members))
	for id, m := range members {
		out = append(out, core.MemberDTO{Conn: id, UserID: m.pid})
	}
	slices.SortFunc(out, func(a, b core.MemberDTO) int { return cmp.Compare(a.Conn, b.Conn) })
	return out
}

func (d *Directory) List() []core.RoomInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(d.rooms))
	for id, members := range d.rooms {
		out = append(out, core.RoomInfo{ID: id, MemberCount: len(members)})
	}
	slices.SortFunc(out, func(a, b core.RoomInfo) int { return cmp.Compare(a.ID, b.ID) })
	return out
}
