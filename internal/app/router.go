package app

import (
	"fmt"
	"strings"

	"github.com/dkeye/meetrelay/internal/core"
	"github.com/dkeye/meetrelay/internal/domain"
	"github.com/dkeye/meetrelay/internal/metric"
	"github.com/rs/zerolog/log"
)

// Router classifies inbound messages and dispatches them.
// It never waits for delivery: every send is a non-blocking TrySend.
type Router struct {
	Registry *Registry
	Rooms    *Directory
	Policy   Policy
}

func NewRouter(reg *Registry, rooms *Directory, policy Policy) *Router {
	if policy == nil {
		policy = LogOnlyPolicy{}
	}
	return &Router{Registry: reg, Rooms: rooms, Policy: policy}
}

// Route handles msg received on src. It returns domain.ErrProtocolViolation
// when src must be closed, a wrapped validation error when the operation failed,
// and nil for everything else, including silently dropped messages.
func (rt *Router) Route(src core.SignalConnection, msg *domain.Message) error {
	if msg == nil || strings.TrimSpace(msg.Type) == "" {
		metric.RecordProtocolViolation()
		return fmt.Errorf("conn %s: %w", src.ID(), domain.ErrProtocolViolation)
	}

	kind := msg.Kind()
	metric.RecordMessage(kind.String())
	log.Debug().Str("module", "app.router").Str("conn", string(src.ID())).Str("kind", msg.Type).Str("room", string(msg.MeetingID)).Str("user", string(msg.UserID)).Msg("route")

	switch kind {
	case domain.KindJoin:
		return rt.join(src, msg)
	case domain.KindOffer, domain.KindAnswer, domain.KindICECandidate:
		rt.relay(kind, msg)
	case domain.KindMediaUpdate:
		rt.mediaUpdate(src, msg)
	case domain.KindLeave:
		rt.leave(src, msg)
	default:
		log.Warn().Str("module", "app.router").Str("conn", string(src.ID())).Str("kind", msg.Type).Msg("unhandled message type")
	}
	return nil
}

func (rt *Router) join(src core.SignalConnection, msg *domain.Message) error {
	if msg.UserID == "" {
		return fmt.Errorf("join: %w", domain.ErrMissingParticipant)
	}
	if msg.MeetingID == "" {
		return fmt.Errorf("join: %w", domain.ErrMissingRoom)
	}

	if prev, ok := rt.Registry.Register(msg.UserID, src); ok {
		log.Warn().Str("module", "app.router").Str("user", string(msg.UserID)).Str("conn", string(src.ID())).Str("superseded", string(prev.ID())).Msg("participant rebound to new connection")
		rt.takeover(prev, msg.MeetingID)
	}

	res := rt.Rooms.Join(msg.MeetingID, src, msg.UserID)
	if res.Moved != nil {
		rt.Broadcast(res.Moved.Room, "", domain.UserLeft(res.Moved.Participant))
	}
	if res.Renamed != nil {
		rt.Broadcast(msg.MeetingID, src.ID(), domain.UserLeft(res.Renamed.Participant))
	}

	if !res.Refreshed {
		rt.Broadcast(msg.MeetingID, src.ID(), domain.UserJoined(msg.UserID))
	}
	rt.Deliver(src, domain.RoomParticipants(msg.MeetingID, res.Present))
	return nil
}

// takeover evicts a superseded connection from its room. The participant stays
// present when the new connection joins the same room, so peers hear nothing.
func (rt *Router) takeover(prev core.SignalConnection, room domain.RoomID) {
	dep, ok := rt.Rooms.Evict(prev.ID())
	if !ok {
		return
	}
	log.Info().Str("module", "app.router").Str("conn", string(prev.ID())).Str("room", string(dep.Room)).Str("user", string(dep.Participant)).Msg("superseded connection evicted")
	if dep.Room != room {
		rt.Broadcast(dep.Room, "", domain.UserLeft(dep.Participant))
	}
}

func (rt *Router) relay(kind domain.Kind, msg *domain.Message) {
	if msg.ToUserID == "" {
		log.Debug().Str("module", "app.router").Str("kind", kind.String()).Str("user", string(msg.UserID)).Msg("signal without target dropped")
		return
	}
	target, ok := rt.Registry.Lookup(msg.ToUserID)
	if !ok {
		log.Warn().Str("module", "app.router").Str("kind", kind.String()).Str("user", string(msg.UserID)).Str("target", string(msg.ToUserID)).Msg("recipient not found")
		return
	}
	rt.Deliver(target, domain.Signal(kind, msg.UserID, msg.MeetingID, msg.Payload))
}

func (rt *Router) mediaUpdate(src core.SignalConnection, msg *domain.Message) {
	if msg.MeetingID == "" {
		return
	}
	st, err := msg.MediaState()
	if err != nil {
		log.Warn().Err(err).Str("module", "app.router").Str("conn", string(src.ID())).Str("room", string(msg.MeetingID)).Msg("bad media-update payload")
		return
	}
	rt.Broadcast(msg.MeetingID, src.ID(), domain.MediaChanged(msg.UserID, st))
}

func (rt *Router) leave(src core.SignalConnection, msg *domain.Message) {
	if msg.MeetingID == "" {
		return
	}
	pid, ok := rt.Rooms.Leave(msg.MeetingID, src.ID())
	if !ok {
		log.Debug().Str("module", "app.router").Str("conn", string(src.ID())).Str("room", string(msg.MeetingID)).Msg("leave for a room the connection is not in")
		return
	}
	rt.Registry.UnregisterByConnection(src.ID())
	rt.Broadcast(msg.MeetingID, "", domain.UserLeft(pid))
}

// Broadcast fans ev out to every member of room except exclude.
// A failing recipient never stops delivery to the others.
func (rt *Router) Broadcast(room domain.RoomID, exclude core.ConnID, ev domain.Event) core.PublishResult {
	var res core.PublishResult
	targets := rt.Rooms.Targets(room, exclude)
	if len(targets) == 0 {
		return res
	}
	frame, err := ev.Encode()
	if err != nil {
		log.Error().Err(err).Str("module", "app.router").Str("event", string(ev.Type)).Msg("encode event")
		return res
	}
	for _, conn := range targets {
		if rt.send(conn, ev.Type, frame) {
			res.SentTo++
			continue
		}
		res.Dropped = append(res.Dropped, conn)
	}
	log.Debug().Str("module", "app.router").Str("room", string(room)).Str("event", string(ev.Type)).Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

// Deliver sends ev to a single connection.
func (rt *Router) Deliver(conn core.SignalConnection, ev domain.Event) bool {
	frame, err := ev.Encode()
	if err != nil {
		log.Error().Err(err).Str("module", "app.router").Str("event", string(ev.Type)).Msg("encode event")
		return false
	}
	return rt.send(conn, ev.Type, frame)
}

func (rt *Router) send(conn core.SignalConnection, event domain.EventKind, frame core.Frame) bool {
	err := conn.TrySend(frame)
	if err == nil {
		return true
	}
	metric.RecordDeliveryFailure(string(event))
	log.Warn().Err(err).Str("module", "app.router").Str("conn", string(conn.ID())).Str("event", string(event)).Msg("delivery failed")
	if rt.Policy.OnDeliveryFailure(conn, err) == KickRecipient {
		log.Warn().Str("module", "app.router").Str("conn", string(conn.ID())).Msg("kicking slow recipient")
		conn.Close()
	}
	return false
}
