package domain

import (
	"github.com/goccy/go-json"
)

// EventKind tags an outbound event.
type EventKind string

const (
	EventUserJoined   EventKind = "UserJoined"
	EventUserLeft     EventKind = "UserLeft"
	EventMediaUpdate  EventKind = "MediaUpdate"
	EventParticipants EventKind = "Participants"
	EventError        EventKind = "Error"
)

// Event is the outbound envelope.
type Event struct {
	Type EventKind `json:"type"`
	Data any       `json:"data"`
}

type UserPresence struct {
	UserID ParticipantID `json:"userId"`
}

type PeerSignal struct {
	FromUserID ParticipantID   `json:"fromUserId"`
	MeetingID  RoomID          `json:"meetingId"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

type MediaUpdate struct {
	UserID ParticipantID `json:"userId"`
	MediaState
}

type Participants struct {
	MeetingID RoomID          `json:"meetingId"`
	UserIDs   []ParticipantID `json:"userIds"`
}

type ErrorReport struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func UserJoined(id ParticipantID) Event {
	return Event{Type: EventUserJoined, Data: UserPresence{UserID: id}}
}

func UserLeft(id ParticipantID) Event {
	return Event{Type: EventUserLeft, Data: UserPresence{UserID: id}}
}

// Signal is tagged with the inbound negotiation kind (offer, answer, ice-candidate).
func Signal(kind Kind, from ParticipantID, room RoomID, payload json.RawMessage) Event {
	return Event{
		Type: EventKind(kind.String()),
		Data: PeerSignal{FromUserID: from, MeetingID: room, Payload: payload},
	}
}

func MediaChanged(id ParticipantID, st MediaState) Event {
	return Event{Type: EventMediaUpdate, Data: MediaUpdate{UserID: id, MediaState: st}}
}

func RoomParticipants(room RoomID, ids []ParticipantID) Event {
	if ids == nil {
		ids = []ParticipantID{}
	}
	return Event{Type: EventParticipants, Data: Participants{MeetingID: room, UserIDs: ids}}
}

func Failure(kind Kind, err error) Event {
	return Event{Type: EventError, Data: ErrorReport{Kind: kind.String(), Message: err.Error()}}
}

// Encode marshals the envelope.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}
