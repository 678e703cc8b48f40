package domain

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

// Message is one inbound signaling unit. It only lives for one routing operation.
type Message struct {
	Type      string          `json:"type"`
	MeetingID RoomID          `json:"meetingId"`
	UserID    ParticipantID   `json:"userId"`
	ToUserID  ParticipantID   `json:"toUserId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Kind classifies the message type.
func (m *Message) Kind() Kind { return ParseKind(m.Type) }

// DecodeMessage parses one wire frame. A JSON null yields (nil, nil) so the
// router can treat it as a protocol violation; undecodable input is an error.
func DecodeMessage(data []byte) (*Message, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty frame: %w", ErrProtocolViolation)
	}
	var m *Message
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return nil, fmt.Errorf("decode message: %w", ErrProtocolViolation)
	}
	return m, nil
}

// MediaState is the media-update payload.
type MediaState struct {
	HasVideo     bool `json:"hasVideo"`
	HasAudio     bool `json:"hasAudio"`
	IsHandRaised bool `json:"isHandRaised"`
}

// MediaState extracts the media-update payload. An absent payload is the zero state.
func (m *Message) MediaState() (MediaState, error) {
	var st MediaState
	if len(m.Payload) == 0 || bytes.Equal(m.Payload, []byte("null")) {
		return st, nil
	}
	if err := json.Unmarshal(m.Payload, &st); err != nil {
		return st, fmt.Errorf("decode media state: %w", err)
	}
	return st, nil
}
