// Package domain contains relay entities without transport or locking logic.
package domain

type (
	// ParticipantID is the caller-supplied attendee token. It is not verified here.
	ParticipantID string
	// RoomID is the meeting identifier a room is keyed by.
	RoomID string
)
