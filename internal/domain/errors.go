package domain

import "errors"

var (
	// ErrProtocolViolation marks a null or kind-less message. The connection must be closed.
	ErrProtocolViolation = errors.New("protocol violation")
	// ErrMissingParticipant is returned by join when userId is empty.
	ErrMissingParticipant = errors.New("userId is required")
	// ErrMissingRoom is returned by join when meetingId is empty.
	ErrMissingRoom = errors.New("meetingId is required")
	// ErrConnectionClosed is returned when a message arrives for a closed connection.
	ErrConnectionClosed = errors.New("connection closed")
)
