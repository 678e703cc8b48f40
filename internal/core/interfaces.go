package core

import (
	"errors"

	"github.com/dkeye/meetrelay/internal/domain"
)

// Frame is one encoded outbound event.
type Frame []byte

// ConnID identifies one open transport session. Never reused.
type ConnID string

// SignalConnection abstracts the messaging transport of one session.
// Owned by the adapter; the relay only holds a reference and never reads from it.
type SignalConnection interface {
	ID() ConnID
	// TrySend enqueues f without blocking.
	TrySend(Frame) error
	Close()
}

// Aborter is implemented by transports that can tell the peer why they are
// being dropped before closing.
type Aborter interface {
	Abort(reason string)
}

// PublishResult reports fan-out delivery stats.
type PublishResult struct {
	SentTo  int
	Dropped []SignalConnection
}

// MemberDTO is a read-only view of one room member.
type MemberDTO struct {
	Conn   ConnID               `json:"conn"`
	UserID domain.ParticipantID `json:"userId"`
}

type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	MemberCount int           `json:"member_count"`
}

var (
	// ErrBackpressure is returned by TrySend when the outbound queue is full.
	ErrBackpressure = errors.New("backpressure")
	// ErrConnClosed is returned by TrySend after Close.
	ErrConnClosed = errors.New("connection closed")
)
