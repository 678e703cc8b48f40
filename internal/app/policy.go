package app

import (
	"errors"

	"github.com/dkeye/meetrelay/internal/core"
)

type DeliveryAction int

const (
	NoAction DeliveryAction = iota
	KickRecipient
)

// Policy decides what happens to a recipient whose delivery failed.
// The sender is never affected.
type Policy interface {
	OnDeliveryFailure(recipient core.SignalConnection, err error) DeliveryAction
}

// LogOnlyPolicy keeps slow recipients connected.
type LogOnlyPolicy struct{}

func (LogOnlyPolicy) OnDeliveryFailure(core.SignalConnection, error) DeliveryAction {
	return NoAction
}

// KickSlowPolicy closes recipients whose outbound queue is full.
type KickSlowPolicy struct{}

func (KickSlowPolicy) OnDeliveryFailure(_ core.SignalConnection, err error) DeliveryAction {
	if errors.Is(err, core.ErrBackpressure) {
		return KickRecipient
	}
	return NoAction
}

// PolicyFor maps the slow_consumer config value to a Policy.
func PolicyFor(name string) Policy {
	if name == "kick" {
		return KickSlowPolicy{}
	}
	return LogOnlyPolicy{}
}
