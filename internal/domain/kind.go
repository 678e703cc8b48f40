package domain

import "strings"

// Kind is the closed set of inbound signaling message kinds.
type Kind int

const (
	KindUnknown Kind = iota
	KindJoin
	KindOffer
	KindAnswer
	KindICECandidate
	KindMediaUpdate
	KindLeave
)

var kindNames = map[Kind]string{
	KindJoin:         "join",
	KindOffer:        "offer",
	KindAnswer:       "answer",
	KindICECandidate: "ice-candidate",
	KindMediaUpdate:  "media-update",
	KindLeave:        "leave",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		m[name] = k
	}
	return m
}()

// ParseKind matches s case-insensitively. Unrecognized names give KindUnknown.
func ParseKind(s string) Kind {
	if k, ok := kindsByName[strings.ToLower(strings.TrimSpace(s))]; ok {
		return k
	}
	return KindUnknown
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// PointToPoint reports whether k is a negotiation kind routed to a single target.
func (k Kind) PointToPoint() bool {
	return k == KindOffer || k == KindAnswer || k == KindICECandidate
}
