// Package conversation computes canonical conversation keys.
//
// A Key is either a direct pair of identities or a group id. Keys are
// comparable and are used as map keys by the router, so two different
// conversations never share a key even when their string forms would.
package conversation

import "strings"

type Kind uint8

const (
	KindDirect Kind = iota + 1
	KindGroup
)

// GroupPrefix marks a group target on the wire, e.g. "group:42".
const GroupPrefix = "group:"

type Key struct {
	kind  Kind
	low   string
	high  string
	group string
}

// Direct returns the key shared by a and b. Direct(a, b) == Direct(b, a).
func Direct(a, b string) Key {
	if b < a {
		a, b = b, a
	}
	return Key{kind: KindDirect, low: a, high: b}
}

func Group(id string) Key {
	return Key{kind: KindGroup, group: id}
}

// Resolve turns a client supplied target into a key from the point of view
// of self. Targets carrying GroupPrefix address a group, anything else is
// the peer identity of a direct conversation.
func Resolve(self, target string) Key {
	if id, ok := strings.CutPrefix(target, GroupPrefix); ok {
		return Group(id)
	}
	return Direct(self, target)
}

// IsGroupTarget reports whether a recipient value addresses a group.
func IsGroupTarget(target string) bool {
	return strings.HasPrefix(target, GroupPrefix)
}

func (k Key) Kind() Kind    { return k.kind }
func (k Key) IsZero() bool  { return k.kind == 0 }
func (k Key) IsGroup() bool { return k.kind == KindGroup }

func (k Key) GroupID() string { return k.group }

// Participants returns both identities of a direct key in sorted order.
func (k Key) Participants() (string, string) { return k.low, k.high }

// Peer returns the other participant of a direct conversation.
func (k Key) Peer(self string) string {
	if k.kind != KindDirect {
		return ""
	}
	if k.low == self {
		return k.high
	}
	return k.low
}

// Recipient is the value stored in a message's recipient field when sender
// writes into this conversation.
func (k Key) Recipient(sender string) string {
	if k.kind == KindGroup {
		return GroupPrefix + k.group
	}
	return k.Peer(sender)
}

func (k Key) String() string {
	switch k.kind {
	case KindDirect:
		return k.low + "_" + k.high
	case KindGroup:
		return GroupPrefix + k.group
	default:
		return ""
	}
}
