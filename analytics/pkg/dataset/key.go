package dataset

import "strings"

// KeyPrefix starts every composite facet key on the wire.
const KeyPrefix = "dim:"

// Key identifies a facet value within a dimension.
type Key struct {
	Target string
	Value  string
}

// String returns the wire form "dim:<target>:<value>".
func (k Key) String() string {
	return KeyPrefix + k.Target + ":" + k.Value
}

// ParseKey parses the wire form produced by Key.String. Targets never contain
// a colon; facet values may.
func ParseKey(s string) (Key, bool) {
	rest, ok := strings.CutPrefix(s, KeyPrefix)
	if !ok {
		return Key{}, false
	}
	target, value, ok := strings.Cut(rest, ":")
	if !ok || target == "" {
		return Key{}, false
	}
	return Key{Target: target, Value: value}, true
}
