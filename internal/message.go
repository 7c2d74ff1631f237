package internal

import (
	"strconv"
	"time"
)

// MessageKind separates real chat traffic from system-generated notices.
// Both kinds are stored in history the same way.
type MessageKind string

const (
	KindChat MessageKind = "chat"
	KindInfo MessageKind = "info"
)

// Message is one entry in a room's history. Bodies are opaque: clients
// encrypt end to end with a key derived from the room password, so the
// server stores and forwards them without ever interpreting the contents.
type Message struct {
	Author string      `json:"author,omitempty"`
	Body   string      `json:"body"`
	Time   string      `json:"time"`
	Kind   MessageKind `json:"kind"`
}

// utcLayout mirrors the wire format the original clients expect,
// e.g. "Sun, 19 Apr 2020 22:08:08 GMT".
const utcLayout = "Mon, 02 Jan 2006 15:04:05 GMT"

// parseLayouts are tried in order when canonicalizing a client timestamp.
var parseLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	utcLayout,
	time.RFC1123,
	time.RFC1123Z,
	time.ANSIC,
	"2006-01-02 15:04:05",
}

// CanonicalUTC reformats a client-supplied timestamp as a UTC string. The
// result is a pure function of the input instant: the client's claimed
// time is preserved, only rewritten in UTC. Unix second values are
// accepted too. If the input cannot be parsed at all it is passed through
// unchanged, matching the store-and-forward treatment of opaque fields.
func CanonicalUTC(raw string) string {
	if raw == "" {
		return raw
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return FormatUTC(time.Unix(secs, 0))
	}
	for _, layout := range parseLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return FormatUTC(parsed)
		}
	}
	return raw
}

// FormatUTC renders an instant in the canonical wire format.
func FormatUTC(t time.Time) string {
	return t.UTC().Format(utcLayout)
}
