package memory

import (
	"encoding/json"
	"time"
)

// Event records one interaction step in episodic memory.
//
// Events are immutable after creation except for Timestamp and ExpiresAt,
// which the store assigns once at Log time when absent. Extra is an open
// extension bag for caller-defined fields; it round-trips through JSON as
// additional top-level keys.
type Event struct {
	ID        string
	TaskID    string
	Session   string
	Type      string
	Text      string
	Timestamp time.Time
	ExpiresAt time.Time
	Tags      []string
	Extra     map[string]any
}

// eventWireKeys are the fixed top-level JSON keys; everything else lands in Extra.
var eventWireKeys = map[string]bool{
	"id": true, "task_id": true, "session": true, "type": true, "text": true,
	"ts": true, "timestamp": true, "expires_at": true, "tags": true,
}

// timeLayouts are the accepted wire formats for event timestamps.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// parseEventTime parses a wire timestamp permissively. A second return of
// false means the value was absent or unparseable; callers decide the
// fallback (the store substitutes "now" for unparseable timestamps rather
// than dropping otherwise-valid events).
func parseEventTime(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// UnmarshalJSON decodes an event, routing unknown keys into Extra.
// Unparseable timestamps degrade to the zero time instead of failing;
// the store then treats them as "now" (Timestamp) or "never" (ExpiresAt).
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	str := func(key string) string {
		var s string
		if v, ok := raw[key]; ok {
			_ = json.Unmarshal(v, &s)
		}
		return s
	}

	e.ID = str("id")
	e.TaskID = str("task_id")
	e.Session = str("session")
	e.Type = str("type")
	e.Text = str("text")

	ts := str("ts")
	if ts == "" {
		ts = str("timestamp")
	}
	if t, ok := parseEventTime(ts); ok {
		e.Timestamp = t
	} else {
		e.Timestamp = time.Time{}
	}
	if t, ok := parseEventTime(str("expires_at")); ok {
		e.ExpiresAt = t
	} else {
		e.ExpiresAt = time.Time{}
	}

	e.Tags = nil
	if v, ok := raw["tags"]; ok {
		_ = json.Unmarshal(v, &e.Tags)
	}

	e.Extra = nil
	for key, v := range raw {
		if eventWireKeys[key] {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			continue
		}
		if e.Extra == nil {
			e.Extra = make(map[string]any)
		}
		e.Extra[key] = val
	}
	return nil
}

// MarshalJSON encodes the event with Extra flattened into top-level keys.
// Fixed fields win on key collision.
func (e Event) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Extra)+8)
	for k, v := range e.Extra {
		if !eventWireKeys[k] {
			out[k] = v
		}
	}
	if e.ID != "" {
		out["id"] = e.ID
	}
	if e.TaskID != "" {
		out["task_id"] = e.TaskID
	}
	if e.Session != "" {
		out["session"] = e.Session
	}
	if e.Type != "" {
		out["type"] = e.Type
	}
	out["text"] = e.Text
	if !e.Timestamp.IsZero() {
		out["ts"] = e.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	if !e.ExpiresAt.IsZero() {
		out["expires_at"] = e.ExpiresAt.UTC().Format(time.RFC3339Nano)
	}
	if e.Tags != nil {
		out["tags"] = e.Tags
	}
	return json.Marshal(out)
}

// HasTag reports whether the event carries the given tag.
func (e *Event) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// field resolves a filter key against the fixed fields, falling back to Extra.
func (e *Event) field(key string) (any, bool) {
	switch key {
	case "id":
		return e.ID, true
	case "task_id":
		return e.TaskID, true
	case "session":
		return e.Session, true
	case "type", "cat", "category":
		return e.Type, true
	case "text":
		return e.Text, true
	}
	v, ok := e.Extra[key]
	return v, ok
}

// clone returns a copy with its own Tags and Extra so stored events cannot be
// mutated through the caller's references.
func (e *Event) clone() *Event {
	cp := *e
	if e.Tags != nil {
		cp.Tags = append([]string(nil), e.Tags...)
	}
	if e.Extra != nil {
		cp.Extra = make(map[string]any, len(e.Extra))
		for k, v := range e.Extra {
			cp.Extra[k] = v
		}
	}
	return &cp
}
