package memory

import (
	"time"

	"go.uber.org/zap"
)

// DefaultEpisodicTTLDays is applied to categories without an explicit TTL.
const DefaultEpisodicTTLDays = 30

// EpisodicStoreConfig configures an EpisodicStore.
type EpisodicStoreConfig struct {
	// Capacity is the fixed maximum number of retained events. When the log
	// exceeds it the oldest event is evicted, independent of TTL state.
	Capacity int

	// TTLDays maps event categories (Event.Type) to a retention in days.
	// A value of zero or below disables expiry for that category. Unmapped
	// categories fall back to DefaultTTLDays.
	TTLDays map[string]int

	// DefaultTTLDays is the fallback retention. Zero means DefaultEpisodicTTLDays.
	DefaultTTLDays int

	// DisableTTL skips ExpiresAt assignment entirely; events then only leave
	// the log through capacity eviction.
	DisableTTL bool

	// Now overrides the clock for tests. Defaults to time.Now.
	Now func() time.Time
}

// FetchOptions narrows a Fetch call. The zero value applies no narrowing.
type FetchOptions struct {
	// TaskID filters by exact task id when non-empty.
	TaskID string

	// LastN keeps only the last N surviving events, in original order.
	LastN int

	// SinceMinutes keeps events with Timestamp >= now - SinceMinutes.
	SinceMinutes int

	// Filters matches arbitrary keys by equality, except "tags": a list value
	// must be a subset of the event's tags, a scalar must be a member.
	Filters map[string]any
}

// EpisodicStore is an append-only, capacity-bounded event log backed by a
// fixed-capacity circular buffer. Expiry is lazy: Fetch purges expired events
// on every read, TopK deliberately does not (a lighter-weight read contract).
type EpisodicStore struct {
	cfg    EpisodicStoreConfig
	buf    []*Event
	head   int
	count  int
	now    func() time.Time
	logger *zap.Logger
}

// NewEpisodicStore creates an episodic store with the given config.
// A non-positive capacity defaults to 2000, matching the demo defaults.
func NewEpisodicStore(cfg EpisodicStoreConfig, logger *zap.Logger) *EpisodicStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = 2000
	}
	if cfg.DefaultTTLDays <= 0 {
		cfg.DefaultTTLDays = DefaultEpisodicTTLDays
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &EpisodicStore{
		cfg:    cfg,
		buf:    make([]*Event, cfg.Capacity),
		now:    now,
		logger: logger.With(zap.String("component", "episodic_store")),
	}
}

// Len returns the number of retained events.
func (s *EpisodicStore) Len() int { return s.count }

// Capacity returns the fixed capacity.
func (s *EpisodicStore) Capacity() int { return len(s.buf) }

// Log appends an event, assigning Timestamp and ExpiresAt when missing.
// It returns an INVALID_EVENT error for nil input. Capacity eviction is
// unconditional FIFO: when the log is full the oldest event is dropped.
func (s *EpisodicStore) Log(event *Event) error {
	if event == nil {
		return NewError(ErrCodeInvalidEvent, "event must be a structured record, got nil")
	}

	stored := event.clone()
	if stored.Timestamp.IsZero() {
		stored.Timestamp = s.now()
	}
	if stored.ExpiresAt.IsZero() && !s.cfg.DisableTTL {
		if days, ok := s.ttlDays(stored.Type); ok {
			stored.ExpiresAt = stored.Timestamp.Add(time.Duration(days) * 24 * time.Hour)
		}
	}

	evicted := s.push(stored)
	if evicted != nil {
		s.logger.Debug("capacity eviction",
			zap.String("evicted_id", evicted.ID),
			zap.Int("capacity", len(s.buf)))
	}
	s.logger.Debug("event logged",
		zap.String("id", stored.ID),
		zap.String("type", stored.Type))
	return nil
}

// Fetch purges expired events, then applies task-id, key/value, tag,
// since-window and last-n narrowing in that order. It never fails; an empty
// result is returned instead.
func (s *EpisodicStore) Fetch(opts FetchOptions) []*Event {
	now := s.now()
	s.purgeExpired(now)

	out := make([]*Event, 0, s.count)
	for i := 0; i < s.count; i++ {
		ev := s.buf[(s.head+i)%len(s.buf)]
		if opts.TaskID != "" && ev.TaskID != opts.TaskID {
			continue
		}
		if !matchEventFilters(ev, opts.Filters) {
			continue
		}
		if opts.SinceMinutes > 0 {
			ts := ev.Timestamp
			if ts.IsZero() {
				// Events with an unparseable or missing timestamp count as
				// current rather than being dropped.
				ts = now
			}
			if ts.Before(now.Add(-time.Duration(opts.SinceMinutes) * time.Minute)) {
				continue
			}
		}
		out = append(out, ev.clone())
	}

	if opts.LastN > 0 && len(out) > opts.LastN {
		out = out[len(out)-opts.LastN:]
	}
	return out
}

// TopK returns the last k events that pass the predicate, in original order.
// A nil predicate accepts everything. TopK does not purge expired events but
// still excludes any whose ExpiresAt has passed.
func (s *EpisodicStore) TopK(k int, predicate func(*Event) bool) []*Event {
	if k <= 0 {
		return nil
	}
	if predicate == nil {
		predicate = func(*Event) bool { return true }
	}
	now := s.now()

	surviving := make([]*Event, 0, s.count)
	for i := 0; i < s.count; i++ {
		ev := s.buf[(s.head+i)%len(s.buf)]
		if !ev.ExpiresAt.IsZero() && !ev.ExpiresAt.After(now) {
			continue
		}
		if predicate(ev) {
			surviving = append(surviving, ev)
		}
	}
	if len(surviving) > k {
		surviving = surviving[len(surviving)-k:]
	}
	out := make([]*Event, 0, len(surviving))
	for _, ev := range surviving {
		out = append(out, ev.clone())
	}
	return out
}

// Events returns a snapshot of all retained events in insertion order.
func (s *EpisodicStore) Events() []*Event {
	out := make([]*Event, 0, s.count)
	for i := 0; i < s.count; i++ {
		out = append(out, s.buf[(s.head+i)%len(s.buf)].clone())
	}
	return out
}

// ttlDays resolves the retention for a category. The second return is false
// when the category explicitly opts out of expiry.
func (s *EpisodicStore) ttlDays(category string) (int, bool) {
	if days, ok := s.cfg.TTLDays[category]; ok {
		if days <= 0 {
			return 0, false
		}
		return days, true
	}
	return s.cfg.DefaultTTLDays, true
}

// push appends to the ring, returning the evicted event when full.
func (s *EpisodicStore) push(ev *Event) *Event {
	if s.count < len(s.buf) {
		s.buf[(s.head+s.count)%len(s.buf)] = ev
		s.count++
		return nil
	}
	evicted := s.buf[s.head]
	s.buf[s.head] = ev
	s.head = (s.head + 1) % len(s.buf)
	return evicted
}

// purgeExpired drops every event whose ExpiresAt is at or before now and
// compacts the ring.
func (s *EpisodicStore) purgeExpired(now time.Time) {
	survivors := make([]*Event, 0, s.count)
	purged := 0
	for i := 0; i < s.count; i++ {
		ev := s.buf[(s.head+i)%len(s.buf)]
		if !ev.ExpiresAt.IsZero() && !ev.ExpiresAt.After(now) {
			purged++
			continue
		}
		survivors = append(survivors, ev)
	}
	if purged == 0 {
		return
	}
	for i := range s.buf {
		s.buf[i] = nil
	}
	copy(s.buf, survivors)
	s.head = 0
	s.count = len(survivors)
	s.logger.Debug("expired events purged", zap.Int("purged", purged))
}

// matchEventFilters applies equality filters with the special tag semantics:
// a list filter requires every listed tag, a scalar filter requires membership.
func matchEventFilters(ev *Event, filters map[string]any) bool {
	for key, want := range filters {
		if key == "tags" {
			if !matchTags(ev.Tags, want) {
				return false
			}
			continue
		}
		got, ok := ev.field(key)
		if !ok || !looseEqual(got, want) {
			return false
		}
	}
	return true
}

func matchTags(tags []string, want any) bool {
	switch w := want.(type) {
	case []string:
		for _, t := range w {
			if !containsString(tags, t) {
				return false
			}
		}
		return true
	case []any:
		for _, t := range w {
			s, ok := t.(string)
			if !ok || !containsString(tags, s) {
				return false
			}
		}
		return true
	case string:
		return containsString(tags, w)
	default:
		return false
	}
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
