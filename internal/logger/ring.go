package logger

import "sync"

// Event is one recorded log line as served by the API.
type Event struct {
	Time  string         `json:"time"`
	Level string         `json:"level"`
	Msg   string         `json:"msg"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

const recentCapacity = 2000

// eventRing keeps the newest events in a fixed circular buffer.
type eventRing struct {
	mu   sync.Mutex
	buf  []Event
	next int
	full bool
}

func newEventRing(capacity int) *eventRing {
	return &eventRing{buf: make([]Event, max(capacity, 1))}
}

func (r *eventRing) add(evt Event) {
	r.mu.Lock()
	r.buf[r.next] = evt
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
	r.mu.Unlock()
}

// last returns up to limit events, oldest first. limit <= 0 means all.
func (r *eventRing) last(limit int) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	size := r.next
	if r.full {
		size = len(r.buf)
	}
	if limit <= 0 || limit > size {
		limit = size
	}
	out := make([]Event, 0, limit)
	start := r.next - limit
	if start < 0 {
		start += len(r.buf)
	}
	for i := range limit {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return out
}

var recent = newEventRing(recentCapacity)

func addEvent(evt Event) { recent.add(evt) }

// Recent returns the newest limit events, oldest first.
func Recent(limit int) []Event { return recent.last(limit) }
