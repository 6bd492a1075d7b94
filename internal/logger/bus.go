package logger

import (
	"encoding/json"
	"sync"
)

// bus fans recorded events out to live subscribers. Slow subscribers drop messages.
type bus struct {
	mu   sync.RWMutex
	subs map[chan []byte]struct{}
}

func newBus() *bus {
	return &bus{subs: map[chan []byte]struct{}{}}
}

func (b *bus) subscribe(buffer int) (chan []byte, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan []byte, buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch, func() { b.unsubscribe(ch) }
}

func (b *bus) unsubscribe(ch chan []byte) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

func (b *bus) count() int {
	b.mu.RLock()
	n := len(b.subs)
	b.mu.RUnlock()
	return n
}

func (b *bus) publish(evt Event) {
	if b.count() == 0 {
		return
	}
	msg, err := json.Marshal(evt)
	if err != nil {
		return
	}
	msg = append(msg, '\n')
	b.mu.RLock()
	for ch := range b.subs {
		select {
		case ch <- msg:
		default:
		}
	}
	b.mu.RUnlock()
}

var defaultBus = newBus()

// Subscribe streams every subsequent event as one JSON line. Call the returned func to stop.
func Subscribe() (<-chan []byte, func()) {
	return defaultBus.subscribe(256)
}
