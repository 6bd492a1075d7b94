package crawler

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

func Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	if ctx == nil {
		time.Sleep(d)
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Pacer inserts randomized human-like delays between browser actions. A nil or disabled
// Pacer never sleeps.
type Pacer struct {
	min time.Duration
	max time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewPacer(enabled bool, min, max time.Duration) *Pacer {
	if !enabled {
		return nil
	}
	if max < min {
		max = min
	}
	return &Pacer{min: min, max: max, rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (p *Pacer) next() time.Duration {
	if p == nil {
		return 0
	}
	if p.max <= p.min {
		return p.min
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.min + time.Duration(p.rnd.Int63n(int64(p.max-p.min)))
}

// Pause waits a random delay. It returns ctx.Err() when interrupted.
func (p *Pacer) Pause(ctx context.Context) error {
	d := p.next()
	if d <= 0 {
		if ctx != nil {
			return ctx.Err()
		}
		return nil
	}
	if !Sleep(ctx, d) {
		return ctx.Err()
	}
	return nil
}
