package crawler

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPacerDisabledNeverSleeps(t *testing.T) {
	p := NewPacer(false, time.Hour, time.Hour)
	start := time.Now()
	if err := p.Pause(context.Background()); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("disabled pacer slept")
	}
}

func TestPacerInterrupted(t *testing.T) {
	p := NewPacer(true, time.Hour, 2*time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Pause(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Pause err=%v want canceled", err)
	}
}

func TestPacerRange(t *testing.T) {
	p := NewPacer(true, 10*time.Millisecond, 20*time.Millisecond)
	for i := 0; i < 50; i++ {
		d := p.next()
		if d < 10*time.Millisecond || d >= 20*time.Millisecond {
			t.Fatalf("delay %v out of range", d)
		}
	}
}
