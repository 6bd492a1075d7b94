package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestInitRecordsRecentEvents(t *testing.T) {
	var buf bytes.Buffer
	Init(&buf, "debug", "text")

	Info("target crawled", "handle", "alice", "light", 3)
	Debug("pacing", "ms", 1200)

	if !strings.Contains(buf.String(), "target crawled") {
		t.Fatalf("expected text output, got %q", buf.String())
	}

	events := Recent(2)
	if len(events) != 2 {
		t.Fatalf("Recent(2) len=%d", len(events))
	}
	if events[0].Msg != "target crawled" || events[0].Attrs["handle"] != "alice" {
		t.Fatalf("unexpected event: %+v", events[0])
	}
	if events[1].Level != "DEBUG" {
		t.Fatalf("level=%q want DEBUG", events[1].Level)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]string{"": "INFO", "warning": "WARN", "ERROR": "ERROR", "debug": "DEBUG"}
	for in, want := range cases {
		if got := parseLevel(in).String(); got != want {
			t.Fatalf("parseLevel(%q)=%s want %s", in, got, want)
		}
	}
}

func TestSubscribeReceivesEvents(t *testing.T) {
	var buf bytes.Buffer
	Init(&buf, "info", "json")

	ch, cancel := Subscribe()
	Warn("risk hint", "hint", "captcha")
	select {
	case msg := <-ch:
		if !strings.Contains(string(msg), `"msg":"risk hint"`) || !strings.Contains(string(msg), `"hint":"captcha"`) {
			t.Fatalf("unexpected message %s", msg)
		}
	default:
		t.Fatalf("no event published")
	}
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("channel should be closed after cancel")
	}
}

func TestEventRingWraps(t *testing.T) {
	r := newEventRing(3)
	if got := r.last(0); len(got) != 0 {
		t.Fatalf("empty ring returned %v", got)
	}
	for _, m := range []string{"a", "b", "c", "d", "e"} {
		r.add(Event{Msg: m})
	}
	var msgs []string
	for _, e := range r.last(0) {
		msgs = append(msgs, e.Msg)
	}
	if strings.Join(msgs, ",") != "c,d,e" {
		t.Fatalf("last(0) = %v", msgs)
	}
	if got := r.last(2); len(got) != 2 || got[0].Msg != "d" || got[1].Msg != "e" {
		t.Fatalf("last(2) = %+v", got)
	}
}
