package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestBuildChromeArgs(t *testing.T) {
	args := buildChromeArgs(CDPOptions{
		DebugPort:   9333,
		UserDataDir: "/tmp/ud",
		Headless:    true,
		ProxyServer: "http://1.2.3.4:8080",
		Lang:        "ja-JP",
	})
	joined := strings.Join(args, " ")
	for _, want := range []string{
		"--remote-debugging-port=9333",
		"--user-data-dir=/tmp/ud",
		"--lang=ja-JP",
		"--proxy-server=http://1.2.3.4:8080",
		"--headless=new",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("args missing %q: %v", want, args)
		}
	}
}

func TestPrepareUserDataDir_Temporary(t *testing.T) {
	dir, cleanup, err := PrepareUserDataDir("", false, "7")
	if err != nil {
		t.Fatalf("PrepareUserDataDir: %v", err)
	}
	if !strings.Contains(filepath.Base(dir), "tiktok-crawler-7-") {
		t.Fatalf("unexpected dir %q", dir)
	}
	cleanup()
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("expected %q removed, stat err=%v", dir, err)
	}
}

func TestPrepareUserDataDir_Persistent(t *testing.T) {
	base := filepath.Join(t.TempDir(), "profiles")
	dir, cleanup, err := PrepareUserDataDir(base, true, "7")
	if err != nil {
		t.Fatalf("PrepareUserDataDir: %v", err)
	}
	cleanup()
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		t.Fatalf("expected persistent dir %q to remain, err=%v", dir, err)
	}
}

func TestResolvedStealthScript_FromFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "stealth.js")
	if err := os.WriteFile(p, []byte("  window.__x = 1;  "), 0644); err != nil {
		t.Fatal(err)
	}
	if got := resolvedStealthScript(p); got != "window.__x = 1;" {
		t.Fatalf("script = %q", got)
	}
	if got := resolvedStealthScript(filepath.Join(t.TempDir(), "missing.js")); !strings.Contains(got, "webdriver") {
		t.Fatalf("expected built-in script fallback")
	}
}

func TestCDPProbeWait(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/json/version" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("content-type", "application/json")
		if calls.Add(1) < 3 {
			_, _ = w.Write([]byte(`{}`))
			return
		}
		_, _ = w.Write([]byte(`{"webSocketDebuggerUrl":"ws://127.0.0.1/devtools/browser/x"}`))
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := newCDPProbe().wait(ctx, ts.URL, 10*time.Millisecond); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if calls.Load() < 3 {
		t.Fatalf("expected polling until ready, calls=%d", calls.Load())
	}

	short, cancel2 := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel2()
	if err := newCDPProbe().wait(short, ts.URL+"/nope", 10*time.Millisecond); err == nil {
		t.Fatalf("expected timeout for endpoint that never becomes ready")
	}
}

func TestDetectBrowserBinary_CustomPath(t *testing.T) {
	p := filepath.Join(t.TempDir(), "chrome")
	if err := os.WriteFile(p, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}
	got, err := detectBrowserBinary(p)
	if err != nil || got != p {
		t.Fatalf("detect = %q err=%v", got, err)
	}
	if _, err := detectBrowserBinary(p + ".missing"); err == nil {
		t.Fatalf("expected error for missing custom path")
	}
}

func TestInstallPaths(t *testing.T) {
	if got := installPaths("linux", ""); got != nil {
		t.Fatalf("linux relies on PATH lookup, got %v", got)
	}
	win := installPaths("windows", `C:\Users\me`)
	if len(win) == 0 || !strings.Contains(win[0], "chrome.exe") {
		t.Fatalf("unexpected windows candidates %v", win)
	}
}
