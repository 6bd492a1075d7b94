package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/playwright-community/playwright-go"
)

// CDPOptions attach to (or start) a local Chrome over the remote debugging port so the
// crawl reuses a real browser profile.
type CDPOptions struct {
	DebugPort         int
	CustomBrowserPath string
	UserDataDir       string
	Headless          bool
	ProxyServer       string
	Lang              string
	LaunchTimeout     time.Duration
}

func (o *CDPOptions) applyDefaults() error {
	if o.DebugPort <= 0 {
		o.DebugPort = 9222
	}
	if o.LaunchTimeout <= 0 {
		o.LaunchTimeout = 60 * time.Second
	}
	if o.UserDataDir == "" {
		o.UserDataDir = "browser_data"
	}
	if o.Lang == "" {
		o.Lang = "ja-JP"
	}
	dir, err := filepath.Abs(o.UserDataDir)
	if err != nil {
		return fmt.Errorf("resolve user data dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create user data dir: %w", err)
	}
	o.UserDataDir = dir
	return nil
}

func (o CDPOptions) endpoint() string {
	return fmt.Sprintf("http://127.0.0.1:%d", o.DebugPort)
}

type CDPSession struct {
	Cmd     *exec.Cmd
	Browser playwright.Browser
	Context playwright.BrowserContext
	Page    playwright.Page
}

// StartOrConnectCDP connects to a browser already listening on the debug port, or
// starts one and waits for its endpoint. The first existing context and page are reused.
func StartOrConnectCDP(ctx context.Context, pw *playwright.Playwright, opts CDPOptions) (*CDPSession, error) {
	if pw == nil {
		return nil, errors.New("playwright is nil")
	}
	if err := opts.applyDefaults(); err != nil {
		return nil, err
	}

	out := &CDPSession{}
	var undo []func()
	fail := func(err error) (*CDPSession, error) {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
		return nil, err
	}

	probe := newCDPProbe()
	if err := probe.wait(ctx, opts.endpoint(), 800*time.Millisecond); err != nil {
		cmd, err := startChrome(ctx, opts)
		if err != nil {
			return nil, err
		}
		out.Cmd = cmd
		undo = append(undo, func() { _ = cmd.Process.Kill() })

		waitCtx, cancel := context.WithTimeout(ctx, opts.LaunchTimeout)
		err = probe.wait(waitCtx, opts.endpoint(), 250*time.Millisecond)
		cancel()
		if err != nil {
			return fail(fmt.Errorf("cdp not ready: %w", err))
		}
	}

	b, err := pw.Chromium.ConnectOverCDP(opts.endpoint())
	if err != nil {
		return fail(fmt.Errorf("connect over cdp: %w", err))
	}
	out.Browser = b
	undo = append(undo, func() { _ = b.Close() })

	if contexts := b.Contexts(); len(contexts) > 0 {
		out.Context = contexts[0]
	} else if out.Context, err = b.NewContext(); err != nil {
		return fail(fmt.Errorf("new context: %w", err))
	} else {
		bc := out.Context
		undo = append(undo, func() { _ = bc.Close() })
	}

	if pages := out.Context.Pages(); len(pages) > 0 {
		out.Page = pages[0]
	} else if out.Page, err = out.Context.NewPage(); err != nil {
		return fail(fmt.Errorf("new page: %w", err))
	}
	return out, nil
}

func startChrome(ctx context.Context, opts CDPOptions) (*exec.Cmd, error) {
	bin, err := detectBrowserBinary(opts.CustomBrowserPath)
	if err != nil {
		return nil, err
	}
	cmd := exec.CommandContext(ctx, bin, buildChromeArgs(opts)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start browser: %w", err)
	}
	return cmd, nil
}

type cdpProbe struct {
	client *resty.Client
}

func newCDPProbe() *cdpProbe {
	return &cdpProbe{client: resty.New().SetTimeout(2 * time.Second)}
}

type cdpVersion struct {
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// ready reports whether the endpoint answers /json/version with a websocket URL.
func (p *cdpProbe) ready(ctx context.Context, endpoint string) bool {
	var v cdpVersion
	resp, err := p.client.R().SetContext(ctx).SetResult(&v).Get(endpoint + "/json/version")
	return err == nil && resp.IsSuccess() && v.WebSocketDebuggerURL != ""
}

func (p *cdpProbe) wait(ctx context.Context, endpoint string, interval time.Duration) error {
	for !p.ready(ctx, endpoint) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return nil
}

// buildChromeArgs expects opts.UserDataDir to be absolute already.
func buildChromeArgs(opts CDPOptions) []string {
	args := []string{
		fmt.Sprintf("--remote-debugging-port=%d", opts.DebugPort),
		"--user-data-dir=" + opts.UserDataDir,
		"--lang=" + opts.Lang,
		"--window-size=1920,1080",
		"--no-first-run",
		"--no-default-browser-check",
		"--disable-blink-features=AutomationControlled",
		"--disable-dev-shm-usage",
	}
	if opts.ProxyServer != "" {
		args = append(args, "--proxy-server="+opts.ProxyServer)
	}
	if opts.Headless {
		args = append(args, "--headless=new", "--disable-gpu")
	}
	if runtime.GOOS == "linux" {
		args = append(args, "--password-store=basic", "--use-mock-keychain")
	}
	return args
}
