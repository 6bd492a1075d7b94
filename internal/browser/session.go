package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

type LaunchOptions struct {
	Headless       bool
	EnableCDP      bool
	CDP            CDPOptions
	UserDataDir    string
	SaveLoginState bool
	Label          string
	ProxyServer    string
	ProxyUser      string
	ProxyPassword  string
	Locale         string
	StealthScript  string
	AutoClose      bool
}

// Session is a single browser context with one page. All Page methods hold mu so the
// crawler never issues two automation calls at once.
type Session struct {
	mu sync.Mutex

	pw         *playwright.Playwright
	browserCtx playwright.BrowserContext
	cdpBrowser playwright.Browser
	cdpCmd     *exec.Cmd
	page       playwright.Page
	cleanupUD  func()
	autoClose  bool
}

var _ Page = (*Session)(nil)

func Launch(ctx context.Context, opts LaunchOptions) (*Session, error) {
	if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
		return nil, fmt.Errorf("install playwright: %w", err)
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("run playwright: %w", err)
	}
	s := &Session{pw: pw, autoClose: opts.AutoClose}

	absDir, cleanup, err := PrepareUserDataDir(opts.UserDataDir, opts.SaveLoginState, opts.Label)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("prepare user data dir: %w", err)
	}
	s.cleanupUD = cleanup

	if opts.EnableCDP {
		cdpOpts := opts.CDP
		cdpOpts.UserDataDir = absDir
		cdpOpts.ProxyServer = opts.ProxyServer
		cdpOpts.Lang = opts.Locale
		sess, err := StartOrConnectCDP(ctx, pw, cdpOpts)
		if err == nil {
			s.cdpCmd = sess.Cmd
			s.cdpBrowser = sess.Browser
			s.browserCtx = sess.Context
			s.page = sess.Page
			if err := InjectStealthToPage(s.page, opts.StealthScript); err != nil {
				s.Close()
				return nil, fmt.Errorf("inject stealth: %w", err)
			}
			return s, nil
		}
		if ctx.Err() != nil {
			s.Close()
			return nil, ctx.Err()
		}
	}

	launchOpts := playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(opts.Headless),
		Viewport: &playwright.Size{Width: 1920, Height: 1080},
		Args:     []string{"--disable-blink-features=AutomationControlled", "--start-maximized"},
	}
	if opts.Locale != "" {
		launchOpts.Locale = playwright.String(opts.Locale)
	}
	if opts.ProxyServer != "" {
		launchOpts.Proxy = &playwright.Proxy{Server: opts.ProxyServer}
		if opts.ProxyUser != "" {
			launchOpts.Proxy.Username = playwright.String(opts.ProxyUser)
			launchOpts.Proxy.Password = playwright.String(opts.ProxyPassword)
		}
	}
	browserCtx, err := pw.Chromium.LaunchPersistentContext(absDir, launchOpts)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	s.browserCtx = browserCtx
	if err := InjectStealthToContext(browserCtx, opts.StealthScript); err != nil {
		s.Close()
		return nil, fmt.Errorf("inject stealth: %w", err)
	}
	if pages := browserCtx.Pages(); len(pages) > 0 {
		s.page = pages[0]
	} else {
		page, err := browserCtx.NewPage()
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("new page: %w", err)
		}
		s.page = page
	}
	return s, nil
}

func (s *Session) Close() {
	if s.browserCtx != nil {
		_ = s.browserCtx.Close()
	}
	if s.cdpBrowser != nil {
		_ = s.cdpBrowser.Close()
	}
	if s.cdpCmd != nil && s.cdpCmd.Process != nil && s.autoClose {
		_ = s.cdpCmd.Process.Kill()
	}
	if s.pw != nil {
		_ = s.pw.Stop()
	}
	if s.cleanupUD != nil {
		s.cleanupUD()
	}
}

// ExportCookies returns the context cookies as JSON, suitable for ImportCookies.
func (s *Session) ExportCookies() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cookies, err := s.browserCtx.Cookies()
	if err != nil {
		return nil, err
	}
	return json.Marshal(cookies)
}

func (s *Session) ImportCookies(raw []byte) error {
	var cookies []playwright.OptionalCookie
	if err := json.Unmarshal(raw, &cookies); err != nil {
		return err
	}
	if len(cookies) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.browserCtx.AddCookies(cookies)
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.page.Goto(url, playwright.PageGotoOptions{WaitUntil: playwright.WaitUntilStateDomcontentloaded})
	return err
}

func (s *Session) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return mapLocatorErr(s.page.Locator(selector).First().Click())
}

func (s *Session) Fill(ctx context.Context, selector, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return mapLocatorErr(s.page.Locator(selector).First().Fill(value))
}

func (s *Session) WaitForElement(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	loc := s.page.Locator(selector).First()
	err := loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return nil, mapLocatorErr(err)
	}
	return &element{s: s, loc: loc}, nil
}

func (s *Session) WaitForAllElements(ctx context.Context, selector string, timeout time.Duration) ([]Element, error) {
	if _, err := s.WaitForElement(ctx, selector, timeout); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	locs, err := s.page.Locator(selector).All()
	if err != nil {
		return nil, err
	}
	out := make([]Element, 0, len(locs))
	for _, l := range locs {
		out = append(out, &element{s: s, loc: l})
	}
	return out, nil
}

func (s *Session) FindElement(ctx context.Context, selector string) (Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return findIn(s, s.page.Locator(selector))
}

func (s *Session) ScrollToBottom(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.page.Evaluate("() => window.scrollTo(0, document.body.scrollHeight)")
	return err
}

func (s *Session) ScrollWithinElement(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	loc := s.page.Locator(selector).First()
	if n, err := loc.Count(); err != nil || n == 0 {
		return ErrElementNotFound
	}
	_, err := loc.Evaluate("el => { el.scrollTop = el.scrollHeight; }", nil)
	return err
}

func (s *Session) CurrentURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page.URL()
}

func (s *Session) PageTitle(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page.Title()
}

type element struct {
	s   *Session
	loc playwright.Locator
}

const elementReadTimeoutMs = 2000

func (e *element) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	v, err := e.loc.InnerText(playwright.LocatorInnerTextOptions{Timeout: playwright.Float(elementReadTimeoutMs)})
	return v, mapLocatorErr(err)
}

func (e *element) Attr(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	v, err := e.loc.GetAttribute(name, playwright.LocatorGetAttributeOptions{Timeout: playwright.Float(elementReadTimeoutMs)})
	return v, mapLocatorErr(err)
}

func (e *element) Find(ctx context.Context, selector string) (Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	return findIn(e.s, e.loc.Locator(selector))
}

// findIn resolves loc without waiting. Caller holds s.mu.
func findIn(s *Session, loc playwright.Locator) (Element, error) {
	n, err := loc.Count()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrElementNotFound
	}
	return &element{s: s, loc: loc.First()}, nil
}

func mapLocatorErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %v", ErrElementNotFound, err)
	}
	return err
}
