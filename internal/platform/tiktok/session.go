package tiktok

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tiktok-crawler-go/internal/browser"
	"tiktok-crawler-go/internal/cache"
	"tiktok-crawler-go/internal/config"
	"tiktok-crawler-go/internal/crawler"
	"tiktok-crawler-go/internal/logger"
	"tiktok-crawler-go/internal/proxy"
	"tiktok-crawler-go/internal/store"
)

// Session is a logged-in browser owned by one identity for the length of a run.
type Session interface {
	Page() browser.Page
	Close()
}

type SessionOpener interface {
	Open(ctx context.Context, identity store.CrawlIdentity) (Session, error)
}

// CookieJar moves the session cookies in and out of the browser.
type CookieJar interface {
	ExportCookies() ([]byte, error)
	ImportCookies(raw []byte) error
}

type LoginOptions struct {
	BaseURL   string
	Selectors config.Selectors
	ProbeWait time.Duration
	LoginWait time.Duration
	CookieTTL time.Duration
	Pacer     *crawler.Pacer
}

func LoginOptionsFromConfig(cfg config.Config) LoginOptions {
	loginWait := time.Duration(cfg.LoginWaitTimeoutSec) * time.Second
	if loginWait <= 0 {
		loginWait = 60 * time.Second
	}
	probe := time.Duration(cfg.PageWaitTimeoutSec) * time.Second
	if probe <= 0 || probe > loginWait {
		probe = 10 * time.Second
	}
	return LoginOptions{
		BaseURL:   cfg.BaseURL,
		Selectors: cfg.Selectors,
		ProbeWait: probe,
		LoginWait: loginWait,
		CookieTTL: time.Duration(cfg.SessionCookieTTLSec) * time.Second,
		Pacer: crawler.NewPacer(cfg.PacingEnabled,
			time.Duration(cfg.PacingMinMs)*time.Millisecond,
			time.Duration(cfg.PacingMaxMs)*time.Millisecond),
	}
}

func sessionCookieKey(identityID int64) string {
	return fmt.Sprintf("session_cookies:%d", identityID)
}

// Login makes sure page is signed in as identity. Cached cookies are tried first; the
// credential form is only used when they are missing or stale. Fresh cookies are written
// back to c. c may be nil.
func Login(ctx context.Context, page browser.Page, jar CookieJar, c cache.Cache, identity store.CrawlIdentity, opts LoginOptions) error {
	sel := opts.Selectors
	key := sessionCookieKey(identity.ID)
	base := strings.TrimRight(opts.BaseURL, "/")

	restored := false
	if c != nil && jar != nil {
		raw, ok, err := c.Get(ctx, key)
		if err != nil {
			logger.Warn("read cached cookies failed", "identity_id", identity.ID, "err", err)
		} else if ok {
			if err := jar.ImportCookies(raw); err != nil {
				logger.Warn("import cached cookies failed", "identity_id", identity.ID, "err", err)
			} else {
				restored = true
			}
		}
	}

	if err := page.Navigate(ctx, base+"/"); err != nil {
		return crawler.NewSessionError(platformName, "open home page", err)
	}
	if restored {
		if _, err := page.WaitForElement(ctx, sel.ProfileIcon, opts.ProbeWait); err == nil {
			logger.Info("session restored from cookies", "identity_id", identity.ID)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Info("cached cookies rejected, logging in", "identity_id", identity.ID)
	}

	if strings.TrimSpace(identity.Handle) == "" || identity.Secret == "" {
		return crawler.NewSessionError(platformName, fmt.Sprintf("identity %d has no credentials", identity.ID), nil)
	}
	if err := page.Navigate(ctx, base+"/login/phone-or-email/email"); err != nil {
		return crawler.NewSessionError(platformName, "open login page", err)
	}
	if _, err := page.WaitForElement(ctx, sel.LoginUsername, opts.ProbeWait); err != nil {
		return loginFailure(ctx, page, "login form did not appear", err)
	}
	if err := page.Fill(ctx, sel.LoginUsername, identity.Handle); err != nil {
		return crawler.NewSessionError(platformName, "fill username", err)
	}
	if err := opts.Pacer.Pause(ctx); err != nil {
		return err
	}
	if err := page.Fill(ctx, sel.LoginPassword, identity.Secret); err != nil {
		return crawler.NewSessionError(platformName, "fill password", err)
	}
	if err := opts.Pacer.Pause(ctx); err != nil {
		return err
	}
	if err := page.Click(ctx, sel.LoginSubmit); err != nil {
		return crawler.NewSessionError(platformName, "submit login", err)
	}
	if _, err := page.WaitForElement(ctx, sel.ProfileIcon, opts.LoginWait); err != nil {
		return loginFailure(ctx, page, "login did not complete", err)
	}
	logger.Info("login succeeded", "identity_id", identity.ID)

	if c != nil && jar != nil {
		raw, err := jar.ExportCookies()
		if err != nil {
			logger.Warn("export cookies failed", "identity_id", identity.ID, "err", err)
		} else if err := c.Set(ctx, key, raw, opts.CookieTTL); err != nil {
			logger.Warn("cache cookies failed", "identity_id", identity.ID, "err", err)
		}
	}
	return nil
}

func loginFailure(ctx context.Context, page browser.Page, msg string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	title, _ := page.PageTitle(ctx)
	if hint := crawler.DetectRiskHint(title); hint != "" {
		return crawler.NewRiskHintError(platformName, page.CurrentURL(), hint)
	}
	return crawler.NewSessionError(platformName, msg, err)
}

// BrowserOpener launches a playwright browser per identity and logs it in.
type BrowserOpener struct {
	cfg   config.Config
	cache cache.Cache
	pool  *proxy.Pool
}

func NewBrowserOpener(cfg config.Config, c cache.Cache, pool *proxy.Pool) *BrowserOpener {
	return &BrowserOpener{cfg: cfg, cache: c, pool: pool}
}

type browserSession struct {
	s *browser.Session
}

func (b *browserSession) Page() browser.Page { return b.s }
func (b *browserSession) Close()             { b.s.Close() }

func (o *BrowserOpener) Open(ctx context.Context, identity store.CrawlIdentity) (Session, error) {
	cfg := o.cfg
	route, err := o.resolveProxy(ctx, identity)
	if err != nil {
		return nil, crawler.NewSessionError(platformName, "resolve proxy", err)
	}
	opts := browser.LaunchOptions{
		Headless:       cfg.Headless,
		EnableCDP:      cfg.EnableCDPMode,
		UserDataDir:    cfg.UserDataDir,
		SaveLoginState: cfg.SaveLoginState,
		Label:          fmt.Sprintf("identity_%d", identity.ID),
		Locale:         cfg.BrowserLanguage,
		StealthScript:  cfg.StealthScriptPath,
		AutoClose:      cfg.AutoCloseBrowser,
		CDP: browser.CDPOptions{
			DebugPort:         cfg.CDPDebugPort,
			CustomBrowserPath: cfg.CustomBrowserPath,
			Headless:          cfg.CDPHeadless,
			LaunchTimeout:     time.Duration(cfg.BrowserLaunchTimeout) * time.Second,
		},
	}
	if route != nil {
		opts.ProxyServer = route.ChromeProxyServer()
		opts.ProxyUser = route.User
		opts.ProxyPassword = route.Password
		logger.Info("browser egress via proxy", "identity_id", identity.ID, "proxy", opts.ProxyServer)
	}

	bs, err := browser.Launch(ctx, opts)
	if err != nil {
		if route != nil && o.pool != nil && strings.TrimSpace(identity.Proxy) == "" {
			o.pool.InvalidateCurrent()
		}
		return nil, crawler.NewSessionError(platformName, "launch browser", err)
	}
	if err := Login(ctx, bs, bs, o.cache, identity, LoginOptionsFromConfig(cfg)); err != nil {
		bs.Close()
		return nil, err
	}
	return &browserSession{s: bs}, nil
}

// resolveProxy prefers the identity's own proxy and falls back to the pool.
func (o *BrowserOpener) resolveProxy(ctx context.Context, identity store.CrawlIdentity) (*proxy.Proxy, error) {
	if strings.TrimSpace(identity.Proxy) != "" {
		p, err := proxy.Parse(identity.Proxy)
		if err != nil {
			return nil, err
		}
		return &p, nil
	}
	if o.pool == nil {
		return nil, nil
	}
	p, err := o.pool.GetOrRefresh(ctx)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
