package tiktok

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tiktok-crawler-go/internal/cache"
	"tiktok-crawler-go/internal/config"
	"tiktok-crawler-go/internal/crawler"
	"tiktok-crawler-go/internal/logger"
	"tiktok-crawler-go/internal/metrics"
	"tiktok-crawler-go/internal/proxy"
	"tiktok-crawler-go/internal/store"
)

const (
	defaultMaxVideos  = 50
	defaultMaxTargets = 10
)

// Crawler runs one identity over a batch of its target accounts.
type Crawler struct {
	repo   store.Repository
	opener SessionOpener
	nav    NavigatorOptions
	now    func() time.Time
}

type Option func(*Crawler)

func WithClock(now func() time.Time) Option {
	return func(c *Crawler) { c.now = now }
}

func New(repo store.Repository, opener SessionOpener, nav NavigatorOptions, opts ...Option) *Crawler {
	c := &Crawler{repo: repo, opener: opener, nav: nav, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

// NewCrawler builds a crawler whose store, cache and proxy pool come from
// config.AppConfig when Run is called.
func NewCrawler() *Crawler {
	return &Crawler{now: time.Now}
}

func (c *Crawler) Run(ctx context.Context, req crawler.Request) (crawler.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	req.Platform = platformName
	if req.Mode == "" {
		req.Mode = crawler.ModeBoth
	}
	if req.MaxVideos <= 0 {
		req.MaxVideos = defaultMaxVideos
	}
	if req.MaxTargets <= 0 {
		req.MaxTargets = defaultMaxTargets
	}

	if c.repo == nil || c.opener == nil {
		release, err := c.wireFromConfig(ctx, config.AppConfig)
		if err != nil {
			return crawler.NewResult(req), err
		}
		defer release()
	}
	return c.runIdentity(ctx, req)
}

// wireFromConfig fills the missing collaborators from cfg. The returned func releases
// whatever was opened here.
func (c *Crawler) wireFromConfig(ctx context.Context, cfg config.Config) (func(), error) {
	var closers []func()
	release := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	if c.repo == nil {
		repo, err := store.Open(ctx, cfg)
		if err != nil {
			return release, fmt.Errorf("open store: %w", err)
		}
		c.repo = repo
		closers = append(closers, func() {
			_ = repo.Close()
			c.repo = nil
		})
	}
	if c.opener == nil {
		kv := cache.NewFromConfig(cfg)
		if kv != nil {
			closers = append(closers, func() { _ = kv.Close() })
		}
		pool, err := proxy.NewPoolFromConfig(cfg)
		if err != nil {
			logger.Warn("proxy pool disabled", "err", err)
			pool = nil
		}
		c.opener = NewBrowserOpener(cfg, kv, pool)
		closers = append(closers, func() { c.opener = nil })
	}
	if c.nav.NotFoundTitle == nil {
		nav, err := NavigatorOptionsFromConfig(cfg)
		if err != nil {
			release()
			return func() {}, err
		}
		c.nav = nav
		closers = append(closers, func() { c.nav = NavigatorOptions{} })
	}
	return release, nil
}

func (c *Crawler) acquireIdentity(ctx context.Context, id int64) (store.CrawlIdentity, error) {
	if id > 0 {
		ident, err := c.repo.IdentityByID(ctx, id)
		if err != nil {
			return store.CrawlIdentity{}, err
		}
		if !ident.Alive {
			return store.CrawlIdentity{}, fmt.Errorf("identity %d is not alive: %w", id, store.ErrNoIdentity)
		}
		return ident, nil
	}
	return c.repo.SelectAvailableIdentity(ctx)
}

// runIdentity is the session bracket: the identity's last-used time is recorded exactly
// once after it is acquired, whatever happens afterwards.
func (c *Crawler) runIdentity(ctx context.Context, req crawler.Request) (crawler.Result, error) {
	out := crawler.NewResult(req)
	identity, err := c.acquireIdentity(ctx, req.IdentityID)
	if err != nil {
		return out, crawler.NewSessionError(platformName, "acquire identity", err)
	}
	out.IdentityID = identity.ID
	logger.Info("identity acquired", "identity_id", identity.ID, "handle", identity.Handle)
	defer func() {
		if err := c.repo.UpdateIdentityLastUsed(context.WithoutCancel(ctx), identity.ID, c.now()); err != nil {
			logger.Warn("record identity last used failed", "identity_id", identity.ID, "err", err)
		}
	}()

	sess, err := c.opener.Open(ctx, identity)
	if err != nil {
		if crawler.IsKind(err, crawler.ErrorKindCanceled) {
			return out, err
		}
		return out, fmt.Errorf("open session for identity %d: %w", identity.ID, err)
	}
	defer sess.Close()

	targets, err := c.repo.SelectTargetBatch(ctx, identity.ID, req.MaxTargets)
	if err != nil {
		return out, fmt.Errorf("select targets: %w", err)
	}
	logger.Info("target batch selected", "identity_id", identity.ID, "targets", len(targets), "mode", req.Mode)

	nav := NewNavigator(sess.Page(), c.nav)
	notFound := 0
	itemRes, runErr := crawler.ForEach(ctx, targets, func(ctx context.Context, t store.TargetAccount) error {
		started := time.Now()
		o := c.crawlTarget(ctx, nav, t, req)
		metrics.TargetDuration.Observe(time.Since(started).Seconds())
		metrics.TargetsTotal.WithLabelValues(string(o.Kind)).Inc()
		out.LightRecords += o.LightRecords
		out.HeavyRecords += o.HeavyRecords
		out.CorrelateMiss += o.CorrelateMiss

		switch o.Kind {
		case OutcomeOK:
			if err := c.repo.UpdateTargetLastCrawled(ctx, t.Handle, c.now()); err != nil {
				logger.Warn("update last crawled failed", "handle", t.Handle, "err", err)
			}
			logger.Info("target done", "handle", t.Handle, "light", o.LightRecords, "heavy", o.HeavyRecords, "correlate_miss", o.CorrelateMiss)
			return nil
		case OutcomeNotFound:
			notFound++
			if err := c.repo.UpdateTargetLiveness(ctx, t.Handle, false); err != nil {
				logger.Warn("mark target dead failed", "handle", t.Handle, "err", err)
			}
			logger.Warn("target not found, marked dead", "handle", t.Handle)
			return nil
		default:
			if !crawler.IsKind(o.Err, crawler.ErrorKindCanceled) {
				logger.Error("target failed", "handle", t.Handle, "kind", crawler.KindOf(o.Err), "err", o.Err)
			}
			return o.Err
		}
	})

	out.Processed = itemRes.Processed
	out.Succeeded = itemRes.Succeeded - notFound
	out.NotFound = notFound
	out.Failed = itemRes.Failed
	out.FailureKinds = crawler.MergeFailureKinds(out.FailureKinds, itemRes.FailureKinds)
	out.FinishedAt = time.Now().Unix()
	return out, runErr
}

// crawlTarget drives the navigator through the passes requested by req.Mode.
func (c *Crawler) crawlTarget(ctx context.Context, nav *Navigator, t store.TargetAccount, req crawler.Request) TargetOutcome {
	out := TargetOutcome{Handle: t.Handle, Kind: OutcomeOK}
	fail := func(err error) TargetOutcome {
		if errors.Is(err, crawler.ErrUserNotFound) && !crawler.IsKind(err, crawler.ErrorKindCanceled) {
			out.Kind = OutcomeNotFound
			return out
		}
		out.Kind = OutcomeFailed
		out.Err = err
		return out
	}
	crawledAt := c.now()

	if err := nav.OpenUserPage(ctx, t.Handle); err != nil {
		return fail(err)
	}
	likes, misses, err := nav.CollectLightLike(ctx, req.MaxVideos)
	if err != nil {
		return fail(err)
	}
	if misses > 0 {
		logger.Warn("post items skipped", "handle", t.Handle, "skipped", misses)
	}
	if len(likes) == 0 {
		logger.Info("no posts found", "handle", t.Handle)
		return out
	}

	if req.Mode.WantsHeavy() {
		existing := map[string]struct{}{}
		if !req.Recrawl {
			existing, err = c.repo.ExistingHeavyVideoIDs(ctx, t.Handle)
			if err != nil {
				return fail(fmt.Errorf("load existing heavy ids: %w", err))
			}
		}
		for _, item := range SelectForHeavy(likes, existing, req.Recrawl) {
			if err := nav.OpenVideoDetail(ctx, item.VideoURL); err != nil {
				return fail(err)
			}
			rec, err := nav.CollectHeavy(ctx, item, crawledAt)
			if err != nil {
				return fail(err)
			}
			if err := c.repo.UpsertHeavyRecord(ctx, rec); err != nil {
				return fail(fmt.Errorf("upsert heavy %s: %w", rec.VideoID, err))
			}
			out.HeavyRecords++
			metrics.RecordsWritten.WithLabelValues("heavy").Inc()
		}
	}

	if req.Mode.WantsLight() {
		if s := nav.State(); s != StateAtVideoDetailPage && s != StateCollectedHeavy {
			if err := nav.OpenVideoDetail(ctx, likes[0].VideoURL); err != nil {
				return fail(err)
			}
		}
		if err := nav.OpenCreatorTab(ctx); err != nil {
			return fail(err)
		}
		plays, _, err := nav.CollectLightPlay(ctx, 0)
		if err != nil {
			return fail(err)
		}
		corr := Correlate(likes, plays, crawledAt)
		out.CorrelateMiss = corr.Misses
		for _, rec := range corr.Records {
			if err := c.repo.UpsertLightRecord(ctx, rec); err != nil {
				return fail(fmt.Errorf("upsert light %s: %w", rec.VideoID, err))
			}
			out.LightRecords++
			metrics.RecordsWritten.WithLabelValues("light").Inc()
		}
	}

	if err := nav.ReturnToUserPage(ctx); err != nil {
		if crawler.IsKind(err, crawler.ErrorKindCanceled) {
			return fail(err)
		}
		logger.Warn("return to user page failed", "handle", t.Handle, "err", err)
	}
	return out
}

// SelectForHeavy picks the videos whose detail page must be visited. With recrawl off,
// already-stored videos at the head of the list (pinned posts) are skipped and the scan
// stops at the first stored id after that, relying on the grid's newest-first order.
func SelectForHeavy(likes []LightLikeItem, existing map[string]struct{}, recrawl bool) []LightLikeItem {
	if recrawl || len(existing) == 0 {
		return likes
	}
	var out []LightLikeItem
	sawNew := false
	for _, it := range likes {
		if _, seen := existing[it.VideoID]; seen {
			if sawNew {
				break
			}
			continue
		}
		sawNew = true
		out = append(out, it)
	}
	return out
}
