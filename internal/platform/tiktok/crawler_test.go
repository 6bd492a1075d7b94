package tiktok

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"tiktok-crawler-go/internal/browser"
	"tiktok-crawler-go/internal/config"
	"tiktok-crawler-go/internal/crawler"
	"tiktok-crawler-go/internal/store"
)

type countingRepo struct {
	store.Repository
	lastUsedCalls atomic.Int32
}

func (r *countingRepo) UpdateIdentityLastUsed(ctx context.Context, id int64, at time.Time) error {
	r.lastUsedCalls.Add(1)
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.Repository.UpdateIdentityLastUsed(ctx, id, at)
}

type fakeSession struct {
	page   *fakePage
	closed int
}

func (s *fakeSession) Page() browser.Page { return s.page }
func (s *fakeSession) Close()             { s.closed++ }

type fakeOpener struct {
	sess   *fakeSession
	opened []int64
	err    error
}

func (o *fakeOpener) Open(ctx context.Context, identity store.CrawlIdentity) (Session, error) {
	o.opened = append(o.opened, identity.ID)
	if o.err != nil {
		return nil, o.err
	}
	return o.sess, nil
}

func openTestRepo(t *testing.T) *countingRepo {
	t.Helper()
	cfg := config.Default()
	cfg.StoreBackend = "sqlite"
	cfg.SQLitePath = filepath.Join(t.TempDir(), "crawler.db")
	repo, err := store.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return &countingRepo{Repository: repo}
}

func seedBatch(t *testing.T, repo store.Repository, handles ...string) int64 {
	t.Helper()
	ctx := context.Background()
	id, err := repo.SeedIdentity(ctx, store.CrawlIdentity{Handle: "crawler@example.com", Secret: "pw", Alive: true})
	if err != nil {
		t.Fatalf("seed identity: %v", err)
	}
	for i, h := range handles {
		if _, err := repo.SeedTarget(ctx, store.TargetAccount{Handle: h, IdentityID: id, Alive: true, Priority: len(handles) - i}); err != nil {
			t.Fatalf("seed target %s: %v", h, err)
		}
	}
	return id
}

func newTestCrawler(repo store.Repository, page *fakePage) (*Crawler, *fakeOpener) {
	opener := &fakeOpener{sess: &fakeSession{page: page}}
	at := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	return New(repo, opener, testNavOptions(), WithClock(func() time.Time { return at })), opener
}

func TestCrawlerRun_BothModes(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	identityID := seedBatch(t, repo, "alice", "ghost", "broken")

	docs := map[string]*fakeDoc{}
	addAccount(docs, "alice", siteOptions{videos: 5, plays: 4})
	addMissingAccount(docs, "ghost")
	addAccount(docs, "broken", siteOptions{videos: 3, plays: 3, noAnchor: true})
	page := newFakePage(docs)
	c, opener := newTestCrawler(repo, page)

	res, err := c.Run(ctx, crawler.Request{Mode: crawler.ModeBoth, MaxVideos: 50, MaxTargets: 10})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Processed != 3 || res.Succeeded != 1 || res.NotFound != 1 || res.Failed != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.LightRecords != 5 || res.HeavyRecords != 5 || res.CorrelateMiss != 1 {
		t.Fatalf("record counts: %+v", res)
	}
	if res.FailureKinds[string(crawler.ErrorKindPageState)] != 1 {
		t.Fatalf("failure kinds: %v", res.FailureKinds)
	}
	if res.IdentityID != identityID || len(opener.opened) != 1 || opener.sess.closed != 1 {
		t.Fatalf("session bracket: identity=%d opened=%v closed=%d", res.IdentityID, opener.opened, opener.sess.closed)
	}
	if n := repo.lastUsedCalls.Load(); n != 1 {
		t.Fatalf("UpdateIdentityLastUsed calls = %d", n)
	}
	if page.overlap {
		t.Fatalf("overlapping page calls")
	}

	light, err := repo.ListLightRecords(ctx, "alice")
	if err != nil || len(light) != 5 {
		t.Fatalf("light rows = %d err=%v", len(light), err)
	}
	var correlated int
	for _, r := range light {
		if r.ExtractionMethod == store.MethodCorrelated {
			correlated++
		}
	}
	if correlated != 4 {
		t.Fatalf("correlated rows = %d", correlated)
	}
	heavy, err := repo.ListHeavyRecords(ctx, "")
	if err != nil || len(heavy) != 5 {
		t.Fatalf("heavy rows = %d err=%v", len(heavy), err)
	}
	for _, h := range heavy {
		if h.OwnerHandle != "alice" {
			t.Fatalf("heavy row for %s written", h.OwnerHandle)
		}
	}

	batch, err := repo.SelectTargetBatch(ctx, identityID, 10)
	if err != nil {
		t.Fatal(err)
	}
	var handles []string
	for _, tgt := range batch {
		handles = append(handles, tgt.Handle)
		if tgt.Handle == "alice" && tgt.LastCrawled == nil {
			t.Fatalf("alice last crawled not recorded")
		}
	}
	if strings.Join(handles, ",") != "broken,alice" {
		t.Fatalf("live targets after run = %v", handles)
	}
}

func TestCrawlerRun_HeavyDedup(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	seedBatch(t, repo, "alice")
	for i := 0; i < 3; i++ {
		rec := store.VideoHeavyRecord{VideoLightRecord: store.VideoLightRecord{
			VideoID: testVideoID(i), OwnerHandle: "alice", CrawledAt: time.Unix(1700000000, 0),
		}}
		if err := repo.UpsertHeavyRecord(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	docs := map[string]*fakeDoc{}
	addAccount(docs, "alice", siteOptions{videos: 10})
	page := newFakePage(docs)
	c, _ := newTestCrawler(repo, page)

	res, err := c.Run(ctx, crawler.Request{Mode: crawler.ModeHeavy, MaxVideos: 10})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	var want []string
	for i := 3; i < 10; i++ {
		want = append(want, CanonicalVideoURL(testBaseURL, "alice", testVideoID(i)))
	}
	if got := page.videoURLsVisited(); !reflect.DeepEqual(got, want) {
		t.Fatalf("visited %v\nwant %v", got, want)
	}
	if res.HeavyRecords != 7 || res.LightRecords != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestCrawlerRun_Recrawl(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	seedBatch(t, repo, "alice")
	if err := repo.UpsertHeavyRecord(ctx, store.VideoHeavyRecord{VideoLightRecord: store.VideoLightRecord{
		VideoID: testVideoID(0), OwnerHandle: "alice", CrawledAt: time.Unix(1700000000, 0),
	}}); err != nil {
		t.Fatal(err)
	}
	docs := map[string]*fakeDoc{}
	addAccount(docs, "alice", siteOptions{videos: 4})
	page := newFakePage(docs)
	c, _ := newTestCrawler(repo, page)

	if _, err := c.Run(ctx, crawler.Request{Mode: crawler.ModeHeavy, Recrawl: true}); err != nil {
		t.Fatal(err)
	}
	if got := len(page.videoURLsVisited()); got != 4 {
		t.Fatalf("visited %d detail pages, want 4", got)
	}
}

func TestCrawlerRun_CancelPropagates(t *testing.T) {
	repo := openTestRepo(t)
	seedBatch(t, repo, "alice", "bob", "carol")
	docs := map[string]*fakeDoc{}
	for _, h := range []string{"alice", "bob", "carol"} {
		addAccount(docs, h, siteOptions{videos: 2, plays: 2})
	}
	page := newFakePage(docs)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	page.onNavigate = func(url string) {
		if url == testBaseURL+"/@bob" {
			cancel()
		}
	}
	c, opener := newTestCrawler(repo, page)

	res, err := c.Run(ctx, crawler.Request{Mode: crawler.ModeLight})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if res.Succeeded != 1 || res.Failed != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	for _, u := range page.visited {
		if strings.Contains(u, "carol") {
			t.Fatalf("continued to next target after cancel: %v", page.visited)
		}
	}
	if n := repo.lastUsedCalls.Load(); n != 1 {
		t.Fatalf("UpdateIdentityLastUsed calls = %d", n)
	}
	if opener.sess.closed != 1 {
		t.Fatalf("session not released")
	}
}

func TestCrawlerRun_NoIdentity(t *testing.T) {
	repo := openTestRepo(t)
	c, opener := newTestCrawler(repo, newFakePage(nil))
	_, err := c.Run(context.Background(), crawler.Request{})
	if !errors.Is(err, store.ErrNoIdentity) || crawler.KindOf(err) != crawler.ErrorKindSession {
		t.Fatalf("expected session error wrapping ErrNoIdentity, got %v", err)
	}
	if len(opener.opened) != 0 || repo.lastUsedCalls.Load() != 0 {
		t.Fatalf("nothing should run without an identity")
	}
}

func TestCrawlerRun_SessionFailureStillRecordsLastUsed(t *testing.T) {
	repo := openTestRepo(t)
	seedBatch(t, repo, "alice")
	c, opener := newTestCrawler(repo, newFakePage(nil))
	opener.err = crawler.NewSessionError(platformName, "login did not complete", errors.New("timeout"))

	_, err := c.Run(context.Background(), crawler.Request{})
	if crawler.KindOf(err) != crawler.ErrorKindSession {
		t.Fatalf("expected session error, got %v", err)
	}
	if n := repo.lastUsedCalls.Load(); n != 1 {
		t.Fatalf("UpdateIdentityLastUsed calls = %d", n)
	}
}

func TestSelectForHeavy(t *testing.T) {
	var likes []LightLikeItem
	for i := 1; i <= 10; i++ {
		likes = append(likes, LightLikeItem{VideoID: string(rune('a' + i - 1))})
	}
	ids := func(items []LightLikeItem) string {
		var b strings.Builder
		for _, it := range items {
			b.WriteString(it.VideoID)
		}
		return b.String()
	}
	seen := func(keys ...string) map[string]struct{} {
		m := map[string]struct{}{}
		for _, k := range keys {
			m[k] = struct{}{}
		}
		return m
	}
	tests := []struct {
		name     string
		existing map[string]struct{}
		recrawl  bool
		want     string
	}{
		{name: "first three stored", existing: seen("a", "b", "c"), want: "defghij"},
		{name: "nothing stored", existing: seen(), want: "abcdefghij"},
		{name: "stop at first stored", existing: seen("f", "g"), want: "abcde"},
		{name: "pinned then stop", existing: seen("a", "e"), want: "bcd"},
		{name: "recrawl", existing: seen("a", "b"), recrawl: true, want: "abcdefghij"},
		{name: "all stored", existing: seen("a", "b", "c", "d", "e", "f", "g", "h", "i", "j"), want: ""},
	}
	for _, tt := range tests {
		if got := ids(SelectForHeavy(likes, tt.existing, tt.recrawl)); got != tt.want {
			t.Fatalf("%s: got %q want %q", tt.name, got, tt.want)
		}
	}
}
