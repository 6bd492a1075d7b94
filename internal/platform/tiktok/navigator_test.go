package tiktok

import (
	"context"
	"errors"
	"testing"
	"time"

	"tiktok-crawler-go/internal/crawler"
	"tiktok-crawler-go/internal/store"
)

func TestNavigatorFullSequence(t *testing.T) {
	ctx := context.Background()
	docs := map[string]*fakeDoc{}
	addAccount(docs, "alice", siteOptions{videos: 5, plays: 4})
	page := newFakePage(docs)
	nav := NewNavigator(page, testNavOptions())

	if err := nav.OpenUserPage(ctx, "@alice"); err != nil {
		t.Fatalf("OpenUserPage: %v", err)
	}
	if nav.State() != StateAtUserPage {
		t.Fatalf("state = %s", nav.State())
	}
	likes, misses, err := nav.CollectLightLike(ctx, 50)
	if err != nil || misses != 0 || len(likes) != 5 {
		t.Fatalf("CollectLightLike = %d items, %d misses, err=%v", len(likes), misses, err)
	}
	first := likes[0]
	if first.VideoID != testVideoID(0) || first.OwnerHandle != "alice" || first.LikeCountText != "1.5K" || first.AltText != "post 0" {
		t.Fatalf("unexpected first item: %+v", first)
	}
	if first.VideoURL != CanonicalVideoURL(testBaseURL, "alice", testVideoID(0)) {
		t.Fatalf("video url = %s", first.VideoURL)
	}

	if err := nav.OpenVideoDetail(ctx, first.VideoURL); err != nil {
		t.Fatalf("OpenVideoDetail: %v", err)
	}
	crawledAt := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	rec, err := nav.CollectHeavy(ctx, first, crawledAt)
	if err != nil {
		t.Fatalf("CollectHeavy: %v", err)
	}
	if rec.Caption != "caption 0 #fyp" || rec.Nickname != "Alice" || rec.ExtractionMethod != store.MethodDetailPage {
		t.Fatalf("unexpected heavy record: %+v", rec)
	}
	if rec.PostedAt == nil || !rec.PostedAt.Equal(crawledAt.Add(-72*time.Hour)) {
		t.Fatalf("posted at = %v", rec.PostedAt)
	}
	if rec.AudioID != "99" || rec.AudioTitle != "original sound" || rec.AudioAuthor != "alice" || rec.AudioURL != testBaseURL+"/music/original-sound-99" {
		t.Fatalf("audio = %q %q %q %q", rec.AudioID, rec.AudioTitle, rec.AudioAuthor, rec.AudioURL)
	}
	if rec.LikeCount == nil || *rec.LikeCount != 2500 || rec.ShareCount == nil || *rec.ShareCount != 1200000 || rec.PlayCount != nil {
		t.Fatalf("counts: like=%v share=%v play=%v", rec.LikeCount, rec.ShareCount, rec.PlayCount)
	}

	if err := nav.OpenCreatorTab(ctx); err != nil {
		t.Fatalf("OpenCreatorTab: %v", err)
	}
	plays, _, err := nav.CollectLightPlay(ctx, 0)
	if err != nil || len(plays) != 4 {
		t.Fatalf("CollectLightPlay = %d err=%v", len(plays), err)
	}
	if err := nav.ReturnToUserPage(ctx); err != nil {
		t.Fatalf("ReturnToUserPage: %v", err)
	}
	if nav.State() != StateBackAtUserPage {
		t.Fatalf("final state = %s", nav.State())
	}
	if page.overlap {
		t.Fatalf("page saw overlapping calls")
	}
}

func TestNavigatorRejectsOutOfOrder(t *testing.T) {
	ctx := context.Background()
	docs := map[string]*fakeDoc{}
	addAccount(docs, "alice", siteOptions{videos: 2, plays: 2})
	nav := NewNavigator(newFakePage(docs), testNavOptions())

	if _, _, err := nav.CollectLightLike(ctx, 10); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("CollectLightLike from Idle: %v", err)
	}
	if err := nav.ReturnToUserPage(ctx); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("ReturnToUserPage from Idle: %v", err)
	}
	if err := nav.OpenUserPage(ctx, "alice"); err != nil {
		t.Fatal(err)
	}
	if err := nav.OpenCreatorTab(ctx); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("OpenCreatorTab from AtUserPage: %v", err)
	}
	if _, err := nav.CollectHeavy(ctx, LightLikeItem{}, time.Now()); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("CollectHeavy from AtUserPage: %v", err)
	}
	if nav.State() != StateAtUserPage {
		t.Fatalf("rejected steps changed state to %s", nav.State())
	}
}

func TestNavigatorUserNotFound(t *testing.T) {
	docs := map[string]*fakeDoc{}
	addMissingAccount(docs, "ghost")
	nav := NewNavigator(newFakePage(docs), testNavOptions())

	err := nav.OpenUserPage(context.Background(), "ghost")
	if !errors.Is(err, crawler.ErrUserNotFound) || crawler.KindOf(err) != crawler.ErrorKindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if nav.State() != StateUserNotFound {
		t.Fatalf("state = %s", nav.State())
	}
}

func TestNavigatorPageStateFailures(t *testing.T) {
	ctx := context.Background()
	docs := map[string]*fakeDoc{}
	addAccount(docs, "broken", siteOptions{videos: 2, noAnchor: true})
	docs[testBaseURL+"/@walled"] = &fakeDoc{title: "Verify to continue"}
	docs[testBaseURL+"/@blank"] = &fakeDoc{title: "TikTok"}
	nav := NewNavigator(newFakePage(docs), testNavOptions())

	if err := nav.OpenUserPage(ctx, "blank"); crawler.KindOf(err) != crawler.ErrorKindPageState {
		t.Fatalf("blank page: %v", err)
	}
	if err := nav.OpenUserPage(ctx, "walled"); crawler.KindOf(err) != crawler.ErrorKindRiskHint {
		t.Fatalf("captcha page: %v", err)
	}

	if err := nav.OpenUserPage(ctx, "broken"); err != nil {
		t.Fatal(err)
	}
	likes, _, err := nav.CollectLightLike(ctx, 10)
	if err != nil || len(likes) != 2 {
		t.Fatalf("CollectLightLike: %d %v", len(likes), err)
	}
	if err := nav.OpenVideoDetail(ctx, likes[0].VideoURL); crawler.KindOf(err) != crawler.ErrorKindPageState {
		t.Fatalf("missing detail anchor: %v", err)
	}
}

func TestCollectLightLike_ScrollsAndSkips(t *testing.T) {
	ctx := context.Background()
	docs := map[string]*fakeDoc{}
	addAccount(docs, "alice", siteOptions{videos: 60, batch: 20, badHrefIndex: 7})
	page := newFakePage(docs)
	nav := NewNavigator(page, testNavOptions())

	if err := nav.OpenUserPage(ctx, "alice"); err != nil {
		t.Fatal(err)
	}
	likes, misses, err := nav.CollectLightLike(ctx, 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(likes) != 49 || misses != 1 {
		t.Fatalf("items=%d misses=%d, want 49/1", len(likes), misses)
	}
	if page.scrolls != 2 {
		t.Fatalf("scrolls = %d, want 2", page.scrolls)
	}
	for i := 1; i < len(likes); i++ {
		if likes[i-1].VideoID <= likes[i].VideoID {
			t.Fatalf("items out of page order at %d", i)
		}
	}
}

func TestNavigatorCanceled(t *testing.T) {
	docs := map[string]*fakeDoc{}
	addAccount(docs, "alice", siteOptions{videos: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewNavigator(newFakePage(docs), testNavOptions()).OpenUserPage(ctx, "alice")
	if crawler.KindOf(err) != crawler.ErrorKindCanceled {
		t.Fatalf("expected canceled, got %v", err)
	}
}
