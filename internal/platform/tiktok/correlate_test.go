package tiktok

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"tiktok-crawler-go/internal/metrics"
	"tiktok-crawler-go/internal/store"
)

func thumb(asset, variant string) string {
	return fmt.Sprintf("https://p16-sign.tiktokcdn-us.com/tos-useast5-p-0068-tx/%s~tplv-%s.jpeg?x-expires=1718445600", asset, variant)
}

func TestCorrelate_Scenario(t *testing.T) {
	var likes []LightLikeItem
	for i := 0; i < 50; i++ {
		id := fmt.Sprintf("%d", 7350000000000000000+i)
		likes = append(likes, LightLikeItem{
			VideoURL:      CanonicalVideoURL("https://www.tiktok.com", "alice", id),
			VideoID:       id,
			OwnerHandle:   "alice",
			ThumbnailURL:  thumb(fmt.Sprintf("asset%02d", i), "dmt-logom"),
			LikeCountText: "1.2K",
		})
	}
	var plays []LightPlayItem
	for i := 0; i < 45; i++ {
		plays = append(plays, LightPlayItem{ThumbnailURL: thumb(fmt.Sprintf("asset%02d", i), "photomode-zoomcover"), PlayCountText: "3.4M"})
	}
	for i := 0; i < 17; i++ {
		plays = append(plays, LightPlayItem{ThumbnailURL: thumb(fmt.Sprintf("other%02d", i), "x"), PlayCountText: "1"})
	}

	missesBefore := testutil.ToFloat64(metrics.CorrelationMisses)
	at := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	got := Correlate(likes, plays, at)

	if len(got.Records) != 50 || got.Matched != 45 || got.Misses != 5 {
		t.Fatalf("records=%d matched=%d misses=%d", len(got.Records), got.Matched, got.Misses)
	}
	if d := testutil.ToFloat64(metrics.CorrelationMisses) - missesBefore; d != 5 {
		t.Fatalf("miss counter delta = %v, want 5", d)
	}
	var nullPlays int
	for i, rec := range got.Records {
		if rec.VideoID != likes[i].VideoID || rec.OwnerHandle != "alice" || !rec.CrawledAt.Equal(at) {
			t.Fatalf("record %d identity not from like pass: %+v", i, rec)
		}
		if rec.LikeCount == nil || *rec.LikeCount != 1200 {
			t.Fatalf("record %d like count = %v", i, rec.LikeCount)
		}
		if rec.PlayCount == nil {
			nullPlays++
			if rec.ExtractionMethod != store.MethodLikeOnly {
				t.Fatalf("record %d method = %s", i, rec.ExtractionMethod)
			}
			continue
		}
		if *rec.PlayCount != 3400000 || rec.ExtractionMethod != store.MethodCorrelated {
			t.Fatalf("record %d = %+v", i, rec)
		}
	}
	if nullPlays != 5 {
		t.Fatalf("null play counts = %d, want 5", nullPlays)
	}
}

func TestCorrelate_LastPlayWins(t *testing.T) {
	likes := []LightLikeItem{{VideoID: "1", ThumbnailURL: thumb("same", "a")}}
	plays := []LightPlayItem{
		{ThumbnailURL: thumb("same", "b"), PlayCountText: "10"},
		{ThumbnailURL: thumb("same", "c"), PlayCountText: "20"},
	}
	got := Correlate(likes, plays, time.Now())
	if got.Records[0].PlayCountText != "20" {
		t.Fatalf("play text = %q, want later entry", got.Records[0].PlayCountText)
	}
}

func TestCorrelate_EmptyPlayPass(t *testing.T) {
	likes := []LightLikeItem{{VideoID: "1"}, {VideoID: "2", ThumbnailURL: thumb("x", "y")}}
	got := Correlate(likes, nil, time.Now())
	if len(got.Records) != 2 || got.Misses != 2 || got.Matched != 0 {
		t.Fatalf("unexpected %+v", got)
	}
	if got := Correlate(nil, []LightPlayItem{{ThumbnailURL: thumb("x", "y")}}, time.Now()); len(got.Records) != 0 {
		t.Fatalf("expected no records for empty like pass")
	}
}
