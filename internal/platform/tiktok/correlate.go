package tiktok

import (
	"time"

	"tiktok-crawler-go/internal/metrics"
	"tiktok-crawler-go/internal/store"
)

// Correlation is the light-pass join result: one record per like item plus match counts.
type Correlation struct {
	Records []store.VideoLightRecord
	Matched int
	Misses  int
}

// Correlate joins the like pass with the play pass on the thumbnail fingerprint. The like
// pass is authoritative: every like item yields exactly one record, and items whose
// fingerprint has no play entry keep a nil play count and count as a miss. On fingerprint
// collisions inside the play pass the later entry wins.
func Correlate(likes []LightLikeItem, plays []LightPlayItem, crawledAt time.Time) Correlation {
	playByFP := make(map[string]string, len(plays))
	for _, p := range plays {
		fp := ExtractAssetFingerprint(p.ThumbnailURL)
		if fp == "" {
			continue
		}
		playByFP[fp] = p.PlayCountText
	}

	out := Correlation{Records: make([]store.VideoLightRecord, 0, len(likes))}
	for _, l := range likes {
		rec := store.VideoLightRecord{
			VideoID:          l.VideoID,
			VideoURL:         l.VideoURL,
			OwnerHandle:      l.OwnerHandle,
			ThumbnailURL:     l.ThumbnailURL,
			AltText:          l.AltText,
			LikeCountText:    l.LikeCountText,
			LikeCount:        ParseCount(l.LikeCountText),
			ExtractionMethod: store.MethodLikeOnly,
			CrawledAt:        crawledAt,
		}
		fp := ExtractAssetFingerprint(l.ThumbnailURL)
		if text, ok := playByFP[fp]; ok && fp != "" {
			rec.PlayCountText = text
			rec.PlayCount = ParseCount(text)
			rec.ExtractionMethod = store.MethodCorrelated
			out.Matched++
		} else {
			out.Misses++
			metrics.CorrelationMisses.Inc()
		}
		out.Records = append(out.Records, rec)
	}
	metrics.CorrelationMatches.Add(float64(out.Matched))
	return out
}
