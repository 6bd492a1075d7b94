package store

import "time"

// CrawlIdentity is a login used to drive one browser session.
type CrawlIdentity struct {
	ID       int64      `json:"id"`
	Handle   string     `json:"handle"`
	Secret   string     `json:"-"`
	Proxy    string     `json:"proxy,omitempty"`
	Alive    bool       `json:"alive"`
	LastUsed *time.Time `json:"last_used,omitempty"`
}

// TargetAccount is an account whose public videos are collected by one identity.
type TargetAccount struct {
	ID          int64      `json:"id"`
	Handle      string     `json:"handle"`
	IdentityID  int64      `json:"identity_id"`
	Alive       bool       `json:"alive"`
	Priority    int        `json:"priority"`
	LastCrawled *time.Time `json:"last_crawled,omitempty"`
}

const (
	MethodCorrelated = "like+play"
	MethodLikeOnly   = "like_only"
	MethodDetailPage = "detail_page"
)

// VideoLightRecord is a list-view snapshot of one video. Raw texts are kept next to the
// parsed values so counts can be re-derived later. A nil PlayCount is a valid record.
type VideoLightRecord struct {
	VideoID          string    `json:"video_id"`
	VideoURL         string    `json:"video_url"`
	OwnerHandle      string    `json:"owner_handle"`
	ThumbnailURL     string    `json:"thumbnail_url"`
	AltText          string    `json:"alt_text"`
	LikeCountText    string    `json:"like_count_text"`
	LikeCount        *int64    `json:"like_count"`
	PlayCountText    string    `json:"play_count_text"`
	PlayCount        *int64    `json:"play_count"`
	ExtractionMethod string    `json:"extraction_method"`
	CrawledAt        time.Time `json:"crawled_at"`
}

// VideoHeavyRecord is the detail-page view of one video.
type VideoHeavyRecord struct {
	VideoLightRecord

	Caption          string     `json:"caption"`
	Nickname         string     `json:"nickname"`
	AudioID          string     `json:"audio_id"`
	AudioURL         string     `json:"audio_url"`
	AudioTitle       string     `json:"audio_title"`
	AudioAuthor      string     `json:"audio_author"`
	CommentCountText string     `json:"comment_count_text"`
	CommentCount     *int64     `json:"comment_count"`
	CollectCountText string     `json:"collect_count_text"`
	CollectCount     *int64     `json:"collect_count"`
	ShareCountText   string     `json:"share_count_text"`
	ShareCount       *int64     `json:"share_count"`
	PostTimeText     string     `json:"post_time_text"`
	PostedAt         *time.Time `json:"posted_at"`
}

func unixOrNil(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.Unix()
}

func timeFromUnix(v *int64) *time.Time {
	if v == nil {
		return nil
	}
	t := time.Unix(*v, 0)
	return &t
}

func int64OrNil(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
