package tiktok

// LightLikeItem is one post scraped from a user's post grid. Items keep page order.
type LightLikeItem struct {
	VideoURL      string
	VideoID       string
	OwnerHandle   string
	ThumbnailURL  string
	AltText       string
	LikeCountText string
}

// LightPlayItem is one entry of the creator tab. It carries no identifier, only the
// thumbnail used to join it back to a LightLikeItem.
type LightPlayItem struct {
	ThumbnailURL  string
	PlayCountText string
}

// OutcomeKind tags how one target account ended.
type OutcomeKind string

const (
	OutcomeOK       OutcomeKind = "ok"
	OutcomeNotFound OutcomeKind = "not_found"
	OutcomeFailed   OutcomeKind = "failed"
)

// TargetOutcome is the result of crawling one target account.
type TargetOutcome struct {
	Handle        string
	Kind          OutcomeKind
	Err           error
	LightRecords  int
	HeavyRecords  int
	CorrelateMiss int
}
