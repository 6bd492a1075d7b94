package crawler

import (
	"context"
	"strings"
	"time"
)

type Mode string

const (
	ModeLight Mode = "light"
	ModeHeavy Mode = "heavy"
	ModeBoth  Mode = "both"
)

func NormalizeMode(s string) Mode {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "light":
		return ModeLight
	case "heavy":
		return ModeHeavy
	default:
		return ModeBoth
	}
}

func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "light":
		return ModeLight, true
	case "heavy":
		return ModeHeavy, true
	case "both":
		return ModeBoth, true
	default:
		return "", false
	}
}

func (m Mode) WantsLight() bool { return m == ModeLight || m == ModeBoth }
func (m Mode) WantsHeavy() bool { return m == ModeHeavy || m == ModeBoth }

type Request struct {
	Platform string
	Mode     Mode

	// IdentityID overrides least-recently-used identity selection when > 0.
	IdentityID int64

	MaxVideos  int
	MaxTargets int
	Recrawl    bool
}

type Result struct {
	Platform      string         `json:"platform,omitempty"`
	Mode          string         `json:"mode,omitempty"`
	IdentityID    int64          `json:"identity_id,omitempty"`
	StartedAt     int64          `json:"started_at,omitempty"`
	FinishedAt    int64          `json:"finished_at,omitempty"`
	Processed     int            `json:"processed,omitempty"`
	Succeeded     int            `json:"succeeded,omitempty"`
	NotFound      int            `json:"not_found,omitempty"`
	Failed        int            `json:"failed,omitempty"`
	LightRecords  int            `json:"light_records,omitempty"`
	HeavyRecords  int            `json:"heavy_records,omitempty"`
	CorrelateMiss int            `json:"correlate_miss,omitempty"`
	FailureKinds  map[string]int `json:"failure_kinds,omitempty"`
}

func NewResult(req Request) Result {
	return Result{
		Platform:   req.Platform,
		Mode:       string(req.Mode),
		IdentityID: req.IdentityID,
		StartedAt:  time.Now().Unix(),
	}
}

type Runner interface {
	Run(ctx context.Context, req Request) (Result, error)
}
