package crawler

import (
	"strings"

	"tiktok-crawler-go/internal/config"
)

func RequestFromConfig(cfg config.Config) Request {
	return Request{
		Platform:   strings.TrimSpace(cfg.Platform),
		Mode:       NormalizeMode(cfg.CrawlMode),
		IdentityID: cfg.IdentityID,
		MaxVideos:  cfg.MaxVideosPerTarget,
		MaxTargets: cfg.MaxTargetsPerRun,
		Recrawl:    cfg.Recrawl,
	}
}
