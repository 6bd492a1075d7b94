package tiktok

import (
	"tiktok-crawler-go/internal/crawler"
	"tiktok-crawler-go/internal/platform"
)

func init() {
	platform.Register(platformName, []string{"tt"}, func() crawler.Runner { return NewCrawler() })
}
