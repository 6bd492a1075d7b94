package platform_test

import (
	"testing"

	"tiktok-crawler-go/internal/platform"
	_ "tiktok-crawler-go/internal/platform/tiktok"
)

func TestBuiltinsRegistered(t *testing.T) {
	for _, name := range []string{"tiktok", "tt", "TikTok"} {
		if _, err := platform.New(name); err != nil {
			t.Fatalf("New(%s) err: %v", name, err)
		}
	}
}
