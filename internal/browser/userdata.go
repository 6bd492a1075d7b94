package browser

import (
	"os"
	"path/filepath"
	"strings"
)

func PrepareUserDataDir(base string, save bool, label string) (string, func(), error) {
	base = strings.TrimSpace(base)
	label = strings.TrimSpace(label)
	if base == "" {
		base = "browser_data"
	}
	if base == "browser_data" && label != "" {
		base = filepath.Join(base, label)
	}

	if save {
		abs, err := filepath.Abs(base)
		if err != nil {
			return "", nil, err
		}
		if err := os.MkdirAll(abs, 0755); err != nil {
			return "", nil, err
		}
		return abs, func() {}, nil
	}

	prefix := "tiktok-crawler-"
	if label != "" {
		prefix += label + "-"
	}
	dir, err := os.MkdirTemp("", prefix)
	if err != nil {
		return "", nil, err
	}
	return dir, func() { _ = os.RemoveAll(dir) }, nil
}
