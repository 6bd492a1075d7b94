package browser

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

var chromeNames = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"microsoft-edge",
	"msedge",
}

// installPaths lists well-known absolute install locations for goos.
func installPaths(goos, home string) []string {
	switch goos {
	case "darwin":
		return []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
		}
	case "windows":
		return []string{
			filepath.Join(home, "AppData", "Local", "Google", "Chrome", "Application", "chrome.exe"),
			filepath.Join(home, "AppData", "Local", "Microsoft", "Edge", "Application", "msedge.exe"),
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files\Microsoft\Edge\Application\msedge.exe`,
			`C:\Program Files (x86)\Microsoft\Edge\Application\msedge.exe`,
		}
	}
	return nil
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// detectBrowserBinary resolves the Chrome used for CDP mode: explicit path, then
// CHROME_PATH, then PATH lookup, then OS install locations.
func detectBrowserBinary(customPath string) (string, error) {
	if customPath != "" {
		if fileExists(customPath) {
			return customPath, nil
		}
		return "", fmt.Errorf("custom browser path not found: %s", customPath)
	}
	if v := os.Getenv("CHROME_PATH"); v != "" && fileExists(v) {
		return v, nil
	}
	for _, name := range chromeNames {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	for _, p := range installPaths(runtime.GOOS, os.Getenv("USERPROFILE")) {
		if fileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("no chrome/chromium binary found; set CUSTOM_BROWSER_PATH or CHROME_PATH")
}
