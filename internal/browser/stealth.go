package browser

import (
	"os"
	"strings"
	"sync"

	"github.com/playwright-community/playwright-go"
)

const stealthScript = `(function () {
  try {
    Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
  } catch (e) {}

  try {
    window.chrome = window.chrome || { runtime: {} };
  } catch (e) {}

  try {
    Object.defineProperty(navigator, 'languages', { get: () => ['ja-JP', 'ja', 'en-US', 'en'] });
  } catch (e) {}

  try {
    Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
  } catch (e) {}

  try {
    const originalQuery = window.navigator.permissions && window.navigator.permissions.query;
    if (originalQuery) {
      window.navigator.permissions.query = (parameters) => (
        parameters && parameters.name === 'notifications'
          ? Promise.resolve({ state: Notification.permission })
          : originalQuery(parameters)
      );
    }
  } catch (e) {}

  try {
    const getParameter = WebGLRenderingContext.prototype.getParameter;
    WebGLRenderingContext.prototype.getParameter = function (parameter) {
      if (parameter === 37445) return 'Intel Inc.';
      if (parameter === 37446) return 'Intel Iris OpenGL Engine';
      return getParameter.call(this, parameter);
    };
  } catch (e) {}
})();`

var (
	stealthMu    sync.Mutex
	stealthCache = map[string]string{}
)

// resolvedStealthScript prefers the file at path, then libs/stealth.min.js, then the
// built-in script. Results are cached per path.
func resolvedStealthScript(path string) string {
	path = strings.TrimSpace(path)
	stealthMu.Lock()
	defer stealthMu.Unlock()
	if s, ok := stealthCache[path]; ok {
		return s
	}

	p := path
	if p == "" {
		if _, err := os.Stat("libs/stealth.min.js"); err == nil {
			p = "libs/stealth.min.js"
		}
	}
	out := stealthScript
	if p != "" {
		if b, err := os.ReadFile(p); err == nil {
			if s := strings.TrimSpace(string(b)); s != "" {
				out = s
			}
		}
	}
	stealthCache[path] = out
	return out
}

func InjectStealthToPage(page playwright.Page, scriptPath string) error {
	if page == nil {
		return nil
	}
	return page.AddInitScript(playwright.Script{Content: playwright.String(resolvedStealthScript(scriptPath))})
}

func InjectStealthToContext(ctx playwright.BrowserContext, scriptPath string) error {
	if ctx == nil {
		return nil
	}
	return ctx.AddInitScript(playwright.Script{Content: playwright.String(resolvedStealthScript(scriptPath))})
}
