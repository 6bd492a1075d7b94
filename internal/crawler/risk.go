package crawler

import "strings"

// DetectRiskHint looks for anti-automation interstitials in a page title or body text.
func DetectRiskHint(text string) string {
	s := strings.TrimSpace(text)
	if s == "" {
		return ""
	}
	lower := strings.ToLower(s)
	if strings.Contains(lower, "captcha") || strings.Contains(lower, "verify to continue") || strings.Contains(lower, "drag the slider") {
		return "captcha"
	}
	if strings.Contains(s, "認証") || strings.Contains(s, "パズル") {
		return "captcha"
	}
	if strings.Contains(lower, "too many attempts") || strings.Contains(lower, "maximum number of attempts") {
		return "rate_limited"
	}
	if strings.Contains(lower, "forbidden") || strings.Contains(lower, "access denied") {
		return "forbidden"
	}
	return ""
}
