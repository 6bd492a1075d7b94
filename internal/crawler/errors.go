package crawler

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

type ErrorKind string

const (
	ErrorKindUnknown        ErrorKind = "unknown"
	ErrorKindExtractionMiss ErrorKind = "extraction_miss"
	ErrorKindPageState      ErrorKind = "page_state"
	ErrorKindNotFound       ErrorKind = "not_found"
	ErrorKindSession        ErrorKind = "session"
	ErrorKindRiskHint       ErrorKind = "risk_hint"
	ErrorKindHTTP           ErrorKind = "http"
	ErrorKindRateLimited    ErrorKind = "rate_limited"
	ErrorKindForbidden      ErrorKind = "forbidden"
	ErrorKindInvalidInput   ErrorKind = "invalid_input"
	ErrorKindCanceled       ErrorKind = "canceled"
	ErrorKindTimeout        ErrorKind = "timeout"
)

// ErrUserNotFound marks a target account that no longer exists on the site.
var ErrUserNotFound = errors.New("user not found")

type Error struct {
	Kind     ErrorKind
	Platform string
	URL      string
	Hint     string
	Msg      string
	Err      error
}

func (e Error) Error() string {
	base := e.Msg
	if base == "" && e.Err != nil {
		base = e.Err.Error()
	} else if e.Err != nil {
		base = base + ": " + e.Err.Error()
	}
	if base == "" {
		base = string(e.Kind)
	}
	if e.Platform != "" && e.URL != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Platform, base, e.URL)
	}
	if e.Platform != "" {
		return fmt.Sprintf("%s: %s", e.Platform, base)
	}
	return base
}

func (e Error) Unwrap() error { return e.Err }

// KindOf classifies err. Cancellation wins over everything else so an operator interrupt is
// never mistaken for an ordinary target failure.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return ErrorKindCanceled
	}
	var ce Error
	if errors.As(err, &ce) && ce.Kind != "" {
		return ce.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorKindTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ErrorKindTimeout
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status=429") {
		return ErrorKindRateLimited
	}
	if strings.Contains(msg, "http status=403") || strings.Contains(msg, "http status=401") {
		return ErrorKindForbidden
	}
	if strings.Contains(msg, "http status=") {
		return ErrorKindHTTP
	}
	return ErrorKindUnknown
}

func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

func MergeFailureKinds(dst map[string]int, src map[string]int) map[string]int {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]int, len(src))
	}
	for k, v := range src {
		dst[k] += v
	}
	return dst
}

func NewRiskHintError(platform, url, hint string) error {
	return Error{
		Kind:     ErrorKindRiskHint,
		Platform: platform,
		URL:      url,
		Hint:     hint,
		Msg:      fmt.Sprintf("risk hint detected: %s", hint),
	}
}

func NewPageStateError(platform, url, marker string, err error) error {
	return Error{
		Kind:     ErrorKindPageState,
		Platform: platform,
		URL:      url,
		Msg:      fmt.Sprintf("page marker %q did not appear", marker),
		Err:      err,
	}
}

func NewNotFoundError(platform, url, title string) error {
	return Error{
		Kind:     ErrorKindNotFound,
		Platform: platform,
		URL:      url,
		Msg:      fmt.Sprintf("account not found (title=%q)", title),
		Err:      ErrUserNotFound,
	}
}

func NewSessionError(platform, msg string, err error) error {
	return Error{
		Kind:     ErrorKindSession,
		Platform: platform,
		Msg:      msg,
		Err:      err,
	}
}
