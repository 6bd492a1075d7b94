package tiktok

import (
	"fmt"
	"math"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var countMultipliers = map[byte]float64{
	'K': 1e3,
	'M': 1e6,
	'G': 1e9,
	'B': 1e9,
}

// ParseCount turns display counts such as "1,234", "1.5K" or "3.78M" into integers.
// It returns nil for anything else; count text is unreliable and never fails the caller.
func ParseCount(text string) *int64 {
	s := strings.ReplaceAll(strings.TrimSpace(text), ",", "")
	if s == "" {
		return nil
	}
	if f, ok := parseFiniteFloat(s); ok {
		return countFromFloat(math.Trunc(f))
	}
	last := s[len(s)-1]
	if last >= 'a' && last <= 'z' {
		last -= 'a' - 'A'
	}
	mult, ok := countMultipliers[last]
	if !ok {
		return nil
	}
	f, ok := parseFiniteFloat(strings.TrimSpace(s[:len(s)-1]))
	if !ok {
		return nil
	}
	return countFromFloat(math.Round(f * mult))
}

// countFromFloat returns nil for values outside [0, MaxInt64).
func countFromFloat(f float64) *int64 {
	if f < 0 || f >= math.MaxInt64 {
		return nil
	}
	v := int64(f)
	return &v
}

// parseFiniteFloat accepts unsigned decimal text only.
func parseFiniteFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return 0, false
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

var (
	relativeJPRe = regexp.MustCompile(`^(\d+)\s*(秒|分|時間|日)前$`)
	relativeENRe = regexp.MustCompile(`(?i)^(\d+)\s*(s|m|h|d)\s+ago$`)
	monthDayRe   = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})$`)
	fullDateRe   = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
)

var relativeUnits = map[string]time.Duration{
	"秒":  time.Second,
	"分":  time.Minute,
	"時間": time.Hour,
	"日":  24 * time.Hour,
	"s":  time.Second,
	"m":  time.Minute,
	"h":  time.Hour,
	"d":  24 * time.Hour,
}

// ParseRelativeOrAbsoluteTime reads the post time shown on a video page relative to ref.
//
// Relative forms ("3日前", "3d ago") subtract from ref. "M-D" omits the year: the year is
// ref's year unless the month is later than ref's month, in which case it is the previous
// year (a month equal to ref's month stays in ref's year). "YYYY-M-D" is taken as is.
// Date forms keep ref's time of day and location. Anything else returns nil.
func ParseRelativeOrAbsoluteTime(text string, ref time.Time) *time.Time {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil
	}
	if m := relativeJPRe.FindStringSubmatch(s); m != nil {
		return relativeTime(m[1], m[2], ref)
	}
	if m := relativeENRe.FindStringSubmatch(s); m != nil {
		return relativeTime(m[1], strings.ToLower(m[2]), ref)
	}
	if m := monthDayRe.FindStringSubmatch(s); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year := ref.Year()
		if month > int(ref.Month()) {
			year--
		}
		return dateAt(year, month, day, ref)
	}
	if m := fullDateRe.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		return dateAt(year, month, day, ref)
	}
	return nil
}

func relativeTime(amount, unit string, ref time.Time) *time.Time {
	n, err := strconv.Atoi(amount)
	if err != nil {
		return nil
	}
	d, ok := relativeUnits[unit]
	if !ok || int64(n) > math.MaxInt64/int64(d) {
		return nil
	}
	t := ref.Add(-time.Duration(n) * d)
	return &t
}

func dateAt(year, month, day int, ref time.Time) *time.Time {
	if month < 1 || month > 12 || day < 1 {
		return nil
	}
	t := time.Date(year, time.Month(month), day, ref.Hour(), ref.Minute(), ref.Second(), 0, ref.Location())
	if t.Month() != time.Month(month) || t.Day() != day {
		return nil
	}
	return &t
}

// VideoURLError reports a video link that does not have the /@owner/video/id shape.
type VideoURLError struct {
	URL    string
	Reason string
}

func (e *VideoURLError) Error() string {
	return fmt.Sprintf("malformed video url %q: %s", e.URL, e.Reason)
}

// ParseVideoURL returns the video id (last path segment) and the owner handle (the
// segment three from the end, without its leading '@').
func ParseVideoURL(raw string) (videoID, ownerHandle string, err error) {
	s := strings.TrimSpace(raw)
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	u, perr := url.Parse(s)
	if perr != nil {
		return "", "", &VideoURLError{URL: raw, Reason: perr.Error()}
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segs) < 3 {
		return "", "", &VideoURLError{URL: raw, Reason: "too few path segments"}
	}
	videoID = segs[len(segs)-1]
	ownerHandle = strings.TrimPrefix(segs[len(segs)-3], "@")
	if videoID == "" || ownerHandle == "" {
		return "", "", &VideoURLError{URL: raw, Reason: "missing video id or owner"}
	}
	return videoID, ownerHandle, nil
}

// CanonicalVideoURL builds the stable link stored with every record.
func CanonicalVideoURL(baseURL, ownerHandle, videoID string) string {
	return fmt.Sprintf("%s/@%s/video/%s", strings.TrimRight(baseURL, "/"), ownerHandle, videoID)
}

// ExtractAssetFingerprint reduces a thumbnail URL to the asset name shared by every
// rendition of the same image: the last path segment cut at the first '.' and '~'.
// It returns raw unchanged when nothing usable is found.
func ExtractAssetFingerprint(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	seg := path.Base(u.Path)
	if seg == "." || seg == "/" {
		return raw
	}
	if i := strings.Index(seg, "."); i >= 0 {
		seg = seg[:i]
	}
	if i := strings.Index(seg, "~"); i >= 0 {
		seg = seg[:i]
	}
	if seg == "" {
		return raw
	}
	return seg
}

var audioIDRe = regexp.MustCompile(`-(\d+)/?$`)

// ParseAudioLink splits a music link into its numeric id and "title - author" label.
func ParseAudioLink(href, label string) (id, title, author string) {
	if u, err := url.Parse(strings.TrimSpace(href)); err == nil {
		if m := audioIDRe.FindStringSubmatch(u.Path); m != nil {
			id = m[1]
		}
	}
	label = strings.TrimSpace(label)
	if i := strings.LastIndex(label, " - "); i >= 0 {
		return id, strings.TrimSpace(label[:i]), strings.TrimSpace(label[i+3:])
	}
	return id, label, ""
}
