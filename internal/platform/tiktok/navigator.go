package tiktok

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"tiktok-crawler-go/internal/browser"
	"tiktok-crawler-go/internal/config"
	"tiktok-crawler-go/internal/crawler"
	"tiktok-crawler-go/internal/logger"
	"tiktok-crawler-go/internal/metrics"
	"tiktok-crawler-go/internal/store"
)

const platformName = "tiktok"

type State int

const (
	StateIdle State = iota
	StateAtUserPage
	StateCollectedLightLike
	StateAtVideoDetailPage
	StateCollectedHeavy
	StateAtCreatorTab
	StateCollectedLightPlay
	StateBackAtUserPage
	StateUserNotFound
)

var stateNames = map[State]string{
	StateIdle:               "Idle",
	StateAtUserPage:         "AtUserPage",
	StateCollectedLightLike: "CollectedLightLike",
	StateAtVideoDetailPage:  "AtVideoDetailPage",
	StateCollectedHeavy:     "CollectedHeavy",
	StateAtCreatorTab:       "AtCreatorTab",
	StateCollectedLightPlay: "CollectedLightPlay",
	StateBackAtUserPage:     "BackAtUserPage",
	StateUserNotFound:       "UserNotFound",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ErrIllegalTransition is returned when a step is requested out of order.
var ErrIllegalTransition = errors.New("illegal navigator transition")

// NavigatorOptions carries the selectors, waits and pacing the navigator runs with.
type NavigatorOptions struct {
	BaseURL         string
	Selectors       config.Selectors
	PageWait        time.Duration
	ScrollMaxRounds int
	NotFoundTitle   *regexp.Regexp
	Pacer           *crawler.Pacer
}

func NavigatorOptionsFromConfig(cfg config.Config) (NavigatorOptions, error) {
	re, err := regexp.Compile(cfg.NotFoundTitlePattern)
	if err != nil {
		return NavigatorOptions{}, fmt.Errorf("NOT_FOUND_TITLE_PATTERN: %w", err)
	}
	wait := time.Duration(cfg.PageWaitTimeoutSec) * time.Second
	if wait <= 0 {
		wait = 10 * time.Second
	}
	return NavigatorOptions{
		BaseURL:         cfg.BaseURL,
		Selectors:       cfg.Selectors,
		PageWait:        wait,
		ScrollMaxRounds: cfg.ScrollMaxRounds,
		NotFoundTitle:   re,
		Pacer: crawler.NewPacer(cfg.PacingEnabled,
			time.Duration(cfg.PacingMinMs)*time.Millisecond,
			time.Duration(cfg.PacingMaxMs)*time.Millisecond),
	}, nil
}

// Navigator walks one target account through the page sequence
// user page -> video detail -> creator tab -> user page, owning the page for the
// duration of the target. Steps called out of order fail with ErrIllegalTransition.
type Navigator struct {
	page  browser.Page
	opts  NavigatorOptions
	state State

	handle  string
	userURL string
}

func NewNavigator(page browser.Page, opts NavigatorOptions) *Navigator {
	if opts.NotFoundTitle == nil {
		opts.NotFoundTitle = regexp.MustCompile(`(?i)couldn't find this account`)
	}
	if opts.ScrollMaxRounds <= 0 {
		opts.ScrollMaxRounds = 10
	}
	return &Navigator{page: page, opts: opts}
}

func (n *Navigator) State() State { return n.state }

func (n *Navigator) require(step string, allowed ...State) error {
	for _, s := range allowed {
		if n.state == s {
			return nil
		}
	}
	return fmt.Errorf("%w: %s from %s", ErrIllegalTransition, step, n.state)
}

// OpenUserPage starts a new target. It is legal from any state.
func (n *Navigator) OpenUserPage(ctx context.Context, handle string) error {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	n.state = StateIdle
	n.handle = handle
	n.userURL = fmt.Sprintf("%s/@%s", strings.TrimRight(n.opts.BaseURL, "/"), handle)

	if err := n.opts.Pacer.Pause(ctx); err != nil {
		return err
	}
	if err := n.page.Navigate(ctx, n.userURL); err != nil {
		return crawler.NewPageStateError(platformName, n.userURL, "navigate", err)
	}
	if _, err := n.page.WaitForElement(ctx, n.opts.Selectors.UserPostList, n.opts.PageWait); err != nil {
		return n.markerMissing(ctx, n.userURL, n.opts.Selectors.UserPostList, err, true)
	}
	n.state = StateAtUserPage
	return nil
}

// markerMissing classifies a page marker timeout: interruption, deleted account, risk
// interstitial or plain page-state failure.
func (n *Navigator) markerMissing(ctx context.Context, url, marker string, err error, checkNotFound bool) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	title, _ := n.page.PageTitle(ctx)
	if checkNotFound && n.opts.NotFoundTitle.MatchString(title) {
		n.state = StateUserNotFound
		return crawler.NewNotFoundError(platformName, url, title)
	}
	if hint := crawler.DetectRiskHint(title); hint != "" {
		return crawler.NewRiskHintError(platformName, url, hint)
	}
	return crawler.NewPageStateError(platformName, url, marker, err)
}

// CollectLightLike scrolls the post grid until maxVideos items are loaded (or the grid
// stops growing) and extracts them in page order. Items that cannot be read are skipped;
// the number skipped is returned.
func (n *Navigator) CollectLightLike(ctx context.Context, maxVideos int) ([]LightLikeItem, int, error) {
	if err := n.require("CollectLightLike", StateAtUserPage, StateBackAtUserPage); err != nil {
		return nil, 0, err
	}
	sel := n.opts.Selectors
	elems, err := n.scrollCollect(ctx, sel.UserPostItem, maxVideos, n.page.ScrollToBottom)
	if err != nil {
		return nil, 0, err
	}

	items := make([]LightLikeItem, 0, len(elems))
	misses := 0
	for _, el := range elems {
		item, err := n.extractLikeItem(ctx, el)
		if err != nil {
			if ctx.Err() != nil {
				return nil, misses, ctx.Err()
			}
			misses++
			metrics.ExtractionMisses.WithLabelValues("light_like").Inc()
			logger.Debug("skip post item", "handle", n.handle, "err", err)
			continue
		}
		items = append(items, item)
	}
	n.state = StateCollectedLightLike
	return items, misses, nil
}

func (n *Navigator) extractLikeItem(ctx context.Context, el browser.Element) (LightLikeItem, error) {
	sel := n.opts.Selectors
	link, err := el.Find(ctx, sel.PostItemLink)
	if err != nil {
		return LightLikeItem{}, fmt.Errorf("post link: %w", err)
	}
	href, err := link.Attr(ctx, "href")
	if err != nil {
		return LightLikeItem{}, fmt.Errorf("post href: %w", err)
	}
	videoID, owner, err := ParseVideoURL(href)
	if err != nil {
		return LightLikeItem{}, err
	}
	item := LightLikeItem{
		VideoID:     videoID,
		OwnerHandle: owner,
		VideoURL:    CanonicalVideoURL(n.opts.BaseURL, owner, videoID),
	}
	if img, err := el.Find(ctx, sel.PostItemThumbnail); err == nil {
		item.ThumbnailURL, _ = img.Attr(ctx, "src")
		item.AltText, _ = img.Attr(ctx, "alt")
	}
	item.LikeCountText = findText(ctx, el, sel.PostItemLikeCount)
	return item, nil
}

// OpenVideoDetail navigates to a video page. Legal after the light-like pass and while
// iterating detail pages.
func (n *Navigator) OpenVideoDetail(ctx context.Context, videoURL string) error {
	if err := n.require("OpenVideoDetail", StateCollectedLightLike, StateAtVideoDetailPage, StateCollectedHeavy); err != nil {
		return err
	}
	if err := n.opts.Pacer.Pause(ctx); err != nil {
		return err
	}
	if err := n.page.Navigate(ctx, videoURL); err != nil {
		return crawler.NewPageStateError(platformName, videoURL, "navigate", err)
	}
	if _, err := n.page.WaitForElement(ctx, n.opts.Selectors.VideoDetailAnchor, n.opts.PageWait); err != nil {
		return n.markerMissing(ctx, videoURL, n.opts.Selectors.VideoDetailAnchor, err, false)
	}
	n.state = StateAtVideoDetailPage
	return nil
}

// CollectHeavy reads the detail page of item. Missing fields are left empty.
func (n *Navigator) CollectHeavy(ctx context.Context, item LightLikeItem, crawledAt time.Time) (store.VideoHeavyRecord, error) {
	if err := n.require("CollectHeavy", StateAtVideoDetailPage); err != nil {
		return store.VideoHeavyRecord{}, err
	}
	sel := n.opts.Selectors
	page := n.page

	rec := store.VideoHeavyRecord{
		VideoLightRecord: store.VideoLightRecord{
			VideoID:          item.VideoID,
			VideoURL:         item.VideoURL,
			OwnerHandle:      item.OwnerHandle,
			ThumbnailURL:     item.ThumbnailURL,
			AltText:          item.AltText,
			ExtractionMethod: store.MethodDetailPage,
			CrawledAt:        crawledAt,
		},
	}
	rec.Caption = pageText(ctx, page, sel.VideoCaption)
	rec.Nickname = pageText(ctx, page, sel.VideoNickname)
	rec.PostTimeText = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(pageText(ctx, page, sel.VideoPostTime)), "·"))
	rec.PostedAt = ParseRelativeOrAbsoluteTime(rec.PostTimeText, crawledAt)

	if el, err := page.FindElement(ctx, sel.VideoAudioLink); err == nil {
		href, _ := el.Attr(ctx, "href")
		label, _ := el.Text(ctx)
		rec.AudioURL = absoluteURL(n.opts.BaseURL, href)
		rec.AudioID, rec.AudioTitle, rec.AudioAuthor = ParseAudioLink(href, label)
	}

	rec.LikeCountText = pageText(ctx, page, sel.VideoLikeCount)
	if rec.LikeCountText == "" {
		rec.LikeCountText = item.LikeCountText
	}
	rec.LikeCount = ParseCount(rec.LikeCountText)
	rec.CommentCountText = pageText(ctx, page, sel.VideoCommentCount)
	rec.CommentCount = ParseCount(rec.CommentCountText)
	rec.CollectCountText = pageText(ctx, page, sel.VideoCollectCount)
	rec.CollectCount = ParseCount(rec.CollectCountText)
	rec.ShareCountText = pageText(ctx, page, sel.VideoShareCount)
	rec.ShareCount = ParseCount(rec.ShareCountText)

	if err := ctx.Err(); err != nil {
		return store.VideoHeavyRecord{}, err
	}
	if rec.Caption == "" && rec.Nickname == "" {
		metrics.ExtractionMisses.WithLabelValues("heavy").Inc()
		logger.Debug("detail page fields missing", "video_id", item.VideoID)
	}
	n.state = StateCollectedHeavy
	return rec, nil
}

// OpenCreatorTab switches the current detail page to the creator's video tab.
func (n *Navigator) OpenCreatorTab(ctx context.Context) error {
	if err := n.require("OpenCreatorTab", StateAtVideoDetailPage, StateCollectedHeavy); err != nil {
		return err
	}
	sel := n.opts.Selectors
	if err := n.opts.Pacer.Pause(ctx); err != nil {
		return err
	}
	url := n.page.CurrentURL()
	if err := n.page.Click(ctx, sel.CreatorTab); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return crawler.NewPageStateError(platformName, url, sel.CreatorTab, err)
	}
	if _, err := n.page.WaitForElement(ctx, sel.CreatorTabList, n.opts.PageWait); err != nil {
		return n.markerMissing(ctx, url, sel.CreatorTabList, err, false)
	}
	n.state = StateAtCreatorTab
	return nil
}

// CollectLightPlay scrolls the creator tab list and reads thumbnail and play count of each
// entry. Entries without a thumbnail cannot be joined and are skipped.
func (n *Navigator) CollectLightPlay(ctx context.Context, limit int) ([]LightPlayItem, int, error) {
	if err := n.require("CollectLightPlay", StateAtCreatorTab); err != nil {
		return nil, 0, err
	}
	sel := n.opts.Selectors
	scroll := func(ctx context.Context) error { return n.page.ScrollWithinElement(ctx, sel.CreatorTabList) }
	elems, err := n.scrollCollect(ctx, sel.CreatorTabItem, limit, scroll)
	if err != nil {
		return nil, 0, err
	}

	items := make([]LightPlayItem, 0, len(elems))
	misses := 0
	for _, el := range elems {
		var src string
		if img, err := el.Find(ctx, sel.CreatorItemThumb); err == nil {
			src, _ = img.Attr(ctx, "src")
		}
		if ctx.Err() != nil {
			return nil, misses, ctx.Err()
		}
		if strings.TrimSpace(src) == "" {
			misses++
			metrics.ExtractionMisses.WithLabelValues("light_play").Inc()
			continue
		}
		items = append(items, LightPlayItem{ThumbnailURL: src, PlayCountText: findText(ctx, el, sel.CreatorItemPlayCnt)})
	}
	n.state = StateCollectedLightPlay
	return items, misses, nil
}

// ReturnToUserPage closes the target by navigating back to the user page.
func (n *Navigator) ReturnToUserPage(ctx context.Context) error {
	if err := n.require("ReturnToUserPage",
		StateAtUserPage, StateCollectedLightLike, StateAtVideoDetailPage,
		StateCollectedHeavy, StateAtCreatorTab, StateCollectedLightPlay); err != nil {
		return err
	}
	if err := n.page.Navigate(ctx, n.userURL); err != nil {
		return crawler.NewPageStateError(platformName, n.userURL, "navigate", err)
	}
	if _, err := n.page.WaitForElement(ctx, n.opts.Selectors.UserPostList, n.opts.PageWait); err != nil {
		return n.markerMissing(ctx, n.userURL, n.opts.Selectors.UserPostList, err, false)
	}
	n.state = StateBackAtUserPage
	return nil
}

// scrollCollect waits for the first item, then scrolls until limit items are present, the
// count stops growing, or the round budget runs out. limit <= 0 means no limit.
func (n *Navigator) scrollCollect(ctx context.Context, itemSel string, limit int, scroll func(context.Context) error) ([]browser.Element, error) {
	url := n.page.CurrentURL()
	elems, err := n.page.WaitForAllElements(ctx, itemSel, n.opts.PageWait)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, browser.ErrElementNotFound) {
			return nil, nil
		}
		return nil, crawler.NewPageStateError(platformName, url, itemSel, err)
	}
	for round := 0; round < n.opts.ScrollMaxRounds; round++ {
		if limit > 0 && len(elems) >= limit {
			break
		}
		if err := scroll(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Debug("scroll failed", "url", url, "err", err)
			break
		}
		if err := n.opts.Pacer.Pause(ctx); err != nil {
			return nil, err
		}
		more, err := n.page.WaitForAllElements(ctx, itemSel, n.opts.PageWait)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			break
		}
		grew := len(more) > len(elems)
		elems = more
		if !grew {
			break
		}
	}
	if limit > 0 && len(elems) > limit {
		elems = elems[:limit]
	}
	return elems, nil
}

func findText(ctx context.Context, el browser.Element, selector string) string {
	if selector == "" {
		return ""
	}
	child, err := el.Find(ctx, selector)
	if err != nil {
		return ""
	}
	text, _ := child.Text(ctx)
	return strings.TrimSpace(text)
}

func pageText(ctx context.Context, page browser.Page, selector string) string {
	if selector == "" {
		return ""
	}
	el, err := page.FindElement(ctx, selector)
	if err != nil {
		return ""
	}
	text, _ := el.Text(ctx)
	return strings.TrimSpace(text)
}

func absoluteURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(href, "/")
}
