package tiktok

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"tiktok-crawler-go/internal/browser"
	"tiktok-crawler-go/internal/config"
)

const testBaseURL = "https://www.tiktok.com"

type fakeElement struct {
	text     string
	attrs    map[string]string
	children map[string]*fakeElement
}

func (e *fakeElement) Text(ctx context.Context) (string, error) { return e.text, nil }

func (e *fakeElement) Attr(ctx context.Context, name string) (string, error) {
	v, ok := e.attrs[name]
	if !ok {
		return "", browser.ErrElementNotFound
	}
	return v, nil
}

func (e *fakeElement) Find(ctx context.Context, selector string) (browser.Element, error) {
	c, ok := e.children[selector]
	if !ok {
		return nil, browser.ErrElementNotFound
	}
	return c, nil
}

// fakeDoc is one page of the fake site. batch limits how many items of a selector are
// visible before each scroll; clicks reveal more elements on the same page.
type fakeDoc struct {
	title  string
	elems  map[string][]*fakeElement
	clicks map[string]map[string][]*fakeElement
	batch  map[string]int
}

type fakePage struct {
	mu       sync.Mutex
	inFlight int
	overlap  bool

	docs     map[string]*fakeDoc
	url      string
	doc      *fakeDoc
	revealed map[string]int
	extra    map[string][]*fakeElement

	visited []string
	fills   map[string]string
	clicked []string
	scrolls int

	loggedIn   bool
	profileSel string
	cookies    []byte

	onNavigate func(url string)
	onClick    func(p *fakePage, selector string)
}

var _ browser.Page = (*fakePage)(nil)

func newFakePage(docs map[string]*fakeDoc) *fakePage {
	return &fakePage{docs: docs, doc: &fakeDoc{}, fills: map[string]string{}}
}

func (p *fakePage) enter() func() {
	p.mu.Lock()
	p.inFlight++
	if p.inFlight > 1 {
		p.overlap = true
	}
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		p.inFlight--
		p.mu.Unlock()
	}
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	defer p.enter()()
	p.visited = append(p.visited, url)
	if p.onNavigate != nil {
		p.onNavigate(url)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p.url = url
	p.doc = p.docs[url]
	if p.doc == nil {
		p.doc = &fakeDoc{}
	}
	p.revealed = map[string]int{}
	for sel, n := range p.doc.batch {
		p.revealed[sel] = n
	}
	p.extra = map[string][]*fakeElement{}
	return nil
}

func (p *fakePage) lookup(selector string) []*fakeElement {
	if p.loggedIn && selector == p.profileSel {
		return []*fakeElement{{}}
	}
	all := append(append([]*fakeElement{}, p.doc.elems[selector]...), p.extra[selector]...)
	if n, ok := p.revealed[selector]; ok && n < len(all) {
		all = all[:n]
	}
	return all
}

func (p *fakePage) Click(ctx context.Context, selector string) error {
	defer p.enter()()
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(p.lookup(selector)) == 0 {
		return fmt.Errorf("click %s: %w", selector, browser.ErrElementNotFound)
	}
	p.clicked = append(p.clicked, selector)
	for sel, elems := range p.doc.clicks[selector] {
		p.extra[sel] = append(p.extra[sel], elems...)
	}
	if p.onClick != nil {
		p.onClick(p, selector)
	}
	return nil
}

func (p *fakePage) Fill(ctx context.Context, selector, value string) error {
	defer p.enter()()
	if len(p.lookup(selector)) == 0 {
		return fmt.Errorf("fill %s: %w", selector, browser.ErrElementNotFound)
	}
	p.fills[selector] = value
	return nil
}

func (p *fakePage) WaitForElement(ctx context.Context, selector string, timeout time.Duration) (browser.Element, error) {
	defer p.enter()()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	found := p.lookup(selector)
	if len(found) == 0 {
		return nil, fmt.Errorf("wait %s: %w", selector, browser.ErrElementNotFound)
	}
	return found[0], nil
}

func (p *fakePage) WaitForAllElements(ctx context.Context, selector string, timeout time.Duration) ([]browser.Element, error) {
	defer p.enter()()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	found := p.lookup(selector)
	if len(found) == 0 {
		return nil, fmt.Errorf("wait all %s: %w", selector, browser.ErrElementNotFound)
	}
	out := make([]browser.Element, len(found))
	for i, el := range found {
		out[i] = el
	}
	return out, nil
}

func (p *fakePage) FindElement(ctx context.Context, selector string) (browser.Element, error) {
	found := p.lookup(selector)
	if len(found) == 0 {
		return nil, browser.ErrElementNotFound
	}
	return found[0], nil
}

func (p *fakePage) scroll() {
	p.scrolls++
	for sel := range p.revealed {
		p.revealed[sel] += p.doc.batch[sel]
	}
}

func (p *fakePage) ScrollToBottom(ctx context.Context) error {
	defer p.enter()()
	p.scroll()
	return ctx.Err()
}

func (p *fakePage) ScrollWithinElement(ctx context.Context, selector string) error {
	defer p.enter()()
	p.scroll()
	return ctx.Err()
}

func (p *fakePage) CurrentURL() string { return p.url }

func (p *fakePage) PageTitle(ctx context.Context) (string, error) { return p.doc.title, nil }

func (p *fakePage) ExportCookies() ([]byte, error) { return []byte("good"), nil }

func (p *fakePage) ImportCookies(raw []byte) error {
	p.cookies = raw
	if string(raw) == "good" {
		p.loggedIn = true
	}
	return nil
}

// videoURLsVisited returns the detail pages navigated to, in order.
func (p *fakePage) videoURLsVisited() []string {
	var out []string
	for _, u := range p.visited {
		if strings.Contains(u, "/video/") {
			out = append(out, u)
		}
	}
	return out
}

func testSelectors() config.Selectors {
	return config.Default().Selectors
}

func testNavOptions() NavigatorOptions {
	cfg := config.Default()
	return NavigatorOptions{
		BaseURL:         testBaseURL,
		Selectors:       cfg.Selectors,
		PageWait:        time.Millisecond,
		ScrollMaxRounds: 5,
		NotFoundTitle:   regexp.MustCompile(cfg.NotFoundTitlePattern),
	}
}

func testVideoID(i int) string {
	return fmt.Sprintf("%d", 7350000000000000100-i)
}

// siteOptions shapes one account of the fake site.
type siteOptions struct {
	videos       int
	plays        int
	batch        int
	noAnchor     bool
	badHrefIndex int
}

// addAccount adds a user page, its video pages and the creator tab to docs.
func addAccount(docs map[string]*fakeDoc, handle string, o siteOptions) {
	sel := testSelectors()
	var posts []*fakeElement
	for i := 0; i < o.videos; i++ {
		href := fmt.Sprintf("/@%s/video/%s", handle, testVideoID(i))
		if o.badHrefIndex > 0 && i == o.badHrefIndex {
			href = "/@" + handle
		}
		posts = append(posts, &fakeElement{children: map[string]*fakeElement{
			sel.PostItemLink:      {attrs: map[string]string{"href": href}},
			sel.PostItemThumbnail: {attrs: map[string]string{"src": thumb(fmt.Sprintf("%s%02d", handle, i), "grid"), "alt": fmt.Sprintf("post %d", i)}},
			sel.PostItemLikeCount: {text: "1.5K"},
		}})
	}
	user := &fakeDoc{
		title: fmt.Sprintf("%s | TikTok", handle),
		elems: map[string][]*fakeElement{
			sel.UserPostList: {{}},
			sel.UserPostItem: posts,
		},
	}
	if o.batch > 0 {
		user.batch = map[string]int{sel.UserPostItem: o.batch}
	}
	docs[testBaseURL+"/@"+handle] = user

	var plays []*fakeElement
	for i := 0; i < o.plays; i++ {
		plays = append(plays, &fakeElement{children: map[string]*fakeElement{
			sel.CreatorItemThumb:   {attrs: map[string]string{"src": thumb(fmt.Sprintf("%s%02d", handle, i), "creator")}},
			sel.CreatorItemPlayCnt: {text: "10K"},
		}})
	}
	for i := 0; i < o.videos; i++ {
		detail := &fakeDoc{
			title: "video | TikTok",
			elems: map[string][]*fakeElement{
				sel.VideoNickname:     {{text: "Alice"}},
				sel.VideoPostTime:     {{text: "3日前"}},
				sel.VideoAudioLink:    {{text: "original sound - " + handle, attrs: map[string]string{"href": "/music/original-sound-99"}}},
				sel.VideoLikeCount:    {{text: "2.5K"}},
				sel.VideoCommentCount: {{text: "12"}},
				sel.VideoCollectCount: {{text: "3"}},
				sel.VideoShareCount:   {{text: "1.2M"}},
				sel.CreatorTab:        {{}},
			},
			clicks: map[string]map[string][]*fakeElement{
				sel.CreatorTab: {
					sel.CreatorTabList: {{}},
					sel.CreatorTabItem: plays,
				},
			},
		}
		if !o.noAnchor {
			detail.elems[sel.VideoDetailAnchor] = []*fakeElement{{text: fmt.Sprintf("caption %d #fyp", i)}}
		}
		docs[CanonicalVideoURL(testBaseURL, handle, testVideoID(i))] = detail
	}
}

func addMissingAccount(docs map[string]*fakeDoc, handle string) {
	docs[testBaseURL+"/@"+handle] = &fakeDoc{title: "Couldn't find this account | TikTok"}
}
