package tiktok

import (
	"context"
	"testing"
	"time"

	"tiktok-crawler-go/internal/cache"
	"tiktok-crawler-go/internal/crawler"
	"tiktok-crawler-go/internal/store"
)

func loginSite() (map[string]*fakeDoc, LoginOptions) {
	sel := testSelectors()
	docs := map[string]*fakeDoc{
		testBaseURL + "/": {title: "TikTok"},
		testBaseURL + "/login/phone-or-email/email": {
			title: "Log in | TikTok",
			elems: map[string][]*fakeElement{
				sel.LoginUsername: {{}},
				sel.LoginPassword: {{}},
				sel.LoginSubmit:   {{}},
			},
		},
	}
	return docs, LoginOptions{
		BaseURL:   testBaseURL,
		Selectors: sel,
		ProbeWait: time.Millisecond,
		LoginWait: time.Millisecond,
		CookieTTL: time.Hour,
	}
}

func TestLogin_WithCredentialsCachesCookies(t *testing.T) {
	ctx := context.Background()
	docs, opts := loginSite()
	page := newFakePage(docs)
	page.profileSel = opts.Selectors.ProfileIcon
	page.onClick = func(p *fakePage, selector string) {
		if selector == opts.Selectors.LoginSubmit && p.fills[opts.Selectors.LoginPassword] == "pw" {
			p.loggedIn = true
		}
	}
	kv := cache.NewMemoryCache()
	defer kv.Close()
	identity := store.CrawlIdentity{ID: 7, Handle: "crawler@example.com", Secret: "pw", Alive: true}

	if err := Login(ctx, page, page, kv, identity, opts); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if page.fills[opts.Selectors.LoginUsername] != "crawler@example.com" {
		t.Fatalf("username not filled: %v", page.fills)
	}
	raw, ok, err := kv.Get(ctx, "session_cookies:7")
	if err != nil || !ok || string(raw) != "good" {
		t.Fatalf("cached cookies = %q ok=%v err=%v", raw, ok, err)
	}
}

func TestLogin_ReusesCachedCookies(t *testing.T) {
	ctx := context.Background()
	docs, opts := loginSite()
	page := newFakePage(docs)
	page.profileSel = opts.Selectors.ProfileIcon
	kv := cache.NewMemoryCache()
	defer kv.Close()
	if err := kv.Set(ctx, sessionCookieKey(7), []byte("good"), 0); err != nil {
		t.Fatal(err)
	}

	if err := Login(ctx, page, page, kv, store.CrawlIdentity{ID: 7, Handle: "u", Secret: "pw"}, opts); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if len(page.fills) != 0 || len(page.clicked) != 0 {
		t.Fatalf("credential form used despite valid cookies: fills=%v clicks=%v", page.fills, page.clicked)
	}
}

func TestLogin_Failures(t *testing.T) {
	ctx := context.Background()
	docs, opts := loginSite()

	page := newFakePage(docs)
	err := Login(ctx, page, page, nil, store.CrawlIdentity{ID: 1, Handle: "u", Secret: "wrong"}, opts)
	if crawler.KindOf(err) != crawler.ErrorKindSession {
		t.Fatalf("wrong password: %v", err)
	}

	docs[testBaseURL+"/login/phone-or-email/email"].title = "Drag the slider to verify"
	page = newFakePage(docs)
	err = Login(ctx, page, page, nil, store.CrawlIdentity{ID: 1, Handle: "u", Secret: "pw"}, opts)
	if crawler.KindOf(err) != crawler.ErrorKindRiskHint {
		t.Fatalf("captcha: %v", err)
	}

	err = Login(ctx, newFakePage(docs), nil, nil, store.CrawlIdentity{ID: 2}, opts)
	if crawler.KindOf(err) != crawler.ErrorKindSession {
		t.Fatalf("missing credentials: %v", err)
	}
}
