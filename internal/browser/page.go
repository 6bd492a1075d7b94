package browser

import (
	"context"
	"errors"
	"time"
)

// ErrElementNotFound is returned when a selector matches nothing, either immediately or
// after the wait timeout elapsed.
var ErrElementNotFound = errors.New("element not found")

// Element is a located node on the current page.
type Element interface {
	Text(ctx context.Context) (string, error)
	Attr(ctx context.Context, name string) (string, error)
	Find(ctx context.Context, selector string) (Element, error)
}

// Page is the browser automation capability the crawler drives. Implementations serialize
// calls; there is never more than one navigation in flight.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, selector string) error
	Fill(ctx context.Context, selector, value string) error
	WaitForElement(ctx context.Context, selector string, timeout time.Duration) (Element, error)
	WaitForAllElements(ctx context.Context, selector string, timeout time.Duration) ([]Element, error)
	FindElement(ctx context.Context, selector string) (Element, error)
	ScrollToBottom(ctx context.Context) error
	ScrollWithinElement(ctx context.Context, selector string) error
	CurrentURL() string
	PageTitle(ctx context.Context) (string, error)
}
