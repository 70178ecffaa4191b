package fetcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"

	"mspro-labs/stock-watch/internal/logx"
)

// BrowserGetter loads the document in headless Chrome. Useful when the CDN
// rejects plain HTTP clients.
type BrowserGetter struct {
	Timeout time.Duration
}

func (g BrowserGetter) Get(ctx context.Context, url string) ([]byte, error) {
	logx.Debug().Msg("launching headless browser")
	browser, err := launchBrowser()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer browser.MustClose()

	html, err := g.fetchHTML(ctx, browser, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch HTML: %w", err)
	}
	return ExtractJSON(html)
}

func launchBrowser() (*rod.Browser, error) {
	l := launcher.New().Headless(true).NoSandbox(true)
	u, err := l.Launch()
	if err != nil {
		return nil, err
	}
	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		return nil, err
	}
	return b, nil
}

func (g BrowserGetter) fetchHTML(ctx context.Context, browser *rod.Browser, url string) (html string, err error) {
	page, err := stealth.Page(browser)
	if err != nil {
		return "", err
	}
	defer page.Close()

	timeout := g.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	page = page.Context(ctx).Timeout(timeout)

	err = rod.Try(func() {
		logx.Debug().Str("url", url).Msg("navigating")
		page.MustNavigate(url)
		page.MustWaitLoad()
		html = page.MustHTML()
	})
	return html, err
}

// ExtractJSON pulls the raw JSON document out of a browser-rendered page.
// Chrome wraps plain JSON responses in a <pre> element.
func ExtractJSON(html string) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(doc.Find("pre").First().Text())
	if text == "" {
		text = strings.TrimSpace(doc.Find("body").Text())
	}
	if !strings.HasPrefix(text, "{") {
		return nil, errors.New("no JSON document found in page")
	}
	return []byte(text), nil
}
