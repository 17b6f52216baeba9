// Package extract fetches a web page and reduces it to the readable text
// that gets scored.
package extract

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/eflav/aio-index/internal/utils"
	"github.com/eflav/aio-index/pkg/whttp"
)

const (
	USER_AGENT = "Mozilla/5.0 (X11; Linux x86_64; rv:82.0) Gecko/20100101 Firefox/82.0"

	// maxTextRunes caps how much page text is handed to the scorer.
	maxTextRunes = 8000

	fetchTimeout = 20 * time.Second
)

// Page is the extracted content of one fetched page.
type Page struct {
	Text  string
	Title string
}

// NewClient returns the HTTP client used for page fetches: retrying, with a
// hard timeout, quiet.
func NewClient() *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.Logger = nil
	rc.HTTPClient.Timeout = fetchTimeout
	return rc.StandardClient()
}

// FetchPage downloads the page and extracts its readable text: script,
// style and noscript subtrees are dropped, the remaining text nodes are
// whitespace-collapsed and joined, and the result is capped.
func FetchPage(ctx context.Context, pageURL string, client *http.Client) (Page, error) {
	if client == nil {
		client = NewClient()
	}

	utils.Log.Debug("Fetching page ", pageURL)
	res, err := whttp.Send(ctx, &whttp.Request{
		Method: http.MethodGet,
		URL:    pageURL,
		Headers: []whttp.Header{
			{Name: "User-Agent", Value: USER_AGENT},
			{Name: "Accept-Language", Value: "en"},
		},
	}, client)
	if err != nil {
		return Page{}, err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return Page{}, fmt.Errorf("fetching %s failed with HTTP %d", pageURL, res.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.BodyString))
	if err != nil {
		return Page{}, fmt.Errorf("unable to parse HTML from %s: %w", pageURL, err)
	}
	doc.Find("script, style, noscript").Remove()

	text := strings.Join(strings.Fields(doc.Text()), " ")
	if runes := []rune(text); len(runes) > maxTextRunes {
		text = string(runes[:maxTextRunes])
	}

	return Page{Text: text, Title: res.HTMLTitle}, nil
}
