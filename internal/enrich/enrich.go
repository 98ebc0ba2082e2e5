// Package enrich pulls main-body text out of article pages with readability
// extraction. It is only used for sources configured with enrichment "html";
// feed summaries stay the primary text for everything else.
package enrich

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	readability "github.com/go-shiori/go-readability"
)

// Shorter than a page of boilerplate; extractions below this are discarded
// as navigation/cookie-banner noise.
const minExtractedLen = 100

const maxPageBytes = 5 << 20

// Extractor fetches article pages and extracts readable text. A domain that
// returned an HTTP error is skipped for the rest of the extractor's lifetime
// so one dead origin cannot slow a whole collection cycle.
type Extractor struct {
	client    *http.Client
	userAgent string

	mu            sync.Mutex
	failedDomains map[string]struct{}
}

// NewExtractor creates a page extractor with the given timeout.
func NewExtractor(timeout time.Duration, userAgent string) *Extractor {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if userAgent == "" {
		userAgent = "newsmesh/1.0 (+https://github.com/pcharbon/newsmesh)"
	}
	return &Extractor{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		userAgent:     userAgent,
		failedDomains: make(map[string]struct{}),
	}
}

// Extract fetches pageURL and returns the readable body text, or "" when the
// page could not be fetched or yielded nothing substantial. It never returns
// an error: enrichment is best effort and the feed summary is the fallback.
func (e *Extractor) Extract(ctx context.Context, pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	domain := strings.ToLower(parsed.Host)

	if e.domainFailed(domain) {
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		// Connection errors poison the whole domain for this run.
		e.markFailed(domain)
		log.Printf("[enrich] error fetching %s, skipping domain %s", pageURL, domain)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		e.markFailed(domain)
		log.Printf("[enrich] HTTP %d for %s, skipping domain %s", resp.StatusCode, pageURL, domain)
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return ""
	}

	article, err := readability.FromReader(strings.NewReader(string(body)), parsed)
	if err != nil {
		return ""
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) < minExtractedLen {
		return ""
	}
	return text
}

func (e *Extractor) domainFailed(domain string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, failed := e.failedDomains[domain]
	return failed
}

func (e *Extractor) markFailed(domain string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if domain != "" {
		e.failedDomains[domain] = struct{}{}
	}
}
