package collect

import (
	"context"
	"io"
	"log"
	"net/http"
	"time"
)

// FetchStatus classifies the outcome of a conditional feed fetch.
type FetchStatus int

const (
	// StatusFetched means a fresh body was retrieved.
	StatusFetched FetchStatus = iota
	// StatusNotModified means the origin answered 304; nothing to parse and
	// previously stored cache headers must be kept.
	StatusNotModified
	// StatusFailed covers network errors and >=400 responses.
	StatusFailed
)

// FetchOutcome is what a feed fetch produced. ETag and LastModified are only
// set when the response carried them; the caller decides what to persist.
type FetchOutcome struct {
	Status       FetchStatus
	Body         []byte
	ETag         string
	LastModified string
}

const maxFeedBytes = 10 << 20

// Fetcher performs conditional HTTP GETs against feed URLs. It holds no
// per-source state: cache headers come in as arguments and go out in the
// outcome, so the orchestrator owns the write-back.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// NewFetcher creates a feed fetcher with the given timeout.
func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if userAgent == "" {
		userAgent = "newsmesh/1.0 (+https://github.com/pcharbon/newsmesh)"
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Fetch retrieves a feed, sending If-None-Match / If-Modified-Since when
// prior values exist. Errors never escape: they become StatusFailed.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string, etag, lastModified *string) FetchOutcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		log.Printf("[fetch] bad feed URL %s: %v", feedURL, err)
		return FetchOutcome{Status: StatusFailed}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/xml;q=0.9, */*;q=0.8")
	if etag != nil && *etag != "" {
		req.Header.Set("If-None-Match", *etag)
	}
	if lastModified != nil && *lastModified != "" {
		req.Header.Set("If-Modified-Since", *lastModified)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		log.Printf("[fetch] error fetching %s: %v", feedURL, err)
		return FetchOutcome{Status: StatusFailed}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return FetchOutcome{Status: StatusNotModified}
	}
	if resp.StatusCode >= 400 {
		log.Printf("[fetch] HTTP %d for %s", resp.StatusCode, feedURL)
		return FetchOutcome{Status: StatusFailed}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		log.Printf("[fetch] reading body of %s: %v", feedURL, err)
		return FetchOutcome{Status: StatusFailed}
	}

	return FetchOutcome{
		Status:       StatusFetched,
		Body:         body,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
	}
}
