package collect

import (
	"context"
	"encoding/json"
	"log"
	"net/url"
	"strings"
	"time"
	"unicode"

	"golang.org/x/time/rate"

	"github.com/pcharbon/newsmesh/internal/database"
	"github.com/pcharbon/newsmesh/internal/dedupe"
	"github.com/pcharbon/newsmesh/internal/summary"
	"github.com/pcharbon/newsmesh/internal/topics"
)

const (
	defaultMaxPerSource = 50
	sitemapLimit        = 20
	summaryMaxWords     = 120
)

// Extractor pulls main-body text out of an article page. Failures are
// represented as an empty string; enrichment is optional.
type Extractor interface {
	Extract(ctx context.Context, pageURL string) string
}

// Result aggregates one collection cycle.
type Result struct {
	Success  int
	Failed   int
	Articles int
}

type sourceResult struct {
	success  int
	failed   int
	articles int
}

// Collector drives one full collection cycle: iterate active sources, fetch,
// parse or fall back to the sitemap, normalize, fingerprint and upsert every
// item. Failures are contained at the item, source and cycle level; a cycle
// always returns a Result.
type Collector struct {
	db           *database.DB
	fetcher      *Fetcher
	extractor    Extractor
	limiter      *rate.Limiter
	maxPerSource int
}

// NewCollector creates a collector. pace is the minimum delay between two
// sources, a soft rate limit against origin servers.
func NewCollector(db *database.DB, fetcher *Fetcher, extractor Extractor, pace time.Duration) *Collector {
	if pace <= 0 {
		pace = time.Second
	}
	return &Collector{
		db:           db,
		fetcher:      fetcher,
		extractor:    extractor,
		limiter:      rate.NewLimiter(rate.Every(pace), 1),
		maxPerSource: defaultMaxPerSource,
	}
}

// RunCycle processes every active source once. It never panics out: a
// cycle-level failure is logged and reported as a degraded Result.
func (c *Collector) RunCycle(ctx context.Context) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[collector] cycle failed: %v", r)
			result.Failed++
		}
	}()

	sources, err := c.db.ListActiveSources()
	if err != nil {
		log.Printf("[collector] listing sources: %v", err)
		return result
	}
	if len(sources) == 0 {
		log.Println("[collector] no active sources")
		return result
	}
	log.Printf("[collector] active sources: %d", len(sources))

	for _, src := range sources {
		if err := c.limiter.Wait(ctx); err != nil {
			log.Printf("[collector] cycle interrupted: %v", err)
			return result
		}

		r := c.processSourceSafe(ctx, src)
		result.Success += r.success
		result.Failed += r.failed
		result.Articles += r.articles
	}

	log.Printf("[collector] cycle complete: %d success, %d failed, %d articles",
		result.Success, result.Failed, result.Articles)
	return result
}

// processSourceSafe is the per-source failure boundary: a panic in one
// source's processing is logged and counted, the cycle moves on.
func (c *Collector) processSourceSafe(ctx context.Context, src database.Source) (r sourceResult) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[collector] source %d (%s) failed: %v", src.ID, src.SiteDomain, rec)
			r = sourceResult{failed: 1}
		}
	}()
	return c.processSource(ctx, src)
}

func (c *Collector) processSource(ctx context.Context, src database.Source) sourceResult {
	outcome := c.fetcher.Fetch(ctx, src.FeedURL, src.ETag, src.LastModified)

	switch outcome.Status {
	case StatusNotModified:
		// Nothing new; stored cache headers stay as they are.
		return sourceResult{success: 1}

	case StatusFailed:
		log.Printf("[collector] feed fetch failed for %s, trying sitemap", src.FeedURL)
		return c.processViaSitemap(ctx, src)
	}

	// Write back any refreshed cache headers; the fetcher itself stays pure.
	if err := c.db.UpdateSourceCacheHeaders(src.ID, optional(outcome.ETag), optional(outcome.LastModified)); err != nil {
		log.Printf("[collector] updating cache headers for %s: %v", src.FeedURL, err)
	}

	entries := ParseFeed(outcome.Body)
	if len(entries) == 0 {
		log.Printf("[collector] no entries parsed for %s, trying sitemap", src.FeedURL)
		return c.processViaSitemap(ctx, src)
	}
	if len(entries) > c.maxPerSource {
		entries = entries[:c.maxPerSource]
	}

	saved := c.saveEntries(ctx, src, entries, false)
	log.Printf("[collector] source %s: %d articles saved", src.SiteDomain, saved)
	return sourceResult{success: 1, articles: saved}
}

func (c *Collector) processViaSitemap(ctx context.Context, src database.Source) sourceResult {
	urls := c.fetcher.DiscoverSitemap(ctx, src.SiteDomain, sitemapLimit)
	if len(urls) == 0 {
		log.Printf("[collector] sitemap discovery empty for %s", src.SiteDomain)
		return sourceResult{failed: 1}
	}

	entries := make([]RawEntry, 0, len(urls))
	for _, u := range urls {
		entries = append(entries, RawEntry{
			Title:   titleFromURL(u),
			Link:    u,
			Summary: "Article discovered from sitemap: " + src.SiteDomain,
		})
	}

	saved := c.saveEntries(ctx, src, entries, true)
	log.Printf("[collector] sitemap fallback for %s: %d articles saved", src.SiteDomain, saved)
	return sourceResult{success: 1, articles: saved}
}

// saveEntries normalizes, enriches, tags, fingerprints and upserts entries in
// feed order. A failing item is logged and skipped; the rest proceed.
func (c *Collector) saveEntries(ctx context.Context, src database.Source, entries []RawEntry, fromSitemap bool) int {
	saved := 0
	for _, entry := range entries {
		if entry.Link == "" || entry.Title == "" {
			continue
		}
		article, err := c.buildArticle(ctx, src, entry, fromSitemap)
		if err != nil {
			log.Printf("[collector] skipping %s (%s): %v", entry.Link, src.SiteDomain, err)
			continue
		}
		if _, err := c.db.UpsertArticle(article); err != nil {
			log.Printf("[collector] upserting %s (%s): %v", article.CanonicalURL, src.SiteDomain, err)
			continue
		}
		saved++
	}
	return saved
}

func (c *Collector) buildArticle(ctx context.Context, src database.Source, entry RawEntry, fromSitemap bool) (*database.Article, error) {
	canonical := dedupe.CanonicalURL(entry.Link)
	domain := dedupe.Domain(entry.Link)
	if domain == "" {
		domain = src.SiteDomain
	}

	published := ParsePublished(entry.PublishedRaw)
	now := time.Now().UTC()
	if published == nil && fromSitemap {
		// Sitemaps carry no usable publish time; discovery counts as one.
		published = &now
	}

	feedSummary := summary.LimitWords(stripHTML(entry.Summary), summaryMaxWords)

	var fullText string
	if src.Enrichment == "html" && c.extractor != nil {
		fullText = c.extractor.Extract(ctx, entry.Link)
	}

	bestText := fullText
	if bestText == "" {
		bestText = feedSummary
	}
	if bestText == "" {
		bestText = entry.Title
	}

	keywords := topics.ExtractKeywords(entry.Title + " " + bestText)
	topicList := topics.Tag(keywords)

	fp := dedupe.Fingerprint(entry.Title + " " + bestText)

	status := "processed"
	if fromSitemap {
		status = "new"
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	rawStr := string(raw)

	return &database.Article{
		SourceID:     src.ID,
		URL:          entry.Link,
		CanonicalURL: canonical,
		Domain:       domain,
		Title:        entry.Title,
		SummaryFeed:  optional(feedSummary),
		FullText:     optional(fullText),
		PublishedAt:  published,
		FetchedAt:    now,
		Lang:         GuessLang(bestText),
		Keywords:     keywords,
		Topics:       topicList,
		ContentHash:  dedupe.ContentHash(entry.Title + "\n" + bestText),
		Simhash:      fp,
		ClusterID:    dedupe.ClusterID(fp),
		Status:       status,
		Raw:          &rawStr,
	}, nil
}

// titleFromURL derives a display title from the last path segment of a
// sitemap-discovered URL.
func titleFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "Article"
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return "Article"
	}
	segments := strings.Split(path, "/")
	last := segments[len(segments)-1]
	last = strings.TrimSuffix(last, ".html")
	last = strings.ReplaceAll(last, "-", " ")
	last = strings.ReplaceAll(last, "_", " ")

	words := strings.Fields(last)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	if len(words) == 0 {
		return "Article"
	}
	return strings.Join(words, " ")
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
