package collect

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/pcharbon/newsmesh/internal/database"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "collect_test.db"))
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testCollector(db *database.DB) *Collector {
	return NewCollector(db, NewFetcher(5*time.Second, ""), nil, time.Millisecond)
}

func addSource(t *testing.T, db *database.DB, feedURL, domain string) int64 {
	t.Helper()
	id, err := db.UpsertSource(database.Source{
		Name:       domain,
		FeedURL:    feedURL,
		SiteDomain: domain,
	})
	if err != nil {
		t.Fatalf("upserting source: %v", err)
	}
	return id
}

func serverHost(t *testing.T, server *httptest.Server) string {
	t.Helper()
	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatal(err)
	}
	return u.Host
}

const collectorRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Example News</title>
  <item>
    <title>Central Bank Raises Interest Rates Again</title>
    <link>https://example.com/economy/rates?utm_source=rss&amp;id=7</link>
    <description>The central bank raised interest rates to fight stubborn inflation in the economy.</description>
    <pubDate>Tue, 10 Feb 2026 09:30:00 GMT</pubDate>
  </item>
  <item>
    <title>Startup Ships Quantum Software Platform</title>
    <link>https://example.com/tech/quantum</link>
    <description>A software startup released its quantum computing platform for developers.</description>
    <pubDate>Tue, 10 Feb 2026 10:00:00 EST</pubDate>
  </item>
  <item>
    <title>Entry Without A Link</title>
    <description>This one cannot be stored.</description>
  </item>
</channel>
</rss>`

func TestRunCycleEndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"feed-v1"`)
		fmt.Fprint(w, collectorRSS)
	}))
	defer server.Close()

	db := openTestDB(t)
	srcID := addSource(t, db, server.URL+"/feed.xml", "example.com")

	result := testCollector(db).RunCycle(context.Background())
	if result.Success != 1 || result.Failed != 0 {
		t.Fatalf("result = %+v, want 1 success", result)
	}
	if result.Articles != 2 {
		t.Fatalf("articles = %d, want 2 (linkless entry dropped)", result.Articles)
	}

	// Tracking params stripped, functional ones kept.
	a, err := db.ArticleByCanonicalURL("https://example.com/economy/rates?id=7")
	if err != nil {
		t.Fatalf("article not found by canonical URL: %v", err)
	}
	if a.SourceID != srcID {
		t.Errorf("source id = %d, want %d", a.SourceID, srcID)
	}
	if a.URL != "https://example.com/economy/rates?utm_source=rss&id=7" {
		t.Errorf("original url = %q", a.URL)
	}
	if a.Domain != "example.com" {
		t.Errorf("domain = %q", a.Domain)
	}
	if a.Status != "processed" {
		t.Errorf("status = %q, want processed", a.Status)
	}
	if a.PublishedAt == nil || a.PublishedAt.Format("2006-01-02 15:04") != "2026-02-10 09:30" {
		t.Errorf("published = %v", a.PublishedAt)
	}
	if len(a.Keywords) == 0 {
		t.Error("keywords empty")
	}
	if len(a.Topics) == 0 || a.Topics[0] != "economy" {
		t.Errorf("topics = %v, want economy first", a.Topics)
	}
	if a.Simhash == 0 || len(a.ClusterID) != 6 {
		t.Errorf("fingerprint not set: simhash=%d cluster=%q", a.Simhash, a.ClusterID)
	}
	if len(a.ContentHash) != 64 {
		t.Errorf("content hash = %q", a.ContentHash)
	}

	// The refreshed ETag is written back to the source.
	sources, err := db.ListActiveSources()
	if err != nil {
		t.Fatal(err)
	}
	if sources[0].ETag == nil || *sources[0].ETag != `"feed-v1"` {
		t.Errorf("source etag = %v, want feed-v1", sources[0].ETag)
	}
}

func TestRunCycleIdempotent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, collectorRSS)
	}))
	defer server.Close()

	db := openTestDB(t)
	addSource(t, db, server.URL+"/feed.xml", "example.com")

	c := testCollector(db)
	c.RunCycle(context.Background())
	c.RunCycle(context.Background())

	count, err := db.CountArticles()
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("article count after two cycles = %d, want 2", count)
	}
}

func TestRunCycleNotModified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"feed-v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		t.Errorf("expected conditional request, got headers %v", r.Header)
		w.WriteHeader(http.StatusNotModified)
	}))
	defer server.Close()

	db := openTestDB(t)
	id := addSource(t, db, server.URL+"/feed.xml", "example.com")
	etag := `"feed-v1"`
	if err := db.UpdateSourceCacheHeaders(id, &etag, nil); err != nil {
		t.Fatal(err)
	}

	result := testCollector(db).RunCycle(context.Background())
	if result.Success != 1 || result.Failed != 0 || result.Articles != 0 {
		t.Fatalf("result = %+v, want a successful no-op", result)
	}

	// 304 keeps the stored headers.
	sources, err := db.ListActiveSources()
	if err != nil {
		t.Fatal(err)
	}
	if sources[0].ETag == nil || *sources[0].ETag != etag {
		t.Errorf("etag after 304 = %v, want kept", sources[0].ETag)
	}
}

func TestRunCycleSitemapFallback(t *testing.T) {
	var host string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/feed.xml":
			http.NotFound(w, r)
		case "/sitemap.xml":
			fmt.Fprintf(w, `<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>http://%s/politics/budget-vote-delayed</loc></url>
</urlset>`, host)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()
	host = serverHost(t, server)

	db := openTestDB(t)
	addSource(t, db, server.URL+"/feed.xml", host)

	result := testCollector(db).RunCycle(context.Background())
	if result.Success != 1 || result.Articles != 1 {
		t.Fatalf("result = %+v, want 1 article via sitemap", result)
	}

	a, err := db.ArticleByCanonicalURL(fmt.Sprintf("http://%s/politics/budget-vote-delayed", host))
	if err != nil {
		t.Fatalf("sitemap article not stored: %v", err)
	}
	if a.Title != "Budget Vote Delayed" {
		t.Errorf("title = %q", a.Title)
	}
	if a.Status != "new" {
		t.Errorf("status = %q, want new for sitemap stubs", a.Status)
	}
	if a.PublishedAt == nil {
		t.Error("sitemap stubs should carry the discovery time as published")
	}
}

func TestRunCycleEmptyFeedFallsBackToSitemap(t *testing.T) {
	var host string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/feed.xml":
			// Well-formed feed with zero items.
			fmt.Fprint(w, `<?xml version="1.0"?><rss version="2.0"><channel><title>Empty</title></channel></rss>`)
		case "/sitemap.xml":
			fmt.Fprintf(w, `<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>http://%s/economy/markets-open-higher</loc></url>
</urlset>`, host)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()
	host = serverHost(t, server)

	db := openTestDB(t)
	addSource(t, db, server.URL+"/feed.xml", host)

	result := testCollector(db).RunCycle(context.Background())
	if result.Success != 1 || result.Articles != 1 {
		t.Fatalf("result = %+v, want 1 article via sitemap after empty feed", result)
	}
}

func TestRunCycleSourceFailureContained(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, collectorRSS)
	}))
	defer good.Close()

	db := openTestDB(t)
	addSource(t, db, "http://127.0.0.1:1/feed.xml", "127.0.0.1:1")
	addSource(t, db, good.URL+"/feed.xml", "example.com")

	result := testCollector(db).RunCycle(context.Background())
	if result.Failed != 1 {
		t.Errorf("failed = %d, want 1", result.Failed)
	}
	if result.Success != 1 || result.Articles != 2 {
		t.Errorf("result = %+v, the healthy source should still be collected", result)
	}
}

func TestRunCycleNoSources(t *testing.T) {
	db := openTestDB(t)
	result := testCollector(db).RunCycle(context.Background())
	if result != (Result{}) {
		t.Errorf("result = %+v, want zero", result)
	}
}

type fixedExtractor struct{ text string }

func (f fixedExtractor) Extract(context.Context, string) string { return f.text }

func TestRunCycleEnrichment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, collectorRSS)
	}))
	defer server.Close()

	db := openTestDB(t)
	if _, err := db.UpsertSource(database.Source{
		Name:       "example.com",
		FeedURL:    server.URL + "/feed.xml",
		SiteDomain: "example.com",
		Enrichment: "html",
	}); err != nil {
		t.Fatal(err)
	}

	c := NewCollector(db, NewFetcher(5*time.Second, ""), fixedExtractor{"Extracted body with election and parliament details."}, time.Millisecond)
	c.RunCycle(context.Background())

	a, err := db.ArticleByCanonicalURL("https://example.com/tech/quantum")
	if err != nil {
		t.Fatal(err)
	}
	if a.FullText == nil || *a.FullText != "Extracted body with election and parliament details." {
		t.Errorf("full text = %v", a.FullText)
	}
	// Topics follow the richer extracted text.
	if len(a.Topics) == 0 || a.Topics[0] != "politics" {
		t.Errorf("topics = %v, want politics from extracted text", a.Topics)
	}
}
