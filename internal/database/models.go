package database

import "time"

// Source is a feed origin. Cache headers (etag, last_modified) are written
// back by the collector after a successful fetch, never by the fetcher.
type Source struct {
	ID               int64
	Name             string
	FeedURL          string
	SiteDomain       string
	Method           string // "rss"
	Enrichment       string // "none" or "html"
	FrequencyMinutes int
	ETag             *string
	LastModified     *string
	Active           bool
}

// Article is a normalized content item. CanonicalURL is the identity:
// re-ingesting the same canonical URL only refreshes FetchedAt and Status.
type Article struct {
	ID           int64
	SourceID     int64
	URL          string
	CanonicalURL string
	Domain       string
	Title        string
	SummaryFeed  *string
	FullText     *string
	PublishedAt  *time.Time // UTC, no zone attached
	FetchedAt    time.Time
	Lang         *string
	Keywords     []string
	Topics       []string
	ContentHash  string
	Simhash      uint64
	ClusterID    string
	Status       string // "new" -> "processed"
	Raw          *string
}

// Stats contains aggregate database statistics.
type Stats struct {
	TotalSources  int
	ActiveSources int
	TotalArticles int
	Articles24h   int
	DaysWithData  int
	LastFetchedAt *string
}

// timeLayout is how timestamps are stored: UTC-naive, second precision,
// matching sqlite's datetime('now').
const timeLayout = "2006-01-02 15:04:05"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, bool) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
