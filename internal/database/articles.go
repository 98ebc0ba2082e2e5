package database

import (
	"database/sql"
	"encoding/json"
)

// UpsertArticle inserts an article keyed on canonical URL. On conflict only
// the volatile fields (fetched_at, status) are refreshed; the first-seen
// title, body and fingerprint columns stay as they were. Returns true when a
// new row was created.
func (db *DB) UpsertArticle(a *Article) (bool, error) {
	var published *string
	if a.PublishedAt != nil {
		s := formatTime(*a.PublishedAt)
		published = &s
	}
	fetched := formatTime(a.FetchedAt)

	keywords, err := marshalList(a.Keywords)
	if err != nil {
		return false, err
	}
	topicsJSON, err := marshalList(a.Topics)
	if err != nil {
		return false, err
	}

	var existing int64
	err = db.conn.QueryRow(
		"SELECT id FROM articles WHERE canonical_url = ?", a.CanonicalURL).Scan(&existing)
	inserted := err == sql.ErrNoRows
	if err != nil && err != sql.ErrNoRows {
		return false, err
	}

	_, err = db.conn.Exec(
		`INSERT INTO articles (source_id, url, canonical_url, domain, title, summary_feed,
			full_text, published_at, fetched_at, lang, keywords, topics,
			content_hash, simhash, cluster_id, status, raw)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(canonical_url) DO UPDATE SET
			fetched_at = excluded.fetched_at,
			status = excluded.status`,
		a.SourceID, a.URL, a.CanonicalURL, a.Domain, a.Title, a.SummaryFeed,
		a.FullText, published, fetched, a.Lang, keywords, topicsJSON,
		a.ContentHash, int64(a.Simhash), a.ClusterID, a.Status, a.Raw,
	)
	if err != nil {
		return false, err
	}

	if err := db.conn.QueryRow(
		"SELECT id FROM articles WHERE canonical_url = ?", a.CanonicalURL).Scan(&a.ID); err != nil {
		return false, err
	}
	return inserted, nil
}

// ArticlesForDate returns all articles published on a calendar date
// (UTC-naive), with domains, topics and publish times populated. This is the
// read path of the relation analyzer.
func (db *DB) ArticlesForDate(date string) ([]Article, error) {
	rows, err := db.conn.Query(
		`SELECT id, source_id, url, canonical_url, domain, title, summary_feed,
			full_text, published_at, fetched_at, lang, keywords, topics,
			content_hash, simhash, cluster_id, status
		FROM articles
		WHERE date(published_at) = ?
		ORDER BY published_at`, date,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArticles(rows)
}

// ArticleByCanonicalURL returns a single article, or nil when absent.
func (db *DB) ArticleByCanonicalURL(canonicalURL string) (*Article, error) {
	rows, err := db.conn.Query(
		`SELECT id, source_id, url, canonical_url, domain, title, summary_feed,
			full_text, published_at, fetched_at, lang, keywords, topics,
			content_hash, simhash, cluster_id, status
		FROM articles WHERE canonical_url = ?`, canonicalURL,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	articles, err := scanArticles(rows)
	if err != nil {
		return nil, err
	}
	if len(articles) == 0 {
		return nil, nil
	}
	return &articles[0], nil
}

// CountArticles returns the number of stored articles.
func (db *DB) CountArticles() (int, error) {
	var n int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM articles").Scan(&n)
	return n, err
}

// GetStats returns aggregate statistics for the status command.
func (db *DB) GetStats() (*Stats, error) {
	var s Stats
	err := db.conn.QueryRow(
		`SELECT
			(SELECT COUNT(*) FROM sources),
			(SELECT COUNT(*) FROM sources WHERE active = 1),
			(SELECT COUNT(*) FROM articles),
			(SELECT COUNT(*) FROM articles WHERE fetched_at >= datetime('now', '-1 day')),
			(SELECT COUNT(DISTINCT date(published_at)) FROM articles WHERE published_at IS NOT NULL),
			(SELECT MAX(fetched_at) FROM articles)`,
	).Scan(&s.TotalSources, &s.ActiveSources, &s.TotalArticles,
		&s.Articles24h, &s.DaysWithData, &s.LastFetchedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func scanArticles(rows *sql.Rows) ([]Article, error) {
	var articles []Article
	for rows.Next() {
		var a Article
		var published *string
		var fetched string
		var keywords, topicsJSON *string
		var simhash int64
		if err := rows.Scan(&a.ID, &a.SourceID, &a.URL, &a.CanonicalURL, &a.Domain,
			&a.Title, &a.SummaryFeed, &a.FullText, &published, &fetched, &a.Lang,
			&keywords, &topicsJSON, &a.ContentHash, &simhash, &a.ClusterID, &a.Status); err != nil {
			return nil, err
		}
		if published != nil {
			if t, ok := parseTime(*published); ok {
				a.PublishedAt = &t
			}
		}
		if t, ok := parseTime(fetched); ok {
			a.FetchedAt = t
		}
		a.Keywords = unmarshalList(keywords)
		a.Topics = unmarshalList(topicsJSON)
		a.Simhash = uint64(simhash)
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

func marshalList(list []string) (*string, error) {
	if list == nil {
		return nil, nil
	}
	data, err := json.Marshal(list)
	if err != nil {
		return nil, err
	}
	s := string(data)
	return &s, nil
}

func unmarshalList(s *string) []string {
	if s == nil {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(*s), &list); err != nil {
		return nil
	}
	return list
}
