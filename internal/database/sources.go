package database

import "database/sql"

// UpsertSource inserts a source or, when the feed URL is already known,
// refreshes its name, domain, enrichment mode and reactivates it. Used by
// the config bootstrap so a source disabled by hand stays disabled only
// until the next refresh.
func (db *DB) UpsertSource(s Source) (int64, error) {
	method := s.Method
	if method == "" {
		method = "rss"
	}
	enrichment := s.Enrichment
	if enrichment == "" {
		enrichment = "none"
	}
	freq := s.FrequencyMinutes
	if freq <= 0 {
		freq = 10
	}

	_, err := db.conn.Exec(
		`INSERT INTO sources (name, feed_url, site_domain, method, enrichment, frequency_minutes, active)
		VALUES (?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(feed_url) DO UPDATE SET
			name = excluded.name,
			site_domain = excluded.site_domain,
			enrichment = excluded.enrichment,
			frequency_minutes = excluded.frequency_minutes,
			active = 1,
			updated_at = datetime('now')`,
		s.Name, s.FeedURL, s.SiteDomain, method, enrichment, freq,
	)
	if err != nil {
		return 0, err
	}

	var id int64
	if err := db.conn.QueryRow("SELECT id FROM sources WHERE feed_url = ?", s.FeedURL).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// ListActiveSources returns all sources with active=1, in insertion order.
func (db *DB) ListActiveSources() ([]Source, error) {
	return db.listSources("WHERE active = 1")
}

// ListSources returns every source, active or not.
func (db *DB) ListSources() ([]Source, error) {
	return db.listSources("")
}

func (db *DB) listSources(where string) ([]Source, error) {
	rows, err := db.conn.Query(
		`SELECT id, name, feed_url, site_domain, method, enrichment, frequency_minutes,
			etag, last_modified, active
		FROM sources ` + where + ` ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		var active int
		if err := rows.Scan(&s.ID, &s.Name, &s.FeedURL, &s.SiteDomain, &s.Method,
			&s.Enrichment, &s.FrequencyMinutes, &s.ETag, &s.LastModified, &active); err != nil {
			return nil, err
		}
		s.Active = active != 0
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// UpdateSourceCacheHeaders stores the conditional-request headers returned by
// the last successful fetch. Nil values leave the stored ones untouched, so a
// 304 never erases them.
func (db *DB) UpdateSourceCacheHeaders(id int64, etag, lastModified *string) error {
	_, err := db.conn.Exec(
		`UPDATE sources SET
			etag = COALESCE(?, etag),
			last_modified = COALESCE(?, last_modified),
			updated_at = datetime('now')
		WHERE id = ?`,
		etag, lastModified, id,
	)
	return err
}

// SetSourceActive soft-enables or soft-disables a source. Sources are never
// deleted.
func (db *DB) SetSourceActive(id int64, active bool) error {
	v := 0
	if active {
		v = 1
	}
	res, err := db.conn.Exec(
		"UPDATE sources SET active = ?, updated_at = datetime('now') WHERE id = ?", v, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
