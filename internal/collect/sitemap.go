package collect

import (
	"context"
	"encoding/xml"
	"io"
	"log"
	"net/http"
	"strings"
)

const maxChildSitemaps = 5

// sitemapDoc covers both a urlset and a sitemapindex; whichever element list
// is populated tells us which kind we fetched.
type sitemapDoc struct {
	Sitemaps []sitemapLoc `xml:"sitemap"`
	URLs     []sitemapLoc `xml:"url"`
}

type sitemapLoc struct {
	Loc string `xml:"loc"`
}

// DiscoverSitemap is the fallback path when a feed yields nothing: it tries
// https://{domain}/sitemap.xml then http://, follows a sitemap index up to
// five children, and collects article URLs up to limit. Any failure returns
// an empty slice; this path is best effort.
func (f *Fetcher) DiscoverSitemap(ctx context.Context, domain string, limit int) []string {
	if domain == "" || limit <= 0 {
		return nil
	}

	for _, base := range []string{"https://" + domain + "/sitemap.xml", "http://" + domain + "/sitemap.xml"} {
		doc := f.fetchSitemapXML(ctx, base)
		if doc == nil {
			continue
		}

		var urls []string
		if len(doc.Sitemaps) > 0 {
			children := doc.Sitemaps
			if len(children) > maxChildSitemaps {
				children = children[:maxChildSitemaps]
			}
			for _, child := range children {
				if len(urls) >= limit {
					break
				}
				sub := f.fetchSitemapXML(ctx, strings.TrimSpace(child.Loc))
				if sub == nil {
					continue
				}
				urls = appendLocs(urls, sub.URLs, limit)
			}
		} else {
			urls = appendLocs(urls, doc.URLs, limit)
		}

		if len(urls) > 0 {
			return urls
		}
	}
	return nil
}

func (f *Fetcher) fetchSitemapXML(ctx context.Context, rawURL string) *sitemapDoc {
	if rawURL == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/xml, text/xml;q=0.9, */*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil
	}

	var doc sitemapDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		log.Printf("[sitemap] parse warning for %s: %v", rawURL, err)
		return nil
	}
	return &doc
}

func appendLocs(urls []string, locs []sitemapLoc, limit int) []string {
	for _, l := range locs {
		if len(urls) >= limit {
			break
		}
		loc := strings.TrimSpace(l.Loc)
		if loc != "" {
			urls = append(urls, loc)
		}
	}
	return urls
}
