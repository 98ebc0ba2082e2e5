package dedupe

import (
	"net/url"
	"strings"
)

// CanonicalURL normalizes a raw link into a stable comparison key: tracking
// query parameters (utm_*) and the fragment are dropped, everything else is
// kept in its original order. The result is used as the upsert key for
// articles, so it must be deterministic and idempotent. Unparseable input is
// returned unchanged.
func CanonicalURL(raw string) string {
	if raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = stripTrackingParams(u.RawQuery)
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// stripTrackingParams filters utm_* pairs out of a raw query string without
// reordering the surviving pairs. Blank values are kept.
func stripTrackingParams(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	var kept []string
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key := pair
		if i := strings.IndexByte(pair, '='); i >= 0 {
			key = pair[:i]
		}
		if decoded, err := url.QueryUnescape(key); err == nil {
			key = decoded
		}
		if strings.HasPrefix(strings.ToLower(key), "utm_") {
			continue
		}
		kept = append(kept, pair)
	}
	return strings.Join(kept, "&")
}

// Domain returns the lowercased host of a URL, or "" if it cannot be parsed.
func Domain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}
