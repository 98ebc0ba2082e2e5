package collect

import (
	"strings"
	"time"
)

// tzOffsets resolves the timezone abbreviations feeds actually use to fixed
// UTC offsets in seconds. Go only knows the abbreviation of the local zone,
// so these are substituted with numeric offsets before parsing.
var tzOffsets = map[string]int{
	"UT": 0, "UTC": 0, "GMT": 0, "Z": 0,
	"BST":  1 * 3600,
	"CET":  1 * 3600,
	"CEST": 2 * 3600,
	"EET":  2 * 3600,
	"EEST": 3 * 3600,
	"EST":  -5 * 3600,
	"EDT":  -4 * 3600,
	"CST":  -6 * 3600,
	"CDT":  -5 * 3600,
	"MST":  -7 * 3600,
	"MDT":  -6 * 3600,
	"PST":  -8 * 3600,
	"PDT":  -7 * 3600,
	"JST":  9 * 3600,
	"IST":  5*3600 + 1800,
}

var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"02 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2006-01-02",
}

// ParsePublished interprets a feed-provided date string and returns it in
// UTC with the zone dropped (the store keeps naive UTC timestamps). Unknown
// formats yield nil rather than a wrong guess.
func ParsePublished(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	// Replace a trailing timezone abbreviation with its numeric offset so
	// the layout table can parse it with a correct zone.
	fields := strings.Fields(raw)
	if len(fields) > 1 {
		last := fields[len(fields)-1]
		if off, ok := tzOffsets[strings.ToUpper(last)]; ok {
			fields[len(fields)-1] = formatOffset(off)
			raw = strings.Join(fields, " ")
		}
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	return nil
}

func formatOffset(seconds int) string {
	sign := "+"
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	return sign + twoDigits(h) + twoDigits(m)
}

func twoDigits(n int) string {
	return string([]byte{byte('0' + n/10), byte('0' + n%10)})
}

// GuessLang is a cheap language hint: it only distinguishes a few languages
// by stopword hits and leaves everything else untagged. Nil means unknown.
func GuessLang(text string) *string {
	words := strings.Fields(strings.ToLower(text))
	if len(words) < 4 {
		return nil
	}

	markers := []struct {
		lang  string
		words []string
	}{
		{"en", []string{"the", "and", "with", "from", "that", "this", "for"}},
		{"fr", []string{"le", "la", "les", "des", "une", "dans", "pour", "est"}},
		{"de", []string{"der", "die", "das", "und", "mit", "für", "nicht"}},
		{"es", []string{"el", "los", "las", "una", "con", "por", "para"}},
	}

	best, bestHits := "", 0
	for _, m := range markers {
		hits := 0
		for _, w := range words {
			for _, marker := range m.words {
				if w == marker {
					hits++
					break
				}
			}
		}
		if hits > bestHits {
			best, bestHits = m.lang, hits
		}
	}

	if bestHits < 2 {
		return nil
	}
	return &best
}
