package collect

import (
	"bytes"
	"log"
	"strings"

	"github.com/mmcdole/gofeed"
)

// RawEntry is one feed item before normalization. PublishedRaw is carried as
// the feed gave it; date interpretation happens downstream because feeds use
// inconsistent and sometimes nonstandard timezone abbreviations.
type RawEntry struct {
	Title        string
	Link         string
	Summary      string
	PublishedRaw string
	Authors      []string
}

// ParseFeed parses RSS/Atom bytes into entries. Malformed input never
// aborts: it yields whatever could be extracted (usually nothing) plus a
// logged warning. Entries missing both title and link are dropped.
func ParseFeed(body []byte) []RawEntry {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		log.Printf("[feed] parse warning: %v", err)
		return nil
	}

	entries := make([]RawEntry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		e := RawEntry{
			Title:        strings.TrimSpace(item.Title),
			Link:         strings.TrimSpace(item.Link),
			Summary:      strings.TrimSpace(item.Description),
			PublishedRaw: strings.TrimSpace(item.Published),
			Authors:      entryAuthors(item),
		}
		if e.Summary == "" {
			e.Summary = strings.TrimSpace(item.Content)
		}
		if e.PublishedRaw == "" {
			e.PublishedRaw = strings.TrimSpace(item.Updated)
		}
		if e.Title == "" && e.Link == "" {
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

// entryAuthors flattens gofeed's author representations into plain names.
func entryAuthors(item *gofeed.Item) []string {
	var names []string
	for _, p := range item.Authors {
		if p == nil {
			continue
		}
		name := strings.TrimSpace(p.Name)
		if name == "" {
			name = strings.TrimSpace(p.Email)
		}
		if name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 && item.Author != nil {
		if name := strings.TrimSpace(item.Author.Name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// stripHTML removes markup and collapses whitespace in feed summaries.
func stripHTML(text string) string {
	var b strings.Builder
	inTag := false
	for _, r := range text {
		switch {
		case r == '<':
			inTag = true
			b.WriteRune(' ')
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}

	s := b.String()
	for entity, repl := range map[string]string{
		"&nbsp;": " ", "&amp;": "&", "&lt;": "<",
		"&gt;": ">", "&quot;": `"`, "&#39;": "'",
	} {
		s = strings.ReplaceAll(s, entity, repl)
	}

	return strings.Join(strings.Fields(s), " ")
}
