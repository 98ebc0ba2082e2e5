// Package topics provides the keyword extraction and topic tagging shared by
// the streaming collection path and any batch re-classification job. Both go
// through the same pure functions so the two paths cannot drift.
package topics

import (
	"sort"
	"strings"
	"unicode"
)

const (
	maxKeywords   = 12
	minKeywordLen = 4
)

// rule maps a substring found in a lowercased keyword to a topic. Rules are
// ordered: the first rule that fires determines the topic's position in the
// result, and each topic is emitted at most once.
type rule struct {
	substr string
	topic  string
}

var rules = []rule{
	{"econom", "economy"},
	{"market", "economy"},
	{"financ", "economy"},
	{"inflation", "economy"},
	{"bank", "economy"},
	{"business", "economy"},
	{"politic", "politics"},
	{"election", "politics"},
	{"government", "politics"},
	{"parliament", "politics"},
	{"senate", "politics"},
	{"minister", "politics"},
	{"tech", "tech"},
	{"software", "tech"},
	{"artificial intelligence", "tech"},
	{"startup", "tech"},
	{"cyber", "tech"},
	{"sport", "sport"},
	{"football", "sport"},
	{"soccer", "sport"},
	{"league", "sport"},
	{"olympic", "sport"},
	{"tournament", "sport"},
	{"science", "science"},
	{"research", "science"},
	{"climate", "science"},
	{"space", "science"},
	{"crypto", "crypto"},
	{"bitcoin", "crypto"},
	{"blockchain", "crypto"},
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "have": true, "has": true,
	"had": true, "will": true, "would": true, "could": true, "should": true,
	"this": true, "that": true, "these": true, "those": true, "with": true,
	"from": true, "into": true, "over": true, "after": true, "before": true,
	"about": true, "their": true, "there": true, "where": true, "which": true,
	"while": true, "when": true, "what": true, "your": true, "more": true,
	"most": true, "other": true, "some": true, "such": true, "than": true,
	"then": true, "them": true, "they": true, "also": true, "just": true,
	"like": true, "said": true, "says": true,
}

// ExtractKeywords pulls the most frequent non-stopword terms out of a text,
// lowercased, deduplicated, at most 12. Short terms (under 4 runes) are
// skipped the same way the upstream extractor did.
func ExtractKeywords(text string) []string {
	counts := make(map[string]int)
	var order []string
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		if len(w) < minKeywordLen || stopWords[w] {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}
	// Frequency descending, first occurrence breaking ties.
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > maxKeywords {
		order = order[:maxKeywords]
	}
	return order
}

// Tag maps keywords onto the fixed topic vocabulary. Returns nil when no
// rule fires.
func Tag(keywords []string) []string {
	var topicsOut []string
	seen := make(map[string]bool)
	for _, r := range rules {
		if seen[r.topic] {
			continue
		}
		for _, kw := range keywords {
			if strings.Contains(strings.ToLower(kw), r.substr) {
				topicsOut = append(topicsOut, r.topic)
				seen[r.topic] = true
				break
			}
		}
	}
	return topicsOut
}
