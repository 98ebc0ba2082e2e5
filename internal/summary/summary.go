package summary

import (
	"context"
	"strings"
)

// Summarizer condenses article text. Implementations may call out to an LLM;
// Local never does and is the fallback of last resort.
type Summarizer interface {
	// Summarize condenses a single document to at most maxWords words.
	Summarize(ctx context.Context, text, lang string, maxWords int) (string, error)
	// Synthesize condenses several documents about the same story into one
	// summary of at most maxWords words.
	Synthesize(ctx context.Context, docs []string, lang string, maxWords int) (string, error)
}

// LimitWords truncates text to at most max words, appending an ellipsis when
// anything was cut. max <= 0 returns the text unchanged.
func LimitWords(text string, max int) string {
	if max <= 0 {
		return text
	}
	words := strings.Fields(text)
	if len(words) <= max {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:max], " ") + "…"
}

// Local is a deterministic summarizer: word-limited truncation, no network.
type Local struct{}

// Summarize returns the leading words of the text.
func (Local) Summarize(_ context.Context, text, _ string, maxWords int) (string, error) {
	return LimitWords(text, maxWords), nil
}

// Synthesize concatenates the leading sentence of each document, then limits.
func (Local) Synthesize(_ context.Context, docs []string, _ string, maxWords int) (string, error) {
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		if s := firstSentence(d); s != "" {
			parts = append(parts, s)
		}
	}
	return LimitWords(strings.Join(parts, " "), maxWords), nil
}

func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			return text[:i+1]
		}
	}
	return text
}
