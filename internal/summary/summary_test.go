package summary

import (
	"context"
	"strings"
	"testing"
)

func TestLimitWords(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want string
	}{
		{"under limit", "one two three", 5, "one two three"},
		{"exact limit", "one two three", 3, "one two three"},
		{"over limit", "one two three four", 2, "one two…"},
		{"zero means unlimited", "one two three", 0, "one two three"},
		{"collapses whitespace", "one   two\nthree", 5, "one two three"},
		{"empty", "", 3, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LimitWords(tt.text, tt.max); got != tt.want {
				t.Errorf("LimitWords(%q, %d) = %q, want %q", tt.text, tt.max, got, tt.want)
			}
		})
	}
}

func TestLocalSummarize(t *testing.T) {
	got, err := Local{}.Summarize(context.Background(), "alpha beta gamma delta", "en", 2)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got != "alpha beta…" {
		t.Errorf("got %q", got)
	}
}

func TestLocalSynthesize(t *testing.T) {
	docs := []string{
		"Central bank raises rates. Markets reacted sharply to the news.",
		"Investors brace for impact! More volatility is expected.",
	}
	got, err := Local{}.Synthesize(context.Background(), docs, "en", 50)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !strings.Contains(got, "Central bank raises rates.") {
		t.Errorf("missing first sentence of doc 1: %q", got)
	}
	if !strings.Contains(got, "Investors brace for impact!") {
		t.Errorf("missing first sentence of doc 2: %q", got)
	}
	if strings.Contains(got, "Markets reacted") {
		t.Errorf("should only take the first sentence: %q", got)
	}
}

func TestLLMWithoutBackendFallsBack(t *testing.T) {
	s := &LLM{} // no backend configured
	got, err := s.Summarize(context.Background(), "one two three four", "en", 3)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got != "one two three…" {
		t.Errorf("got %q", got)
	}
}

type failingBackend struct{}

func (failingBackend) generate(context.Context, string, int) (string, error) {
	return "", context.DeadlineExceeded
}
func (failingBackend) configured() bool { return true }

func TestLLMBackendErrorFallsBack(t *testing.T) {
	s := &LLM{backend: failingBackend{}}
	got, err := s.Summarize(context.Background(), "one two three four", "en", 3)
	if err != nil {
		t.Fatalf("Summarize should not surface backend errors: %v", err)
	}
	if got != "one two three…" {
		t.Errorf("got %q", got)
	}
}
