package enrich

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head><title>Budget Vote Delayed</title></head>
<body>
<nav>Home | Politics | Economy</nav>
<article>
<h1>Budget Vote Delayed</h1>
<p>The parliament postponed the budget vote on Tuesday after coalition partners
failed to agree on spending cuts. Negotiations are expected to resume next week,
with the finance minister warning that a prolonged deadlock could delay payments
to municipalities and push the deficit target out of reach for this fiscal year.</p>
<p>Opposition leaders called the delay a sign of deeper fractures inside the
government, pointing to three failed votes in the past two months alone.</p>
</article>
</body>
</html>`

func TestExtract(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articleHTML)
	}))
	defer server.Close()

	e := NewExtractor(5*time.Second, "")
	text := e.Extract(context.Background(), server.URL+"/politics/budget")
	if !strings.Contains(text, "parliament postponed the budget vote") {
		t.Errorf("extracted text missing body: %q", text)
	}
	if strings.Contains(text, "<p>") {
		t.Errorf("markup leaked into extraction: %q", text)
	}
}

func TestExtractTooShort(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body><p>tiny</p></body></html>")
	}))
	defer server.Close()

	e := NewExtractor(5*time.Second, "")
	if text := e.Extract(context.Background(), server.URL); text != "" {
		t.Errorf("got %q, want empty for trivial pages", text)
	}
}

func TestExtractDomainPoisoning(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	e := NewExtractor(5*time.Second, "")
	e.Extract(context.Background(), server.URL+"/a")
	e.Extract(context.Background(), server.URL+"/b")
	e.Extract(context.Background(), server.URL+"/c")

	if hits != 1 {
		t.Errorf("origin hit %d times, want 1 (domain skipped after first failure)", hits)
	}
}

func TestExtractBadURL(t *testing.T) {
	e := NewExtractor(time.Second, "")
	if text := e.Extract(context.Background(), "http://127.0.0.1:1/page"); text != "" {
		t.Errorf("got %q, want empty for unreachable origin", text)
	}
}
