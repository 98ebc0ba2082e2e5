package dedupe

import (
	"strings"
	"testing"
)

func TestCanonicalURLStripsTracking(t *testing.T) {
	got := CanonicalURL("https://x.com/a?utm_source=y&id=1")
	want := "https://x.com/a?id=1"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestCanonicalURLCases(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"https://x.com/a?utm_source=y&utm_medium=z", "https://x.com/a"},
		{"https://x.com/a?UTM_Campaign=spring&id=2", "https://x.com/a?id=2"},
		{"https://x.com/a?id=1#section", "https://x.com/a?id=1"},
		{"https://x.com/a?b=&utm_term=t", "https://x.com/a?b="},
		{"https://x.com/a", "https://x.com/a"},
		{"", ""},
		{"://not a url", "://not a url"},
	}
	for _, c := range cases {
		if got := CanonicalURL(c.in); got != c.want {
			t.Errorf("CanonicalURL(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestCanonicalURLIdempotent(t *testing.T) {
	urls := []string{
		"https://x.com/a?utm_source=y&id=1&utm_medium=m",
		"https://news.example.org/story?ref=home",
		"https://x.com/path#frag",
	}
	for _, u := range urls {
		once := CanonicalURL(u)
		twice := CanonicalURL(once)
		if once != twice {
			t.Errorf("not idempotent for %q: %q != %q", u, once, twice)
		}
	}
}

func TestContentHashDeterministic(t *testing.T) {
	a := ContentHash("some article text")
	b := ContentHash("some article text")
	if a != b {
		t.Error("same input should produce same hash")
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
	if a == ContentHash("some article texb") {
		t.Error("one-character change should produce a different hash")
	}
}

func TestFingerprintRange(t *testing.T) {
	texts := []string{
		"",
		"one",
		"the quick brown fox jumps over the lazy dog",
		strings.Repeat("markets rallied on the back of fresh inflation data ", 20),
	}
	for _, txt := range texts {
		fp := Fingerprint(txt)
		if fp > FingerprintMask {
			t.Errorf("fingerprint %d exceeds 63 bits for %q", fp, txt)
		}
	}
}

func TestFingerprintNearDuplicates(t *testing.T) {
	base := "the central bank raised interest rates by a quarter point on tuesday, " +
		"citing persistent inflation pressure across the services sector and " +
		"warning that further tightening remains on the table for the autumn"
	tweaked := strings.Replace(base, "tuesday", "wednesday", 1)
	unrelated := "the home side clinched the league title with a stoppage time " +
		"winner in front of a record crowd, sparking celebrations that spilled " +
		"into the streets around the stadium well past midnight"

	near := HammingDistance(Fingerprint(base), Fingerprint(tweaked))
	far := HammingDistance(Fingerprint(base), Fingerprint(unrelated))
	if near >= far {
		t.Errorf("near-duplicate distance %d should be below unrelated distance %d", near, far)
	}
}

func TestClusterID(t *testing.T) {
	fp := Fingerprint("some stable text for clustering")
	id := ClusterID(fp)
	if len(id) != 6 {
		t.Errorf("expected 6-char cluster id, got %q", id)
	}
	if id != ClusterID(fp) {
		t.Error("cluster id should be deterministic")
	}
	for _, r := range id {
		if !strings.ContainsRune("0123456789abcdef", r) {
			t.Errorf("cluster id %q contains non-hex rune %q", id, r)
		}
	}
}

func TestHammingDistance(t *testing.T) {
	if d := HammingDistance(0, 0); d != 0 {
		t.Errorf("expected 0, got %d", d)
	}
	if d := HammingDistance(0b1011, 0b0010); d != 2 {
		t.Errorf("expected 2, got %d", d)
	}
}
