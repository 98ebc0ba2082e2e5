package dedupe

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"math/bits"
	"strings"
	"unicode"
)

// FingerprintMask clamps fingerprints to 63 bits so they survive round-trips
// through signed 64-bit integer columns.
const FingerprintMask = uint64(1)<<63 - 1

const clusterIDLen = 6

// ContentHash returns the hex SHA-256 digest of the text. It is the exact
// duplicate signal for articles reached through differing URLs.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Fingerprint computes a 63-bit simhash over shingled tokens of the text.
// Near-identical texts produce fingerprints within a small Hamming distance;
// unrelated texts do not. Empty or tokenless input yields 0.
func Fingerprint(text string) uint64 {
	shingles := shingle(tokenize(text), 2)
	if len(shingles) == 0 {
		return 0
	}

	var weights [64]int
	for _, s := range shingles {
		h := hashToken(s)
		for bit := 0; bit < 64; bit++ {
			if h&(uint64(1)<<bit) != 0 {
				weights[bit]++
			} else {
				weights[bit]--
			}
		}
	}

	var fp uint64
	for bit := 0; bit < 64; bit++ {
		if weights[bit] > 0 {
			fp |= uint64(1) << bit
		}
	}
	return fp & FingerprintMask
}

// ClusterID derives the coarse cluster key from a fingerprint: the leading
// hex digits of the 63-bit value. Items collide into a cluster only when
// those digits match exactly, which approximates near-duplicate grouping
// without a nearest-neighbor search.
func ClusterID(fp uint64) string {
	return fmt.Sprintf("%016x", fp)[:clusterIDLen]
}

// HammingDistance counts differing bits between two fingerprints.
func HammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// shingle joins consecutive token runs of length n. Shorter inputs fall back
// to the tokens themselves.
func shingle(tokens []string, n int) []string {
	if len(tokens) < n {
		return tokens
	}
	out := make([]string, 0, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		out = append(out, strings.Join(tokens[i:i+n], " "))
	}
	return out
}

func hashToken(token string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(token))
	return h.Sum64()
}
