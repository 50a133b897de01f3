package textutil

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

const minTokenRunes = 3

// Fingerprint is a bag-of-words vector used to compare a paraphrase against
// the transcript it was produced from.
type Fingerprint struct {
	counts map[string]int
	norm   float64
}

// NewFingerprint returns nil when text has no token of at least three runes.
func NewFingerprint(text string) *Fingerprint {
	fp := &Fingerprint{counts: map[string]int{}}
	for _, tok := range Tokenize(text) {
		fp.counts[tok]++
	}
	if len(fp.counts) == 0 {
		return nil
	}
	var sq int
	for _, n := range fp.counts {
		sq += n * n
	}
	fp.norm = math.Sqrt(float64(sq))
	return fp
}

// Tokenize lowercases text, splits it at every rune that is neither a letter
// nor a digit and keeps tokens of three runes or more.
func Tokenize(text string) []string {
	var out []string
	for _, field := range strings.FieldsFunc(strings.ToLower(text), isSeparator) {
		if utf8.RuneCountInString(field) >= minTokenRunes {
			out = append(out, field)
		}
	}
	return out
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// TokenCount is the number of distinct tokens. Safe on nil.
func (f *Fingerprint) TokenCount() int {
	if f == nil {
		return 0
	}
	return len(f.counts)
}

// CosineSimilarity scores two fingerprints from 0 (disjoint) to 1 (same
// distribution). Nil fingerprints score 0.
func CosineSimilarity(a, b *Fingerprint) float64 {
	if a.TokenCount() == 0 || b.TokenCount() == 0 {
		return 0
	}
	small, large := a, b
	if len(small.counts) > len(large.counts) {
		small, large = large, small
	}
	var dot int
	for tok, n := range small.counts {
		dot += n * large.counts[tok]
	}
	return float64(dot) / (a.norm * b.norm)
}

func Similarity(a, b string) float64 {
	return CosineSimilarity(NewFingerprint(a), NewFingerprint(b))
}
