package textutil

import (
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// tokenSplitPattern matches runs of characters that are neither letters nor digits.
var tokenSplitPattern = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// Fingerprint represents a term-frequency vector for text similarity comparison.
type Fingerprint struct {
	tokens map[string]float64
	norm   float64
}

// NewFingerprint creates a fingerprint from the provided text.
// Returns nil if the text produces no valid tokens.
func NewFingerprint(text string) *Fingerprint {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	counts := make(map[string]float64, len(tokens))
	for _, token := range tokens {
		counts[token]++
	}
	return fromCounts(counts)
}

func fromCounts(counts map[string]float64) *Fingerprint {
	var sum float64
	for _, count := range counts {
		sum += count * count
	}
	if sum == 0 {
		return nil
	}
	return &Fingerprint{tokens: counts, norm: math.Sqrt(sum)}
}

// Tokenize splits text into lowercase NFC tokens, filtering single-rune tokens.
func Tokenize(text string) []string {
	lowered := strings.ToLower(norm.NFC.String(text))
	raw := tokenSplitPattern.Split(lowered, -1)
	terms := make([]string, 0, len(raw))
	for _, token := range raw {
		if utf8.RuneCountInString(token) < 2 {
			continue
		}
		terms = append(terms, token)
	}
	return terms
}

// Similarity is the cosine similarity of two term-frequency vectors in
// [0, 1]. A nil or empty fingerprint on either side scores 0.
func (f *Fingerprint) Similarity(other *Fingerprint) float64 {
	if f == nil || other == nil || f.norm == 0 || other.norm == 0 {
		return 0
	}
	small, large := f.tokens, other.tokens
	if len(small) > len(large) {
		small, large = large, small
	}
	var dot float64
	for term, count := range small {
		dot += count * large[term]
	}
	return min(dot/(f.norm*other.norm), 1)
}

// TokenCount returns the number of unique tokens in the fingerprint.
func (f *Fingerprint) TokenCount() int {
	if f == nil {
		return 0
	}
	return len(f.tokens)
}

// Encode serializes the fingerprint as sorted "term:count" pairs so it can be
// stored alongside a document and compared later without re-tokenizing.
func (f *Fingerprint) Encode() string {
	if f == nil {
		return ""
	}
	terms := make([]string, 0, len(f.tokens))
	for term := range f.tokens {
		terms = append(terms, term)
	}
	slices.Sort(terms)
	var b strings.Builder
	for idx, term := range terms {
		if idx > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(term)
		b.WriteByte(':')
		b.WriteString(strconv.FormatFloat(f.tokens[term], 'f', -1, 64))
	}
	return b.String()
}

// DecodeFingerprint parses the output of Encode. Malformed pairs are skipped.
func DecodeFingerprint(encoded string) *Fingerprint {
	fields := strings.Fields(encoded)
	if len(fields) == 0 {
		return nil
	}
	counts := make(map[string]float64, len(fields))
	for _, field := range fields {
		idx := strings.LastIndexByte(field, ':')
		if idx <= 0 {
			continue
		}
		count, err := strconv.ParseFloat(field[idx+1:], 64)
		if err != nil || count <= 0 {
			continue
		}
		counts[field[:idx]] = count
	}
	if len(counts) == 0 {
		return nil
	}
	return fromCounts(counts)
}
