// Package segment splits article text into puzzle-sized segments, either
// through a remote segmenter or the deterministic local chunker.
package segment

import (
	"context"
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// TargetAverage is the segment length the local chunker aims for.
const TargetAverage = 15

// strip lists the punctuation removed before chunking. Whitespace is removed
// separately.
const strip = "。．.，,、？?！!：:；;「」『』“”‘’\"'《》〈〉"

// Segmenter turns paragraphs into ordered segments.
type Segmenter interface {
	Segment(ctx context.Context, paragraphs []string) ([]string, error)
}

// Local is the deterministic Segmenter. It never fails.
type Local struct{}

func (Local) Segment(_ context.Context, paragraphs []string) ([]string, error) {
	return Split(paragraphs), nil
}

// Clean normalizes text to NFC and drops punctuation and whitespace.
func Clean(text string) string {
	text = norm.NFC.String(text)
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsSpace(r) || strings.ContainsRune(strip, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Chunk cuts cleaned text into max(1, round(T/15)) consecutive pieces whose
// lengths differ by at most one, longer pieces first.
func Chunk(cleaned string) []string {
	runes := []rune(cleaned)
	total := len(runes)
	if total == 0 {
		return nil
	}

	n := max(1, int(math.Round(float64(total)/TargetAverage)))
	base, rem := total/n, total%n

	out := make([]string, 0, n)
	pos := 0
	for i := range n {
		size := base
		if i < rem {
			size++
		}
		out = append(out, string(runes[pos:pos+size]))
		pos += size
	}
	return out
}

// Split joins paragraphs, cleans them, and chunks the result.
func Split(paragraphs []string) []string {
	return Chunk(Clean(strings.Join(paragraphs, "")))
}
