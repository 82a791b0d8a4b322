// Package segmenter splits extracted document text into overlapping
// chunks sized for the embedding model.
package segmenter

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Chunk is a contiguous segment of a document's text. Index is the
// zero-based position of the chunk within the document.
type Chunk struct {
	Index int
	Text  string
}

// Splitter produces overlapping chunks from document text. Sizes are
// measured in runes. Text is split into units at the separator; units
// are accumulated up to the chunk size, and each chunk starts by
// carrying over the trailing whole units of the previous chunk whose
// combined length is closest to the overlap without exceeding it.
// Construct with NewSplitter; the zero value splits nothing.
type Splitter struct {
	size      int
	overlap   int
	separator string
}

// NewSplitter validates the settings and returns a Splitter.
func NewSplitter(size, overlap int, separator string) (*Splitter, error) {
	if size <= 0 {
		return nil, errors.New("segmenter: size must be greater than zero")
	}
	if overlap < 0 {
		return nil, errors.New("segmenter: overlap cannot be negative")
	}
	if overlap >= size {
		return nil, fmt.Errorf("segmenter: overlap %d must be smaller than size %d", overlap, size)
	}
	return &Splitter{size: size, overlap: overlap, separator: separator}, nil
}

// Split chunks the given text. Empty input yields zero chunks, which is
// a valid state: the resulting index is empty and retrieval against it
// returns nothing.
func (s *Splitter) Split(text string) []Chunk {
	if text == "" {
		return nil
	}
	// A splitter that didn't come from NewSplitter has no usable window.
	if s.size <= 0 || s.overlap < 0 || s.overlap >= s.size {
		return nil
	}
	if s.separator == "" || !strings.Contains(text, s.separator) {
		return s.splitWindows(text)
	}
	return s.splitUnits(text)
}

// splitWindows cuts separator-free text every size runes, repeating the
// trailing overlap runes at each boundary.
func (s *Splitter) splitWindows(text string) []Chunk {
	runes := []rune(text)
	step := s.size - s.overlap

	var chunks []Chunk
	for start := 0; ; start += step {
		end := start + s.size
		if end >= len(runes) {
			chunks = append(chunks, Chunk{Index: len(chunks), Text: string(runes[start:])})
			break
		}
		chunks = append(chunks, Chunk{Index: len(chunks), Text: string(runes[start:end])})
	}
	return chunks
}

// splitUnits accumulates separator-delimited units into chunks.
func (s *Splitter) splitUnits(text string) []Chunk {
	units := strings.Split(text, s.separator)
	sepLen := utf8.RuneCountInString(s.separator)

	var chunks []Chunk
	var cur []string // units in the current chunk
	curLen := 0      // rune length of cur joined by the separator
	carried := 0     // how many leading units of cur are overlap carry-over

	emit := func() {
		chunks = append(chunks, Chunk{Index: len(chunks), Text: strings.Join(cur, s.separator)})
		cur, curLen, carried = s.carryOver(cur)
	}

	for _, unit := range units {
		unitLen := utf8.RuneCountInString(unit)

		for len(cur) > 0 {
			addLen := unitLen + sepLen
			if curLen+addLen <= s.size {
				break
			}
			if carried == len(cur) {
				// Only carry-over so far and the next unit still does not
				// fit: drop the overlap rather than emit a chunk that adds
				// no new text.
				cur, curLen, carried = nil, 0, 0
				break
			}
			emit()
		}

		if len(cur) == 0 && unitLen > s.size {
			// A single unit longer than the chunk size is emitted verbatim
			// as an oversized chunk rather than dropped.
			cur = []string{unit}
			curLen = unitLen
			emit()
			continue
		}

		if len(cur) > 0 {
			curLen += sepLen
		}
		cur = append(cur, unit)
		curLen += unitLen
	}

	if len(cur) > carried {
		chunks = append(chunks, Chunk{Index: len(chunks), Text: strings.Join(cur, s.separator)})
	}
	return chunks
}

// carryOver selects the trailing units of the just-emitted chunk whose
// combined length (separators included) is closest to the overlap
// without exceeding it. Returns the new current units, their joined
// length, and the count of carried units.
func (s *Splitter) carryOver(prev []string) ([]string, int, int) {
	if s.overlap == 0 {
		return nil, 0, 0
	}
	sepLen := utf8.RuneCountInString(s.separator)

	total := 0
	start := len(prev)
	for i := len(prev) - 1; i >= 0; i-- {
		add := utf8.RuneCountInString(prev[i])
		if start < len(prev) {
			add += sepLen
		}
		if total+add > s.overlap {
			break
		}
		total += add
		start = i
	}
	if start == len(prev) {
		return nil, 0, 0
	}
	carry := make([]string, len(prev)-start)
	copy(carry, prev[start:])
	return carry, total, len(carry)
}
