package chunking

import (
	"fmt"

	"github.com/poiesic/vidrag/core"
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	// DefaultSize is the default maximum chunk length in runes.
	DefaultSize = 400
	// DefaultOverlap is the default number of runes shared by consecutive chunks.
	DefaultOverlap = 100
)

// Splitter cuts text into fixed-size, overlapping windows measured in runes.
type Splitter struct {
	size    int
	overlap int
}

var _ textsplitter.TextSplitter = (*Splitter)(nil)

// New creates a Splitter. It requires 0 <= overlap < size; anything else is a
// configuration error.
func New(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", core.ErrConfiguration, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap must satisfy 0 <= overlap < size, got overlap=%d size=%d",
			core.ErrConfiguration, overlap, size)
	}
	return &Splitter{size: size, overlap: overlap}, nil
}

// NewDefault creates a Splitter with DefaultSize and DefaultOverlap.
func NewDefault() *Splitter {
	return &Splitter{size: DefaultSize, overlap: DefaultOverlap}
}

// Size returns the maximum chunk length.
func (s *Splitter) Size() int { return s.size }

// Overlap returns the overlap between consecutive chunks.
func (s *Splitter) Overlap() int { return s.overlap }

// Split returns the chunks of text in order.
//
// Consecutive chunks share exactly Overlap runes and the last chunk may be
// shorter than Size. Concatenating chunk 0 with every later chunk minus its
// first Overlap runes reproduces text exactly. For a text longer than Overlap
// the number of chunks is ceil((len-overlap)/(size-overlap)); a shorter
// non-empty text is a single chunk and empty text yields none.
func (s *Splitter) Split(text string) []core.Chunk {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	step := s.size - s.overlap
	chunks := make([]core.Chunk, 0, expectedCount(n, s.size, s.overlap))
	for start := 0; ; start += step {
		end := min(start+s.size, n)
		chunks = append(chunks, core.Chunk{
			Index: len(chunks),
			Text:  string(runes[start:end]),
			Start: start,
			End:   end,
		})
		if end == n {
			break
		}
	}
	return chunks
}

// SplitText implements textsplitter.TextSplitter.
func (s *Splitter) SplitText(text string) ([]string, error) {
	chunks := s.Split(text)
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out, nil
}

// expectedCount returns the number of chunks Split produces for n runes.
func expectedCount(n, size, overlap int) int {
	if n == 0 {
		return 0
	}
	if n <= overlap {
		return 1
	}
	step := size - overlap
	return (n - overlap + step - 1) / step
}
