package storage

import (
	"container/heap"
	"math"
	"slices"
	"strings"

	"github.com/poiesic/vidrag/core"
)

// Norm returns the L2 norm of a vector.
func Norm(v []float32) float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return float32(math.Sqrt(sum))
}

// Cosine computes cosine similarity given the precomputed norm of a.
// Vectors of different length, or with a zero norm, score 0.
func Cosine(a, b []float32, aNorm float32) float32 {
	if len(a) != len(b) || aNorm == 0 {
		return 0
	}
	var dot, bNormSq float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		bNormSq += float64(b[i]) * float64(b[i])
	}
	if bNormSq == 0 {
		return 0
	}
	return float32(dot / (float64(aNorm) * math.Sqrt(bNormSq)))
}

// TopK keeps the k best matches seen so far in a min-heap.
type TopK struct {
	k int
	h matchHeap
}

// NewTopK creates a collector for up to k matches.
func NewTopK(k int) *TopK {
	return &TopK{k: k, h: make(matchHeap, 0, max(k, 0))}
}

// Offer considers a candidate. The text thunk, if non-nil, is only invoked
// for candidates that enter the heap.
func (t *TopK) Offer(id string, score float32, text func() string) {
	if t.k <= 0 {
		return
	}
	m := core.Match{ID: id, Score: score}
	if t.h.Len() < t.k {
		m.Text = fill(text)
		heap.Push(&t.h, m)
		return
	}
	if less(t.h[0], m) {
		m.Text = fill(text)
		t.h[0] = m
		heap.Fix(&t.h, 0)
	}
}

func fill(text func() string) string {
	if text == nil {
		return ""
	}
	return text()
}

// Results returns the collected matches by descending score, ties by ascending id.
func (t *TopK) Results() []core.Match {
	out := slices.Clone([]core.Match(t.h))
	slices.SortFunc(out, func(a, b core.Match) int {
		switch {
		case less(b, a):
			return -1
		case less(a, b):
			return 1
		}
		return 0
	})
	return out
}

// less orders a below b: lower score first, then higher id.
func less(a, b core.Match) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return strings.Compare(a.ID, b.ID) > 0
}

type matchHeap []core.Match

func (h matchHeap) Len() int           { return len(h) }
func (h matchHeap) Less(i, j int) bool { return less(h[i], h[j]) }
func (h matchHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *matchHeap) Push(x any)        { *h = append(*h, x.(core.Match)) }
func (h *matchHeap) Pop() any {
	old := *h
	n := len(old)
	m := old[n-1]
	*h = old[:n-1]
	return m
}
