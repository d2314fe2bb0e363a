package qa

import "github.com/poiesic/vidrag/core"

// DefaultWindow is the number of exchanges a History keeps.
const DefaultWindow = 3

// History is a bounded FIFO of conversation turns.
// It is not safe for concurrent use.
type History struct {
	limit int
	turns []core.Turn
}

// NewHistory creates a history keeping at most limit turns.
// A limit below zero is treated as zero, which keeps nothing.
func NewHistory(limit int) *History {
	limit = max(limit, 0)
	return &History{limit: limit, turns: make([]core.Turn, 0, limit)}
}

// Append adds a turn, evicting the oldest when full.
func (h *History) Append(turn core.Turn) {
	if h.limit == 0 {
		return
	}
	if len(h.turns) == h.limit {
		copy(h.turns, h.turns[1:])
		h.turns = h.turns[:h.limit-1]
	}
	h.turns = append(h.turns, turn)
}

// Turns returns a copy of the turns, oldest first.
func (h *History) Turns() []core.Turn {
	out := make([]core.Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Len returns the number of turns held.
func (h *History) Len() int { return len(h.turns) }

// Limit returns the maximum number of turns held.
func (h *History) Limit() int { return h.limit }

// Reset drops every turn.
func (h *History) Reset() {
	h.turns = h.turns[:0]
}
