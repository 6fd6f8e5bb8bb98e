package core

import (
	"fmt"
	"strings"
	"sync"
)

// History bounded append-only log of chat turns (ring buffer)
type History struct {
	mu    sync.Mutex
	items []Interaction
	next  int
	full  bool
}

// NewHistory creates a ring buffer; capacity < 1 is treated as 1.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{items: make([]Interaction, capacity)}
}

// Cap returns the fixed capacity.
func (h *History) Cap() int { return len(h.items) }

// Append stores a turn, overwriting the oldest when full.
func (h *History) Append(it Interaction) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.items[h.next] = it
	h.next = (h.next + 1) % len(h.items)
	if h.next == 0 {
		h.full = true
	}
}

// Recent returns up to n turns, oldest first. n <= 0 returns all retained turns.
func (h *History) Recent(n int) []Interaction {
	h.mu.Lock()
	defer h.mu.Unlock()

	var ordered []Interaction
	if h.full {
		ordered = append(ordered, h.items[h.next:]...)
	}
	ordered = append(ordered, h.items[:h.next]...)

	if n > 0 && len(ordered) > n {
		ordered = ordered[len(ordered)-n:]
	}
	return ordered
}

// Render formats recent turns as a transcript for the conversational fallback.
func (h *History) Render(n int) string {
	var sb strings.Builder
	for _, it := range h.Recent(n) {
		sb.WriteString(fmt.Sprintf("user: %s\nassistant: %s\n", it.Utterance, it.Reply))
	}
	return sb.String()
}
