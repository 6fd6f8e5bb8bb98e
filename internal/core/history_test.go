package core

import (
	"fmt"
	"strings"
	"testing"
)

func TestHistory_RingOverwritesOldest(t *testing.T) {
	h := NewHistory(3)
	for i := 1; i <= 5; i++ {
		h.Append(Interaction{Utterance: fmt.Sprintf("u%d", i), Reply: fmt.Sprintf("r%d", i)})
	}

	got := h.Recent(0)
	if len(got) != 3 {
		t.Fatalf("Expected 3 retained turns, got %d", len(got))
	}
	for i, want := range []string{"u3", "u4", "u5"} {
		if got[i].Utterance != want {
			t.Errorf("Recent[%d] = %s, want %s", i, got[i].Utterance, want)
		}
	}

	last := h.Recent(1)
	if len(last) != 1 || last[0].Utterance != "u5" {
		t.Errorf("Expected only newest turn, got %+v", last)
	}
}

func TestHistory_PartialAndRender(t *testing.T) {
	h := NewHistory(0)
	if h.Cap() != 1 {
		t.Fatalf("Expected capacity clamp to 1, got %d", h.Cap())
	}

	h = NewHistory(4)
	if len(h.Recent(0)) != 0 {
		t.Fatal("Expected empty history")
	}
	h.Append(Interaction{Utterance: "hi", Reply: "hello"})

	out := h.Render(0)
	if !strings.Contains(out, "user: hi") || !strings.Contains(out, "assistant: hello") {
		t.Errorf("unexpected transcript: %q", out)
	}
}
