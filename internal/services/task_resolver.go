package services

import (
	"strings"

	"github.com/vmyazin/planner-mcp/internal/core"
)

// Confidence rank of a task match
type Confidence string

const (
	ConfidenceExact     Confidence = "exact"
	ConfidenceHigh      Confidence = "high"
	ConfidenceMedium    Confidence = "medium"
	ConfidenceLow       Confidence = "low"
	ConfidenceAmbiguous Confidence = "ambiguous"
	ConfidenceNone      Confidence = "none"
)

// AutoExecutable reports whether a destructive action may act on the match unasked.
func (c Confidence) AutoExecutable() bool {
	return c == ConfidenceExact || c == ConfidenceHigh
}

// MatchResult outcome of ResolveTask. Matches is set for ambiguous results.
type MatchResult struct {
	Task       *core.Task  `json:"task,omitempty"`
	Confidence Confidence  `json:"confidence"`
	Matches    []core.Task `json:"matches,omitempty"`
	Tier       string      `json:"tier,omitempty"`
}

type matchTier struct {
	name       string
	confidence Confidence
	match      func(task, input string, words []string) bool
}

// ladder order is the precedence; a tier runs only if the previous found nothing
var matchTiers = []matchTier{
	{"exact", ConfidenceExact, func(task, input string, _ []string) bool {
		return task == input
	}},
	{"prefix", ConfidenceHigh, func(task, input string, _ []string) bool {
		return strings.HasPrefix(task, input)
	}},
	{"all-words", ConfidenceHigh, func(task, _ string, words []string) bool {
		if len(words) == 0 {
			return false
		}
		for _, w := range words {
			if !strings.Contains(task, w) {
				return false
			}
		}
		return true
	}},
	{"substring", ConfidenceMedium, func(task, input string, _ []string) bool {
		return strings.Contains(task, input)
	}},
	{"fuzzy", ConfidenceLow, func(task, _ string, words []string) bool {
		for _, w := range words {
			if len(w) > 2 && strings.Contains(task, w) {
				return true
			}
		}
		return false
	}},
}

// ResolveTask finds the task referenced by name among tasks, in slice order.
// More than one hit in any tier below exact is ambiguous and never auto-picked.
func ResolveTask(name string, tasks []core.Task) MatchResult {
	input := strings.ToLower(strings.TrimSpace(name))
	if input == "" || len(tasks) == 0 {
		return MatchResult{Confidence: ConfidenceNone}
	}
	words := strings.Fields(input)

	for _, tier := range matchTiers {
		var hits []core.Task
		for _, t := range tasks {
			if tier.match(strings.ToLower(t.Text), input, words) {
				hits = append(hits, t)
			}
		}
		if len(hits) == 0 {
			continue
		}
		if len(hits) == 1 || tier.confidence == ConfidenceExact {
			task := hits[0]
			return MatchResult{Task: &task, Confidence: tier.confidence, Tier: tier.name}
		}
		return MatchResult{Confidence: ConfidenceAmbiguous, Matches: hits, Tier: tier.name}
	}

	return MatchResult{Confidence: ConfidenceNone}
}

// ActiveTasks filters out completed tasks, keeping order.
func ActiveTasks(tasks []core.Task) []core.Task {
	out := make([]core.Task, 0, len(tasks))
	for _, t := range tasks {
		if !t.Completed && !t.Archived {
			out = append(out, t)
		}
	}
	return out
}
