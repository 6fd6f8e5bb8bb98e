package services

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/vmyazin/planner-mcp/internal/core"
)

// Keywords curated keyword lists per slot
type Keywords struct {
	Morning   []string `json:"morning" yaml:"morning"`
	Afternoon []string `json:"afternoon" yaml:"afternoon"`
	Evening   []string `json:"evening" yaml:"evening"`
}

// DefaultKeywords built-in lists
func DefaultKeywords() Keywords {
	return Keywords{
		Morning: []string{
			"breakfast", "coffee", "workout", "gym", "jog", "run", "yoga",
			"meditat", "stretch", "shower", "commute", "email", "inbox",
			"standup", "stand-up", "plan the day", "journal", "vitamins", "school drop",
		},
		Afternoon: []string{
			"meeting", "call", "appointment", "errand", "grocer", "shopping",
			"bank", "post office", "doctor", "dentist", "pick up", "pickup",
			"report", "presentation", "client", "interview", "review", "deadline", "haircut",
		},
		Evening: []string{
			"dinner", "movie", "tv show", "netflix", "reading", "novel", "relax",
			"party", "drinks", "concert", "cook", "dishes", "laundry",
			"bedtime", "date night", "family", "friends", "bath", "game",
		},
	}
}

// Categorizer picks a time slot for task text with ordered rules.
type Categorizer struct {
	keywords Keywords
}

// NewCategorizer uses the given lists; empty lists fall back to the defaults.
func NewCategorizer(kw Keywords) *Categorizer {
	def := DefaultKeywords()
	if len(kw.Morning) == 0 {
		kw.Morning = def.Morning
	}
	if len(kw.Afternoon) == 0 {
		kw.Afternoon = def.Afternoon
	}
	if len(kw.Evening) == 0 {
		kw.Evening = def.Evening
	}
	return &Categorizer{keywords: normalizeKeywords(kw)}
}

// Keywords returns the effective lists.
func (c *Categorizer) Keywords() Keywords { return c.keywords }

var tokenSplitter = regexp.MustCompile(`[^a-z0-9:]+`)

// hour token like 7, 7:30, 7am, 7:30pm
var hourToken = regexp.MustCompile(`^(\d{1,2})(?::\d{2})?(am|pm)?$`)

// Categorize returns the slot for text, or core.SlotNone when nothing applies.
func (c *Categorizer) Categorize(text string) core.TimeSlot {
	lower := strings.ToLower(text)
	tokens := tokenize(lower)

	// 1. lunch
	if strings.Contains(lower, "lunch") {
		return core.SlotAfternoon
	}

	// 2. am / morning / early hour
	if hasWord(tokens, "am") || strings.Contains(lower, "morning") || hasMorningHour(tokens) {
		return core.SlotMorning
	}

	// 3. pm with an evening hour
	if hasPM(tokens) && hasEveningHour(tokens) {
		return core.SlotEvening
	}

	// 4. explicit evening words
	for _, w := range []string{"evening", "night", "tonight"} {
		if strings.Contains(lower, w) {
			return core.SlotEvening
		}
	}

	// 5. keyword score
	morning := countHits(lower, c.keywords.Morning)
	afternoon := countHits(lower, c.keywords.Afternoon)
	evening := countHits(lower, c.keywords.Evening)

	switch {
	case morning == 0 && afternoon == 0 && evening == 0:
		return core.SlotNone
	case morning >= afternoon && morning >= evening:
		return core.SlotMorning
	case afternoon >= evening:
		return core.SlotAfternoon
	default:
		return core.SlotEvening
	}
}

func tokenize(lower string) []string {
	var out []string
	for _, t := range tokenSplitter.Split(lower, -1) {
		t = strings.Trim(t, ":")
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func hasWord(tokens []string, w string) bool {
	for _, t := range tokens {
		if t == w {
			return true
		}
	}
	return false
}

// a pm suffix ("8pm") counts as well as a bare "pm"
func hasPM(tokens []string) bool {
	for _, t := range tokens {
		if t == "pm" {
			return true
		}
		if m := hourToken.FindStringSubmatch(t); m != nil && m[2] == "pm" {
			return true
		}
	}
	return false
}

func hasMorningHour(tokens []string) bool {
	for i, t := range tokens {
		m := hourToken.FindStringSubmatch(t)
		if m == nil {
			continue
		}
		if m[2] == "am" {
			return true
		}
		if m[2] == "pm" {
			continue
		}
		h, _ := strconv.Atoi(m[1])
		if h < 6 || h > 9 {
			continue
		}
		// "7 pm" is not a morning hour
		if i+1 < len(tokens) && tokens[i+1] == "pm" {
			continue
		}
		return true
	}
	return false
}

func hasEveningHour(tokens []string) bool {
	for _, t := range tokens {
		m := hourToken.FindStringSubmatch(t)
		if m == nil || m[2] == "am" {
			continue
		}
		h, _ := strconv.Atoi(m[1])
		if h >= 6 && h <= 10 {
			return true
		}
	}
	return false
}

func countHits(lower string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			n++
		}
	}
	return n
}

func normalizeKeywords(kw Keywords) Keywords {
	norm := func(list []string) []string {
		out := make([]string, 0, len(list))
		for _, k := range list {
			k = strings.ToLower(strings.TrimSpace(k))
			if k != "" {
				out = append(out, k)
			}
		}
		return out
	}
	return Keywords{
		Morning:   norm(kw.Morning),
		Afternoon: norm(kw.Afternoon),
		Evening:   norm(kw.Evening),
	}
}
