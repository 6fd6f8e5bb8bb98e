package services

import (
	"regexp"
	"strings"
	"time"

	"github.com/vmyazin/planner-mcp/internal/core"
)

// CommandKind tag of a parsed command
type CommandKind string

const CommandAddTask CommandKind = "add_task"

// Command structured output of the template grammar
type Command struct {
	Kind     CommandKind
	Text     string
	Day      string
	Date     time.Time // zero when no day was named
	TimeSlot core.TimeSlot
	Template string
}

// Qualified reports whether the qualifier named a day or a time slot.
func (c Command) Qualified() bool {
	return !c.Date.IsZero() || c.TimeSlot != core.SlotNone
}

// DateString returns the date as YYYY-MM-DD, or "".
func (c Command) DateString() string {
	return core.FormatDate(c.Date)
}

type commandTemplate struct {
	name    string
	pattern *regexp.Regexp
}

// declared order is the tie-break
var commandTemplates = []commandTemplate{
	{"add task for X:", regexp.MustCompile(`(?i)^\s*add\s+(?:a\s+)?task\s+for\s+(.+?)\s*:\s*(.*)$`)},
	{"add X task:", regexp.MustCompile(`(?i)^\s*add\s+(?:a\s+)?(.+?)\s+task\s*:\s*(.*)$`)},
	{"task for X:", regexp.MustCompile(`(?i)^\s*task\s+for\s+(.+?)\s*:\s*(.*)$`)},
	{"X task:", regexp.MustCompile(`(?i)^\s*(.+?)\s+task\s*:\s*(.*)$`)},
}

// CommandParser matches utterances against the add-task template grammar.
type CommandParser struct {
	now func() time.Time
}

// NewCommandParser uses now for relative dates; nil means time.Now.
func NewCommandParser(now func() time.Time) *CommandParser {
	if now == nil {
		now = time.Now
	}
	return &CommandParser{now: now}
}

// Parse returns the command of the first matching template. ok is false when no
// template matches or the task text is empty.
func (p *CommandParser) Parse(utterance string) (Command, bool) {
	for _, tpl := range commandTemplates {
		m := tpl.pattern.FindStringSubmatch(utterance)
		if m == nil {
			continue
		}
		text := strings.TrimSpace(m[2])
		if text == "" {
			return Command{}, false
		}
		dt := ResolveDayTime(strings.ToLower(m[1]), p.now())
		return Command{
			Kind:     CommandAddTask,
			Text:     text,
			Day:      dt.Day,
			Date:     dt.Date,
			TimeSlot: dt.TimeSlot,
			Template: tpl.name,
		}, true
	}
	return Command{}, false
}
