package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vmyazin/planner-mcp/internal/core"
)

// HelpText static reply of the help intent
const HelpText = `Here's what I can do:
- Add a task: "add task for tuesday morning: dentist" or "remind me to buy milk"
- Complete a task: "complete buy milk" or "done with #2"
- Plan your day: "plan my day" spreads unscheduled tasks over morning, afternoon and evening
- Archive: "archive completed tasks"
- List: "show my tasks"`

func (in *Interpreter) addTask(ctx context.Context, text, date string, slot core.TimeSlot) *ActionResult {
	if slot == core.SlotNone {
		slot = in.categorizer.Categorize(text)
	}
	task, err := in.store.CreateTask(ctx, text, date, slot)
	if err != nil {
		return &ActionResult{Success: false, Message: fmt.Sprintf("I couldn't add %q: %v", text, err)}
	}
	return &ActionResult{
		Success: true,
		Message: fmt.Sprintf("Added %q%s.", task.Text, describeSchedule(task)),
		Tasks:   []core.Task{task},
	}
}

func (in *Interpreter) handleAddTask(ctx context.Context, p IntentParams) *ActionResult {
	if p.TaskText == "" {
		return nil
	}
	date, slot := p.Date, p.TimeSlot
	if date != "" && !isISODate(date) {
		dt := ResolveDayTime(date, in.now())
		date = core.FormatDate(dt.Date)
		if slot == core.SlotNone {
			slot = dt.TimeSlot
		}
	}
	return in.addTask(ctx, p.TaskText, date, slot)
}

func (in *Interpreter) handleCompleteTask(ctx context.Context, p IntentParams, snapshot []core.Task) *ActionResult {
	open := ActiveTasks(snapshot)

	if p.TaskID != "" {
		for _, t := range snapshot {
			if t.ID == p.TaskID {
				return in.completeTask(ctx, t)
			}
		}
		return &ActionResult{Success: false, Message: fmt.Sprintf("I couldn't find a task with id %s.", p.TaskID)}
	}

	if p.TaskName != "" {
		res := ResolveTask(p.TaskName, open)
		if res.Confidence.AutoExecutable() {
			return in.completeTask(ctx, *res.Task)
		}
		if p.TaskNumber == 0 {
			switch res.Confidence {
			case ConfidenceAmbiguous:
				return &ActionResult{Success: false, Message: clarifyMessage(p.TaskName, res.Matches, open), Tasks: res.Matches}
			case ConfidenceNone:
				return &ActionResult{Success: false, Message: fmt.Sprintf("I couldn't find a task matching %q.", p.TaskName)}
			default:
				return &ActionResult{
					Success: false,
					Message: fmt.Sprintf("Did you mean %q? Say its full name or number to complete it.", res.Task.Text),
					Tasks:   []core.Task{*res.Task},
				}
			}
		}
	}

	if p.TaskNumber > 0 {
		if p.TaskNumber > len(open) {
			return &ActionResult{Success: false, Message: fmt.Sprintf("There is no task #%d; you have %d open tasks.", p.TaskNumber, len(open))}
		}
		return in.completeTask(ctx, open[p.TaskNumber-1])
	}

	return nil
}

// completeTask sets completed; an already completed task is reported, not toggled.
func (in *Interpreter) completeTask(ctx context.Context, t core.Task) *ActionResult {
	if t.Completed {
		return &ActionResult{Success: true, Message: fmt.Sprintf("%q is already completed.", t.Text), Tasks: []core.Task{t}}
	}
	if err := in.store.SetCompleted(ctx, t.ID, true); err != nil {
		return &ActionResult{Success: false, Message: fmt.Sprintf("I couldn't complete %q: %v", t.Text, err)}
	}
	t.Completed = true
	return &ActionResult{Success: true, Message: fmt.Sprintf("Marked %q as completed.", t.Text), Tasks: []core.Task{t}}
}

func (in *Interpreter) handlePlanDay(ctx context.Context, snapshot []core.Task) *ActionResult {
	var (
		planned  []core.Task
		failures []string
		next     int
	)
	for _, t := range snapshot {
		if t.Completed || t.Archived || t.HasSlot() {
			continue
		}
		slot := core.AllSlots[next%len(core.AllSlots)]
		next++
		if err := in.store.SetTimeSlot(ctx, t.ID, slot); err != nil {
			failures = append(failures, fmt.Sprintf("%q (%v)", t.Text, err))
			continue
		}
		t.TimeSlot = slot
		planned = append(planned, t)
	}

	if next == 0 {
		return &ActionResult{Success: true, Message: "Every open task already has a time slot."}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Planned %s:", pluralTasks(len(planned))))
	for _, t := range planned {
		sb.WriteString(fmt.Sprintf("\n- %s: %s", t.TimeSlot, t.Text))
	}
	if len(failures) > 0 {
		sb.WriteString(fmt.Sprintf("\nFailed to schedule %s: %s", pluralTasks(len(failures)), strings.Join(failures, ", ")))
	}
	return &ActionResult{Success: len(failures) == 0, Message: sb.String(), Tasks: planned}
}

func (in *Interpreter) handleArchiveCompleted(ctx context.Context, snapshot []core.Task) *ActionResult {
	var (
		archived []core.Task
		failures []string
		seen     int
	)
	for _, t := range snapshot {
		if !t.Completed || t.Archived {
			continue
		}
		seen++
		if err := in.store.SetArchived(ctx, t.ID); err != nil {
			failures = append(failures, fmt.Sprintf("%q (%v)", t.Text, err))
			continue
		}
		t.Archived = true
		archived = append(archived, t)
	}

	if seen == 0 {
		return &ActionResult{Success: true, Message: "There are no completed tasks to archive."}
	}

	msg := fmt.Sprintf("Archived %s.", pluralTasks(len(archived)))
	if len(failures) > 0 {
		msg += fmt.Sprintf(" Failed to archive %s: %s.", pluralTasks(len(failures)), strings.Join(failures, ", "))
	}
	return &ActionResult{Success: len(failures) == 0, Message: msg, Tasks: archived}
}

func (in *Interpreter) handleListTasks(snapshot []core.Task) *ActionResult {
	return &ActionResult{Success: true, Message: FormatTaskList(snapshot)}
}

// FormatTaskList renders open tasks numbered in display order, then completed ones.
// The numbers are the ones complete_task accepts as taskNumber.
func FormatTaskList(snapshot []core.Task) string {
	open := ActiveTasks(snapshot)
	var done []core.Task
	for _, t := range snapshot {
		if t.Completed && !t.Archived {
			done = append(done, t)
		}
	}
	if len(open) == 0 && len(done) == 0 {
		return "You have no tasks."
	}

	var sb strings.Builder
	if len(open) == 0 {
		sb.WriteString("No open tasks.\n")
	} else {
		sb.WriteString(fmt.Sprintf("Open tasks (%d):\n", len(open)))
		for i, t := range open {
			sb.WriteString(fmt.Sprintf("%d. %s%s\n", i+1, t.Text, describeSchedule(t)))
		}
	}
	if len(done) > 0 {
		sb.WriteString(fmt.Sprintf("Completed (%d):\n", len(done)))
		for _, t := range done {
			sb.WriteString(fmt.Sprintf("- %s\n", t.Text))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func clarifyMessage(name string, matches, open []core.Task) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%q matches several tasks. Which one did you mean?", name))
	for _, m := range matches {
		sb.WriteString(fmt.Sprintf("\n%d. %s", displayNumber(m, open), m.Text))
	}
	return sb.String()
}

func displayNumber(t core.Task, open []core.Task) int {
	for i, o := range open {
		if o.ID == t.ID {
			return i + 1
		}
	}
	return 0
}

func describeSchedule(t core.Task) string {
	var parts []string
	if t.Date != "" {
		parts = append(parts, "on "+t.Date)
	}
	if t.HasSlot() {
		parts = append(parts, "in the "+string(t.TimeSlot))
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, " ")
}

func pluralTasks(n int) string {
	if n == 1 {
		return "1 task"
	}
	return fmt.Sprintf("%d tasks", n)
}

func isISODate(s string) bool {
	_, err := time.Parse(core.DateLayout, s)
	return err == nil
}
