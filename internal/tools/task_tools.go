package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/vmyazin/planner-mcp/internal/core"
	"github.com/vmyazin/planner-mcp/internal/services"
)

// AddTaskArgs add_task parameters
type AddTaskArgs struct {
	Text     string `json:"text" jsonschema:"required,description=Task text"`
	Date     string `json:"date" jsonschema:"description=YYYY-MM-DD or today/tomorrow/a weekday name"`
	TimeSlot string `json:"time_slot" jsonschema:"enum=morning,enum=afternoon,enum=evening,description=Time slot; categorized from the text when omitted"`
}

// CompleteTaskArgs complete_task parameters
type CompleteTaskArgs struct {
	TaskID     string `json:"task_id" jsonschema:"description=Task id"`
	TaskName   string `json:"task_name" jsonschema:"description=Words from the task text"`
	TaskNumber int    `json:"task_number" jsonschema:"description=1-based position in the open task list"`
	Completed  *bool  `json:"completed" jsonschema:"default=true,description=false reopens a completed task"`
}

// ListTasksArgs list_tasks parameters
type ListTasksArgs struct {
	IncludeCompleted *bool `json:"include_completed" jsonschema:"default=true,description=Show completed tasks"`
	IncludeArchived  bool  `json:"include_archived" jsonschema:"default=false,description=Show archived tasks"`
}

// RegisterTaskTools registers the structured task tools.
func RegisterTaskTools(s *server.MCPServer, sm *SessionManager) {
	s.AddTool(mcp.NewTool("add_task",
		mcp.WithDescription(`add_task - add a task to the planner

Parameters:
  text (required)
  date (optional)
    YYYY-MM-DD, or "today", "tomorrow", a weekday name ("friday" means the next Friday, never today).
  time_slot (optional)
    morning / afternoon / evening. When omitted the slot is guessed from the text.

Example:
  add_task(text="lunch with client", date="tomorrow")
    -> Added "lunch with client" on 2026-01-02 in the afternoon.`),
		mcp.WithInputSchema[AddTaskArgs](),
	), wrapAddTask(sm))

	s.AddTool(mcp.NewTool("complete_task",
		mcp.WithDescription(`complete_task - mark a task done (or reopen it)

Parameters (one target is required, checked in this order):
  task_id
  task_name
    Only an exact or high-confidence match is completed; otherwise the candidates are returned.
  task_number
    1-based position in the open task list as shown by list_tasks.
  completed (default true)
    false reopens a completed, unarchived task.

Completing an already completed task is a no-op that reports success.`),
		mcp.WithInputSchema[CompleteTaskArgs](),
	), wrapCompleteTask(sm))

	s.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription(`list_tasks - show tasks

Open tasks are numbered; the numbers are what complete_task accepts as task_number.`),
		mcp.WithInputSchema[ListTasksArgs](),
	), wrapListTasks(sm))

	s.AddTool(mcp.NewTool("plan_day",
		mcp.WithDescription(`plan_day - spread unscheduled open tasks over morning, afternoon and evening

Tasks without a time slot are assigned round-robin in list order. Tasks that already
have a slot are left alone.`),
	), wrapIntent(sm, services.IntentPlanDay))

	s.AddTool(mcp.NewTool("archive_completed",
		mcp.WithDescription(`archive_completed - archive every completed task

Each task is archived on its own; failures are listed next to the successes.`),
	), wrapIntent(sm, services.IntentArchiveCompleted))
}

func wrapAddTask(sm *SessionManager) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := sm.ready(); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		var args AddTaskArgs
		if err := request.BindArguments(&args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		intent, err := sm.Interpreter.ValidateIntent(services.IntentAddTask, map[string]interface{}{
			"taskText": args.Text,
			"date":     args.Date,
			"timeSlot": args.TimeSlot,
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if intent.Params.TaskText == "" {
			return mcp.NewToolResultError("text is required"), nil
		}

		return actionResult(sm.Interpreter.Execute(ctx, *intent))
	}
}

func wrapCompleteTask(sm *SessionManager) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := sm.ready(); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		var args CompleteTaskArgs
		if err := request.BindArguments(&args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		if args.TaskID == "" && strings.TrimSpace(args.TaskName) == "" && args.TaskNumber <= 0 {
			return mcp.NewToolResultError("one of task_id, task_name or task_number is required"), nil
		}

		if args.Completed != nil && !*args.Completed {
			return reopenTask(ctx, sm, args)
		}

		params := map[string]interface{}{
			"taskId":   args.TaskID,
			"taskName": args.TaskName,
		}
		if args.TaskNumber > 0 {
			params["taskNumber"] = args.TaskNumber
		}
		intent, err := sm.Interpreter.ValidateIntent(services.IntentCompleteTask, params)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return actionResult(sm.Interpreter.Execute(ctx, *intent))
	}
}

// reopenTask resolves the target among completed, unarchived tasks.
func reopenTask(ctx context.Context, sm *SessionManager, args CompleteTaskArgs) (*mcp.CallToolResult, error) {
	tasks, err := sm.Store.ListActiveTasks(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list tasks: %v", err)), nil
	}
	var done []core.Task
	for _, t := range tasks {
		if t.Completed {
			done = append(done, t)
		}
	}

	var target *core.Task
	switch {
	case args.TaskID != "":
		for i := range tasks {
			if tasks[i].ID == args.TaskID {
				target = &tasks[i]
				break
			}
		}
	case strings.TrimSpace(args.TaskName) != "":
		match := services.ResolveTask(args.TaskName, done)
		if !match.Confidence.AutoExecutable() {
			return mcp.NewToolResultError(fmt.Sprintf("no completed task clearly matches %q (%s)", args.TaskName, match.Confidence)), nil
		}
		target = match.Task
	default:
		if args.TaskNumber > len(done) {
			return mcp.NewToolResultError(fmt.Sprintf("there is no completed task #%d", args.TaskNumber)), nil
		}
		target = &done[args.TaskNumber-1]
	}
	if target == nil {
		return mcp.NewToolResultError(fmt.Sprintf("task %s not found", args.TaskID)), nil
	}

	if !target.Completed {
		return mcp.NewToolResultText(fmt.Sprintf("%q is not completed.", target.Text)), nil
	}
	if err := sm.Store.SetCompleted(ctx, target.ID, false); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to reopen %q: %v", target.Text, err)), nil
	}
	sm.log().WithField("task", target.ID).Info("task reopened")
	return mcp.NewToolResultText(fmt.Sprintf("Reopened %q.", target.Text)), nil
}

func wrapListTasks(sm *SessionManager) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := sm.ready(); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		var args ListTasksArgs
		if err := request.BindArguments(&args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		tasks, err := sm.Store.ListTasks(ctx, args.IncludeArchived)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to list tasks: %v", err)), nil
		}

		shown := tasks
		if args.IncludeCompleted != nil && !*args.IncludeCompleted {
			shown = services.ActiveTasks(tasks)
		}

		var sb strings.Builder
		sb.WriteString(services.FormatTaskList(shown))
		if args.IncludeArchived {
			var archived []core.Task
			for _, t := range tasks {
				if t.Archived {
					archived = append(archived, t)
				}
			}
			if len(archived) > 0 {
				sb.WriteString(fmt.Sprintf("\nArchived (%d):", len(archived)))
				for _, t := range archived {
					sb.WriteString(fmt.Sprintf("\n- %s", t.Text))
				}
			}
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func wrapIntent(sm *SessionManager, name services.IntentName) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := sm.ready(); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return actionResult(sm.Interpreter.Execute(ctx, services.Intent{Name: name}))
	}
}

// actionResult maps a dispatcher outcome onto a tool result; failures are tool errors.
func actionResult(res *services.ActionResult, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("planner error: %v", err)), nil
	}
	if res == nil {
		return mcp.NewToolResultError("nothing to do"), nil
	}
	if !res.Success {
		return mcp.NewToolResultError(res.Message), nil
	}
	return mcp.NewToolResultText(res.Message), nil
}
