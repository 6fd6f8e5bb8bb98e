package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/vmyazin/planner-mcp/internal/core"
	"github.com/vmyazin/planner-mcp/internal/services"
)

// SessionManager shared state of the MCP tools (task store + interpreter)
type SessionManager struct {
	Store       *core.TaskStore
	Interpreter *services.Interpreter
	DataDir     string
	Logger      *logrus.Logger
}

func (sm *SessionManager) ready() error {
	if sm == nil || sm.Store == nil || sm.Interpreter == nil {
		return fmt.Errorf("planner is not initialized")
	}
	return nil
}

func (sm *SessionManager) log() *logrus.Logger {
	if sm.Logger == nil {
		return logrus.StandardLogger()
	}
	return sm.Logger
}

// NewServer builds the MCP server with every planner tool and resource registered.
func NewServer(sm *SessionManager, version string) *server.MCPServer {
	s := server.NewMCPServer("planner-mcp", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
	)
	RegisterSystemTools(s, sm)
	RegisterTaskTools(s, sm)
	RegisterMemoryTools(s, sm)
	RegisterResources(s, sm)
	return s
}

// CategorizeArgs categorize_task parameters
type CategorizeArgs struct {
	Text string `json:"text" jsonschema:"required,description=Task text to categorize"`
}

// ParseCommandArgs parse_command parameters
type ParseCommandArgs struct {
	Utterance string `json:"utterance" jsonschema:"required,description=Raw user message"`
}

// RegisterSystemTools registers the dry-run introspection tools.
func RegisterSystemTools(s *server.MCPServer, sm *SessionManager) {
	s.AddTool(mcp.NewTool("categorize_task",
		mcp.WithDescription(`categorize_task - preview the time slot and task match for a text

Purpose:
  Shows which slot (morning / afternoon / evening / undefined) a task text would
  get, and which open task the same text would resolve to. Nothing is changed.

Parameters:
  text (required)
    The task text, e.g. "lunch with client".

Example:
  categorize_task(text="dinner at 7pm")
    -> time slot: evening`),
		mcp.WithInputSchema[CategorizeArgs](),
	), wrapCategorize(sm))

	s.AddTool(mcp.NewTool("parse_command",
		mcp.WithDescription(`parse_command - dry-run the add-task template grammar

Purpose:
  Shows how an utterance such as "add task for tuesday morning: dentist" is parsed
  (template, text, day, date, slot) without creating anything.

Parameters:
  utterance (required)
    The raw message.`),
		mcp.WithInputSchema[ParseCommandArgs](),
	), wrapParseCommand(sm))
}

func wrapCategorize(sm *SessionManager) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := sm.ready(); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		var args CategorizeArgs
		if err := request.BindArguments(&args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		if strings.TrimSpace(args.Text) == "" {
			return mcp.NewToolResultError("text is required"), nil
		}

		slot := sm.Interpreter.Categorizer().Categorize(args.Text)
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("time slot: %s\n", slotLabel(slot)))

		tasks, err := sm.Store.ListActiveTasks(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to list tasks: %v", err)), nil
		}
		match := services.ResolveTask(args.Text, services.ActiveTasks(tasks))
		sb.WriteString(fmt.Sprintf("task match: %s", match.Confidence))
		switch {
		case match.Task != nil:
			sb.WriteString(fmt.Sprintf(" (%s) %q", match.Tier, match.Task.Text))
		case len(match.Matches) > 0:
			names := make([]string, len(match.Matches))
			for i, m := range match.Matches {
				names[i] = fmt.Sprintf("%q", m.Text)
			}
			sb.WriteString(fmt.Sprintf(" (%s) %s", match.Tier, strings.Join(names, ", ")))
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func wrapParseCommand(sm *SessionManager) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := sm.ready(); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		var args ParseCommandArgs
		if err := request.BindArguments(&args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		cmd, ok := sm.Interpreter.Parser().Parse(args.Utterance)
		if !ok {
			return mcp.NewToolResultText("no template matched"), nil
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("template: %s\n", cmd.Template))
		sb.WriteString(fmt.Sprintf("text: %s\n", cmd.Text))
		sb.WriteString(fmt.Sprintf("day: %s\n", fallback(cmd.Day, "-")))
		sb.WriteString(fmt.Sprintf("date: %s\n", fallback(cmd.DateString(), "-")))
		sb.WriteString(fmt.Sprintf("time slot: %s\n", slotLabel(cmd.TimeSlot)))
		sb.WriteString(fmt.Sprintf("qualified: %v", cmd.Qualified()))
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func slotLabel(slot core.TimeSlot) string {
	if slot == core.SlotNone {
		return "undefined"
	}
	return string(slot)
}

func fallback(val, def string) string {
	if val == "" {
		return def
	}
	return val
}
