package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ChatArgs chat parameters
type ChatArgs struct {
	Message string `json:"message" jsonschema:"required,description=What the user said, verbatim"`
}

// RegisterMemoryTools registers the conversational entry point, which also feeds the history.
func RegisterMemoryTools(s *server.MCPServer, sm *SessionManager) {
	s.AddTool(mcp.NewTool("chat",
		mcp.WithDescription(`chat - talk to the planner in plain language

Purpose:
  Pass the user's message as-is. Scheduling commands such as
  "add task for tuesday morning: dentist" are executed directly; other requests
  ("done with the report", "plan my day", "archive completed tasks") are classified
  and executed; anything else gets a conversational answer.

Parameters:
  message (required)

Every turn is kept in a short history (resource planner://history).`),
		mcp.WithInputSchema[ChatArgs](),
	), wrapChat(sm))
}

func wrapChat(sm *SessionManager) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := sm.ready(); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		var args ChatArgs
		if err := request.BindArguments(&args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		if strings.TrimSpace(args.Message) == "" {
			return mcp.NewToolResultError("message is required"), nil
		}

		reply := sm.Interpreter.Chat(ctx, args.Message)
		if reply.Action != nil && !reply.Action.Success {
			sm.log().WithField("intent", reply.Action.Intent).Info(reply.Action.Message)
		}
		return mcp.NewToolResultText(reply.Text), nil
	}
}
