package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/vmyazin/planner-mcp/internal/core"
	"github.com/vmyazin/planner-mcp/pkg/utils"
)

const (
	activeTasksURI = "planner://tasks/active"
	historyURI     = "planner://history"
	taskURITmpl    = utils.TaskURIPrefix + "{id}"
)

// RegisterResources exposes tasks and the chat history as read-only resources.
func RegisterResources(s *server.MCPServer, sm *SessionManager) {
	s.AddResource(mcp.NewResource(activeTasksURI, "Active tasks",
		mcp.WithResourceDescription("Every non-archived task in list order, as JSON"),
		mcp.WithMIMEType("application/json"),
	), readActiveTasks(sm))

	s.AddResource(mcp.NewResource(historyURI, "Chat history",
		mcp.WithResourceDescription("Recent chat turns, oldest first"),
		mcp.WithMIMEType("text/plain"),
	), readHistory(sm))

	s.AddResourceTemplate(mcp.NewResourceTemplate(taskURITmpl, "Task",
		mcp.WithTemplateDescription("A single task by id, archived or not"),
		mcp.WithTemplateMIMEType("application/json"),
	), readTask(sm))
}

func readActiveTasks(sm *SessionManager) server.ResourceHandlerFunc {
	return func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		if err := sm.ready(); err != nil {
			return nil, err
		}
		tasks, err := sm.Store.ListActiveTasks(ctx)
		if err != nil {
			return nil, err
		}
		if tasks == nil {
			tasks = []core.Task{}
		}
		return jsonContents(request.Params.URI, tasks)
	}
}

func readHistory(sm *SessionManager) server.ResourceHandlerFunc {
	return func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		if err := sm.ready(); err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      request.Params.URI,
				MIMEType: "text/plain",
				Text:     sm.Interpreter.History().Render(0),
			},
		}, nil
	}
}

func readTask(sm *SessionManager) server.ResourceTemplateHandlerFunc {
	return func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		if err := sm.ready(); err != nil {
			return nil, err
		}
		id, ok := utils.TaskIDFromURI(request.Params.URI)
		if !ok {
			return nil, fmt.Errorf("not a task uri: %s", request.Params.URI)
		}
		task, err := sm.Store.GetTask(ctx, id)
		if errors.Is(err, core.ErrTaskNotFound) {
			return nil, fmt.Errorf("task %s not found", id)
		}
		if err != nil {
			return nil, err
		}
		return jsonContents(request.Params.URI, task)
	}
}

func jsonContents(uri string, v interface{}) ([]mcp.ResourceContents, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(raw),
		},
	}, nil
}
