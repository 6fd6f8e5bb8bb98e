package utils

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// TaskURIPrefix scheme and path of per-task MCP resources
const TaskURIPrefix = "planner://tasks/"

// URIToPath turns an MCP file:/// URI (e.g. a client root) into a local absolute path.
// Anything else is returned unchanged.
func URIToPath(uri string) string {
	if !strings.HasPrefix(uri, "file://") {
		return uri
	}

	u, err := url.Parse(uri)
	if err != nil {
		return uri
	}

	path := u.Path

	// Windows: /C:/foo -> C:/foo
	if os.PathSeparator == '\\' && len(path) > 2 && path[0] == '/' && path[2] == ':' {
		path = path[1:]
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}

	return abs
}

// TaskURI builds the resource URI of a task.
func TaskURI(id string) string {
	return TaskURIPrefix + url.PathEscape(id)
}

// TaskIDFromURI extracts the id of planner://tasks/{id}. The collection URI
// planner://tasks/active is not a task.
func TaskIDFromURI(uri string) (string, bool) {
	if !strings.HasPrefix(uri, TaskURIPrefix) {
		return "", false
	}
	raw := strings.TrimPrefix(uri, TaskURIPrefix)
	id, err := url.PathUnescape(raw)
	if err != nil || id == "" || id == "active" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
