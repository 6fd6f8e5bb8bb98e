package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vmyazin/planner-mcp/internal/core"
	"github.com/vmyazin/planner-mcp/internal/httpapi"
)

func isolateEnv(t *testing.T) string {
	t.Helper()
	for _, k := range []string{
		"PLANNER_CONFIG", "PLANNER_DB_DRIVER", "PLANNER_DB_DSN", "DATABASE_URL",
		"OPENAI_API_KEY", "PLANNER_JWT_SECRET", "PLANNER_KEYWORDS_FILE", "PLANNER_LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	t.Setenv("PLANNER_DATA_DIR", dir)
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestChatCommand_AddsTaskToDataDir(t *testing.T) {
	dir := isolateEnv(t)
	t.Setenv("PLANNER_LOG_LEVEL", "error")

	out, err := run(t, "chat", "add", "evening", "task:", "call", "mom")
	if err != nil {
		t.Fatalf("chat failed: %v (%s)", err, out)
	}
	if !strings.Contains(out, "call mom") {
		t.Errorf("unexpected output: %s", out)
	}

	if _, err := os.Stat(core.DefaultDBPath(dir)); err != nil {
		t.Errorf("expected sqlite file in data dir: %v", err)
	}
}

func TestTokenCommand(t *testing.T) {
	isolateEnv(t)
	t.Setenv("PLANNER_LOG_LEVEL", "error")

	if _, err := run(t, "token"); err == nil {
		t.Error("token without a secret should fail")
	}

	t.Setenv("PLANNER_JWT_SECRET", "s3cret")
	out, err := run(t, "token", "--subject", "alice")
	if err != nil {
		t.Fatalf("token failed: %v", err)
	}
	sub, err := httpapi.ParseToken([]byte("s3cret"), strings.TrimSpace(out))
	if err != nil || sub != "alice" {
		t.Errorf("ParseToken = %q, %v", sub, err)
	}
}

func TestOpenStore_CustomDSN(t *testing.T) {
	dir := isolateEnv(t)
	dsn := filepath.Join(dir, "elsewhere", "tasks.db")
	t.Setenv("PLANNER_DB_DSN", dsn)

	a, err := newApp()
	if err != nil {
		t.Fatalf("newApp failed: %v", err)
	}
	defer a.Close()

	if _, err := os.Stat(dsn); err != nil {
		t.Errorf("expected sqlite file at custom dsn: %v", err)
	}
}
