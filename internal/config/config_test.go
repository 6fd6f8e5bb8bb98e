package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	cfgDir := filepath.Join(dir, ".mcp-config")
	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	path := filepath.Join(cfgDir, "planner.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	return path
}

func isolateEnv(t *testing.T) string {
	t.Helper()
	for _, k := range []string{
		"PLANNER_CONFIG", "PLANNER_DB_DRIVER", "PLANNER_DB_DSN", "DATABASE_URL",
		"OPENAI_API_KEY", "OPENAI_MODEL", "PLANNER_JWT_SECRET", "PLANNER_HTTP_ADDR",
		"PLANNER_CORS_ORIGINS", "PLANNER_MAX_CONNS", "PLANNER_HISTORY_SIZE",
		"PLANNER_LLM_TIMEOUT", "PLANNER_LOG_LEVEL", "PLANNER_KEYWORDS_FILE",
	} {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	t.Setenv("PLANNER_DATA_DIR", dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	dir := isolateEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DBDriver != "sqlite" {
		t.Errorf("expected sqlite, got %q", cfg.DBDriver)
	}
	if cfg.DBDSN != filepath.Join(dir, ".planner-data", "planner.db") {
		t.Errorf("unexpected dsn %q", cfg.DBDSN)
	}
	if cfg.HTTPAddr != ":8080" || cfg.MaxConns != 64 || cfg.HistorySize != 20 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.LLMEnabled() || cfg.AuthEnabled() {
		t.Error("LLM and auth should be off without secrets")
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := isolateEnv(t)
	writeConfig(t, dir, `
openai_model: gpt-4o
llm_timeout: 45s
http_addr: ":9000"
history_size: 5
cors_origins: ["https://a.example"]
`)
	t.Setenv("PLANNER_HTTP_ADDR", ":9100")
	t.Setenv("PLANNER_CORS_ORIGINS", "https://b.example, https://c.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.OpenAIModel != "gpt-4o" || cfg.LLMTimeout != 45*time.Second || cfg.HistorySize != 5 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.HTTPAddr != ":9100" {
		t.Errorf("env should override file, got %q", cfg.HTTPAddr)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://c.example" {
		t.Errorf("unexpected origins %v", cfg.CORSOrigins)
	}
}

func TestLoad_KeywordsFileDiscovered(t *testing.T) {
	dir := isolateEnv(t)
	writeConfig(t, dir, "log_level: debug\n")
	kw := filepath.Join(dir, ".mcp-config", "keywords.yaml")
	if err := os.WriteFile(kw, []byte("evening: [piano]\n"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.KeywordsFile != kw {
		t.Errorf("expected %s, got %q", kw, cfg.KeywordsFile)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := isolateEnv(t)

	t.Setenv("PLANNER_CONFIG", filepath.Join(dir, "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Error("an explicit missing config file should fail")
	}

	t.Setenv("PLANNER_CONFIG", "")
	t.Setenv("PLANNER_MAX_CONNS", "lots")
	if _, err := Load(); err == nil {
		t.Error("non-numeric PLANNER_MAX_CONNS should fail")
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"driver":   func(c *Config) { c.DBDriver = "mysql" },
		"postgres": func(c *Config) { c.DBDriver = "postgres"; c.DBDSN = "" },
		"conns":    func(c *Config) { c.MaxConns = 0 },
		"history":  func(c *Config) { c.HistorySize = -1 },
		"timeout":  func(c *Config) { c.LLMTimeout = 0 },
		"level":    func(c *Config) { c.LogLevel = "loud" },
	}
	for name, mutate := range cases {
		c := defaults()
		mutate(c)
		if err := c.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}

	if err := defaults().Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}
