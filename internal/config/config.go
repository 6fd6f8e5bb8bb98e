package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/vmyazin/planner-mcp/internal/core"
	"github.com/vmyazin/planner-mcp/internal/services"
	"github.com/vmyazin/planner-mcp/pkg/utils"
)

// Config runtime settings. Precedence: env > yaml file > defaults.
type Config struct {
	DataDir string `yaml:"data_dir"`

	DBDriver string `yaml:"db_driver"`
	DBDSN    string `yaml:"db_dsn"`

	OpenAIKey     string        `yaml:"openai_api_key"`
	OpenAIModel   string        `yaml:"openai_model"`
	OpenAIBaseURL string        `yaml:"openai_base_url"`
	LLMTimeout    time.Duration `yaml:"llm_timeout"`

	LogLevel string `yaml:"log_level"`

	HTTPAddr    string   `yaml:"http_addr"`
	JWTSecret   string   `yaml:"jwt_secret"`
	CORSOrigins []string `yaml:"cors_origins"`
	MaxConns    int      `yaml:"max_conns"`

	KeywordsFile string `yaml:"keywords_file"`
	HistorySize  int    `yaml:"history_size"`
}

func defaults() *Config {
	return &Config{
		DBDriver:      core.DriverSQLite,
		OpenAIModel:   "gpt-4o-mini",
		OpenAIBaseURL: "https://api.openai.com/v1",
		LLMTimeout:    30 * time.Second,
		LogLevel:      "info",
		HTTPAddr:      ":8080",
		CORSOrigins:   []string{"*"},
		MaxConns:      64,
		HistorySize:   20,
	}
}

// Load reads .env (optional), the yaml config file (optional) and the environment.
func Load() (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	cfg := defaults()
	cfg.DataDir = utils.URIToPath(os.Getenv("PLANNER_DATA_DIR"))
	if cfg.DataDir == "" {
		cfg.DataDir = core.DetectDataDir()
	}

	path := os.Getenv("PLANNER_CONFIG")
	explicit := path != ""
	if !explicit {
		path = filepath.Join(cfg.DataDir, ".mcp-config", "planner.yaml")
	}
	if err := cfg.loadFile(path); err != nil {
		if explicit || !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.fillDerived()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}

	setString(&c.DataDir, "PLANNER_DATA_DIR")
	setString(&c.DBDriver, "PLANNER_DB_DRIVER")
	setString(&c.DBDSN, "PLANNER_DB_DSN", "DATABASE_URL")
	setString(&c.OpenAIKey, "OPENAI_API_KEY")
	setString(&c.OpenAIModel, "OPENAI_MODEL")
	setString(&c.OpenAIBaseURL, "OPENAI_BASE_URL")
	setString(&c.LogLevel, "PLANNER_LOG_LEVEL")
	setString(&c.HTTPAddr, "PLANNER_HTTP_ADDR")
	setString(&c.JWTSecret, "PLANNER_JWT_SECRET")
	setString(&c.KeywordsFile, "PLANNER_KEYWORDS_FILE")

	if v := os.Getenv("PLANNER_CORS_ORIGINS"); v != "" {
		c.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("PLANNER_LLM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PLANNER_LLM_TIMEOUT: %w", err)
		}
		c.LLMTimeout = d
	}
	if v := os.Getenv("PLANNER_MAX_CONNS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PLANNER_MAX_CONNS: %w", err)
		}
		c.MaxConns = n
	}
	if v := os.Getenv("PLANNER_HISTORY_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PLANNER_HISTORY_SIZE: %w", err)
		}
		c.HistorySize = n
	}
	return nil
}

func (c *Config) fillDerived() {
	// MCP clients pass roots as file:// URIs
	c.DataDir = utils.URIToPath(c.DataDir)
	c.DBDriver = strings.ToLower(c.DBDriver)
	if c.DBDSN == "" && c.DBDriver == core.DriverSQLite {
		c.DBDSN = core.DefaultDBPath(c.DataDir)
	}
	if c.KeywordsFile == "" {
		if p, ok := services.ResolveKeywordsFile(c.DataDir); ok {
			c.KeywordsFile = p
		}
	}
}

// Validate rejects settings the services cannot start with.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case core.DriverSQLite, core.DriverPostgres:
	default:
		return fmt.Errorf("unsupported db driver %q", c.DBDriver)
	}
	if c.DBDriver == core.DriverPostgres && c.DBDSN == "" {
		return fmt.Errorf("postgres needs PLANNER_DB_DSN or DATABASE_URL")
	}
	if c.MaxConns <= 0 {
		return fmt.Errorf("max_conns must be positive, got %d", c.MaxConns)
	}
	if c.HistorySize <= 0 {
		return fmt.Errorf("history_size must be positive, got %d", c.HistorySize)
	}
	if c.LLMTimeout <= 0 {
		return fmt.Errorf("llm_timeout must be positive, got %s", c.LLMTimeout)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// LLMEnabled reports whether an API key is configured.
func (c *Config) LLMEnabled() bool { return c.OpenAIKey != "" }

// AuthEnabled reports whether the HTTP API requires bearer tokens.
func (c *Config) AuthEnabled() bool { return c.JWTSecret != "" }

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
