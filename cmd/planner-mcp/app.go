package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vmyazin/planner-mcp/internal/config"
	"github.com/vmyazin/planner-mcp/internal/core"
	"github.com/vmyazin/planner-mcp/internal/llm"
	"github.com/vmyazin/planner-mcp/internal/services"
)

// app everything a subcommand needs, built from config
type app struct {
	cfg         *config.Config
	log         *logrus.Logger
	store       *core.TaskStore
	interpreter *services.Interpreter
}

func newLogger(level string) *logrus.Logger {
	logger := logrus.New()
	// stdout belongs to the MCP transport
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if lvl, err := logrus.ParseLevel(level); err == nil {
		logger.SetLevel(lvl)
		// the db layer logs through the standard logger
		logrus.SetLevel(lvl)
	}
	return logger
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg.LogLevel)

	store, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.DBDriver, err)
	}

	categorizer, err := services.NewCategorizerFromFile(cfg.KeywordsFile)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("load keywords: %w", err)
	}

	opts := services.Options{
		Categorizer: categorizer,
		History:     core.NewHistory(cfg.HistorySize),
		Logger:      logger,
		Now:         time.Now,
	}
	if cfg.LLMEnabled() {
		client, err := llm.NewOpenAIClient(llm.Config{
			APIKey:  cfg.OpenAIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
			Timeout: cfg.LLMTimeout,
			Now:     opts.Now,
		}, logger)
		if err != nil {
			store.Close()
			return nil, err
		}
		opts.Classifier = client
		opts.Responder = client
	} else {
		logger.Info("no OpenAI key configured; only command templates are understood")
	}

	logger.WithFields(logrus.Fields{
		"data_dir": cfg.DataDir,
		"driver":   cfg.DBDriver,
		"keywords": fallback(cfg.KeywordsFile, "builtin"),
	}).Debug("planner initialized")

	return &app{
		cfg:         cfg,
		log:         logger,
		store:       store,
		interpreter: services.NewInterpreter(store, opts),
	}, nil
}

// openStore uses the shared per-data-dir sqlite file unless the DSN points elsewhere.
func openStore(cfg *config.Config) (*core.TaskStore, error) {
	if cfg.DBDriver == core.DriverSQLite && cfg.DataDir != "" && cfg.DBDSN == core.DefaultDBPath(cfg.DataDir) {
		return core.NewTaskStoreForDataDir(cfg.DataDir)
	}
	db, err := core.NewDatabaseManager(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	return core.NewTaskStore(db), nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func fallback(val, def string) string {
	if val == "" {
		return def
	}
	return val
}
