package main

import (
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/vmyazin/planner-mcp/internal/httpapi"
	"github.com/vmyazin/planner-mcp/internal/tools"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server over stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		s := tools.NewServer(&tools.SessionManager{
			Store:       a.store,
			Interpreter: a.interpreter,
			DataDir:     a.cfg.DataDir,
			Logger:      a.log,
		}, version)

		a.log.Info("MCP server listening on stdio")
		return server.ServeStdio(s)
	},
}

var httpCmd = &cobra.Command{
	Use:   "http",
	Short: "Run the REST and chat API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = a.cfg.HTTPAddr
		}
		if !a.cfg.AuthEnabled() {
			a.log.Warn("PLANNER_JWT_SECRET is not set; the API is unauthenticated")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv := httpapi.NewServer(a.store, a.interpreter, httpapi.Options{
			JWTSecret:   a.cfg.JWTSecret,
			CORSOrigins: a.cfg.CORSOrigins,
			MaxConns:    a.cfg.MaxConns,
		}, a.log)
		return srv.Serve(ctx, addr)
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat <utterance...>",
	Short: "Interpret one utterance and print the reply",
	Example: `  planner-mcp chat add task for tomorrow morning: call the bank
  planner-mcp chat complete call the bank`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		reply := a.interpreter.Chat(cmd.Context(), strings.Join(args, " "))
		fmt.Fprintln(cmd.OutOrStdout(), reply.Text)
		if reply.Action != nil && !reply.Action.Success {
			return errors.New("command failed")
		}
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if !a.cfg.AuthEnabled() {
			return errors.New("PLANNER_JWT_SECRET is not set")
		}
		subject, _ := cmd.Flags().GetString("subject")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		token, err := httpapi.GenerateToken([]byte(a.cfg.JWTSecret), subject, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	httpCmd.Flags().String("addr", "", "listen address (defaults to PLANNER_HTTP_ADDR)")
	tokenCmd.Flags().String("subject", "planner", "token subject")
	tokenCmd.Flags().Duration("ttl", 30*24*time.Hour, "token lifetime")
}
