package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "planner-mcp",
	Short: "Daily task planner driven by natural-language commands",
	Long: `planner-mcp keeps a daily task list and interprets short commands such as
"add task for tuesday morning: dentist" or "complete call mom".

It runs as an MCP server over stdio (serve), as a REST/chat API (http), or as a
one-shot command line (chat).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, httpCmd, chatCmd, tokenCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
