package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	setupSlog()

	var configPath string
	rootCmd := &cobra.Command{
		Use:     "tasktracker",
		Short:   "Task tracker API server and Telegram bot",
		Version: Version,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "optional config file (yaml, json, toml or env)")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(migrateCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupSlog routes structured logs to stdout as JSON.
func setupSlog() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     slog.LevelInfo,
		AddSource: true,
	})
	slog.SetDefault(slog.New(handler))
}
