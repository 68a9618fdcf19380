package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/gifgrep/internal/config"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// printBanner displays a friendly banner when run without arguments.
func printBanner() {
	fmt.Println(`
        _  __
   __ _(_)/ _|__ _ _ _ ___ _ __
  / _' | |  _/ _' | '_/ -_) '_ \
  \__, |_|_| \__, |_| \___| .__/
  |___/      |___/        |_|

  Semantic search over video transcripts, with GIF receipts

  Usage: gifgrep <command> [options]
         gifgrep --help`)
}

// setupLogger configures slog from GIFGREP_LOG_LEVEL and
// GIFGREP_LOG_FORMAT. Logs go to stderr; stdout carries command output.
func setupLogger() {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("GIFGREP_LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				a.Value = slog.StringValue(a.Value.Time().UTC().Format("2006-01-02T15:04:05Z07:00"))
			}
			return a
		},
	}
	var handler slog.Handler
	if strings.ToLower(os.Getenv("GIFGREP_LOG_FORMAT")) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// baseDir resolves the data directory: GIFGREP_HOME override, else
// ~/.gifgrep.
func baseDir() (string, error) {
	if dir := os.Getenv("GIFGREP_HOME"); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".gifgrep"), nil
}

func main() {
	if len(os.Args) < 2 {
		printBanner()
		return
	}

	setupLogger()

	dir, err := baseDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to create data directory: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	app := newCLIApp(dir, cfg)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
