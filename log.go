package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"

	"github.com/hollyai/holly-voice/internal/config"
)

func getLogFilePath() (string, error) {
	dir, err := gap.NewScope(gap.User, config.AppName).CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, config.AppName+".log"), nil
}

// setupLog sends the default logger to stderr until the configuration is
// known.
func setupLog() {
	log.SetOutput(os.Stderr)
	log.SetReportTimestamp(true)
	log.SetLevel(log.InfoLevel)
}

// configureLog applies the configured level and format and, when a log file
// is configured, tees output into it. "default" selects the file in the
// user cache directory.
func configureLog(cfg *config.Config) (func() error, error) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	log.SetLevel(level)
	if cfg.LogFormat == "json" {
		log.SetFormatter(log.JSONFormatter)
	} else {
		log.SetFormatter(log.TextFormatter)
	}

	path := cfg.LogFile
	if path == "" {
		return func() error { return nil }, nil
	}
	if path == "default" {
		if path, err = getLogFilePath(); err != nil {
			return nil, fmt.Errorf("could not find log directory: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("could not open log file: %w", err)
	}
	log.SetOutput(io.MultiWriter(os.Stderr, f))
	return f.Close, nil
}
