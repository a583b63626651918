package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hollyai/holly-voice/internal/config"
	"github.com/hollyai/holly-voice/internal/server"
	"github.com/hollyai/holly-voice/internal/voice"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Serve the HOLLY voice HTTP API",
	Long:    paragraph(fmt.Sprintf("\n%s the HTTP API: POST /generate returns WAV audio, GET /health, GET /cache/stats, POST /cache/clear and GET /metrics.", keyword("Serve"))),
	Example: paragraph("holly-voice serve\nholly-voice serve --engine piper --port 9000\nHOLLY_ENGINE=gtts holly-voice serve"),
	Args:    cobra.NoArgs,
	RunE:    runServe,
}

func init() {
	serveCmd.Flags().String("host", "", "listen host")
	serveCmd.Flags().IntP("port", "p", 0, "listen port")
	serveCmd.Flags().Bool("warm", false, "synthesize the common phrases on startup")

	_ = viper.BindPFlag("host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("cache.warm_on_start", serveCmd.Flags().Lookup("warm"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := log.Default()
	gen, handle, err := newGenerator(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := handle.Close(); err != nil {
			logger.Warn("Could not close engine", "err", err)
		}
	}()

	srv, err := server.New(gen, server.Options{
		Addr:         cfg.Addr(),
		Version:      Version,
		WriteTimeout: 2 * cfg.Timeout,
	}, logger)
	if err != nil {
		return err
	}

	watchConfig()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Cache.WarmOnStart {
		go warmCache(ctx, gen, logger)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("unable to shut down: %w", err)
	}
	logCacheSummary(gen, logger)
	return <-errCh
}

func logCacheSummary(gen *voice.Generator, logger *log.Logger) {
	stats := gen.CacheStats()
	logger.Info("Cache summary",
		"hits", stats.Hits,
		"misses", stats.Misses,
		"corrupt", stats.Corrupt,
		"entries", stats.EntryCount,
		"memory_entries", stats.MemoryEntries,
		"memory_bytes", stats.MemoryBytes,
		"memory_evictions", stats.MemoryEvictions,
	)
}

func warmCache(ctx context.Context, gen *voice.Generator, logger *log.Logger) {
	report, err := gen.Warm(ctx, voice.Phrases(), 2)
	if err != nil {
		logger.Warn("Cache warm-up failed", "err", err)
		return
	}
	logger.Info("Cache warmed", "generated", report.Generated, "cached", report.Cached, "failed", report.Failed)
}

// watchConfig reloads the log level when the config file changes. Other
// settings take effect on restart.
func watchConfig() {
	if viper.ConfigFileUsed() == "" {
		return
	}
	viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		c, err := config.Load(viper.GetViper())
		if err != nil {
			log.Warn("Ignoring invalid configuration change", "path", e.Name, "err", err)
			return
		}
		if level, err := log.ParseLevel(c.LogLevel); err == nil && level != log.GetLevel() {
			log.SetLevel(level)
			log.Info("Log level changed", "level", c.LogLevel)
		}
	})
	viper.WatchConfig()
}
