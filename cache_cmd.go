package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hollyai/holly-voice/internal/voice"
)

var (
	warmParallel int

	cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the audio cache",
		Args:  cobra.NoArgs,
	}

	cacheStatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			gen, handle, err := newGenerator(cfg, log.Default())
			if err != nil {
				return err
			}
			defer func() { _ = handle.Close() }()

			stats := gen.CacheStats()
			fmt.Printf("%s %s\n", keyword("Engine:"), cfg.Engine)
			fmt.Printf("%s %s\n", keyword("Directory:"), stats.Location)
			fmt.Printf("%s %s\n", keyword("Phrases:"), humanize.Comma(int64(stats.EntryCount)))
			fmt.Printf("%s %s %s\n", keyword("Size:"), humanize.IBytes(uint64(stats.TotalSizeBytes)), //nolint:gosec
				faint("("+strconv.FormatFloat(stats.TotalSizeMB(), 'f', 2, 64)+" MB)"))
			return nil
		},
	}

	cacheClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached phrase",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			gen, handle, err := newGenerator(cfg, log.Default())
			if err != nil {
				return err
			}
			defer func() { _ = handle.Close() }()

			before := gen.CacheStats()
			if err := gen.ClearCache(); err != nil {
				return fmt.Errorf("unable to clear cache: %w", err)
			}
			fmt.Printf("Cache cleared: removed %s phrases (%s)\n",
				humanize.Comma(int64(before.EntryCount)), humanize.IBytes(uint64(before.TotalSizeBytes))) //nolint:gosec
			return nil
		},
	}

	cacheWarmCmd = &cobra.Command{
		Use:   "warm",
		Short: "Synthesize and cache the common HOLLY phrases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			gen, handle, err := newGenerator(cfg, log.Default())
			if err != nil {
				return err
			}
			defer func() { _ = handle.Close() }()

			report, err := gen.Warm(cmd.Context(), voice.Phrases(), warmParallel)
			if err != nil {
				return err
			}
			fmt.Printf("%s generated, %s already cached, %s failed\n",
				keyword(strconv.Itoa(report.Generated)), strconv.Itoa(report.Cached), strconv.Itoa(report.Failed))
			if report.Failed > 0 {
				return fmt.Errorf("%d phrases could not be synthesized", report.Failed)
			}
			return nil
		},
	}
)

func init() {
	cacheWarmCmd.Flags().IntVar(&warmParallel, "parallel", 2, "concurrent synthesis requests")
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd, cacheWarmCmd)
}
