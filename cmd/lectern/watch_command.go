package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"lectern/internal/ingest"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the ingest directory and upload files as they arrive",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Paths.IngestDir == "" {
				return errors.New("ingest_dir is not configured; set paths.ingest_dir in config.toml")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := ctx.buildLogger()
			if err != nil {
				return err
			}
			release, err := acquireInstanceLock(cfg)
			if err != nil {
				return err
			}
			defer release()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			pipe, err := buildPipeline(runCtx, cfg, logger)
			if err != nil {
				return err
			}
			defer pipe.close()

			out := cmd.OutOrStdout()

			// Each settled batch is reported and then cleared so the next
			// arrivals start a fresh batch with a clean watermark.
			pipe.manager.OnBatchComplete(func() {
				stats := pipe.tracker.Stats()
				fmt.Fprintf(out, "batch settled: %d uploaded, %d failed, %d sheet rows updated\n",
					stats.Succeeded, stats.Failed, stats.SheetUpdated)
				pipe.queue.Clear()
				pipe.tracker.Reset()
			})
			pipe.manager.Start(runCtx)
			defer pipe.manager.Stop()

			watcher := ingest.NewWatcher(cfg, func(path string) {
				if _, _, err := pipe.manager.AddFiles(runCtx, []string{path}); err != nil {
					logger.Error("failed to queue ingested file", "error", err)
				}
			}, logger)
			if err := watcher.Start(runCtx); err != nil {
				return err
			}

			fmt.Fprintf(out, "Watching %s; press Ctrl-C to stop\n", cfg.Paths.IngestDir)
			<-runCtx.Done()
			watcher.Wait()
			return nil
		},
	}
}
