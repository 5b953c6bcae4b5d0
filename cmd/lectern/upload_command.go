package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"lectern/internal/config"
	"lectern/internal/learned"
	"lectern/internal/match"
	"lectern/internal/results"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var yearFlag string
	var maxConcurrentFlag int
	var skipUnresolved bool

	cmd := &cobra.Command{
		Use:   "upload <file...>",
		Short: "Upload video files to their matched libraries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if yearFlag != "" {
				cfg.Upload.DefaultYear = yearFlag
			}
			if maxConcurrentFlag > 0 {
				cfg.Upload.MaxConcurrent = maxConcurrentFlag
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

			// The flag wins over any persisted setting and becomes the new
			// persisted value for later sessions.
			if maxConcurrentFlag > 0 {
				cfg.Upload.MaxConcurrent = maxConcurrentFlag
				if err := pipe.store.SaveSetting(runCtx, learned.SettingMaxConcurrent, strconv.Itoa(maxConcurrentFlag)); err != nil {
					logger.Warn("failed to persist max_concurrent", "error", err)
				}
			}

			// Buffered so a later settle, after a retry round, does not
			// block the settlement callback.
			done := make(chan struct{}, 1)
			pipe.manager.OnBatchComplete(func() {
				select {
				case done <- struct{}{}:
				default:
				}
			})
			pipe.manager.Start(runCtx)
			defer pipe.manager.Stop()

			paths := make([]string, 0, len(args))
			for _, arg := range args {
				expanded, err := config.ExpandPath(arg)
				if err != nil {
					return fmt.Errorf("resolve path %q: %w", arg, err)
				}
				paths = append(paths, expanded)
			}

			out := cmd.OutOrStdout()
			enqueued, unresolved, err := pipe.manager.AddFiles(runCtx, paths)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Queued %d files (%d need manual selection)\n", enqueued, unresolved)

			if unresolved > 0 {
				resolved, err := resolveInteractively(cmd, pipe, skipUnresolved)
				if err != nil {
					return err
				}
				enqueued += resolved
			}

			if enqueued == 0 {
				fmt.Fprintln(out, "Nothing to upload")
				return nil
			}

			for waitForBatch(cmd, pipe, done, runCtx.Done()) {
				failed := pipe.queue.Counts().Error
				if failed == 0 || !promptRetry(cmd, failed) {
					break
				}
				pipe.manager.RetryErrored()
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, renderResults(pipe.tracker))
			return nil
		},
	}

	cmd.Flags().StringVar(&yearFlag, "year", "", "Override the academic year used for collection names")
	cmd.Flags().IntVar(&maxConcurrentFlag, "max-concurrent", 0, "Override the maximum simultaneous uploads")
	cmd.Flags().BoolVar(&skipUnresolved, "skip-unresolved", false, "Drop files that need manual selection instead of prompting")
	return cmd
}

// resolveInteractively walks every parked item, showing the matcher's
// ranked suggestions and applying the user's pick. Skipped items are
// removed so the batch can settle.
func resolveInteractively(cmd *cobra.Command, pipe *pipeline, skipAll bool) (int, error) {
	out := cmd.OutOrStdout()
	reader := bufio.NewReader(cmd.InOrStdin())
	resolved := 0

	for _, item := range pipe.queue.UnresolvedItems() {
		if skipAll {
			_, _ = pipe.manager.CancelItem(item.ID)
			fmt.Fprintf(out, "Skipped %s\n", item.Filename)
			continue
		}

		choices := item.Meta.SuggestedLibraries
		if len(choices) == 0 {
			libraries, err := pipe.catalog.ListLibraries(cmd.Context())
			if err != nil {
				return resolved, err
			}
			for _, lib := range libraries {
				choices = append(choices, suggestionFrom(lib.ID, lib.Name))
			}
		}
		if len(choices) == 0 {
			fmt.Fprintf(out, "No libraries available for %s; skipping\n", item.Filename)
			_, _ = pipe.manager.CancelItem(item.ID)
			continue
		}

		fmt.Fprintf(out, "\n%s -> %s\n", item.Filename, item.Meta.CollectionName)
		rows := make([][]string, 0, len(choices))
		for i, choice := range choices {
			score := ""
			if choice.Score > 0 {
				score = strconv.Itoa(choice.Score)
			}
			rows = append(rows, []string{strconv.Itoa(i + 1), choice.Name, score})
		}
		fmt.Fprintln(out, renderTable([]string{"#", "Library", "Score"}, rows, []columnAlignment{alignRight, alignLeft, alignRight}))
		fmt.Fprintf(out, "Select library [1-%d, s to skip]: ", len(choices))

		line, err := reader.ReadString('\n')
		if err != nil {
			return resolved, fmt.Errorf("read selection: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.EqualFold(line, "s") {
			_, _ = pipe.manager.CancelItem(item.ID)
			fmt.Fprintf(out, "Skipped %s\n", item.Filename)
			continue
		}
		pick, err := strconv.Atoi(line)
		if err != nil || pick < 1 || pick > len(choices) {
			fmt.Fprintf(out, "Invalid selection %q; skipping %s\n", line, item.Filename)
			_, _ = pipe.manager.CancelItem(item.ID)
			continue
		}

		choice := choices[pick-1]
		if err := pipe.manager.ResolveManually(cmd.Context(), item.ID, choice.ID, choice.Name); err != nil {
			return resolved, err
		}
		resolved++
	}
	return resolved, nil
}

// promptRetry asks whether the failed uploads should run again. A read
// error, including EOF on a non-interactive stdin, declines.
func promptRetry(cmd *cobra.Command, failed int) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "Retry %d failed uploads? [y/N]: ", failed)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(line), "y")
}

// waitForBatch blocks until batch settlement or interrupt, printing a
// coarse progress line on a ticker when attached to a terminal. Reports
// whether the batch settled; false means the run was interrupted.
func waitForBatch(cmd *cobra.Command, pipe *pipeline, done <-chan struct{}, interrupted <-chan struct{}) bool {
	out := cmd.OutOrStdout()
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return true
		case <-interrupted:
			fmt.Fprintln(out, "Interrupted; aborting in-flight uploads")
			return false
		case <-ticker.C:
			if !stdoutIsTerminal() {
				continue
			}
			counts := pipe.queue.Counts()
			line := fmt.Sprintf("uploading: %d active, %d pending, %d completed, %d failed",
				counts.Processing, counts.Pending, counts.Completed, counts.Error)
			if counts.Unresolved > 0 {
				line += fmt.Sprintf(", %d awaiting manual selection", counts.Unresolved)
			}
			fmt.Fprintln(out, line)
		}
	}
}

func renderResults(tracker *results.Tracker) string {
	records := tracker.Records()
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		detail := rec.ErrorDetails
		if detail == "" && rec.VideoID != "" {
			detail = rec.VideoID
		}
		rows = append(rows, []string{
			rec.Filename,
			string(rec.UploadStatus),
			string(rec.SheetStatus),
			formatBytes(rec.SizeBytes),
			detail,
		})
	}
	stats := tracker.Stats()
	summary := fmt.Sprintf("%d uploaded, %d failed, %d sheet rows updated",
		stats.Succeeded, stats.Failed, stats.SheetUpdated)
	return renderTable(
		[]string{"File", "Upload", "Sheet", "Size", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	) + "\n" + summary
}

func formatBytes(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}

func suggestionFrom(id, name string) match.ScoredCandidate {
	return match.ScoredCandidate{Candidate: match.Candidate{ID: id, Name: name}}
}
