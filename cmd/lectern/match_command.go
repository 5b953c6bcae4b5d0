package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"lectern/internal/catalog"
	"lectern/internal/learned"
	"lectern/internal/match"
	"lectern/internal/parse"
)

func newMatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "match <filename>",
		Short: "Preview which library a filename would match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.buildLogger()
			if err != nil {
				return err
			}

			store, err := learned.Open(cfg)
			if err != nil {
				return fmt.Errorf("open learned store: %w", err)
			}
			defer store.Close()

			client := catalog.NewHTTPClient(cfg, logger)
			libraries, err := client.ListLibraries(cmd.Context())
			if err != nil {
				return err
			}
			candidates := make([]match.Candidate, 0, len(libraries))
			for _, lib := range libraries {
				candidates = append(candidates, match.Candidate{ID: lib.ID, Name: lib.Name})
			}

			filename := args[0]
			matcher := match.New(store, cfg.Matcher, logger)
			result := matcher.Match(cmd.Context(), parse.Parse(filename), filename, candidates)

			out := cmd.OutOrStdout()
			if result.Library != nil {
				fmt.Fprintf(out, "Match: %s (confidence %d, via %s)\n", result.Library.Name, result.Confidence, result.Source)
			} else {
				fmt.Fprintln(out, "No automatic match; manual selection required")
			}
			if len(result.Alternatives) > 0 {
				rows := make([][]string, 0, len(result.Alternatives))
				for i, alt := range result.Alternatives {
					rows = append(rows, []string{strconv.Itoa(i + 1), alt.Name, strconv.Itoa(alt.Score)})
				}
				fmt.Fprintln(out, renderTable([]string{"#", "Library", "Score"}, rows, []columnAlignment{alignRight, alignLeft, alignRight}))
			}
			return nil
		},
	}
}
