package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"lectern/internal/classify"
	"lectern/internal/parse"
)

func newParseCommand(ctx *commandContext) *cobra.Command {
	var yearFlag string

	cmd := &cobra.Command{
		Use:   "parse <filename...>",
		Short: "Show how filenames are parsed and classified",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year := yearFlag
			if year == "" {
				if cfg := ctx.configValue(); cfg != nil {
					year = cfg.Upload.DefaultYear
				}
			}

			rows := make([][]string, 0, len(args))
			for _, filename := range args {
				parsed := parse.Parse(filename)
				decision := classify.Classify(parsed, year)
				question := ""
				if number, ok := parse.QuestionNumber(filename); ok {
					question = "Q" + strconv.Itoa(number)
				}
				rows = append(rows, []string{
					filename,
					parsed.AcademicYear,
					parsed.Term,
					parsed.Branch,
					parsed.TeacherCode,
					parsed.TeacherName,
					string(parsed.ContentType),
					question,
					decision.Name,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"File", "Year", "Term", "Branch", "Code", "Teacher", "Content", "Q", "Collection"},
				rows,
				nil,
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&yearFlag, "year", "", "Academic year used for collection names")
	return cmd
}
