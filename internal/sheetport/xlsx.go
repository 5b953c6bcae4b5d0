package sheetport

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"lectern/internal/config"
	"lectern/internal/logging"
	"lectern/internal/services"
)

// XLSXPort applies updates to a local workbook. Rows are matched against
// the configured name column by case-insensitive cell value.
type XLSXPort struct {
	workbookPath   string
	sheetName      string
	nameColumn     string
	embedColumn    string
	durationColumn string
	logger         *slog.Logger
}

// NewXLSXPort builds the workbook adapter from configuration.
func NewXLSXPort(cfg *config.Config, logger *slog.Logger) *XLSXPort {
	return &XLSXPort{
		workbookPath:   cfg.Sheet.WorkbookPath,
		sheetName:      cfg.Sheet.SheetName,
		nameColumn:     cfg.Sheet.NameColumn,
		embedColumn:    cfg.Sheet.EmbedColumn,
		durationColumn: cfg.Sheet.DurationColumn,
		logger:         logging.NewComponentLogger(logger, "sheetport"),
	}
}

// UpdateRows opens the workbook, applies every row, and saves once. The
// whole call fails only when the workbook itself cannot be read or
// written; per-row misses are reported in the response.
func (p *XLSXPort) UpdateRows(ctx context.Context, rows []Row) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	file, err := excelize.OpenFile(p.workbookPath)
	if err != nil {
		return Response{}, services.Wrap(services.ErrExternalTool, "sheetport", "update", "open workbook", err)
	}
	defer file.Close()

	index, err := p.buildNameIndex(file)
	if err != nil {
		return Response{}, err
	}

	resp := Response{HasAggregate: true}
	dirty := false
	for _, row := range rows {
		result := RowResult{MatchKey: row.MatchKey}
		rowNum, ok := index[normalizeKey(row.MatchKey)]
		if !ok {
			result.Outcome = OutcomeNotFound
			result.Detail = "no matching row in name column"
			resp.Aggregate.NotFound++
			resp.Rows = append(resp.Rows, result)
			continue
		}

		embedCell := fmt.Sprintf("%s%d", p.embedColumn, rowNum)
		if err := file.SetCellValue(p.sheetName, embedCell, row.EmbedCode); err != nil {
			result.Outcome = OutcomeError
			result.Detail = err.Error()
			resp.Aggregate.Errors++
			resp.Rows = append(resp.Rows, result)
			continue
		}
		if row.HasDuration && p.durationColumn != "" {
			durationCell := fmt.Sprintf("%s%d", p.durationColumn, rowNum)
			if err := file.SetCellValue(p.sheetName, durationCell, row.DurationMinutes); err != nil {
				result.Outcome = OutcomeError
				result.Detail = err.Error()
				resp.Aggregate.Errors++
				resp.Rows = append(resp.Rows, result)
				continue
			}
		}

		dirty = true
		result.Outcome = OutcomeUpdated
		resp.Aggregate.Updated++
		resp.Rows = append(resp.Rows, result)
	}

	if dirty {
		if err := file.Save(); err != nil {
			return Response{}, services.Wrap(services.ErrExternalTool, "sheetport", "update", "save workbook", err)
		}
	}

	resp.Success = resp.Aggregate.Errors == 0 && resp.Aggregate.NotFound == 0
	p.logger.Debug("workbook updated",
		slog.Int("updated", resp.Aggregate.Updated),
		slog.Int("not_found", resp.Aggregate.NotFound))
	return resp, nil
}

// buildNameIndex maps normalized name-column values to row numbers. The
// first occurrence wins so duplicate rows stay untouched.
func (p *XLSXPort) buildNameIndex(file *excelize.File) (map[string]int, error) {
	colNum, err := excelize.ColumnNameToNumber(p.nameColumn)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "sheetport", "update", "resolve name column", err)
	}

	sheetRows, err := file.GetRows(p.sheetName)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "sheetport", "update", "read sheet rows", err)
	}

	index := make(map[string]int, len(sheetRows))
	for i, cells := range sheetRows {
		if colNum-1 >= len(cells) {
			continue
		}
		key := normalizeKey(cells[colNum-1])
		if key == "" {
			continue
		}
		if _, seen := index[key]; !seen {
			index[key] = i + 1
		}
	}
	return index, nil
}

func normalizeKey(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
