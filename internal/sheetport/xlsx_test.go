package sheetport_test

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/xuri/excelize/v2"

	"lectern/internal/logging"
	"lectern/internal/sheetport"
	"lectern/internal/testsupport"
)

func writeWorkbook(t *testing.T, path, sheet string, names []string) {
	t.Helper()
	file := excelize.NewFile()
	defer file.Close()
	if _, err := file.NewSheet(sheet); err != nil {
		t.Fatalf("new sheet: %v", err)
	}
	for i, name := range names {
		cell := "B" + strconv.Itoa(i+2)
		if err := file.SetCellValue(sheet, cell, name); err != nil {
			t.Fatalf("set cell: %v", err)
		}
	}
	if err := file.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
}

func TestUpdateRowsWritesEmbedAndDuration(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Sheet.WorkbookPath = filepath.Join(t.TempDir(), "tracking.xlsx")
	cfg.Sheet.SheetName = "Videos"
	cfg.Sheet.NameColumn = "B"
	cfg.Sheet.EmbedColumn = "D"
	cfg.Sheet.DurationColumn = "E"
	writeWorkbook(t, cfg.Sheet.WorkbookPath, "Videos", []string{
		"S1 AR T1 P0046 Ahmed",
		"S2 EN T1 P0100 Sara",
	})

	port := sheetport.NewXLSXPort(cfg, logging.NewNop())
	resp, err := port.UpdateRows(context.Background(), []sheetport.Row{
		{MatchKey: "s1 ar t1 p0046 ahmed", EmbedCode: "<iframe lib-1/vid-1>", DurationMinutes: 12.5, HasDuration: true},
		{MatchKey: "unknown lesson", EmbedCode: "<iframe x>"},
	})
	if err != nil {
		t.Fatalf("update rows: %v", err)
	}

	if resp.Aggregate.Updated != 1 || resp.Aggregate.NotFound != 1 {
		t.Fatalf("aggregate = %+v", resp.Aggregate)
	}
	if resp.Rows[0].Outcome != sheetport.OutcomeUpdated || resp.Rows[1].Outcome != sheetport.OutcomeNotFound {
		t.Fatalf("row outcomes: %+v", resp.Rows)
	}
	if resp.Success {
		t.Fatal("success flag set despite a missed row")
	}

	file, err := excelize.OpenFile(cfg.Sheet.WorkbookPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer file.Close()
	embed, _ := file.GetCellValue("Videos", "D2")
	if embed != "<iframe lib-1/vid-1>" {
		t.Fatalf("embed cell = %q", embed)
	}
	duration, _ := file.GetCellValue("Videos", "E2")
	if duration == "" {
		t.Fatal("duration cell empty")
	}
}

func TestUpdateRowsSkipsDurationForQuestionVideos(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Sheet.WorkbookPath = filepath.Join(t.TempDir(), "tracking.xlsx")
	cfg.Sheet.SheetName = "Videos"
	cfg.Sheet.NameColumn = "B"
	cfg.Sheet.EmbedColumn = "D"
	cfg.Sheet.DurationColumn = "E"
	writeWorkbook(t, cfg.Sheet.WorkbookPath, "Videos", []string{"S1 AR T1 P0046 Ahmed Q1"})

	port := sheetport.NewXLSXPort(cfg, logging.NewNop())
	resp, err := port.UpdateRows(context.Background(), []sheetport.Row{
		{MatchKey: "S1 AR T1 P0046 Ahmed Q1", EmbedCode: "<iframe q>"},
	})
	if err != nil {
		t.Fatalf("update rows: %v", err)
	}
	if resp.Aggregate.Updated != 1 {
		t.Fatalf("aggregate = %+v", resp.Aggregate)
	}

	file, err := excelize.OpenFile(cfg.Sheet.WorkbookPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer file.Close()
	duration, _ := file.GetCellValue("Videos", "E2")
	if duration != "" {
		t.Fatalf("duration written for question video: %q", duration)
	}
}
