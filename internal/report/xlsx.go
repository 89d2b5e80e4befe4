package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"cdrecon/internal/cdr"
	"cdrecon/internal/recon"
)

// writeWorkbook produces a single XLSX workbook mirroring the CSV outputs:
// one sheet per artifact plus the summary.
func (w *Writer) writeWorkbook(path string, result *recon.Result, summary Summary) error {
	book := excelize.NewFile()
	defer book.Close()

	headerStyle, err := book.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return fmt.Errorf("workbook header style: %w", err)
	}

	matchedRows := make([][]string, 0, len(result.Matched)+1)
	matchedRows = append(matchedRows, matchedHeader(w.carrierA, w.carrierB))
	for _, match := range result.Matched {
		matchedRows = append(matchedRows, matchedRow(match))
	}
	if err := writeSheet(book, "Matched", matchedRows, headerStyle); err != nil {
		return err
	}

	if err := writeSheet(book, sheetLabel(w.carrierA), sideRows(result.UnmatchedA), headerStyle); err != nil {
		return err
	}
	if err := writeSheet(book, sheetLabel(w.carrierB), sideRows(result.UnmatchedB), headerStyle); err != nil {
		return err
	}
	if err := writeSheet(book, "Summary", summaryRows(summary), headerStyle); err != nil {
		return err
	}

	// excelize seeds new files with "Sheet1"; drop it once real sheets exist.
	_ = book.DeleteSheet("Sheet1")
	if index, err := book.GetSheetIndex("Matched"); err == nil {
		book.SetActiveSheet(index)
	}

	if err := book.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func sideRows(records []cdr.Record) [][]string {
	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, sideHeader())
	for _, record := range records {
		rows = append(rows, sideRow(record))
	}
	return rows
}

func sheetLabel(carrier string) string {
	return carrier + " Only"
}

func writeSheet(book *excelize.File, name string, rows [][]string, headerStyle int) error {
	if _, err := book.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}
	for rowIdx, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, rowIdx+1)
		if err != nil {
			return fmt.Errorf("sheet %s row %d: %w", name, rowIdx+1, err)
		}
		values := make([]any, len(row))
		for i, value := range row {
			values[i] = value
		}
		if err := book.SetSheetRow(name, cell, &values); err != nil {
			return fmt.Errorf("sheet %s row %d: %w", name, rowIdx+1, err)
		}
	}
	if len(rows) > 0 {
		last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
		if err == nil {
			_ = book.SetCellStyle(name, "A1", last, headerStyle)
		}
	}
	return nil
}
