package report

import (
	"fmt"
	"io"

	"github.com/rongwang/budget-server/internal/models"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Report"

var headers = []string{"Date", "Type", "Category", "Amount", "Comment"}

// WriteXLSX renders the report as a workbook: a title row, a header row, one
// row per transaction ordered incomes first, and a closing balance row.
func WriteXLSX(w io.Writer, title string, data Data) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	if err := setRow(f, 1, title); err != nil {
		return err
	}

	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := setRow(f, 2, header...); err != nil {
		return err
	}

	row := 3
	for _, group := range [][]models.Transaction{data.Incomes, data.Expenses} {
		for _, tx := range group {
			category := ""
			if tx.CategoryName != nil {
				category = *tx.CategoryName
			}
			comment := ""
			if tx.Comment != nil {
				comment = *tx.Comment
			}

			err := setRow(f, row,
				tx.Date.Format("2006-01-02"),
				string(tx.Type),
				category,
				tx.Amount.InexactFloat64(),
				comment,
			)
			if err != nil {
				return err
			}
			row++
		}
	}

	if err := setRow(f, row, "Balance", "", "", data.Balance.InexactFloat64()); err != nil {
		return err
	}

	widths := map[string]float64{"A": 12, "B": 10, "C": 18, "D": 12, "E": 40}
	for col, width := range widths {
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, row int, values ...interface{}) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, v); err != nil {
			return fmt.Errorf("set cell %s: %w", cell, err)
		}
	}
	return nil
}
