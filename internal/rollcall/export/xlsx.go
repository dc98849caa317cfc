package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/BrandonDHaskell/rollcall/internal/rollcall/types"
)

// Sheet names, in workbook order.
var sheetTables = []struct {
	sheet string
	table string
}{
	{"Roster", TableRoster},
	{"Visitors", TableUnknown},
	{"Daily", TableDaily},
}

// WriteWorkbook writes the three report tables as one xlsx workbook, one
// sheet each.
func WriteWorkbook(w io.Writer, rep types.Report) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	for i, st := range sheetTables {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), st.sheet); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(st.sheet); err != nil {
			return fmt.Errorf("new sheet %s: %w", st.sheet, err)
		}

		records, err := Records(rep, st.table)
		if err != nil {
			return err
		}
		if err := writeSheet(f, st.sheet, records, headerStyle); err != nil {
			return fmt.Errorf("sheet %s: %w", st.sheet, err)
		}
	}
	f.SetActiveSheet(0)

	_, err = f.WriteTo(w)
	return err
}

func writeSheet(f *excelize.File, sheet string, records [][]string, headerStyle int) error {
	for r, rec := range records {
		cells := make([]any, len(rec))
		for i, v := range rec {
			cells[i] = v
		}
		axis, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, axis, &cells); err != nil {
			return err
		}
	}
	if len(records) == 0 || len(records[0]) == 0 {
		return nil
	}

	last, err := excelize.ColumnNumberToName(len(records[0]))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last+"1", headerStyle); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", last, 16)
}
