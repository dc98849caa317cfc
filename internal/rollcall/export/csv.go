package export

import (
	"encoding/csv"
	"io"

	"github.com/BrandonDHaskell/rollcall/internal/rollcall/types"
)

// WriteCSV writes one report table as comma-separated text.
func WriteCSV(w io.Writer, rep types.Report, table string) error {
	records, err := Records(rep, table)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.WriteAll(records); err != nil {
		return err
	}
	return cw.Error()
}
