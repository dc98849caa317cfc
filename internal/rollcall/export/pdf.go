package export

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"github.com/BrandonDHaskell/rollcall/internal/rollcall/types"
)

// maxPDFVisitors caps the visitor list so the summary stays short.
const maxPDFVisitors = 40

// WritePDF writes a printable summary: run stats, the daily headcount and
// the first visitors.
func WritePDF(w io.Writer, rep types.Report, title string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, tr(title), "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 10)
	st := rep.Stats
	lines := []string{
		fmt.Sprintf("Roster entries: %d (blank %d, duplicate %d)", st.RosterRead, st.RosterBlank, st.RosterDuplicates),
		fmt.Sprintf("Punch records: %d (blank identity %d, bad timestamp %d, filtered %d)",
			st.EventsRead, st.BlankIdentity, st.BadTimestamp, st.FilteredByKind),
		fmt.Sprintf("Roster members present: %d | Visitors: %d | Days: %d", st.KnownActive, st.Unknown, st.Days),
	}
	for _, l := range lines {
		pdf.CellFormat(0, 6, l, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	daily, _ := Records(rep, TableDaily)
	pdfTable(pdf, tr, "Daily headcount", daily, 30)

	visitors, _ := Records(rep, TableUnknown)
	if len(visitors) > maxPDFVisitors+1 {
		visitors = visitors[:maxPDFVisitors+1]
	}
	pdfTable(pdf, tr, "Visitors", visitors, 23)

	return pdf.Output(w)
}

func pdfTable(pdf *gofpdf.Fpdf, tr func(string) string, heading string, records [][]string, colWidth float64) {
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, heading, "", 1, "L", false, 0, "")
	if len(records) <= 1 {
		pdf.SetFont("Arial", "I", 9)
		pdf.CellFormat(0, 6, "none", "", 1, "L", false, 0, "")
		pdf.Ln(3)
		return
	}

	pdf.SetFillColor(230, 230, 230)
	pdf.SetFont("Arial", "B", 8)
	for _, h := range records[0] {
		pdf.CellFormat(colWidth, 7, tr(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, rec := range records[1:] {
		for _, v := range rec {
			pdf.CellFormat(colWidth, 6, tr(v), "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(3)
}
