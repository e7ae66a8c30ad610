package cheque

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

// exportHeaders are the humanized column titles, in the store's column order
var exportHeaders = []string{
	"Cheque Date",
	"Account Number",
	"Bank Name",
	"Cheque Number",
	"Payee Name",
	"Amount",
	"Uploaded At",
	"Status",
}

// exportRow flattens one record into the export column order
func exportRow(r *ChequeRecord) []string {
	uploadedAt := ""
	if !r.UploadedAt.IsZero() {
		uploadedAt = r.UploadedAt.Format("2006-01-02 15:04:05")
	}
	return []string{
		r.ChequeDate,
		r.AccountNumber,
		r.BankName,
		r.ChequeNumber,
		r.PayeeName,
		r.Amount,
		uploadedAt,
		r.Status,
	}
}

// ExportCSV serializes records to a CSV document with a header row
func ExportCSV(records []*ChequeRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(exportHeaders); err != nil {
		return nil, fmt.Errorf("writing csv header: %w", err)
	}
	for _, r := range records {
		if err := w.Write(exportRow(r)); err != nil {
			return nil, fmt.Errorf("writing csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flushing csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportXLSX serializes records to an Excel workbook
func ExportXLSX(records []*ChequeRecord) ([]byte, error) {
	f := excelize.NewFile()
	const sheet = "Cheque Records"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for rowIdx, r := range records {
		for colIdx, v := range exportRow(r) {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportPDF serializes records to a landscape A4 table
func ExportPDF(records []*ChequeRecord) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 10, "Cheque Records")
	pdf.Ln(12)

	colWidths := []float64{28, 38, 46, 30, 46, 26, 38, 24}
	rowHeight := 8.0

	writeHeader := func() {
		pdf.SetFont("Arial", "B", 10)
		for i, h := range exportHeaders {
			pdf.CellFormat(colWidths[i], rowHeight, h, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 10)
	}
	writeHeader()

	for _, r := range records {
		// Column headers repeat on every page
		if pdf.GetY()+rowHeight > 190 {
			pdf.AddPage()
			writeHeader()
		}
		for i, v := range exportRow(r) {
			pdf.CellFormat(colWidths[i], rowHeight, v, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing pdf: %w", err)
	}
	return buf.Bytes(), nil
}
