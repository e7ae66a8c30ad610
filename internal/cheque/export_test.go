package cheque

import (
	"bytes"
	"encoding/csv"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xuri/excelize/v2"
)

var _ = Describe("Export", func() {
	var records []*ChequeRecord

	BeforeEach(func() {
		records = []*ChequeRecord{
			{
				PayeeName:     "John Smith",
				ChequeDate:    "2025-02-20",
				ChequeNumber:  "001234",
				AccountNumber: "9876543210",
				BankName:      "First National Bank",
				Amount:        "20000",
				Status:        StatusProcessed,
				UploadedAt:    time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC),
			},
			{
				Status: StatusFailed,
			},
		}
	})

	Describe("ExportCSV", func() {
		var (
			data []byte
			err  error
		)

		JustBeforeEach(func() {
			data, err = ExportCSV(records)
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("writes the humanized header row", func() {
			rows, readErr := csv.NewReader(bytes.NewReader(data)).ReadAll()
			Expect(readErr).NotTo(HaveOccurred())
			Expect(rows[0]).To(Equal([]string{
				"Cheque Date", "Account Number", "Bank Name", "Cheque Number",
				"Payee Name", "Amount", "Uploaded At", "Status",
			}))
		})

		It("writes one row per record in column order", func() {
			rows, readErr := csv.NewReader(bytes.NewReader(data)).ReadAll()
			Expect(readErr).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(3))
			Expect(rows[1]).To(Equal([]string{
				"2025-02-20", "9876543210", "First National Bank", "001234",
				"John Smith", "20000", "2025-03-01 10:30:00", "Processed",
			}))
		})

		It("keeps empty fields as empty cells", func() {
			rows, readErr := csv.NewReader(bytes.NewReader(data)).ReadAll()
			Expect(readErr).NotTo(HaveOccurred())
			Expect(rows[2][0]).To(Equal(""))
			Expect(rows[2][7]).To(Equal("Failed"))
		})

		When("there are no records", func() {
			BeforeEach(func() {
				records = nil
			})

			It("still writes the header row", func() {
				rows, readErr := csv.NewReader(bytes.NewReader(data)).ReadAll()
				Expect(readErr).NotTo(HaveOccurred())
				Expect(rows).To(HaveLen(1))
			})
		})
	})

	Describe("ExportXLSX", func() {
		It("produces a readable workbook with the records", func() {
			data, err := ExportXLSX(records)
			Expect(err).NotTo(HaveOccurred())

			f, openErr := excelize.OpenReader(bytes.NewReader(data))
			Expect(openErr).NotTo(HaveOccurred())
			defer f.Close()

			rows, rowsErr := f.GetRows("Cheque Records")
			Expect(rowsErr).NotTo(HaveOccurred())
			Expect(len(rows)).To(BeNumerically(">=", 3))
			Expect(rows[0][4]).To(Equal("Payee Name"))
			Expect(rows[1][4]).To(Equal("John Smith"))
		})
	})

	Describe("ExportPDF", func() {
		It("produces a PDF document", func() {
			data, err := ExportPDF(records)
			Expect(err).NotTo(HaveOccurred())
			Expect(len(data)).To(BeNumerically(">", 0))
			Expect(string(data[:5])).To(Equal("%PDF-"))
		})
	})
})
