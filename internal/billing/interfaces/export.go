package interfaces

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	billingapp "shop-billing/internal/billing/application"
	billing "shop-billing/internal/billing/domain"
)

// PeriodLabel formats a period start for display: "2006-01-02" for days, "2006-01" for months.
func PeriodLabel(granularity billing.Granularity, periodStart time.Time) string {
	if granularity == billing.GranularityMonth {
		return periodStart.Format("2006-01")
	}
	return periodStart.Format("2006-01-02")
}

// BuildBillReportPDF renders a subtree bill report as a single-table PDF.
func BuildBillReportPDF(report *billingapp.BillReport) ([]byte, error) {
	if report == nil {
		return nil, errors.New("bill report pdf: nil report")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Shop Bill Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Scope: %s", report.Scope))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Period: %s (%s)", PeriodLabel(report.Granularity, report.PeriodStart), report.Granularity))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Shops: %d", len(report.Lines)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Total Amount: %s", report.Total.Amount))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Total Transactions: %d", report.Total.Count))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(40, 6, "Shop", "1", 0, "C", false, 0, "")
	pdf.CellFormat(60, 6, "Name", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Amount", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Transactions", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, line := range report.Lines {
		pdf.CellFormat(40, 6, line.Shop.ID, "1", 0, "L", false, 0, "")
		pdf.CellFormat(60, 6, line.Shop.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, line.Bill.Amount.String(), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%d", line.Bill.Count), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildBillReportXLSX renders a subtree bill report with summary and items sheets.
func BuildBillReportXLSX(report *billingapp.BillReport) ([]byte, error) {
	if report == nil {
		return nil, errors.New("bill report xlsx: nil report")
	}
	f := excelize.NewFile()
	defer f.Close()

	summarySheet := "summary"
	itemsSheet := "items"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(itemsSheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summarySheet, "A1", "Shop Bill Report")
	_ = f.SetCellValue(summarySheet, "A3", "Scope")
	_ = f.SetCellValue(summarySheet, "B3", report.Scope)
	_ = f.SetCellValue(summarySheet, "A4", "Period")
	_ = f.SetCellValue(summarySheet, "B4", PeriodLabel(report.Granularity, report.PeriodStart))
	_ = f.SetCellValue(summarySheet, "A5", "Granularity")
	_ = f.SetCellValue(summarySheet, "B5", string(report.Granularity))
	_ = f.SetCellValue(summarySheet, "A6", "Shops")
	_ = f.SetCellValue(summarySheet, "B6", len(report.Lines))
	_ = f.SetCellValue(summarySheet, "A7", "Total Amount")
	_ = f.SetCellValue(summarySheet, "B7", report.Total.Amount.String())
	_ = f.SetCellValue(summarySheet, "A8", "Total Transactions")
	_ = f.SetCellValue(summarySheet, "B8", report.Total.Count)

	_ = f.SetCellValue(itemsSheet, "A1", "Shop")
	_ = f.SetCellValue(itemsSheet, "B1", "Name")
	_ = f.SetCellValue(itemsSheet, "C1", "Parent")
	_ = f.SetCellValue(itemsSheet, "D1", "Amount")
	_ = f.SetCellValue(itemsSheet, "E1", "Transactions")
	for i, line := range report.Lines {
		row := i + 2
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("A%d", row), line.Shop.ID)
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("B%d", row), line.Shop.Name)
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("C%d", row), line.Shop.ParentID)
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("D%d", row), line.Bill.Amount.String())
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("E%d", row), line.Bill.Count)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
