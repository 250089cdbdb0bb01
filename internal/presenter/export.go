package presenter

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"github.com/kjstillabower/bike-usage-dashboard/internal/models"
)

// Export formats.
const (
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
	FormatCSV  = "csv"
)

// ErrUnsupportedFormat is returned for an unknown export format.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// ContentType returns the MIME type of an export format.
func ContentType(format string) string {
	switch format {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	}
	return "application/octet-stream"
}

// FileName is the download name for a report export.
func FileName(format string, r models.Report) string {
	stamp := r.LoadedAt.UTC().Format("20060102")
	if r.LoadedAt.IsZero() {
		stamp = "report"
	}
	return fmt.Sprintf("bike-usage-%s.%s", stamp, format)
}

// Export writes the report in the given format.
func Export(w io.Writer, format string, r models.Report) error {
	switch format {
	case FormatXLSX:
		return WriteXLSX(w, r)
	case FormatPDF:
		return WritePDF(w, r)
	case FormatCSV:
		return WriteCSV(w, r)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

func formatNullable(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// WriteCSV writes the merged daily view with a UTF-8 BOM so spreadsheet tools pick the
// right encoding for the Korean header.
func WriteCSV(w io.Writer, r models.Report) error {
	if _, err := io.WriteString(w, "\uFEFF"); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{models.ColumnDate, models.ColumnRides, models.ColumnAvgTemp, models.ColumnPrecip}); err != nil {
		return err
	}
	for _, m := range r.Merged {
		rec := []string{m.Date.Format("2006-01-02"), strconv.Itoa(m.Rides), formatNullable(m.AvgTempC), formatNullable(m.PrecipMM)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes a workbook with hourly, daily and summary sheets.
func WriteXLSX(w io.Writer, r models.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	summarySheet := "summary"
	hourlySheet := "hourly"
	dailySheet := "daily"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(hourlySheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(dailySheet); err != nil {
		return err
	}

	_ = f.SetCellValue(summarySheet, "A1", "Bike usage report")
	_ = f.SetCellValue(summarySheet, "A3", "Total rides")
	_ = f.SetCellValue(summarySheet, "B3", r.TotalRides)
	_ = f.SetCellValue(summarySheet, "A4", CarbonLabel)
	_ = f.SetCellValue(summarySheet, "B4", roundGrams(r.CarbonKg))
	_ = f.SetCellValue(summarySheet, "A5", "Parts loaded")
	_ = f.SetCellValue(summarySheet, "B5", r.PartsLoaded)
	_ = f.SetCellValue(summarySheet, "A6", "Parts failed")
	_ = f.SetCellValue(summarySheet, "B6", r.PartsFailed)
	_ = f.SetCellValue(summarySheet, "A7", "Weather rows")
	_ = f.SetCellValue(summarySheet, "B7", r.WeatherRows)
	_ = f.SetCellValue(summarySheet, "A8", "Loaded at")
	_ = f.SetCellValue(summarySheet, "B8", r.LoadedAt.UTC().Format(time.RFC3339))

	_ = f.SetCellValue(hourlySheet, "A1", "시간대")
	_ = f.SetCellValue(hourlySheet, "B1", models.ColumnRides)
	for i, hc := range r.Hourly {
		row := i + 2
		_ = f.SetCellValue(hourlySheet, fmt.Sprintf("A%d", row), hc.Hour)
		_ = f.SetCellValue(hourlySheet, fmt.Sprintf("B%d", row), hc.Rides)
	}

	_ = f.SetCellValue(dailySheet, "A1", models.ColumnDate)
	_ = f.SetCellValue(dailySheet, "B1", models.ColumnRides)
	_ = f.SetCellValue(dailySheet, "C1", models.ColumnAvgTemp)
	_ = f.SetCellValue(dailySheet, "D1", models.ColumnPrecip)
	for i, m := range r.Merged {
		row := i + 2
		_ = f.SetCellValue(dailySheet, fmt.Sprintf("A%d", row), m.Date.Format("2006-01-02"))
		_ = f.SetCellValue(dailySheet, fmt.Sprintf("B%d", row), m.Rides)
		if m.AvgTempC != nil {
			_ = f.SetCellValue(dailySheet, fmt.Sprintf("C%d", row), *m.AvgTempC)
		}
		if m.PrecipMM != nil {
			_ = f.SetCellValue(dailySheet, fmt.Sprintf("D%d", row), *m.PrecipMM)
		}
	}

	return f.Write(w)
}

// roundGrams rounds kilograms to whole grams.
func roundGrams(kg float64) float64 {
	return math.Round(kg*1000) / 1000
}

// WritePDF writes a one-page summary followed by the daily table. The core PDF fonts
// have no Hangul glyphs, so labels here are ASCII.
func WritePDF(w io.Writer, r models.Report) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Seoul Public Bike Usage Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	if !r.LoadedAt.IsZero() {
		pdf.Cell(0, 6, fmt.Sprintf("Loaded: %s", r.LoadedAt.UTC().Format(time.RFC3339)))
		pdf.Ln(5)
	}
	pdf.Cell(0, 6, fmt.Sprintf("Total rides: %d", r.TotalRides))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Estimated CO2 saved (kg): %s", FormatKilograms(r.CarbonKg)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Usage parts: %d loaded, %d failed", r.PartsLoaded, r.PartsFailed))
	pdf.Ln(5)
	if n := len(r.Notices); n > 0 {
		pdf.Cell(0, 6, fmt.Sprintf("Notices: %d (see dashboard)", n))
		pdf.Ln(5)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(20, 6, "Hour", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Rides", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, hc := range r.Hourly {
		pdf.CellFormat(20, 6, strconv.Itoa(hc.Hour), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, strconv.Itoa(hc.Rides), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(35, 6, "Date", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Rides", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Avg temp (C)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Precip (mm)", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, m := range r.Merged {
		pdf.CellFormat(35, 6, m.Date.Format("2006-01-02"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, strconv.Itoa(m.Rides), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, formatNullable(m.AvgTempC), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, formatNullable(m.PrecipMM), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}
