package presenter

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kjstillabower/bike-usage-dashboard/internal/models"
)

func sampleReport() models.Report {
	temp := 5.0
	return models.Report{
		Hourly: []models.HourCount{{Hour: 8, Rides: 2}},
		Merged: []models.MergedDay{
			{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Rides: 2, AvgTempC: &temp},
		},
		TotalRides:  2,
		CarbonKg:    0.6,
		PartsLoaded: 2,
		WeatherRows: 1,
		LoadedAt:    time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleReport()); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	want := "\uFEFF날짜,대여건수,평균기온(°C),강수량(mm)\n2024-01-01,2,5,\n"
	if buf.String() != want {
		t.Errorf("WriteCSV() = %q, want %q", buf.String(), want)
	}
}

func TestWriteXLSX_Sheets(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, sampleReport()); err != nil {
		t.Fatalf("WriteXLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	sheets := strings.Join(f.GetSheetList(), ",")
	if sheets != "summary,hourly,daily" {
		t.Errorf("sheets = %s, want summary,hourly,daily", sheets)
	}
	rows, err := f.GetRows("daily")
	if err != nil {
		t.Fatalf("GetRows(daily) error = %v", err)
	}
	if len(rows) != 2 || rows[1][0] != "2024-01-01" || rows[1][1] != "2" {
		t.Errorf("daily rows = %v", rows)
	}
	total, err := f.GetCellValue("summary", "B3")
	if err != nil || total != "2" {
		t.Errorf("summary B3 = %q, %v; want 2", total, err)
	}
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePDF(&buf, sampleReport()); err != nil {
		t.Fatalf("WritePDF() error = %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Errorf("output does not start with a PDF header: %q", buf.Bytes()[:min(8, buf.Len())])
	}
}

func TestExport_UnsupportedFormat(t *testing.T) {
	err := Export(&bytes.Buffer{}, "docx", sampleReport())
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Export(docx) error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestFileNameAndContentType(t *testing.T) {
	if got := FileName(FormatXLSX, sampleReport()); got != "bike-usage-20240601.xlsx" {
		t.Errorf("FileName() = %q", got)
	}
	if got := FileName(FormatCSV, models.Report{}); got != "bike-usage-report.csv" {
		t.Errorf("FileName(zero) = %q", got)
	}
	if got := ContentType(FormatPDF); got != "application/pdf" {
		t.Errorf("ContentType(pdf) = %q", got)
	}
}
