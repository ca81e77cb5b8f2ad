package importer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"rfcharts/internal/forecast"
	"rfcharts/internal/sheets/memory"
)

func sampleForecast() forecast.Forecast {
	f := forecast.Forecast{PlanID: "tower-a"}
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		f.Months = append(f.Months, forecast.Month{
			Month:          start.AddDate(0, i, 0),
			BankBalance:    1000 + float64(i),
			Terms:          []float64{10, 20},
			Contributions:  50,
			Expenditures:   5.5,
			ClosingBalance: 1100,
		})
	}
	return f
}

func TestWriteXLSX_ReadXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, sampleForecast()); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}
	f, err := ReadXLSX(&buf, "tower-a", "")
	if err != nil {
		t.Fatalf("ReadXLSX: %v", err)
	}
	if len(f.Months) != 3 || f.TermCount() != 2 {
		t.Fatalf("read %d months / %d terms", len(f.Months), f.TermCount())
	}
	if f.Months[2].BankBalance != 1002 || f.Months[0].Expenditures != 5.5 {
		t.Errorf("months = %+v", f.Months)
	}
}

func TestReadXLSX_DateCells(t *testing.T) {
	x := excelize.NewFile()
	defer x.Close()
	sheet := "Forecast"
	if _, err := x.NewSheet(sheet); err != nil {
		t.Fatalf("NewSheet: %v", err)
	}
	header := []string{"Month", "Bank Balance", "Contributions", "Expenditures", "Closing Balance"}
	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		x.SetCellValue(sheet, cell, h)
	}
	x.SetCellValue(sheet, "A2", time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC))
	x.SetCellValue(sheet, "B2", 250)
	x.SetCellValue(sheet, "C2", 10)
	x.SetCellValue(sheet, "D2", 0)
	x.SetCellValue(sheet, "E2", 260)

	var buf bytes.Buffer
	if _, err := x.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	f, err := ReadXLSX(&buf, "p", sheet)
	if err != nil {
		t.Fatalf("ReadXLSX: %v", err)
	}
	if got := f.Months[0].Month.Format("2006-01"); got != "2024-03" {
		t.Errorf("month = %s, want 2024-03", got)
	}
}

func TestReadFile_Formats(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "plan.csv")
	var csv bytes.Buffer
	if err := sampleForecast().WriteCSV(&csv); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if err := os.WriteFile(csvPath, csv.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	if f, err := ReadFile(csvPath, "tower-a", ""); err != nil || len(f.Months) != 3 {
		t.Errorf("csv: %d months, %v", len(f.Months), err)
	}

	txtPath := filepath.Join(dir, "plan.txt")
	if err := os.WriteFile(txtPath, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadFile(txtPath, "tower-a", ""); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("txt: err = %v, want ErrUnsupportedFormat", err)
	}
}

type recordingPublisher struct {
	planID  string
	version int64
	err     error
}

func (p *recordingPublisher) PublishForecastUpdated(_ context.Context, planID string, version int64) error {
	p.planID, p.version = planID, version
	return p.err
}

type fixedVersion int64

func (v fixedVersion) PlanVersion(context.Context, string) (int64, error) { return int64(v), nil }

func TestService_Import(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tower-a.xlsx")
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, sampleForecast()); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	store := memory.New()
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewService(store, fixedVersion(4), pub, nil)

	if _, err := svc.Import(context.Background(), "tower-a", path, ""); err != nil {
		t.Fatalf("Import: %v", err)
	}
	if _, err := store.ReadForecast(context.Background(), "tower-a"); err != nil {
		t.Errorf("forecast not stored: %v", err)
	}
	if pub.planID != "tower-a" || pub.version != 4 {
		t.Errorf("published %q v%d", pub.planID, pub.version)
	}

	if _, err := svc.Import(context.Background(), "bad id", path, ""); !errors.Is(err, forecast.ErrInvalidPlanID) {
		t.Errorf("bad id: err = %v", err)
	}
}
