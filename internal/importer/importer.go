// Package importer loads forecasts from spreadsheet and CSV files into a
// forecast store and announces the new version.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"rfcharts/internal/amqp"
	"rfcharts/internal/forecast"
	"rfcharts/internal/sheets"
)

var ErrUnsupportedFormat = errors.New("unsupported file format")

// ReadFile parses a forecast from a .xlsx/.xlsm or .csv file. sheet selects
// the workbook tab; empty means the first one.
func ReadFile(path, planID, sheet string) (forecast.Forecast, error) {
	fh, err := os.Open(path)
	if err != nil {
		return forecast.Forecast{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer fh.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xlsm":
		return ReadXLSX(fh, planID, sheet)
	case ".csv":
		return forecast.ReadCSV(fh, planID)
	default:
		return forecast.Forecast{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// ReadXLSX parses a forecast from a workbook. The first row of the sheet is
// the header; month cells may be real dates or text.
func ReadXLSX(r io.Reader, planID, sheet string) (forecast.Forecast, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return forecast.Forecast{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return forecast.Forecast{}, forecast.ErrEmptyForecast
		}
		sheet = list[0]
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return forecast.Forecast{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return forecast.Forecast{}, forecast.ErrEmptyForecast
	}

	header := rows[0]
	monthCol := -1
	for i, h := range header {
		if forecast.IsMonthColumn(h) {
			monthCol = i
			break
		}
	}
	data := rows[1:]
	if monthCol >= 0 {
		for _, row := range data {
			if monthCol < len(row) {
				row[monthCol] = serialToDate(row[monthCol])
			}
		}
	}
	return forecast.FromRows(planID, header, data)
}

// serialToDate turns an Excel date serial into the forecast date layout and
// leaves anything else untouched.
func serialToDate(cell string) string {
	serial, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return cell
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return cell
	}
	return t.Format(forecast.DateLayout)
}

// WriteXLSX writes a forecast as a single-sheet workbook in the layout ReadXLSX reads.
func WriteXLSX(w io.Writer, f forecast.Forecast) error {
	x := excelize.NewFile()
	defer x.Close()

	sheet := x.GetSheetName(0)
	rows := append([][]string{f.Header()}, f.Rows()...)
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			var value any = v
			if r > 0 && c > 0 {
				if n, err := strconv.ParseFloat(v, 64); err == nil {
					value = n
				}
			}
			if err := x.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("set %s: %w", cell, err)
			}
		}
	}
	if _, err := x.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Versioner reports the stored version of a plan after a save.
type Versioner interface {
	PlanVersion(ctx context.Context, planID string) (int64, error)
}

// Service stores imported forecasts and, when a publisher is set, announces them.
type Service struct {
	store     sheets.ForecastWriter
	versions  Versioner
	publisher amqp.Publisher
	logger    *slog.Logger
}

// NewService wires an importer. versions and publisher may be nil.
func NewService(store sheets.ForecastWriter, versions Versioner, publisher amqp.Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		versions:  versions,
		publisher: publisher,
		logger:    logger.With("component", "importer"),
	}
}

// Import reads path, saves the forecast under planID and returns it.
// A failed announcement is logged; the stored forecast is not rolled back.
func (s *Service) Import(ctx context.Context, planID, path, sheet string) (forecast.Forecast, error) {
	if err := forecast.ValidatePlanID(planID); err != nil {
		return forecast.Forecast{}, err
	}
	f, err := ReadFile(path, planID, sheet)
	if err != nil {
		return forecast.Forecast{}, err
	}
	if err := s.store.SaveForecast(ctx, f); err != nil {
		return forecast.Forecast{}, fmt.Errorf("save forecast: %w", err)
	}
	s.logger.InfoContext(ctx, "Forecast imported", "plan", planID, "file", path, "months", len(f.Months))

	if s.publisher == nil {
		return f, nil
	}
	var version int64
	if s.versions != nil {
		if version, err = s.versions.PlanVersion(ctx, planID); err != nil {
			s.logger.WarnContext(ctx, "Could not read plan version", "plan", planID, "error", err)
		}
	}
	if err := s.publisher.PublishForecastUpdated(ctx, planID, version); err != nil {
		s.logger.WarnContext(ctx, "Forecast update not announced", "plan", planID, "error", err)
	}
	return f, nil
}
