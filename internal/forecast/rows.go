package forecast

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"rfcharts/internal/core"
)

// Column names of the tabular forecast layout shared by CSV files,
// spreadsheets and sheet ranges.
const (
	ColMonth          = "month"
	ColBankBalance    = "bank_balance"
	ColContributions  = "contributions"
	ColExpenditures   = "expenditures"
	ColClosingBalance = "closing_balance"
)

var (
	ErrMissingColumn = errors.New("missing column")
	ErrInvalidRow    = errors.New("invalid row")
)

var termColumnRe = regexp.MustCompile(`^term[_-]?(\d+)$`)

type columns struct {
	month, bank, conts, exps, closing int
	terms                             []int // index by term number - 1
}

func normaliseHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.ReplaceAll(h, " ", "_")
	return h
}

// IsMonthColumn reports whether a header cell names the month column.
func IsMonthColumn(h string) bool {
	switch normaliseHeader(h) {
	case ColMonth, "date":
		return true
	}
	return false
}

func mapColumns(header []string) (columns, error) {
	c := columns{month: -1, bank: -1, conts: -1, exps: -1, closing: -1}
	termIdx := map[int]int{}
	maxTerm := 0
	for i, raw := range header {
		h := normaliseHeader(raw)
		if IsMonthColumn(h) {
			c.month = i
			continue
		}
		switch h {
		case ColBankBalance, "bank_balances", "bank":
			c.bank = i
		case ColContributions:
			c.conts = i
		case ColExpenditures:
			c.exps = i
		case ColClosingBalance, "total":
			c.closing = i
		default:
			if m := termColumnRe.FindStringSubmatch(h); m != nil {
				n, err := strconv.Atoi(m[1])
				if err != nil || n < 1 {
					continue
				}
				termIdx[n] = i
				if n > maxTerm {
					maxTerm = n
				}
			}
		}
	}

	var missing []string
	for name, idx := range map[string]int{
		ColMonth:          c.month,
		ColBankBalance:    c.bank,
		ColContributions:  c.conts,
		ColExpenditures:   c.exps,
		ColClosingBalance: c.closing,
	} {
		if idx < 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return c, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}

	c.terms = make([]int, maxTerm)
	for n := 1; n <= maxTerm; n++ {
		idx, ok := termIdx[n]
		if !ok {
			idx = -1
		}
		c.terms[n-1] = idx
	}
	return c, nil
}

// FromRows converts a header row and data rows into a forecast. Blank rows
// are skipped; cells are parsed leniently ("$1,234.50" reads as 1234.5).
func FromRows(planID string, header []string, rows [][]string) (Forecast, error) {
	cols, err := mapColumns(header)
	if err != nil {
		return Forecast{}, err
	}

	f := Forecast{PlanID: planID}
	for n, row := range rows {
		if blankRow(row) {
			continue
		}
		line := n + 2 // 1-based, after the header
		cell := func(i int) string {
			if i < 0 || i >= len(row) {
				return ""
			}
			return row[i]
		}

		t, err := core.ParseDate(cell(cols.month))
		if err != nil {
			return Forecast{}, fmt.Errorf("%w %d: %v", ErrInvalidRow, line, err)
		}
		m := Month{Month: t}

		targets := []struct {
			idx int
			dst *float64
		}{
			{cols.bank, &m.BankBalance},
			{cols.conts, &m.Contributions},
			{cols.exps, &m.Expenditures},
			{cols.closing, &m.ClosingBalance},
		}
		for _, tg := range targets {
			v, err := ParseAmount(cell(tg.idx))
			if err != nil {
				return Forecast{}, fmt.Errorf("%w %d: column %q: %v", ErrInvalidRow, line, header[tg.idx], err)
			}
			*tg.dst = v
		}

		m.Terms = make([]float64, len(cols.terms))
		for k, idx := range cols.terms {
			if idx < 0 {
				continue
			}
			v, err := ParseAmount(cell(idx))
			if err != nil {
				return Forecast{}, fmt.Errorf("%w %d: column %q: %v", ErrInvalidRow, line, header[idx], err)
			}
			m.Terms[k] = v
		}
		f.Months = append(f.Months, m)
	}
	if len(f.Months) == 0 {
		return Forecast{}, ErrEmptyForecast
	}
	f.Sort()
	return f, nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ParseAmount reads a monetary cell. Empty cells are zero.
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		// accounting negative
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not an amount: %q", s)
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("not a finite amount: %q", s)
	}
	if neg {
		v = -v
	}
	return v, nil
}

// ReadCSV parses a forecast from CSV with a header row.
func ReadCSV(r io.Reader, planID string) (Forecast, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return Forecast{}, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return Forecast{}, ErrEmptyForecast
	}
	return FromRows(planID, records[0], records[1:])
}

// Header returns the column header matching Rows.
func (f Forecast) Header() []string {
	h := []string{ColMonth, ColBankBalance}
	for i := 1; i <= f.TermCount(); i++ {
		h = append(h, "term_"+strconv.Itoa(i))
	}
	return append(h, ColContributions, ColExpenditures, ColClosingBalance)
}

// Rows renders the months in the tabular layout described by Header.
func (f Forecast) Rows() [][]string {
	n := f.TermCount()
	out := make([][]string, len(f.Months))
	for i, m := range f.Months {
		row := []string{m.Month.Format(DateLayout), fmtAmount(m.BankBalance)}
		for t := 0; t < n; t++ {
			var v float64
			if t < len(m.Terms) {
				v = m.Terms[t]
			}
			row = append(row, fmtAmount(v))
		}
		row = append(row, fmtAmount(m.Contributions), fmtAmount(m.Expenditures), fmtAmount(m.ClosingBalance))
		out[i] = row
	}
	return out
}

// WriteCSV writes the forecast in the layout ReadCSV accepts.
func (f Forecast) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Header()); err != nil {
		return err
	}
	if err := cw.WriteAll(f.Rows()); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func fmtAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
