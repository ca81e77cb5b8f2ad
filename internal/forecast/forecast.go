// Package forecast models a plan's monthly reserve-fund forecast and
// assembles the chart payloads served for it.
package forecast

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"rfcharts/internal/core"
)

// Horizons of the charts assembled from a forecast.
const (
	BalanceMonths    = 36
	AllocationMonths = 36
	ComparisonYears  = 5
	TotalYears       = 30
)

// DateLayout is the wire layout of forecast months in payloads.
const DateLayout = "2006-01-02"

var (
	ErrEmptyForecast = errors.New("forecast has no months")
	ErrPlanNotFound  = errors.New("plan not found")
	ErrInvalidPlanID = errors.New("invalid plan id")
)

// Month is one row of a forecast.
type Month struct {
	Month          time.Time
	BankBalance    float64
	Terms          []float64 // term_1 .. term_N investment balances
	Contributions  float64
	Expenditures   float64
	ClosingBalance float64
}

// Forecast is the ordered monthly projection of one plan.
type Forecast struct {
	PlanID string
	Months []Month
}

// ValidatePlanID rejects ids that cannot be used in URLs or storage keys.
func ValidatePlanID(id string) error {
	if id == "" || len(id) > 64 {
		return fmt.Errorf("%w: %q", ErrInvalidPlanID, id)
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidPlanID, id)
		}
	}
	return nil
}

// Sort orders the months chronologically.
func (f *Forecast) Sort() {
	sort.SliceStable(f.Months, func(i, j int) bool {
		return f.Months[i].Month.Before(f.Months[j].Month)
	})
}

// TermCount is the widest term breakdown found in any month.
func (f Forecast) TermCount() int {
	n := 0
	for _, m := range f.Months {
		if len(m.Terms) > n {
			n = len(m.Terms)
		}
	}
	return n
}

// ElementID returns the canvas id a chart kind is drawn on.
func ElementID(kind core.ChartKind) string {
	switch kind {
	case core.BalanceLine:
		return "bank-balance-chart"
	case core.ComparisonBars:
		return "comparison-chart"
	case core.DualAxisTotalVsExpenditure:
		return "rfs-total-chart"
	case core.StackedAllocation:
		return "stacked-allocation-chart"
	default:
		return string(kind) + "-chart"
	}
}

// Payload assembles the payload a chart kind is built from.
func (f Forecast) Payload(kind core.ChartKind) (core.RawPayload, error) {
	if len(f.Months) == 0 {
		return core.RawPayload{}, fmt.Errorf("plan %s: %w", f.PlanID, ErrEmptyForecast)
	}
	switch kind {
	case core.BalanceLine:
		return f.balancePayload(), nil
	case core.StackedAllocation:
		return f.allocationPayload(), nil
	case core.ComparisonBars:
		return f.comparisonPayload(), nil
	case core.DualAxisTotalVsExpenditure:
		return f.totalPayload(), nil
	default:
		return core.RawPayload{}, &core.PayloadError{Err: core.ErrUnknownChartKind, Detail: string(kind)}
	}
}

func (f Forecast) head(n int) []Month {
	if len(f.Months) < n {
		return f.Months
	}
	return f.Months[:n]
}

func monthDates(months []Month) []string {
	dates := make([]string, len(months))
	for i, m := range months {
		dates[i] = m.Month.Format(DateLayout)
	}
	return dates
}

func (f Forecast) balancePayload() core.RawPayload {
	months := f.head(BalanceMonths)
	totals := make([]float64, len(months))
	for i, m := range months {
		totals[i] = m.BankBalance
	}
	return core.NewPayload(ElementID(core.BalanceLine), monthDates(months)).
		With(core.FieldTotals, totals)
}

func (f Forecast) allocationPayload() core.RawPayload {
	months := f.head(AllocationMonths)
	p := core.NewPayload(ElementID(core.StackedAllocation), monthDates(months))

	bank := make([]float64, len(months))
	for i, m := range months {
		bank[i] = m.BankBalance
	}
	p = p.With(core.FieldBankBalances, bank)

	for t := 0; t < f.TermCount(); t++ {
		values := make([]float64, len(months))
		for i, m := range months {
			if t < len(m.Terms) {
				values[i] = m.Terms[t]
			}
		}
		p = p.With("term_"+strconv.Itoa(t+1), values)
	}
	return p
}

type yearTotals struct {
	year          int
	contributions float64
	expenditures  float64
}

// annual sums contributions and expenditures per calendar year, oldest first.
func (f Forecast) annual() []yearTotals {
	var out []yearTotals
	for _, m := range f.Months {
		y := m.Month.Year()
		if len(out) == 0 || out[len(out)-1].year != y {
			out = append(out, yearTotals{year: y})
		}
		out[len(out)-1].contributions += m.Contributions
		out[len(out)-1].expenditures += m.Expenditures
	}
	return out
}

func (f Forecast) comparisonPayload() core.RawPayload {
	years := f.annual()
	if len(years) > ComparisonYears {
		years = years[:ComparisonYears]
	}
	dates := make([]string, len(years))
	conts := make([]float64, len(years))
	exps := make([]float64, len(years))
	for i, y := range years {
		dates[i] = strconv.Itoa(y.year)
		conts[i] = y.contributions
		exps[i] = y.expenditures
	}
	return core.NewPayload(ElementID(core.ComparisonBars), dates).
		With(core.FieldContributions, conts).
		With(core.FieldExpenditures, exps)
}

// totalPayload samples the closing balance at every twelfth month and pairs
// it with the expenditures of the twelve months ending there.
func (f Forecast) totalPayload() core.RawPayload {
	var dates []string
	var totals, exps []float64
	for i := 11; i < len(f.Months) && len(dates) < TotalYears; i += 12 {
		m := f.Months[i]
		var spent float64
		for _, w := range f.Months[i-11 : i+1] {
			spent += w.Expenditures
		}
		dates = append(dates, m.Month.Format(DateLayout))
		totals = append(totals, m.ClosingBalance)
		exps = append(exps, spent)
	}
	if len(dates) == 0 {
		// less than a year of data: show the last month
		last := f.Months[len(f.Months)-1]
		var spent float64
		for _, m := range f.Months {
			spent += m.Expenditures
		}
		dates = []string{last.Month.Format(DateLayout)}
		totals = []float64{last.ClosingBalance}
		exps = []float64{spent}
	}
	return core.NewPayload(ElementID(core.DualAxisTotalVsExpenditure), dates).
		With(core.FieldTotals, totals).
		With(core.FieldExpenditures, exps)
}
