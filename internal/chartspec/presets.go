package chartspec

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"rfcharts/internal/core"
)

// Axis ids. The dual-axis ids double as the series labels the page shows.
const (
	AxisValue        = "Value"
	AxisReserveTotal = "Reserve Fund Total"
	AxisExpenditures = "Expenditures"
	AxisAmount       = "Amount"
)

const (
	colorTeal    = "#53B5AE"
	colorBlue    = "#3e95cd"
	colorPurple  = "#8e5ea2"
	colorCrimson = "#AD304D"

	titleFontSize = 30
	titlePadding  = 20
	tickFontSize  = 16
	animationMs   = 2500
)

// allocationPalette colours stacked categories in order, cycling when there
// are more categories than colours.
var allocationPalette = []string{"orange", colorPurple, "green", colorBlue, "pink", "blue"}

type seriesPreset struct {
	Field  string
	Label  string
	Type   core.SeriesType
	Color  string
	Border string
	Fill   bool
	AxisID string
}

type preset struct {
	Title   string
	Series  []seriesPreset
	Stacked bool
	// Categories discovers series from the payload fields when the series
	// list is not fixed.
	Categories func(p core.RawPayload) ([]seriesPreset, error)
	Axes       []core.AxisSpec
	DateAxis   core.DateAxisSpec
	Options    core.DisplayOptions
}

func intPtr(v int) *int { return &v }

var presets = map[core.ChartKind]preset{
	core.BalanceLine: {
		Title: "Bank Balance",
		Series: []seriesPreset{
			{Field: core.FieldTotals, Label: "Bank Balance", Type: core.SeriesLine, Border: colorTeal, AxisID: AxisValue},
		},
		Axes: []core.AxisSpec{
			{ID: AxisValue, Position: core.PositionLeft, Scale: core.ScaleLinear, Format: core.FormatCurrency, FontSize: tickFontSize},
		},
		DateAxis: core.DateAxisSpec{MaxTicks: 5, FormatDates: true, FontSize: tickFontSize},
		Options:  core.DisplayOptions{AnimationMs: animationMs, TitleFontSize: titleFontSize, TitlePadding: titlePadding},
	},
	core.ComparisonBars: {
		Title: "Contributions vs. Expenditures",
		Series: []seriesPreset{
			{Field: core.FieldContributions, Label: "Contributions", Type: core.SeriesBar, Color: colorBlue, AxisID: AxisValue},
			{Field: core.FieldExpenditures, Label: "Expenditures", Type: core.SeriesBar, Color: colorPurple, AxisID: AxisValue},
		},
		Axes: []core.AxisSpec{
			{ID: AxisValue, Position: core.PositionLeft, Scale: core.ScaleLinear, GridLines: true},
		},
		DateAxis: core.DateAxisSpec{MaxTicks: 5, GridLines: true},
		Options:  core.DisplayOptions{Legend: true},
	},
	core.DualAxisTotalVsExpenditure: {
		Title: "Reserve Fund Total",
		Series: []seriesPreset{
			{Field: core.FieldTotals, Label: "Reserve Fund Total", Type: core.SeriesLine, Color: colorTeal, Border: colorTeal, AxisID: AxisReserveTotal},
			{Field: core.FieldExpenditures, Label: "Expenditures", Type: core.SeriesBar, Color: colorCrimson, Border: colorCrimson, AxisID: AxisExpenditures},
		},
		Axes: []core.AxisSpec{
			{ID: AxisReserveTotal, Position: core.PositionLeft, Scale: core.ScaleLinear, Format: core.FormatCurrency, FontSize: tickFontSize},
			{ID: AxisExpenditures, Position: core.PositionRight, Scale: core.ScaleLinear, MaxTicks: 4, Format: core.FormatCurrencySuppressNegative, FontSize: 14},
		},
		DateAxis: core.DateAxisSpec{MaxTicks: 5, FormatDates: true, FontSize: tickFontSize},
		Options:  core.DisplayOptions{AnimationMs: animationMs, PointRadius: intPtr(0), TitleFontSize: titleFontSize, TitlePadding: titlePadding},
	},
	core.StackedAllocation: {
		Title:      "Investment Allocation",
		Stacked:    true,
		Categories: allocationCategories,
		Axes: []core.AxisSpec{
			{ID: AxisAmount, Position: core.PositionLeft, Scale: core.ScaleLinear, Format: core.FormatCurrency, Stacked: true, Title: "Amount", FontSize: tickFontSize},
		},
		DateAxis: core.DateAxisSpec{MaxTicks: 8, SuppressFirstTick: true, FontSize: tickFontSize},
		Options:  core.DisplayOptions{PointRadius: intPtr(0), TitleFontSize: titleFontSize, TitlePadding: titlePadding},
	},
}

var (
	bankFieldRe = regexp.MustCompile(`^bank[_-]balances?$`)
	termFieldRe = regexp.MustCompile(`^term[_-](\d+)$`)
)

// allocationCategories finds the bank balance and term-N sequences of an
// allocation payload, bank first and terms in numeric order.
func allocationCategories(p core.RawPayload) ([]seriesPreset, error) {
	type term struct {
		n     int
		field string
	}
	var bank string
	var terms []term
	seen := map[string]string{}

	for _, field := range p.Fields() {
		key := strings.ToLower(field)
		var canonical string
		switch {
		case bankFieldRe.MatchString(key):
			canonical = "bank"
			bank = field
		case termFieldRe.MatchString(key):
			n, err := strconv.Atoi(termFieldRe.FindStringSubmatch(key)[1])
			if err != nil {
				return nil, &core.PayloadError{Err: core.ErrMalformedPayload, Field: field, Detail: "term number out of range"}
			}
			canonical = "term" + strconv.Itoa(n)
			terms = append(terms, term{n: n, field: field})
		default:
			continue
		}
		if prev, dup := seen[canonical]; dup {
			return nil, &core.PayloadError{
				Err:    core.ErrMalformedPayload,
				Field:  field,
				Detail: fmt.Sprintf("duplicates category already supplied as %q", prev),
			}
		}
		seen[canonical] = field
	}

	sort.Slice(terms, func(i, j int) bool { return terms[i].n < terms[j].n })

	var out []seriesPreset
	if bank != "" {
		out = append(out, seriesPreset{Field: bank, Label: "Bank Account"})
	}
	for _, t := range terms {
		out = append(out, seriesPreset{Field: t.field, Label: "Term " + strconv.Itoa(t.n)})
	}
	if len(out) == 0 {
		return nil, &core.PayloadError{
			Err:    core.ErrMalformedPayload,
			Field:  core.FieldBankBalances,
			Detail: "no allocation categories (bank_balances, term_N)",
		}
	}
	for i := range out {
		out[i].Type = core.SeriesBar
		out[i].Color = allocationPalette[i%len(allocationPalette)]
		out[i].Fill = true
		out[i].AxisID = AxisAmount
	}
	return out, nil
}
