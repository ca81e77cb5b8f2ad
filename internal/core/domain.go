package core

import (
	"errors"
	"fmt"
)

const (
	BalanceLine                ChartKind = "balance-line"
	ComparisonBars             ChartKind = "comparison-bars"
	DualAxisTotalVsExpenditure ChartKind = "dual-axis-total-vs-expenditure"
	StackedAllocation          ChartKind = "stacked-allocation"
)

const (
	SeriesLine SeriesType = "line"
	SeriesBar  SeriesType = "bar"

	PositionLeft  Position = "left"
	PositionRight Position = "right"

	ScaleLinear ScaleType = "linear"
)

type (
	ChartKind  string
	SeriesType string
	Position   string
	ScaleType  string

	// FormattingRule maps a raw tick value to its display label.
	FormattingRule func(value float64) string

	Series struct {
		Name    string // payload field the values came from
		Label   string
		Type    SeriesType
		Values  []float64
		Color   string
		Border  string
		Fill    bool
		Stacked bool
		AxisID  string
	}

	Tick struct {
		Value float64
		Label string
	}

	AxisSpec struct {
		ID        string
		Position  Position
		Scale     ScaleType
		MaxTicks  int
		Format    FormattingRule
		Ticks     []Tick // resolved, ascending
		GridLines bool
		Stacked   bool
		Title     string
		FontSize  int
	}

	DateAxisSpec struct {
		MaxTicks          int
		FormatDates       bool
		SuppressFirstTick bool
		GridLines         bool
		FontSize          int
		// Labels holds one entry per data point; "" means the tick label is not drawn.
		Labels []string
	}

	DisplayOptions struct {
		Legend        bool
		AnimationMs   int
		PointRadius   *int
		TitleFontSize int
		TitlePadding  int
	}

	ChartSpecification struct {
		Kind      ChartKind
		ElementID string
		Title     string
		Dates     []string
		DateAxis  DateAxisSpec
		Series    []Series
		Axes      []AxisSpec
		Options   DisplayOptions
	}
)

var (
	ErrMalformedPayload = errors.New("malformed payload")
	ErrLengthMismatch   = errors.New("length mismatch")
	ErrUnknownChartKind = errors.New("unknown chart kind")
)

// Kinds lists every supported chart kind in page order.
func Kinds() []ChartKind {
	return []ChartKind{BalanceLine, ComparisonBars, DualAxisTotalVsExpenditure, StackedAllocation}
}

// ParseChartKind validates a kind name coming from a URL or CLI flag.
func ParseChartKind(s string) (ChartKind, error) {
	k := ChartKind(s)
	if !k.IsValid() {
		return "", &PayloadError{Err: ErrUnknownChartKind, Detail: fmt.Sprintf("%q", s)}
	}
	return k, nil
}

func (k ChartKind) IsValid() bool {
	switch k {
	case BalanceLine, ComparisonBars, DualAxisTotalVsExpenditure, StackedAllocation:
		return true
	default:
		return false
	}
}

func (k ChartKind) String() string {
	return string(k)
}

// Axis returns the axis with the given id.
func (c ChartSpecification) Axis(id string) (AxisSpec, bool) {
	for _, a := range c.Axes {
		if a.ID == id {
			return a, true
		}
	}
	return AxisSpec{}, false
}

// PayloadError describes why a payload cannot be turned into a chart.
type PayloadError struct {
	Err    error // one of the Err* sentinels
	Field  string
	Detail string
}

func (e *PayloadError) Error() string {
	msg := e.Err.Error()
	if e.Field != "" {
		msg += fmt.Sprintf(" (field %q)", e.Field)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *PayloadError) Unwrap() error {
	return e.Err
}

func malformed(field, format string, args ...any) error {
	return &PayloadError{Err: ErrMalformedPayload, Field: field, Detail: fmt.Sprintf(format, args...)}
}
