package chartspec

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"rfcharts/internal/core"
)

func balancePayload() core.RawPayload {
	return core.NewPayload("c1", []string{"2024-01-01", "2024-02-01"}).
		With(core.FieldTotals, []float64{500, 1500})
}

func TestBuild_BalanceLineEndToEnd(t *testing.T) {
	spec, err := Build(balancePayload(), core.BalanceLine)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if spec.ElementID != "c1" {
		t.Errorf("ElementID = %q, want c1", spec.ElementID)
	}
	if len(spec.Series) != 1 {
		t.Fatalf("got %d series, want 1", len(spec.Series))
	}
	s := spec.Series[0]
	if len(s.Values) != 2 {
		t.Errorf("series length = %d, want 2", len(s.Values))
	}
	if s.Type != core.SeriesLine || s.Fill {
		t.Errorf("series = %+v, want unfilled line", s)
	}
	if len(spec.Axes) != 1 {
		t.Fatalf("got %d axes, want 1", len(spec.Axes))
	}
	axis := spec.Axes[0]
	if axis.Position != core.PositionLeft {
		t.Errorf("axis position = %q, want left", axis.Position)
	}
	if got := axis.Format(500); got != "$500" {
		t.Errorf("format(500) = %q, want $500", got)
	}
	if got := axis.Format(1500); got != "$1,500" {
		t.Errorf("format(1500) = %q, want $1,500", got)
	}
	if s.AxisID != axis.ID {
		t.Errorf("series axis = %q, axis id = %q", s.AxisID, axis.ID)
	}

	want := []string{"Jan 2024", "Feb 2024"}
	for i, l := range spec.DateAxis.Labels {
		if l != want[i] {
			t.Errorf("date label[%d] = %q, want %q", i, l, want[i])
		}
	}
}

func TestBuild_ValueTicksAreLabelled(t *testing.T) {
	spec, err := Build(balancePayload(), core.BalanceLine)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	ticks := spec.Axes[0].Ticks
	if len(ticks) == 0 {
		t.Fatal("no ticks resolved")
	}
	if ticks[0].Value > 500 || ticks[len(ticks)-1].Value < 1500 {
		t.Errorf("ticks %v do not cover [500, 1500]", ticks)
	}
	for _, tk := range ticks {
		if tk.Label != core.FormatCurrency(tk.Value) {
			t.Errorf("tick %v label = %q, want %q", tk.Value, tk.Label, core.FormatCurrency(tk.Value))
		}
	}
}

func TestBuild_Errors(t *testing.T) {
	dates := []string{"2024-01-01", "2024-02-01"}
	tests := []struct {
		name    string
		payload core.RawPayload
		kind    core.ChartKind
		want    error
	}{
		{
			name:    "missing totals",
			payload: core.NewPayload("c1", dates),
			kind:    core.BalanceLine,
			want:    core.ErrMalformedPayload,
		},
		{
			name:    "length mismatch",
			payload: core.NewPayload("c1", dates).With(core.FieldTotals, []float64{1}),
			kind:    core.BalanceLine,
			want:    core.ErrLengthMismatch,
		},
		{
			name:    "unrelated sequence length mismatch",
			payload: balancePayload().With("other", []float64{1, 2, 3}),
			kind:    core.BalanceLine,
			want:    core.ErrLengthMismatch,
		},
		{
			name:    "unknown kind",
			payload: balancePayload(),
			kind:    core.ChartKind("pie"),
			want:    core.ErrUnknownChartKind,
		},
		{
			name:    "missing expenditures",
			payload: balancePayload(),
			kind:    core.DualAxisTotalVsExpenditure,
			want:    core.ErrMalformedPayload,
		},
		{
			name:    "no allocation categories",
			payload: balancePayload(),
			kind:    core.StackedAllocation,
			want:    core.ErrMalformedPayload,
		},
		{
			name:    "empty dates",
			payload: core.NewPayload("c1", nil).With(core.FieldTotals, nil),
			kind:    core.BalanceLine,
			want:    core.ErrMalformedPayload,
		},
		{
			name:    "infinite total",
			payload: core.NewPayload("c1", dates).With(core.FieldTotals, []float64{1, math.Inf(1)}),
			kind:    core.BalanceLine,
			want:    core.ErrMalformedPayload,
		},
		{
			name:    "NaN category",
			payload: core.NewPayload("c1", dates).With("term_1", []float64{math.NaN(), 1}),
			kind:    core.StackedAllocation,
			want:    core.ErrMalformedPayload,
		},
		{
			name:    "unparseable date",
			payload: core.NewPayload("c1", []string{"soon", "later"}).With(core.FieldTotals, []float64{1, 2}),
			kind:    core.BalanceLine,
			want:    core.ErrMalformedPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.payload, tt.kind)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			var pe *core.PayloadError
			if !errors.As(err, &pe) {
				t.Errorf("err %T is not a *core.PayloadError", err)
			}
		})
	}
}

func TestBuild_ExtremeMagnitudes(t *testing.T) {
	tests := []struct {
		name string
		body string
		kind core.ChartKind
	}{
		{"balance span overflows", `{"element-id":"c1","dates":["2024-01-01","2024-02-01"],"totals":[1e308,-1e308]}`, core.BalanceLine},
		{"stack sum overflows", `{"element-id":"c4","dates":["2024-01-01","2024-02-01"],"bank_balances":[1.5e308,1],"term_1":[1.5e308,1]}`, core.StackedAllocation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := core.DecodePayload([]byte(tt.body))
			if err != nil {
				t.Fatalf("DecodePayload: %v", err)
			}
			spec, err := Build(p, tt.kind)
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			for _, axis := range spec.Axes {
				if len(axis.Ticks) < 2 {
					t.Errorf("axis %s has %d ticks", axis.ID, len(axis.Ticks))
				}
				for _, tick := range axis.Ticks {
					if math.IsNaN(tick.Value) || math.IsInf(tick.Value, 0) {
						t.Errorf("axis %s tick %v is not finite", axis.ID, tick.Value)
					}
				}
				if _, err := json.Marshal(axis.Ticks); err != nil {
					t.Errorf("marshal ticks: %v", err)
				}
			}
		})
	}
}

func TestBuild_ComparisonBars(t *testing.T) {
	p := core.NewPayload("cmp", []string{"2024", "2025", "2026"}).
		With(core.FieldContributions, []float64{100, 200, 300}).
		With(core.FieldExpenditures, []float64{50, 0, 900})

	spec, err := Build(p, core.ComparisonBars)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(spec.Series) != 2 || len(spec.Axes) != 1 {
		t.Fatalf("got %d series / %d axes, want 2 / 1", len(spec.Series), len(spec.Axes))
	}
	for _, s := range spec.Series {
		if s.Type != core.SeriesBar {
			t.Errorf("series %q type = %q, want bar", s.Name, s.Type)
		}
		if s.AxisID != spec.Axes[0].ID {
			t.Errorf("series %q on axis %q, want %q", s.Name, s.AxisID, spec.Axes[0].ID)
		}
	}
	if got := spec.Axes[0].Format(1500); got != "1500" {
		t.Errorf("shared axis format(1500) = %q, want plain 1500", got)
	}
	if spec.DateAxis.Labels[0] != "2024" {
		t.Errorf("comparison dates should stay raw, got %q", spec.DateAxis.Labels[0])
	}
	if !spec.Options.Legend {
		t.Error("comparison chart should show a legend")
	}
}

func TestBuild_ComparisonBarsCapsYearLabels(t *testing.T) {
	years := []string{"2024", "2025", "2026", "2027", "2028", "2029", "2030"}
	values := make([]float64, len(years))
	p := core.NewPayload("cmp", years).
		With(core.FieldContributions, values).
		With(core.FieldExpenditures, values)

	spec, err := Build(p, core.ComparisonBars)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if spec.DateAxis.MaxTicks != 5 {
		t.Errorf("MaxTicks = %d, want 5", spec.DateAxis.MaxTicks)
	}
	drawn := 0
	for _, l := range spec.DateAxis.Labels {
		if l != "" {
			drawn++
		}
	}
	if drawn > 5 || spec.DateAxis.Labels[0] != "2024" {
		t.Errorf("labels = %q, want at most 5 starting with 2024", spec.DateAxis.Labels)
	}
}

func TestBuild_DualAxis(t *testing.T) {
	dates := []string{"2024-01-01", "2024-02-01", "2024-03-01"}
	p := core.NewPayload("dual", dates).
		With(core.FieldTotals, []float64{10000, 12000, 9000}).
		With(core.FieldExpenditures, []float64{-2000, 0, 3000})

	spec, err := Build(p, core.DualAxisTotalVsExpenditure)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(spec.Axes) != 2 || len(spec.Series) != 2 {
		t.Fatalf("got %d axes / %d series, want 2 / 2", len(spec.Axes), len(spec.Series))
	}
	a, b := spec.Axes[0], spec.Axes[1]
	if a.ID == b.ID || a.Position == b.Position {
		t.Errorf("axes not distinct: %q/%q %q/%q", a.ID, a.Position, b.ID, b.Position)
	}
	if spec.Series[0].AxisID == spec.Series[1].AxisID {
		t.Errorf("both series reference axis %q", spec.Series[0].AxisID)
	}

	totals, ok := spec.Axis(AxisReserveTotal)
	if !ok {
		t.Fatalf("axis %q missing", AxisReserveTotal)
	}
	exp, ok := spec.Axis(AxisExpenditures)
	if !ok {
		t.Fatalf("axis %q missing", AxisExpenditures)
	}
	if got := totals.Format(-1500); got != "$-1,500" {
		t.Errorf("totals format(-1500) = %q, want $-1,500", got)
	}
	if got := exp.Format(-1500); got != "" {
		t.Errorf("expenditure format(-1500) = %q, want empty", got)
	}
	if exp.MaxTicks != 4 || len(exp.Ticks) > 4 {
		t.Errorf("expenditure axis: MaxTicks=%d, %d ticks; want cap 4", exp.MaxTicks, len(exp.Ticks))
	}
	if totals.MaxTicks != 0 {
		t.Errorf("totals axis MaxTicks = %d, want unbounded", totals.MaxTicks)
	}
	for _, tk := range exp.Ticks {
		if tk.Value <= -1000 && tk.Label != "" {
			t.Errorf("tick %v should be suppressed, got %q", tk.Value, tk.Label)
		}
	}
	if spec.Options.PointRadius == nil || *spec.Options.PointRadius != 0 {
		t.Errorf("PointRadius = %v, want 0", spec.Options.PointRadius)
	}
}

func TestBuild_StackedAllocation(t *testing.T) {
	dates := make([]string, 24)
	for i := range dates {
		dates[i] = "2024-01-01"
	}
	flat := func(v float64) []float64 {
		out := make([]float64, len(dates))
		for i := range out {
			out[i] = v
		}
		return out
	}
	p := core.NewPayload("alloc", dates).
		With("term_2", flat(200)).
		With("bank-balance", flat(1000)).
		With("term_10", flat(50)).
		With("term_1", flat(100)).
		With(core.FieldTotals, flat(1350))

	spec, err := Build(p, core.StackedAllocation)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	wantNames := []string{"bank-balance", "term_1", "term_2", "term_10"}
	if len(spec.Series) != len(wantNames) {
		t.Fatalf("got %d series, want %d", len(spec.Series), len(wantNames))
	}
	for i, s := range spec.Series {
		if s.Name != wantNames[i] {
			t.Errorf("series[%d] = %q, want %q", i, s.Name, wantNames[i])
		}
		if !s.Stacked || s.Type != core.SeriesBar {
			t.Errorf("series %q not a stacked bar", s.Name)
		}
		if s.AxisID != AxisAmount {
			t.Errorf("series %q on axis %q", s.Name, s.AxisID)
		}
	}
	if spec.Series[0].Label != "Bank Account" || spec.Series[3].Label != "Term 10" {
		t.Errorf("labels = %q ... %q", spec.Series[0].Label, spec.Series[3].Label)
	}

	if len(spec.Axes) != 1 {
		t.Fatalf("got %d axes, want 1", len(spec.Axes))
	}
	axis := spec.Axes[0]
	if !axis.Stacked || axis.Title != "Amount" {
		t.Errorf("axis = %+v, want stacked with title Amount", axis)
	}
	if top := axis.Ticks[len(axis.Ticks)-1].Value; top < 1350 {
		t.Errorf("top tick %v below stacked sum 1350", top)
	}

	labels := spec.DateAxis.Labels
	if labels[0] != "" {
		t.Errorf("first date label = %q, want suppressed", labels[0])
	}
	drawn := 0
	for _, l := range labels {
		if l != "" {
			drawn++
		}
	}
	if drawn > 8 {
		t.Errorf("%d date labels drawn, want at most 8", drawn)
	}
	if labels[3] != "2024-01-01" {
		t.Errorf("allocation dates should stay raw, got %q", labels[3])
	}
}

func TestBuild_StackedAllocationDuplicateCategory(t *testing.T) {
	p := core.NewPayload("alloc", []string{"2024-01-01"}).
		With("bank_balances", []float64{1}).
		With("bank-balance", []float64{1})

	_, err := Build(p, core.StackedAllocation)
	if !errors.Is(err, core.ErrMalformedPayload) {
		t.Fatalf("err = %v, want malformed payload", err)
	}
}

func TestBuild_DoesNotAliasPayload(t *testing.T) {
	p := balancePayload()
	spec, err := Build(p, core.BalanceLine)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	spec.Series[0].Values[0] = -1
	if p.Sequences[core.FieldTotals][0] != 500 {
		t.Error("mutating the spec changed the payload")
	}
}
