package chartspec

import (
	"math"
	"reflect"
	"testing"

	"rfcharts/internal/core"
)

func TestCullLabels(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		limit  int
		want   []string
	}{
		{"under limit", []string{"a", "b"}, 5, []string{"a", "b"}},
		{"no limit", []string{"a", "b", "c"}, 0, []string{"a", "b", "c"}},
		{"every other", []string{"a", "b", "c", "d", "e", "f"}, 3, []string{"a", "", "c", "", "e", ""}},
		{"uneven", []string{"a", "b", "c", "d", "e", "f", "g"}, 3, []string{"a", "", "", "d", "", "", "g"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cullLabels(tt.labels, tt.limit)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("cullLabels = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCullLabels_NeverExceedsLimit(t *testing.T) {
	for n := 1; n <= 60; n++ {
		labels := make([]string, n)
		for i := range labels {
			labels[i] = "x"
		}
		for _, limit := range []int{4, 5, 8} {
			drawn := 0
			for _, l := range cullLabels(labels, limit) {
				if l != "" {
					drawn++
				}
			}
			if drawn > limit {
				t.Errorf("n=%d limit=%d: %d labels drawn", n, limit, drawn)
			}
		}
	}
}

func TestDateLabels_FormatsAndCaps(t *testing.T) {
	dates := make([]string, 36)
	for i := range dates {
		dates[i] = "2024-06-15"
	}
	labels, err := dateLabels(dates, core.DateAxisSpec{MaxTicks: 5, FormatDates: true})
	if err != nil {
		t.Fatalf("dateLabels: %v", err)
	}
	drawn := 0
	for _, l := range labels {
		if l != "" {
			drawn++
			if l != "Jun 2024" {
				t.Errorf("label = %q, want Jun 2024", l)
			}
		}
	}
	if drawn > 5 {
		t.Errorf("%d labels drawn, want at most 5", drawn)
	}
}

func TestLinearTicks(t *testing.T) {
	tests := []struct {
		name     string
		lo, hi   float64
		maxTicks int
	}{
		{"small", 500, 1500, 0},
		{"capped", -2000, 3000, 4},
		{"flat zero", 0, 0, 0},
		{"flat positive", 250, 250, 5},
		{"fractional", 0.1, 0.9, 5},
		{"tight cap straddling zero", -5, 5, 2},
		{"large", 0, 1234567, 11},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticks := linearTicks(tt.lo, tt.hi, tt.maxTicks)
			limit := tt.maxTicks
			if limit <= 0 {
				limit = defaultValueTicks
			}
			if limit < 3 {
				limit = 3
			}
			if len(ticks) < 2 || len(ticks) > limit {
				t.Fatalf("got %d ticks %v, want 2..%d", len(ticks), ticks, limit)
			}
			if ticks[0] > tt.lo || ticks[len(ticks)-1] < tt.hi {
				t.Errorf("ticks %v do not cover [%v, %v]", ticks, tt.lo, tt.hi)
			}
			for i := 1; i < len(ticks); i++ {
				if ticks[i] <= ticks[i-1] {
					t.Errorf("ticks not ascending: %v", ticks)
				}
			}
		})
	}
}

func TestLinearTicks_Extremes(t *testing.T) {
	tests := []struct {
		name   string
		lo, hi float64
	}{
		{"span overflows", -1e308, 1e308},
		{"flat at max", math.MaxFloat64, math.MaxFloat64},
		{"overflowed stack sum", 0, math.Inf(1)},
		{"overflowed negative sum", math.Inf(-1), 0},
		{"tiny span at huge magnitude", 1e300, 1e300 + 1e285},
		{"step rounds past max", 0, 1.7e308},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticks := linearTicks(tt.lo, tt.hi, 0)
			if len(ticks) < 2 || len(ticks) > defaultValueTicks {
				t.Fatalf("got %d ticks %v", len(ticks), ticks)
			}
			for i, v := range ticks {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					t.Fatalf("tick %d = %v, want finite", i, v)
				}
				if i > 0 && v <= ticks[i-1] {
					t.Errorf("ticks not ascending: %v", ticks)
				}
			}
			lo, hi := clampFinite(tt.lo), clampFinite(tt.hi)
			if ticks[0] > lo || ticks[len(ticks)-1] < hi {
				t.Errorf("ticks %v do not cover [%v, %v]", ticks, lo, hi)
			}
		})
	}
}

func TestValueRange(t *testing.T) {
	lines := []core.Series{{Type: core.SeriesLine, Values: []float64{500, 1500}}}
	if lo, hi := valueRange(lines, false); lo != 500 || hi != 1500 {
		t.Errorf("line range = [%v, %v], want [500, 1500]", lo, hi)
	}

	bars := []core.Series{{Type: core.SeriesBar, Values: []float64{500, 1500}}}
	if lo, hi := valueRange(bars, false); lo != 0 || hi != 1500 {
		t.Errorf("bar range = [%v, %v], want [0, 1500]", lo, hi)
	}

	stacked := []core.Series{
		{Type: core.SeriesBar, Values: []float64{100, 200}},
		{Type: core.SeriesBar, Values: []float64{300, -50}},
	}
	if lo, hi := valueRange(stacked, true); lo != -50 || hi != 400 {
		t.Errorf("stacked range = [%v, %v], want [-50, 400]", lo, hi)
	}
}

func TestResolveTicks_OnlyOwnSeries(t *testing.T) {
	series := []core.Series{
		{AxisID: "left", Type: core.SeriesLine, Values: []float64{0, 10}},
		{AxisID: "right", Type: core.SeriesLine, Values: []float64{0, 1000000}},
	}
	ticks := resolveTicks(core.AxisSpec{ID: "left"}, series)
	if top := ticks[len(ticks)-1].Value; top > 100 {
		t.Errorf("left axis top tick = %v, right series leaked in", top)
	}
	if ticks[0].Label != "0" {
		t.Errorf("unformatted axis label = %q, want 0", ticks[0].Label)
	}
}
