package chartspec

import (
	"math"

	"rfcharts/internal/core"
)

// defaultValueTicks is the ceiling applied to value axes that set none,
// matching the rendering library's own default.
const defaultValueTicks = 11

// cullLabels blanks labels so that at most limit of them are drawn, keeping
// every step-th one starting from the first.
func cullLabels(labels []string, limit int) []string {
	out := make([]string, len(labels))
	copy(out, labels)
	if limit <= 0 || len(out) <= limit {
		return out
	}
	step := (len(out) + limit - 1) / limit
	for i := range out {
		if i%step != 0 {
			out[i] = ""
		}
	}
	return out
}

// dateLabels resolves the per-index labels of the date axis.
func dateLabels(dates []string, axis core.DateAxisSpec) ([]string, error) {
	labels := make([]string, len(dates))
	for i, d := range dates {
		if !axis.FormatDates {
			labels[i] = d
			continue
		}
		l, err := core.FormatMonthYear(d)
		if err != nil {
			return nil, &core.PayloadError{Err: core.ErrMalformedPayload, Field: core.FieldDates, Detail: err.Error()}
		}
		labels[i] = l
	}
	labels = cullLabels(labels, axis.MaxTicks)
	if axis.SuppressFirstTick && len(labels) > 0 {
		labels[0] = ""
	}
	return labels, nil
}

// valueRange returns the extent an axis has to cover for the series drawn on it.
func valueRange(series []core.Series, stacked bool) (lo, hi float64) {
	if len(series) == 0 {
		return 0, 0
	}
	if stacked {
		n := 0
		for _, s := range series {
			if len(s.Values) > n {
				n = len(s.Values)
			}
		}
		for i := 0; i < n; i++ {
			var pos, neg float64
			for _, s := range series {
				if i >= len(s.Values) {
					continue
				}
				if v := s.Values[i]; v >= 0 {
					pos += v
				} else {
					neg += v
				}
			}
			hi = math.Max(hi, pos)
			lo = math.Min(lo, neg)
		}
		return lo, hi
	}

	first := true
	bars := false
	for _, s := range series {
		if s.Type == core.SeriesBar {
			bars = true
		}
		for _, v := range s.Values {
			if first {
				lo, hi = v, v
				first = false
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if bars {
		// bars grow from zero
		lo = math.Min(lo, 0)
		hi = math.Max(hi, 0)
	}
	return lo, hi
}

// linearTicks picks evenly spaced "nice" tick values covering [lo, hi] with
// at most maxTicks entries.
func linearTicks(lo, hi float64, maxTicks int) []float64 {
	if maxTicks <= 0 {
		maxTicks = defaultValueTicks
	}
	if maxTicks < 3 {
		// a range straddling zero always needs three ticks
		maxTicks = 3
	}
	lo, hi = clampFinite(lo), clampFinite(hi)
	if lo > hi {
		lo, hi = hi, lo
	}
	if lo == hi {
		if lo == 0 {
			hi = 1
		} else {
			d := math.Abs(lo) * 0.05
			lo, hi = clampFinite(lo-d), clampFinite(hi+d)
		}
	}

	// near the float64 limits the span or a rounded step overflows; the
	// axis then only carries its two ends.
	bounds := []float64{lo, hi}
	spacing := niceNum(niceNum(hi-lo, false)/float64(maxTicks-1), true)
	if !isFinite(spacing) || spacing <= 0 {
		return bounds
	}
	var first, count int
	for {
		f, l := math.Floor(lo/spacing), math.Ceil(hi/spacing)
		if math.Abs(f) > 1<<53 || math.Abs(l) > 1<<53 {
			return bounds
		}
		first = int(f)
		count = int(l) - first + 1
		if count <= maxTicks {
			break
		}
		spacing = nextNice(spacing)
		if !isFinite(spacing) {
			return bounds
		}
	}

	decimals := 0
	if spacing < 1 {
		decimals = int(math.Ceil(-math.Log10(spacing)))
	}
	scale := math.Pow(10, float64(decimals))

	ticks := make([]float64, count)
	for i := range ticks {
		v := float64(first+i) * spacing
		if decimals > 0 {
			v = math.Round(v*scale) / scale
		}
		if !isFinite(v) {
			return bounds
		}
		ticks[i] = v
	}
	return ticks
}

func isFinite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}

// clampFinite pins infinities (overflowed stack sums) to the largest float64.
func clampFinite(v float64) float64 {
	switch {
	case math.IsInf(v, 1):
		return math.MaxFloat64
	case math.IsInf(v, -1):
		return -math.MaxFloat64
	case math.IsNaN(v):
		return 0
	}
	return v
}

// niceNum rounds x to 1, 2, 5 or 10 times a power of ten.
func niceNum(x float64, round bool) float64 {
	exp := math.Floor(math.Log10(x))
	f := x / math.Pow(10, exp)
	var nf float64
	if round {
		switch {
		case f < 1.5:
			nf = 1
		case f < 3:
			nf = 2
		case f < 7:
			nf = 5
		default:
			nf = 10
		}
	} else {
		switch {
		case f <= 1:
			nf = 1
		case f <= 2:
			nf = 2
		case f <= 5:
			nf = 5
		default:
			nf = 10
		}
	}
	return nf * math.Pow(10, exp)
}

// nextNice returns the next larger step in the 1-2-5 sequence.
func nextNice(step float64) float64 {
	exp := math.Floor(math.Log10(step))
	p := math.Pow(10, exp)
	f := math.Round(step / p)
	switch {
	case f < 2:
		return 2 * p
	case f < 5:
		return 5 * p
	default:
		return 10 * p
	}
}

// resolveTicks computes and labels the ticks of one value axis.
func resolveTicks(axis core.AxisSpec, series []core.Series) []core.Tick {
	var onAxis []core.Series
	for _, s := range series {
		if s.AxisID == axis.ID {
			onAxis = append(onAxis, s)
		}
	}
	lo, hi := valueRange(onAxis, axis.Stacked)
	values := linearTicks(lo, hi, axis.MaxTicks)
	ticks := make([]core.Tick, len(values))
	for i, v := range values {
		ticks[i] = core.Tick{Value: v, Label: ruleOrPlain(axis.Format)(v)}
	}
	return ticks
}

// ruleOrPlain falls back to unformatted numbers for axes without a rule.
func ruleOrPlain(rule core.FormattingRule) core.FormattingRule {
	if rule == nil {
		return core.FormatPlain
	}
	return rule
}
