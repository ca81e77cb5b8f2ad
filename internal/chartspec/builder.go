// Package chartspec turns a raw payload into a fully resolved chart
// specification: series, axes with their tick labels already computed, date
// labels culled to the axis ceiling, and display options.
//
// The output carries no rendering-library types; internal/render is the only
// place that knows how a specification is drawn.
package chartspec

import (
	"rfcharts/internal/core"
)

// Build produces the specification of one chart kind from a payload.
//
// Errors are *core.PayloadError values wrapping core.ErrUnknownChartKind,
// core.ErrMalformedPayload or core.ErrLengthMismatch.
func Build(p core.RawPayload, kind core.ChartKind) (core.ChartSpecification, error) {
	pr, ok := presets[kind]
	if !ok {
		return core.ChartSpecification{}, &core.PayloadError{Err: core.ErrUnknownChartKind, Detail: string(kind)}
	}
	if err := p.Validate(); err != nil {
		return core.ChartSpecification{}, err
	}

	seriesPresets := pr.Series
	if pr.Categories != nil {
		discovered, err := pr.Categories(p)
		if err != nil {
			return core.ChartSpecification{}, err
		}
		seriesPresets = discovered
	}

	series := make([]core.Series, 0, len(seriesPresets))
	for _, sp := range seriesPresets {
		values, err := p.Sequence(sp.Field)
		if err != nil {
			return core.ChartSpecification{}, err
		}
		series = append(series, core.Series{
			Name:    sp.Field,
			Label:   sp.Label,
			Type:    sp.Type,
			Values:  append([]float64(nil), values...),
			Color:   sp.Color,
			Border:  sp.Border,
			Fill:    sp.Fill,
			Stacked: pr.Stacked,
			AxisID:  sp.AxisID,
		})
	}

	axes := make([]core.AxisSpec, len(pr.Axes))
	for i, a := range pr.Axes {
		a.Format = ruleOrPlain(a.Format)
		a.Ticks = resolveTicks(a, series)
		axes[i] = a
	}

	dateAxis := pr.DateAxis
	labels, err := dateLabels(p.Dates, dateAxis)
	if err != nil {
		return core.ChartSpecification{}, err
	}
	dateAxis.Labels = labels

	opts := pr.Options
	if opts.PointRadius != nil {
		r := *opts.PointRadius
		opts.PointRadius = &r
	}

	return core.ChartSpecification{
		Kind:      kind,
		ElementID: p.ElementID,
		Title:     pr.Title,
		Dates:     append([]string(nil), p.Dates...),
		DateAxis:  dateAxis,
		Series:    series,
		Axes:      axes,
		Options:   opts,
	}, nil
}
