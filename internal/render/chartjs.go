package render

import (
	"fmt"

	"rfcharts/internal/core"
)

// Chart is what the page script receives for one canvas: the library config
// plus the label tables its tick callbacks read from.
type Chart struct {
	ElementID string `json:"elementId"`
	Kind      string `json:"kind"`
	Theme     *Theme `json:"theme"`
	Config    Config `json:"config"`
	// DateLabels has one entry per data point; "" is not drawn.
	DateLabels []string `json:"dateLabels"`
	// ValueLabels maps axis id to tick value (as plain text) to label.
	ValueLabels map[string]map[string]string `json:"valueLabels"`
}

type Config struct {
	Type    string  `json:"type"`
	Data    Data    `json:"data"`
	Options Options `json:"options"`
}

type Data struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

type Dataset struct {
	Label           string    `json:"label,omitempty"`
	Type            string    `json:"type,omitempty"`
	Data            []float64 `json:"data"`
	BackgroundColor string    `json:"backgroundColor,omitempty"`
	BorderColor     string    `json:"borderColor,omitempty"`
	Fill            bool      `json:"fill"`
	YAxisID         string    `json:"yAxisID,omitempty"`
}

type Options struct {
	Legend    Toggle     `json:"legend"`
	Title     Title      `json:"title"`
	Animation *Animation `json:"animation,omitempty"`
	Elements  *Elements  `json:"elements,omitempty"`
	Scales    Scales     `json:"scales"`
}

type Toggle struct {
	Display bool `json:"display"`
}

type Title struct {
	Display   bool   `json:"display"`
	Text      string `json:"text"`
	FontSize  int    `json:"fontSize,omitempty"`
	Padding   int    `json:"padding,omitempty"`
	FontColor string `json:"fontColor,omitempty"`
}

type Animation struct {
	Duration int `json:"duration"`
}

type Elements struct {
	Point Point `json:"point"`
}

type Point struct {
	Radius int `json:"radius"`
}

type Scales struct {
	XAxes []XAxis `json:"xAxes"`
	YAxes []YAxis `json:"yAxes"`
}

type XAxis struct {
	Stacked   bool   `json:"stacked,omitempty"`
	Ticks     XTicks `json:"ticks"`
	GridLines Toggle `json:"gridLines"`
}

type XTicks struct {
	AutoSkip bool `json:"autoSkip"`
	FontSize int  `json:"fontSize,omitempty"`
}

type YAxis struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	Position   string      `json:"position"`
	Stacked    bool        `json:"stacked,omitempty"`
	Ticks      YTicks      `json:"ticks"`
	ScaleLabel *ScaleLabel `json:"scaleLabel,omitempty"`
	GridLines  Toggle      `json:"gridLines"`
}

type YTicks struct {
	Min           float64 `json:"min"`
	Max           float64 `json:"max"`
	StepSize      float64 `json:"stepSize,omitempty"`
	MaxTicksLimit int     `json:"maxTicksLimit,omitempty"`
	FontSize      int     `json:"fontSize,omitempty"`
}

type ScaleLabel struct {
	Display     bool   `json:"display"`
	LabelString string `json:"labelString"`
	FontSize    int    `json:"fontSize,omitempty"`
}

// ChartJS converts a specification into the Chart.js v2 configuration for it.
func ChartJS(spec core.ChartSpecification, theme *Theme) (Chart, error) {
	if theme == nil {
		return Chart{}, fmt.Errorf("render %s: nil theme", spec.Kind)
	}

	out := Chart{
		ElementID:   spec.ElementID,
		Kind:        spec.Kind.String(),
		Theme:       theme,
		DateLabels:  spec.DateAxis.Labels,
		ValueLabels: make(map[string]map[string]string, len(spec.Axes)),
	}

	cfg := Config{Type: chartType(spec)}
	cfg.Data.Labels = spec.Dates
	for _, s := range spec.Series {
		ds := Dataset{
			Label:           s.Label,
			Data:            s.Values,
			BackgroundColor: s.Color,
			BorderColor:     s.Border,
			Fill:            s.Fill,
			YAxisID:         s.AxisID,
		}
		if string(s.Type) != cfg.Type {
			ds.Type = string(s.Type)
		}
		cfg.Data.Datasets = append(cfg.Data.Datasets, ds)
	}

	opts := spec.Options
	cfg.Options.Legend = Toggle{Display: opts.Legend}
	cfg.Options.Title = Title{
		Display:   spec.Title != "",
		Text:      spec.Title,
		FontSize:  opts.TitleFontSize,
		Padding:   opts.TitlePadding,
		FontColor: theme.TitleFontColor,
	}
	if opts.AnimationMs > 0 {
		cfg.Options.Animation = &Animation{Duration: opts.AnimationMs}
	}
	if opts.PointRadius != nil {
		cfg.Options.Elements = &Elements{Point: Point{Radius: *opts.PointRadius}}
	}

	stacked := false
	for _, a := range spec.Axes {
		stacked = stacked || a.Stacked
	}
	cfg.Options.Scales.XAxes = []XAxis{{
		Stacked: stacked,
		// labels are culled server-side
		Ticks:     XTicks{AutoSkip: false, FontSize: spec.DateAxis.FontSize},
		GridLines: Toggle{Display: spec.DateAxis.GridLines},
	}}

	for _, a := range spec.Axes {
		y := YAxis{
			ID:        a.ID,
			Type:      string(a.Scale),
			Position:  string(a.Position),
			Stacked:   a.Stacked,
			GridLines: Toggle{Display: a.GridLines},
			Ticks: YTicks{
				MaxTicksLimit: a.MaxTicks,
				FontSize:      a.FontSize,
			},
		}
		if n := len(a.Ticks); n > 0 {
			y.Ticks.Min = a.Ticks[0].Value
			y.Ticks.Max = a.Ticks[n-1].Value
			if n > 1 {
				y.Ticks.StepSize = a.Ticks[1].Value - a.Ticks[0].Value
			}
		}
		if a.Title != "" {
			y.ScaleLabel = &ScaleLabel{Display: true, LabelString: a.Title, FontSize: a.FontSize}
		}
		cfg.Options.Scales.YAxes = append(cfg.Options.Scales.YAxes, y)

		labels := make(map[string]string, len(a.Ticks))
		for _, t := range a.Ticks {
			labels[core.FormatPlain(t.Value)] = t.Label
		}
		out.ValueLabels[a.ID] = labels
	}

	out.Config = cfg
	return out, nil
}

// chartType is the top-level library chart type: a chart with any bar
// series is a bar chart and mixes in lines per dataset.
func chartType(spec core.ChartSpecification) string {
	for _, s := range spec.Series {
		if s.Type == core.SeriesBar {
			return string(core.SeriesBar)
		}
	}
	return string(core.SeriesLine)
}
