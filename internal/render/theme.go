// Package render adapts chart specifications to the option tree of the
// browser charting library (Chart.js v2). Nothing outside this package knows
// that shape.
package render

// Theme holds the page-wide styling shared by every chart. It is built once
// at startup and passed by reference; charts never modify it.
type Theme struct {
	FontColor      string `json:"fontColor"`
	TitleFontColor string `json:"titleFontColor"`
	FontFamily     string `json:"fontFamily,omitempty"`
}

// DefaultFontColor is the global font colour charts are drawn with.
const DefaultFontColor = "#000"

// NewTheme returns the default theme, overriding the font colour when one is given.
func NewTheme(fontColor string) *Theme {
	if fontColor == "" {
		fontColor = DefaultFontColor
	}
	return &Theme{
		FontColor:      fontColor,
		TitleFontColor: "black",
	}
}
