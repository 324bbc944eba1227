package render

import (
	"math"

	"github.com/FerroO2000/barrace/internal/scale"
)

// barHeightRatio is the share of a row taken by its bar.
const barHeightRatio = 0.8

// Layout holds the geometry of the plot area.
type Layout struct {
	Width  float64
	Height float64

	// Outer is the configured margin.
	Outer Margin
	// Inner is the margin grown to fit the axis and the labels.
	Inner Margin

	BarHeight float64
	ItemCount int

	yScale *scale.Linear
}

// NewLayout measures the labels of every frame and returns
// the resulting layout. The font size used for measuring is the bar height.
func NewLayout(c Context, cfg *Config, itemCount int, scene *Scene) *Layout {
	itemCount = max(itemCount, 1)
	scene.fillDefaults(cfg)

	l := &Layout{
		Width:  cfg.Width,
		Height: cfg.Height,

		Outer: cfg.OuterMargin,
		Inner: cfg.OuterMargin,

		ItemCount: itemCount,
	}

	l.BarHeight = math.Round((cfg.Height - cfg.OuterMargin.Top - cfg.OuterMargin.Bottom) / float64(itemCount) * barHeightRatio)

	l.Inner.Top += cfg.AxisTextSize

	c.SetFontSize(l.BarHeight)

	// Room for the value labels on the right
	valueWidth := 0.0
	if ext := scene.Extremes; ext != nil {
		if ext.MaxRecord != nil {
			valueWidth = c.MeasureText(scene.ValueFormat(ext.Max))
		}
		if ext.MinRecord != nil {
			valueWidth = max(valueWidth, c.MeasureText(scene.ValueFormat(ext.Min)))
		}
	}
	l.Inner.Right += valueWidth + cfg.LabelPadding

	// Room for the widest bar label on the left
	labelWidth := 0.0
	for _, f := range scene.Frames {
		for i := range f.Records {
			labelWidth = max(labelWidth, c.MeasureText(scene.Label(&f.Records[i])))
		}
	}
	l.Inner.Left += cfg.LabelPadding + labelWidth

	l.yScale = scale.NewLinear(0, float64(itemCount), l.Inner.Top, cfg.Height-l.Inner.Bottom)

	return l
}

// Y returns the vertical coordinate of a position.
func (l *Layout) Y(pos float64) float64 {
	return l.yScale.Map(pos)
}

// PlotWidth returns the horizontal extent of the bars.
func (l *Layout) PlotWidth() float64 {
	return max(0, l.Width-l.Inner.Left-l.Inner.Right)
}
