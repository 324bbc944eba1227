package render

import "github.com/FerroO2000/barrace/internal/config"

//////////////
//  CONFIG  //
//////////////

// Default values for the render configuration.
const (
	DefaultConfigWidth         = 1366
	DefaultConfigHeight        = 768
	DefaultConfigMargin        = 10
	DefaultConfigLabelPadding  = 10
	DefaultConfigAxisTextSize  = 20
	DefaultConfigDateLabelSize = 48
	DefaultConfigBarRadius     = 4
	DefaultConfigBackground    = "#1D1F21"
	DefaultConfigAxisColor     = "#888"
	DefaultConfigDateColor     = "#fff4"
	DefaultConfigDateFormat    = "%Y-%m-%d %H:%M"
	DefaultConfigLanguage      = "zh-CN"
)

// Margin is the space around the plot area, in pixels.
type Margin struct {
	Top    float64
	Right  float64
	Bottom float64
	Left   float64
}

// Config is the configuration of the renderer.
type Config struct {
	// Width and Height are the dimensions of the surface.
	Width  float64
	Height float64

	// OuterMargin is the margin before the layout pre-pass.
	OuterMargin Margin

	// LabelPadding is the space between a bar and its labels.
	LabelPadding float64

	// AxisTextSize is the font size of the tick labels.
	AxisTextSize float64

	// DateLabelSize is the font size of the date label.
	DateLabelSize float64

	// BarRadius is the corner radius of the bars.
	BarRadius float64

	Background string
	AxisColor  string
	DateColor  string

	// DateFormat is the strftime layout of the date label.
	DateFormat string

	// Language is the BCP 47 tag used to format the values.
	Language string
}

// NewConfig returns the default render configuration.
func NewConfig() *Config {
	return &Config{
		Width:  DefaultConfigWidth,
		Height: DefaultConfigHeight,
		OuterMargin: Margin{
			Top:    DefaultConfigMargin,
			Right:  DefaultConfigMargin,
			Bottom: DefaultConfigMargin,
			Left:   DefaultConfigMargin,
		},
		LabelPadding:  DefaultConfigLabelPadding,
		AxisTextSize:  DefaultConfigAxisTextSize,
		DateLabelSize: DefaultConfigDateLabelSize,
		BarRadius:     DefaultConfigBarRadius,
		Background:    DefaultConfigBackground,
		AxisColor:     DefaultConfigAxisColor,
		DateColor:     DefaultConfigDateColor,
		DateFormat:    DefaultConfigDateFormat,
		Language:      DefaultConfigLanguage,
	}
}

// Validate checks the configuration.
func (c *Config) Validate(ac *config.AnomalyCollector) {
	config.CheckPositive(ac, "Width", &c.Width, DefaultConfigWidth)
	config.CheckPositive(ac, "Height", &c.Height, DefaultConfigHeight)

	config.CheckNotNegative(ac, "OuterMargin.Top", &c.OuterMargin.Top, DefaultConfigMargin)
	config.CheckNotNegative(ac, "OuterMargin.Right", &c.OuterMargin.Right, DefaultConfigMargin)
	config.CheckNotNegative(ac, "OuterMargin.Bottom", &c.OuterMargin.Bottom, DefaultConfigMargin)
	config.CheckNotNegative(ac, "OuterMargin.Left", &c.OuterMargin.Left, DefaultConfigMargin)

	config.CheckNotNegative(ac, "LabelPadding", &c.LabelPadding, DefaultConfigLabelPadding)
	config.CheckPositive(ac, "AxisTextSize", &c.AxisTextSize, DefaultConfigAxisTextSize)
	config.CheckPositive(ac, "DateLabelSize", &c.DateLabelSize, DefaultConfigDateLabelSize)
	config.CheckNotNegative(ac, "BarRadius", &c.BarRadius, DefaultConfigBarRadius)

	config.CheckNotEmpty(ac, "Background", &c.Background, DefaultConfigBackground)
	config.CheckNotEmpty(ac, "AxisColor", &c.AxisColor, DefaultConfigAxisColor)
	config.CheckNotEmpty(ac, "DateColor", &c.DateColor, DefaultConfigDateColor)
	config.CheckNotEmpty(ac, "DateFormat", &c.DateFormat, DefaultConfigDateFormat)
	config.CheckNotEmpty(ac, "Language", &c.Language, DefaultConfigLanguage)
}
