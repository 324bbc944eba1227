package barrace

import (
	"slices"
	"time"

	"github.com/FerroO2000/barrace/color"
	"github.com/FerroO2000/barrace/ingress"
	"github.com/FerroO2000/barrace/internal/config"
	"github.com/FerroO2000/barrace/processor"
	"github.com/FerroO2000/barrace/render"
	"github.com/FerroO2000/barrace/timeline"
)

// ColorKeyFunc returns the color key of a sample.
type ColorKeyFunc func(sample *timeline.Sample, meta ingress.Metadata) string

// DefaultColorKey groups the colors by entity id.
func DefaultColorKey(sample *timeline.Sample, _ ingress.Metadata) string {
	return sample.ID
}

//////////////
//  CONFIG  //
//////////////

// Default values for the pipeline configuration.
const (
	DefaultConfigFrameRate    = 30
	DefaultConfigInterval     = 1.0
	DefaultConfigFreeze       = 0
	DefaultConfigItemCount    = 22
	DefaultConfigSort         = 1
	DefaultConfigTickNumber   = 6
	DefaultConfigColorWorkers = 4
)

// Config is the configuration of the pipeline.
type Config struct {
	// FrameRate is the number of frames per second.
	FrameRate int

	// Interval is the number of seconds between two keyframes.
	Interval float64

	// Freeze is the number of frames held at the end of the animation.
	Freeze int

	// ItemCount is the number of visible bars.
	ItemCount int

	// Sort is 1 to rank by descending value, -1 by ascending value.
	Sort int

	// TickNumber is the target number of axis ticks.
	TickNumber int

	// KeyFrameDelta overrides the inferred keyframe spacing when positive.
	KeyFrameDelta time.Duration

	// Palette is cycled to color the keys without an image.
	Palette []string

	// ColorWorkers is the number of concurrent color extractions.
	ColorWorkers int

	// CSV configures the CSV data sources.
	CSV *ingress.CSVConfig

	// Render configures the renderer.
	Render *render.Config

	ColorKey    ColorKeyFunc
	XDomain     processor.DomainFunc
	BarInfo     render.BarInfoFunc
	ValueFormat render.ValueFormat
	TickFormat  render.TickFormat
}

// NewConfig returns the default configuration.
func NewConfig() *Config {
	return &Config{
		FrameRate:    DefaultConfigFrameRate,
		Interval:     DefaultConfigInterval,
		Freeze:       DefaultConfigFreeze,
		ItemCount:    DefaultConfigItemCount,
		Sort:         DefaultConfigSort,
		TickNumber:   DefaultConfigTickNumber,
		Palette:      slices.Clone(color.DefaultPalette),
		ColorWorkers: DefaultConfigColorWorkers,

		CSV:    ingress.NewCSVConfig(),
		Render: render.NewConfig(),

		ColorKey: DefaultColorKey,
		XDomain:  processor.DefaultDomain,
		BarInfo:  render.BarInfo,
	}
}

// Validate checks the configuration.
func (c *Config) Validate(ac *config.AnomalyCollector) {
	config.CheckPositive(ac, "FrameRate", &c.FrameRate, DefaultConfigFrameRate)
	config.CheckFinite(ac, "Interval", &c.Interval, DefaultConfigInterval)
	config.CheckPositive(ac, "Interval", &c.Interval, DefaultConfigInterval)
	config.CheckNotNegative(ac, "Freeze", &c.Freeze, DefaultConfigFreeze)
	config.CheckPositive(ac, "ItemCount", &c.ItemCount, DefaultConfigItemCount)
	config.CheckOneOf(ac, "Sort", &c.Sort, DefaultConfigSort, 1, -1)
	config.CheckPositive(ac, "TickNumber", &c.TickNumber, DefaultConfigTickNumber)
	config.CheckNotNegative(ac, "KeyFrameDelta", &c.KeyFrameDelta, 0)
	config.CheckLen(ac, "Palette", &c.Palette, slices.Clone(color.DefaultPalette))
	config.CheckPositive(ac, "ColorWorkers", &c.ColorWorkers, DefaultConfigColorWorkers)

	if c.CSV == nil {
		c.CSV = ingress.NewCSVConfig()
	}
	c.CSV.Validate(ac)

	if c.Render == nil {
		c.Render = render.NewConfig()
	}
	c.Render.Validate(ac)

	if c.ColorKey == nil {
		c.ColorKey = DefaultColorKey
	}
	if c.XDomain == nil {
		c.XDomain = processor.DefaultDomain
	}
	if c.BarInfo == nil {
		c.BarInfo = render.BarInfo
	}
	if c.ValueFormat == nil {
		c.ValueFormat = render.NewValueFormat(c.Render.Language)
	}
	if c.TickFormat == nil {
		c.TickFormat = render.CompactTick
	}
}
