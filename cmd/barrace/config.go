package main

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/FerroO2000/barrace"
	"github.com/FerroO2000/barrace/color"
	"github.com/FerroO2000/barrace/egress"
	"github.com/FerroO2000/barrace/ingress"
	"github.com/FerroO2000/barrace/render"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

type dataConfig struct {
	IDField     string   `yaml:"id_field"`
	DateField   string   `yaml:"date_field"`
	ValueField  string   `yaml:"value_field"`
	NameField   string   `yaml:"name_field"`
	TypeField   string   `yaml:"type_field"`
	DateLayouts []string `yaml:"date_layouts"`
	Timezone    string   `yaml:"timezone"`
	Comma       string   `yaml:"comma"`
}

// Validate validates the data configuration.
func (c dataConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.IDField, validation.Required),
		validation.Field(&c.DateField, validation.Required),
		validation.Field(&c.ValueField, validation.Required),
		validation.Field(&c.Comma, validation.Required, validation.Length(1, 1)),
	)
}

type marginConfig struct {
	Top    float64 `yaml:"top"`
	Right  float64 `yaml:"right"`
	Bottom float64 `yaml:"bottom"`
	Left   float64 `yaml:"left"`
}

type renderConfig struct {
	Width         float64      `yaml:"width"`
	Height        float64      `yaml:"height"`
	Margin        marginConfig `yaml:"margin"`
	LabelPadding  float64      `yaml:"label_padding"`
	AxisTextSize  float64      `yaml:"axis_text_size"`
	DateLabelSize float64      `yaml:"date_label_size"`
	BarRadius     float64      `yaml:"bar_radius"`
	Background    string       `yaml:"background"`
	DateFormat    string       `yaml:"date_format"`
	Language      string       `yaml:"language"`
}

// Validate validates the render configuration.
func (c renderConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Width, validation.Required, validation.Min(1.0)),
		validation.Field(&c.Height, validation.Required, validation.Min(1.0)),
		validation.Field(&c.Background, validation.Required),
		validation.Field(&c.DateFormat, validation.Required),
	)
}

type fileSinkConfig struct {
	Path       string `yaml:"path"`
	BufferSize int    `yaml:"buffer_size"`
}

type questDBSinkConfig struct {
	Address string `yaml:"address"`
	Table   string `yaml:"table"`
}

type kafkaSinkConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type sinksConfig struct {
	File    fileSinkConfig    `yaml:"file"`
	QuestDB questDBSinkConfig `yaml:"questdb"`
	Kafka   kafkaSinkConfig   `yaml:"kafka"`
}

type watchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Validate validates the watch configuration.
func (c watchConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
	)
}

// fileConfig is the YAML configuration of the command.
type fileConfig struct {
	FrameRate     int               `yaml:"frame_rate"`
	Interval      float64           `yaml:"interval"`
	Freeze        int               `yaml:"freeze"`
	ItemCount     int               `yaml:"item_count"`
	Sort          int               `yaml:"sort"`
	TickNumber    int               `yaml:"tick_number"`
	KeyFrameDelta time.Duration     `yaml:"key_frame_delta"`
	Palette       []string          `yaml:"palette"`
	Images        map[string]string `yaml:"images"`
	ColorWorkers  int               `yaml:"color_workers"`

	Data   dataConfig   `yaml:"data"`
	Render renderConfig `yaml:"render"`
	Sinks  sinksConfig  `yaml:"sinks"`
	Watch  watchConfig  `yaml:"watch"`
}

func newFileConfig() *fileConfig {
	csvCfg := ingress.NewCSVConfig()
	renderCfg := render.NewConfig()
	kafkaCfg := egress.NewKafkaConfig()
	questDBCfg := egress.NewQuestDBConfig()

	return &fileConfig{
		FrameRate:    barrace.DefaultConfigFrameRate,
		Interval:     barrace.DefaultConfigInterval,
		Freeze:       barrace.DefaultConfigFreeze,
		ItemCount:    barrace.DefaultConfigItemCount,
		Sort:         barrace.DefaultConfigSort,
		TickNumber:   barrace.DefaultConfigTickNumber,
		Palette:      slices.Clone(color.DefaultPalette),
		ColorWorkers: barrace.DefaultConfigColorWorkers,

		Data: dataConfig{
			IDField:     csvCfg.IDField,
			DateField:   csvCfg.DateField,
			ValueField:  csvCfg.ValueField,
			NameField:   csvCfg.NameField,
			TypeField:   csvCfg.TypeField,
			DateLayouts: slices.Clone(csvCfg.DateLayouts),
			Timezone:    "Local",
			Comma:       string(csvCfg.Comma),
		},

		Render: renderConfig{
			Width:  renderCfg.Width,
			Height: renderCfg.Height,
			Margin: marginConfig{
				Top:    renderCfg.OuterMargin.Top,
				Right:  renderCfg.OuterMargin.Right,
				Bottom: renderCfg.OuterMargin.Bottom,
				Left:   renderCfg.OuterMargin.Left,
			},
			LabelPadding:  renderCfg.LabelPadding,
			AxisTextSize:  renderCfg.AxisTextSize,
			DateLabelSize: renderCfg.DateLabelSize,
			BarRadius:     renderCfg.BarRadius,
			Background:    renderCfg.Background,
			DateFormat:    renderCfg.DateFormat,
			Language:      renderCfg.Language,
		},

		Sinks: sinksConfig{
			File:    fileSinkConfig{BufferSize: egress.DefaultFileConfigBufferSize},
			QuestDB: questDBSinkConfig{Table: questDBCfg.Table},
			Kafka:   kafkaSinkConfig{Topic: kafkaCfg.Topic},
		},

		Watch: watchConfig{
			Debounce: ingress.DefaultWatcherConfigDebounce,
		},
	}
}

// Validate validates the configuration.
func (c fileConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.FrameRate, validation.Required, validation.Min(1)),
		validation.Field(&c.Interval, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&c.Freeze, validation.Min(0)),
		validation.Field(&c.ItemCount, validation.Required, validation.Min(1)),
		validation.Field(&c.Sort, validation.Required, validation.In(1, -1)),
		validation.Field(&c.TickNumber, validation.Required, validation.Min(1)),
		validation.Field(&c.KeyFrameDelta, validation.Min(time.Duration(0))),
		validation.Field(&c.Palette, validation.Required),
		validation.Field(&c.ColorWorkers, validation.Min(1)),
		validation.Field(&c.Data),
		validation.Field(&c.Render),
		validation.Field(&c.Watch),
	)
}

// loadConfig reads the YAML file at path, expanding the environment
// variables. An empty path returns the defaults.
func loadConfig(path string) (*fileConfig, error) {
	cfg := newFileConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// pipelineConfig converts the file configuration into the pipeline one.
func (c *fileConfig) pipelineConfig() (*barrace.Config, error) {
	loc, err := time.LoadLocation(c.Data.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Data.Timezone, err)
	}

	cfg := barrace.NewConfig()

	cfg.FrameRate = c.FrameRate
	cfg.Interval = c.Interval
	cfg.Freeze = c.Freeze
	cfg.ItemCount = c.ItemCount
	cfg.Sort = c.Sort
	cfg.TickNumber = c.TickNumber
	cfg.KeyFrameDelta = c.KeyFrameDelta
	cfg.Palette = c.Palette
	cfg.ColorWorkers = c.ColorWorkers

	cfg.CSV.IDField = c.Data.IDField
	cfg.CSV.DateField = c.Data.DateField
	cfg.CSV.ValueField = c.Data.ValueField
	cfg.CSV.NameField = c.Data.NameField
	cfg.CSV.TypeField = c.Data.TypeField
	cfg.CSV.DateLayouts = c.Data.DateLayouts
	cfg.CSV.Location = loc
	cfg.CSV.Comma = c.Data.Comma[0]

	cfg.Render.Width = c.Render.Width
	cfg.Render.Height = c.Render.Height
	cfg.Render.OuterMargin = render.Margin{
		Top:    c.Render.Margin.Top,
		Right:  c.Render.Margin.Right,
		Bottom: c.Render.Margin.Bottom,
		Left:   c.Render.Margin.Left,
	}
	cfg.Render.LabelPadding = c.Render.LabelPadding
	cfg.Render.AxisTextSize = c.Render.AxisTextSize
	cfg.Render.DateLabelSize = c.Render.DateLabelSize
	cfg.Render.BarRadius = c.Render.BarRadius
	cfg.Render.Background = c.Render.Background
	cfg.Render.DateFormat = c.Render.DateFormat
	cfg.Render.Language = c.Render.Language

	return cfg, nil
}
