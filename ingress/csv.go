package ingress

import (
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/FerroO2000/barrace/internal"
	"github.com/FerroO2000/barrace/internal/config"
	"github.com/FerroO2000/barrace/timeline"
	"go.opentelemetry.io/otel/attribute"
)

//////////////
//  CONFIG  //
//////////////

// Default values for the CSV source configuration.
const (
	DefaultCSVConfigIDField    = "id"
	DefaultCSVConfigDateField  = "date"
	DefaultCSVConfigValueField = "value"
	DefaultCSVConfigNameField  = "name"
	DefaultCSVConfigTypeField  = "type"
	DefaultCSVConfigComma      = ','
)

// DefaultCSVConfigDateLayouts contains the layouts tried, in order,
// to parse the date column.
var DefaultCSVConfigDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006/01/02",
	"2006-01",
	"2006",
}

// CSVConfig contains the configuration of the CSV sources.
type CSVConfig struct {
	// IDField is the name of the column identifying the entities.
	IDField string

	// DateField is the name of the timestamp column.
	DateField string

	// ValueField is the name of the main value column.
	ValueField string

	// NameField is the name of the optional display name column.
	NameField string

	// TypeField is the name of the optional display type column.
	TypeField string

	// DateLayouts are the layouts tried to parse the dates.
	DateLayouts []string

	// Location is the time zone of the dates without an explicit offset.
	Location *time.Location

	// Comma is the column separator.
	Comma byte
}

// NewCSVConfig returns the default configuration of the CSV sources.
func NewCSVConfig() *CSVConfig {
	return &CSVConfig{
		IDField:     DefaultCSVConfigIDField,
		DateField:   DefaultCSVConfigDateField,
		ValueField:  DefaultCSVConfigValueField,
		NameField:   DefaultCSVConfigNameField,
		TypeField:   DefaultCSVConfigTypeField,
		DateLayouts: DefaultCSVConfigDateLayouts,
		Location:    time.Local,
		Comma:       DefaultCSVConfigComma,
	}
}

// Validate checks the configuration.
func (c *CSVConfig) Validate(ac *config.AnomalyCollector) {
	config.CheckNotEmpty(ac, "IDField", &c.IDField, DefaultCSVConfigIDField)
	config.CheckNotEmpty(ac, "DateField", &c.DateField, DefaultCSVConfigDateField)
	config.CheckNotEmpty(ac, "ValueField", &c.ValueField, DefaultCSVConfigValueField)
	config.CheckLen(ac, "DateLayouts", &c.DateLayouts, DefaultCSVConfigDateLayouts)
	config.CheckNotZero(ac, "Comma", &c.Comma, DefaultCSVConfigComma)

	if c.Location == nil {
		c.Location = time.Local
	}
}

//////////////
//  MAPPER  //
//////////////

type csvColumnKind uint8

const (
	csvColumnKindExtra csvColumnKind = iota
	csvColumnKindID
	csvColumnKindDate
	csvColumnKindValue
	csvColumnKindName
	csvColumnKindType
)

// csvSampleMapper turns decoded rows into samples following the header.
type csvSampleMapper struct {
	tel *internal.Telemetry

	cfg *CSVConfig

	header []string
	kinds  []csvColumnKind

	// Metrics
	droppedRows *atomic.Int64
}

func newCSVSampleMapper(tel *internal.Telemetry, cfg *CSVConfig, header []string, droppedRows *atomic.Int64) (*csvSampleMapper, error) {
	m := &csvSampleMapper{
		tel: tel,

		cfg: cfg,

		header: header,
		kinds:  make([]csvColumnKind, len(header)),

		droppedRows: droppedRows,
	}

	found := make(map[csvColumnKind]bool)
	for i, name := range header {
		kind := m.columnKind(strings.TrimSpace(name))
		m.kinds[i] = kind
		found[kind] = true
	}

	for kind, name := range map[csvColumnKind]string{
		csvColumnKindID:    cfg.IDField,
		csvColumnKindDate:  cfg.DateField,
		csvColumnKindValue: cfg.ValueField,
	} {
		if !found[kind] {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}

	return m, nil
}

func (m *csvSampleMapper) columnKind(name string) csvColumnKind {
	switch name {
	case m.cfg.IDField:
		return csvColumnKindID
	case m.cfg.DateField:
		return csvColumnKindDate
	case m.cfg.ValueField:
		return csvColumnKindValue
	case m.cfg.NameField:
		return csvColumnKindName
	case m.cfg.TypeField:
		return csvColumnKindType
	default:
		return csvColumnKindExtra
	}
}

// mapRow returns the sample of the row, or nil when the row is dropped.
func (m *csvSampleMapper) mapRow(row []string, rowIdx int) *timeline.Sample {
	sample := &timeline.Sample{
		Value:  math.NaN(),
		Fields: make(map[string]float64),
		Meta:   make(map[string]string),
	}

	dateFound := false
	for i, col := range row {
		if i >= len(m.kinds) {
			break
		}

		col = strings.TrimSpace(col)

		switch m.kinds[i] {
		case csvColumnKindID:
			sample.ID = col

		case csvColumnKindDate:
			ts, ok := m.parseDate(col)
			if !ok {
				m.tel.LogWarn("dropping row with invalid date", "row", rowIdx, "date", col)
				m.droppedRows.Add(1)
				return nil
			}

			sample.Time = ts
			dateFound = true

		case csvColumnKindValue:
			if v, err := strconv.ParseFloat(col, 64); err == nil {
				sample.Value = v
			}

		case csvColumnKindName:
			sample.Name = col

		case csvColumnKindType:
			sample.Type = col

		default:
			name := strings.TrimSpace(m.header[i])
			sample.Meta[name] = col

			if v, err := strconv.ParseFloat(col, 64); err == nil {
				sample.Fields[name] = v
			}
		}
	}

	if !dateFound {
		m.tel.LogWarn("dropping row without date", "row", rowIdx)
		m.droppedRows.Add(1)
		return nil
	}

	return sample
}

func (m *csvSampleMapper) parseDate(col string) (time.Time, bool) {
	if col == "" {
		return time.Time{}, false
	}

	for _, layout := range m.cfg.DateLayouts {
		if ts, err := time.ParseInLocation(layout, col, m.cfg.Location); err == nil {
			return ts, true
		}
	}

	return time.Time{}, false
}

//////////////
//  SOURCE  //
//////////////

type csvMetrics struct {
	loadedRows  atomic.Int64
	droppedRows atomic.Int64
}

func (cm *csvMetrics) init(tel *internal.Telemetry) {
	tel.NewCounter("loaded_rows", func() int64 { return cm.loadedRows.Load() })
	tel.NewCounter("dropped_rows", func() int64 { return cm.droppedRows.Load() })
}

// decodeSamples decodes CSV data into samples.
// The first row is the header.
func decodeSamples(ctx context.Context, tel *internal.Telemetry, cfg *CSVConfig, metrics *csvMetrics, data []byte) ([]*timeline.Sample, error) {
	_, span := tel.NewTrace(ctx, "decode samples")
	defer span.End()

	rows, err := newCSVDecoder(cfg.Comma).decode(data)
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, cfg.IDField)
	}

	mapper, err := newCSVSampleMapper(tel, cfg, rows[0], &metrics.droppedRows)
	if err != nil {
		return nil, err
	}

	samples := make([]*timeline.Sample, 0, len(rows)-1)
	for i, row := range rows[1:] {
		sample := mapper.mapRow(row, i+1)
		if sample == nil {
			continue
		}

		samples = append(samples, sample)
	}

	metrics.loadedRows.Add(int64(len(samples)))

	span.SetAttributes(
		attribute.Int("rows", len(rows)-1),
		attribute.Int("samples", len(samples)),
	)

	return samples, nil
}

var _ DataSource = (*CSVReaderSource)(nil)

// CSVReaderSource reads samples from an io.Reader.
type CSVReaderSource struct {
	tel *internal.Telemetry

	cfg *CSVConfig

	reader io.Reader

	metrics *csvMetrics
}

// NewCSVReaderSource returns a new CSV source reading from r.
func NewCSVReaderSource(r io.Reader, cfg *CSVConfig) *CSVReaderSource {
	src := &CSVReaderSource{
		tel: internal.NewTelemetry("ingress", "csv_reader"),

		cfg: cfg,

		reader: r,

		metrics: &csvMetrics{},
	}

	src.metrics.init(src.tel)

	return src
}

// Name returns the name of the source.
func (s *CSVReaderSource) Name() string {
	return "csv_reader"
}

// Load reads every sample from the reader.
func (s *CSVReaderSource) Load(ctx context.Context) ([]*timeline.Sample, error) {
	data, err := io.ReadAll(s.reader)
	if err != nil {
		return nil, err
	}

	return decodeSamples(ctx, s.tel, s.cfg, s.metrics, data)
}
