package barrace

import (
	"context"
	"image"
	"image/color"
	"math"
	"strings"
	"testing"
	"time"

	barcolor "github.com/FerroO2000/barrace/color"
	"github.com/FerroO2000/barrace/frame"
	"github.com/FerroO2000/barrace/ingress"
	"github.com/FerroO2000/barrace/timeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func newRaceSamples() []*timeline.Sample {
	return []*timeline.Sample{
		{ID: "A", Time: date(2020, 1, 1), Value: 10},
		{ID: "A", Time: date(2020, 2, 1), Value: 20},
		{ID: "B", Time: date(2020, 1, 1), Value: 5},
		{ID: "B", Time: date(2020, 2, 1), Value: 30},
	}
}

func solidImage(c color.NRGBA) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := range 4 {
		for x := range 4 {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

type recordSnapshot struct {
	id    string
	value float64
	rank  int
	pos   float64
	alpha float64
}

func snapshot(frames []*frame.Frame) [][]recordSnapshot {
	res := make([][]recordSnapshot, 0, len(frames))
	for _, f := range frames {
		recs := make([]recordSnapshot, 0, f.Len())
		for _, rec := range f.Records {
			recs = append(recs, recordSnapshot{
				id:    rec.ID(),
				value: rec.Value,
				rank:  rec.Rank,
				pos:   rec.Pos,
				alpha: rec.Alpha,
			})
		}
		res = append(res, recs)
	}
	return res
}

func Test_Pipeline_overtake(t *testing.T) {
	assert := assert.New(t)

	p := NewPipeline(NewConfig())

	res, err := p.Run(t.Context(), newRaceSamples())
	require.NoError(t, err)

	tl := res.Timeline
	assert.Equal(2, tl.KeyFramesCount())
	assert.Equal(31*24*time.Hour, tl.Delta)
	assert.Equal(30, tl.TotalFrames)

	// 30 animation frames, then one interval of hold frames
	assert.Len(res.Frames, 60)

	first := res.Frames[0]
	a0, ok := first.Lookup(0)
	require.True(t, ok)
	b0, ok := first.Lookup(1)
	require.True(t, ok)

	assert.Equal(0, a0.Rank)
	assert.Equal(1, b0.Rank)
	assert.Less(a0.Pos, b0.Pos)

	last := res.Frames[len(res.Frames)-1]
	aN, ok := last.Lookup(0)
	require.True(t, ok)
	bN, ok := last.Lookup(1)
	require.True(t, ok)

	assert.Equal(0, bN.Rank)
	assert.Equal(1, aN.Rank)
	assert.Less(bN.Pos, aN.Pos)
	assert.InDelta(0, bN.Pos, 1e-9)
	assert.InDelta(1, aN.Pos, 1e-9)

	// The last keyframe itself is not expanded
	assert.InDelta(5+25*29.0/30, res.Extremes.Max, 1e-9)
	assert.Equal(5.0, res.Extremes.Min)

	assert.Equal(map[string]string{"A": "#27C", "B": "#FB0"}, res.Colors)

	assert.True(date(2020, 1, 1).Equal(res.FrameTime(0)))
	assert.True(date(2020, 2, 1).Equal(res.FrameTime(59)))

	assert.Equal(1, res.Axis.KeyFramesCount())
	cf := res.Axis.CrossFade(0)
	assert.Equal(1.0, cf.MainAlpha)
}

func Test_Pipeline_idempotent(t *testing.T) {
	assert := assert.New(t)

	p := NewPipeline(NewConfig())

	first, err := p.Run(t.Context(), newRaceSamples())
	require.NoError(t, err)

	second, err := p.Run(t.Context(), newRaceSamples())
	require.NoError(t, err)

	assert.Equal(snapshot(first.Frames), snapshot(second.Frames))
	assert.Equal(first.Colors, second.Colors)
}

func Test_Pipeline_images(t *testing.T) {
	assert := assert.New(t)

	extractor := barcolor.NewPixelExtractor(map[string]image.Image{
		"b.png": solidImage(color.NRGBA{R: 200, G: 10, B: 10, A: 255}),
	})

	p := NewPipeline(NewConfig(),
		WithExtractor(extractor),
		WithImages(map[string]string{
			"B": "b.png",
			"C": "missing.png",
		}),
	)

	samples := append(newRaceSamples(),
		&timeline.Sample{ID: "C", Time: date(2020, 1, 1), Value: 1},
		&timeline.Sample{ID: "C", Time: date(2020, 2, 1), Value: 2},
	)

	res, err := p.Run(t.Context(), samples)
	require.NoError(t, err)

	// Keys with an image never take a palette color
	assert.Equal(map[string]string{"A": "#27C", "B": "#c80a0a"}, res.Colors)

	c, ok := res.Frames[0].Lookup(2)
	require.True(t, ok)
	_, ok = res.Color(c)
	assert.False(ok)
}

func Test_Pipeline_colorKey(t *testing.T) {
	assert := assert.New(t)

	cfg := NewConfig()
	cfg.ColorKey = func(sample *timeline.Sample, meta ingress.Metadata) string {
		return meta.Get(sample.ID, "continent")
	}

	meta := ingress.Metadata{
		"A": {"continent": "Europe"},
		"B": {"continent": "Europe"},
	}

	res, err := NewPipeline(cfg, WithMetadata(meta)).Run(t.Context(), newRaceSamples())
	require.NoError(t, err)

	assert.Equal(map[string]string{"Europe": "#27C"}, res.Colors)

	scene := res.Scene()
	b, ok := res.Frames[0].Lookup(1)
	require.True(t, ok)
	assert.Equal("Europe", scene.ColorKey(b))
}

func Test_Pipeline_degenerate(t *testing.T) {
	assert := assert.New(t)

	samples := []*timeline.Sample{
		{ID: "A", Time: date(2020, 1, 1), Value: 10},
	}

	_, err := NewPipeline(NewConfig()).Run(t.Context(), samples)

	var degErr *timeline.DegenerateTimelineError
	assert.ErrorAs(err, &degErr)
}

func Test_Pipeline_Load(t *testing.T) {
	assert := assert.New(t)

	data := "id,name,date,value\n" +
		"A,Alpha,2020-01-01,10\n" +
		"A,Alpha,2020-02-01,20\n" +
		"B,Beta,2020-01-01,5\n" +
		"B,Beta,2020-02-01,30\n"

	cfg := NewConfig()
	cfg.CSV.Location = time.UTC

	p := NewPipeline(cfg)

	samples, err := p.Load(t.Context(), ingress.NewCSVReaderSource(strings.NewReader(data), cfg.CSV))
	require.NoError(t, err)
	assert.Len(samples, 4)

	res, err := p.Run(t.Context(), samples)
	require.NoError(t, err)
	assert.Equal(30, res.Timeline.TotalFrames)

	_, err = p.Load(t.Context(), ingress.NewCSVReaderSource(strings.NewReader("name,value\nA,1\n"), cfg.CSV))
	assert.ErrorIs(err, ingress.ErrMissingColumn)
}

func collectSums(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()

	rm := metricdata.ResourceMetrics{}
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok || len(sum.DataPoints) == 0 {
				continue
			}
			sums[m.Name] = sum.DataPoints[0].Value
		}
	}

	return sums
}

func Test_Pipeline_metrics(t *testing.T) {
	assert := assert.New(t)

	reader := sdkmetric.NewManualReader()
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))

	p := NewPipeline(NewConfig())

	counters := []string{
		"pipeline_barrace_runs",
		"processor_expander_emitted_records",
		"processor_ranker_ranked_records",
		"processor_smoother_held_frames",
	}

	before := collectSums(t, reader)

	_, err := p.Run(t.Context(), newRaceSamples())
	require.NoError(t, err)

	once := collectSums(t, reader)

	for range 4 {
		_, err := p.Run(t.Context(), newRaceSamples())
		require.NoError(t, err)
	}

	after := collectSums(t, reader)

	// The counters accumulate across runs
	for _, name := range counters {
		perRun := once[name] - before[name]
		assert.Positive(perRun, name)
		assert.Equal(5*perRun, after[name]-before[name], name)
	}

	assert.Equal(int64(0), after["pipeline_barrace_active_extractions"])
}

func Test_Config_Validate(t *testing.T) {
	assert := assert.New(t)

	cfg := &Config{
		FrameRate: -1,
		Interval:  math.NaN(),
		Sort:      3,
	}

	p := NewPipeline(cfg)
	got := p.Config()

	assert.Equal(DefaultConfigFrameRate, got.FrameRate)
	assert.Equal(DefaultConfigInterval, got.Interval)
	assert.Equal(DefaultConfigSort, got.Sort)
	assert.Equal(DefaultConfigItemCount, got.ItemCount)
	assert.Equal(barcolor.DefaultPalette, got.Palette)
	assert.NotNil(got.CSV)
	assert.NotNil(got.Render)
	assert.NotNil(got.ColorKey)
	assert.NotNil(got.ValueFormat)
}

func Benchmark_Pipeline_Run(b *testing.B) {
	samples := make([]*timeline.Sample, 0, 50*24)
	for ent := range 50 {
		for month := range 24 {
			samples = append(samples, &timeline.Sample{
				ID:    string(rune('A'+ent%26)) + string(rune('a'+ent/26)),
				Time:  date(2020+month/12, time.Month(month%12+1), 1),
				Value: float64((ent*37+month*11)%100 + 1),
			})
		}
	}

	p := NewPipeline(NewConfig())
	ctx := context.Background()

	for b.Loop() {
		if _, err := p.Run(ctx, samples); err != nil {
			b.Fatal(err)
		}
	}
}
