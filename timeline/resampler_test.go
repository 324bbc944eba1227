package timeline

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func newSample(id string, ts time.Time, value float64) *Sample {
	return &Sample{ID: id, Name: id, Time: ts, Value: value}
}

func newTestResampler() *Resampler {
	return NewResampler(&ResamplerConfig{FrameRate: 30, Interval: 1})
}

func Test_Resampler_twoEntities(t *testing.T) {
	assert := assert.New(t)

	samples := []*Sample{
		newSample("A", date(2020, 1, 1), 10),
		newSample("A", date(2020, 2, 1), 20),
		newSample("B", date(2020, 1, 1), 5),
		newSample("B", date(2020, 2, 1), 30),
	}

	tl, err := newTestResampler().Resample(t.Context(), samples)
	require.NoError(t, err)

	assert.Equal(2, tl.KeyFramesCount())
	assert.Equal(31*24*time.Hour, tl.Delta)
	assert.Equal(30, tl.FramesPerInterval)
	assert.Equal((tl.KeyFramesCount()-1)*30, tl.TotalFrames)

	assert.Len(tl.Series, 2)
	assert.Equal("A", tl.Series[0].Entity.ID)
	assert.Equal(10.0, tl.Series[0].Points[0].Value)
	assert.Equal(20.0, tl.Series[0].Points[1].Value)
	assert.Equal(30.0, tl.Series[1].Points[1].Value)

	assert.Equal(0.0, tl.FrameIndex(date(2020, 1, 1)))
	assert.Equal(30.0, tl.FrameIndex(date(2020, 2, 1)))
	assert.Equal(30.0, tl.FrameIndex(date(2021, 1, 1)))
	assert.True(date(2020, 2, 1).Equal(tl.FrameTime(30)))

	assert.Equal([]int{0}, tl.KeyFrames())
}

func Test_Resampler_totalFrames(t *testing.T) {
	assert := assert.New(t)

	samples := []*Sample{
		newSample("A", date(2000, 1, 1), 1),
		newSample("A", date(2000, 1, 3), 2),
		newSample("B", date(2000, 1, 2), 3),
		newSample("B", date(2000, 1, 5), 4),
	}

	for _, cfg := range []*ResamplerConfig{
		{FrameRate: 30, Interval: 1},
		{FrameRate: 24, Interval: 0.5},
		{FrameRate: 60, Interval: 2},
	} {
		tl, err := NewResampler(cfg).Resample(t.Context(), samples)
		assert.NoError(err)

		assert.Equal(24*time.Hour, tl.Delta)
		assert.Equal(5, tl.KeyFramesCount())
		assert.Equal((tl.KeyFramesCount()-1)*FramesPerInterval(cfg.FrameRate, cfg.Interval), tl.TotalFrames)
	}
}

func Test_Resampler_unalignedLastKeyFrame(t *testing.T) {
	assert := assert.New(t)

	samples := []*Sample{
		newSample("A", date(2020, 1, 1), 10),
		newSample("A", date(2020, 2, 1), 20),
		newSample("A", date(2020, 3, 1), 30),
		newSample("B", date(2020, 1, 1), 20),
		newSample("B", date(2020, 2, 1), 40),
		newSample("B", date(2020, 3, 1), 60),
	}

	tl, err := newTestResampler().Resample(t.Context(), samples)
	require.NoError(t, err)

	// 29 days steps from Jan 1 stop on Feb 28, Mar 1 closes the grid
	assert.Equal(29*24*time.Hour, tl.Delta)
	assert.Equal(4, tl.KeyFramesCount())
	assert.True(date(2020, 2, 28).Equal(tl.Grid[2]))
	assert.True(date(2020, 3, 1).Equal(tl.Grid[3]))
	assert.Equal(90, tl.TotalFrames)

	last := tl.KeyFramesCount() - 1
	assert.Equal(30.0, tl.Series[0].Points[last].Value)
	assert.Equal(60.0, tl.Series[1].Points[last].Value)

	assert.Equal(60.0, tl.FrameIndex(date(2020, 2, 28)))
	assert.Equal(90.0, tl.FrameIndex(date(2020, 3, 1)))
	assert.True(date(2020, 3, 1).Equal(tl.FrameTime(90)))
	assert.True(date(2020, 2, 29).Equal(tl.FrameTime(75)))
	assert.True(date(2020, 3, 1).Equal(tl.FrameTime(120)))
}

func Test_FramesPerInterval(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(30, FramesPerInterval(30, 1))
	assert.Equal(12, FramesPerInterval(24, 0.5))
	assert.Equal(17, FramesPerInterval(24, 0.7))
	assert.Equal(1, FramesPerInterval(10, 0.01))
}

func Test_Resampler_coverage(t *testing.T) {
	assert := assert.New(t)

	samples := []*Sample{
		newSample("A", date(2000, 1, 1), 10),
		newSample("A", date(2000, 1, 5), 50),
		newSample("B", date(2000, 1, 3), 7),
		newSample("B", date(2000, 1, 4), 9),
	}

	tl, err := newTestResampler().Resample(t.Context(), samples)
	require.NoError(t, err)

	assert.Equal(5, tl.KeyFramesCount())

	a := tl.Series[0]
	assert.Equal(20.0, a.Points[1].Value)
	assert.Equal(40.0, a.Points[3].Value)

	b := tl.Series[1]
	assert.False(b.Points[0].Present())
	assert.False(b.Points[1].Present())
	assert.Equal(7.0, b.Points[2].Value)
	assert.Equal(9.0, b.Points[3].Value)
	assert.False(b.Points[4].Present())

	// Data outside of the coverage is carried from the closest sample
	assert.Equal(samples[2], b.Points[0].Sample)
	assert.Equal(samples[3], b.Points[4].Sample)
}

func Test_Resampler_keyFrameDeltaOverride(t *testing.T) {
	assert := assert.New(t)

	samples := []*Sample{
		newSample("A", date(2000, 1, 1), 0),
		newSample("A", date(2000, 1, 2), 10),
		newSample("A", date(2000, 1, 5), 40),
	}

	tl, err := NewResampler(&ResamplerConfig{
		FrameRate:     10,
		Interval:      1,
		KeyFrameDelta: 12 * time.Hour,
	}).Resample(t.Context(), samples)
	require.NoError(t, err)

	assert.Equal(9, tl.KeyFramesCount())
	assert.Equal(80, tl.TotalFrames)
	assert.Equal(5.0, tl.Series[0].Points[1].Value)
}

func Test_Resampler_fields(t *testing.T) {
	assert := assert.New(t)

	samples := []*Sample{
		{ID: "A", Time: date(2000, 1, 1), Value: 1, Fields: map[string]float64{"gdp": 100, "rank": 0}},
		{ID: "A", Time: date(2000, 1, 3), Value: 3, Fields: map[string]float64{"gdp": 300, "rank": 2}},
		{ID: "B", Time: date(2000, 1, 1), Value: 2},
		{ID: "B", Time: date(2000, 1, 2), Value: 3},
		{ID: "B", Time: date(2000, 1, 3), Value: 4},
	}

	tl, err := newTestResampler().Resample(t.Context(), samples)
	require.NoError(t, err)

	assert.Equal([]string{"gdp"}, tl.Fields)

	gdp := tl.FieldIndex("gdp")
	assert.Equal(0, gdp)
	assert.Equal(-1, tl.FieldIndex("rank"))

	assert.Equal(200.0, tl.Series[0].Points[1].Fields[gdp])
	assert.True(math.IsNaN(tl.Series[1].Points[1].Fields[gdp]))
}

func Test_Resampler_singleSample(t *testing.T) {
	assert := assert.New(t)

	samples := []*Sample{
		newSample("A", date(2000, 1, 1), 1),
		newSample("A", date(2000, 1, 2), 2),
		newSample("B", date(2000, 1, 2), 5),
	}

	tl, err := newTestResampler().Resample(t.Context(), samples)
	assert.NoError(err)

	b := tl.Series[1]
	assert.False(b.Points[0].Present())
	assert.Equal(5.0, b.Points[1].Value)
}

func Test_Resampler_degenerate(t *testing.T) {
	assert := assert.New(t)

	samples := []*Sample{
		newSample("A", date(2000, 1, 1), 1),
		newSample("B", date(2000, 1, 1), 2),
	}

	_, err := newTestResampler().Resample(t.Context(), samples)

	var degErr *DegenerateTimelineError
	assert.True(errors.As(err, &degErr))
	assert.Equal(1, degErr.DistinctTimestamps)

	_, err = newTestResampler().Resample(t.Context(), nil)
	assert.ErrorAs(err, &degErr)
}

func Test_GroupEntities(t *testing.T) {
	assert := assert.New(t)

	samples := []*Sample{
		newSample("B", date(2000, 1, 2), 2),
		newSample("A", date(2000, 1, 1), 1),
		newSample("B", date(2000, 1, 1), 1),
		newSample("B", date(2000, 1, 1), 99),
	}

	entities := GroupEntities(samples)
	assert.Len(entities, 2)

	assert.Equal("B", entities[0].ID)
	assert.Equal(0, entities[0].Index)
	assert.Len(entities[0].Samples, 2)
	assert.Equal(1.0, entities[0].First().Value)
	assert.Equal(2.0, entities[0].Last().Value)

	assert.Equal("A", entities[1].ID)
	assert.Equal(1, entities[1].Index)
}
