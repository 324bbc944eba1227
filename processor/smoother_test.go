package processor

import (
	"math"
	"testing"

	"github.com/FerroO2000/barrace/frame"
	"github.com/stretchr/testify/assert"
)

func Test_Despike(t *testing.T) {
	assert := assert.New(t)

	t.Run("interior spike", func(t *testing.T) {
		ranks := []float64{2, 2, 5, 2, 2}
		assert.Equal(1, Despike(ranks))
		assert.Equal([]float64{2, 2, 2, 2, 2}, ranks)
	})

	t.Run("first element", func(t *testing.T) {
		ranks := []float64{9, 3, 3}
		assert.Equal(1, Despike(ranks))
		assert.Equal([]float64{3, 3, 3}, ranks)
	})

	t.Run("missing second rank", func(t *testing.T) {
		ranks := []float64{1, math.NaN(), 4}
		assert.Equal(0, Despike(ranks))
		assert.Equal(1.0, ranks[0])
	})

	t.Run("untouched", func(t *testing.T) {
		ranks := []float64{3, 3, 3, 4, 4}
		assert.Equal(0, Despike(ranks))
		assert.Equal([]float64{3, 3, 3, 4, 4}, ranks)
	})
}

func Test_Smoother_HalfWindow(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(4, NewSmoother(&SmootherConfig{FramesPerInterval: 30}).HalfWindow())
	assert.Equal(1, NewSmoother(&SmootherConfig{FramesPerInterval: 3}).HalfWindow())
}

func Test_Smoother_SmoothRanks(t *testing.T) {
	assert := assert.New(t)

	s := NewSmoother(&SmootherConfig{FramesPerInterval: 30})

	ranks := make([]float64, 20)
	for i := 10; i < 20; i++ {
		ranks[i] = 1
	}

	pos := s.SmoothRanks(ranks)
	assert.Len(pos, 20)

	assert.Equal(0.0, pos[0])
	assert.Equal(0.5, pos[10])
	assert.Equal(1.0, pos[19])

	for i := 1; i < len(pos); i++ {
		assert.GreaterOrEqual(pos[i], pos[i-1])
	}

	constant := []float64{3, 3, 3, math.NaN(), 3}
	for _, p := range s.SmoothRanks(constant) {
		assert.Equal(3.0, p)
	}
}

func Test_Smoother_Extend(t *testing.T) {
	assert := assert.New(t)

	ents := newEntities("A")

	frames := make([]*frame.Frame, 0, 3)
	for i := range 3 {
		f := frame.New(i)
		f.Append(frame.Record{Entity: ents[0], Value: float64(i), Fields: []float64{float64(i)}})
		frames = append(frames, f)
	}

	s := NewSmoother(&SmootherConfig{FramesPerInterval: 3, Freeze: 2})
	frames = s.Extend(frames)

	assert.Len(frames, 8)
	for i, f := range frames {
		assert.Equal(i, f.Index)
	}

	held := frames[7]
	assert.Equal(2.0, held.Records[0].Value)
	assert.Equal(2.0, held.Max)

	held.Records[0].Fields[0] = 99
	assert.Equal(2.0, frames[2].Records[0].Fields[0])
}

func Test_Smoother_Smooth(t *testing.T) {
	assert := assert.New(t)

	ents := newEntities("A", "B", "C")

	bRanks := []int{1, 1, 3, 1, 1, 1}

	frames := make([]*frame.Frame, 0, len(bRanks))
	for i, bRank := range bRanks {
		f := frame.New(i)
		f.Append(frame.Record{Entity: ents[0], Rank: 0, Pos: 0.25})
		f.Append(frame.Record{Entity: ents[1], Rank: bRank})
		if i > 0 {
			f.Append(frame.Record{Entity: ents[2], Rank: 2})
		}
		frames = append(frames, f)
	}

	NewSmoother(&SmootherConfig{FramesPerInterval: 7}).Smooth(t.Context(), frames, len(ents))

	for _, f := range frames {
		a, _ := f.Lookup(0)
		assert.Equal(0.25, a.Pos)

		b, _ := f.Lookup(1)
		assert.Equal(1.0, b.Pos)

		if c, ok := f.Lookup(2); ok {
			assert.Equal(2.0, c.Pos)
		}
	}
}

func Test_RenderOrder(t *testing.T) {
	assert := assert.New(t)

	ents := newEntities("A", "B", "C")

	f0 := frame.New(0)
	f0.Append(frame.Record{Entity: ents[1], Pos: 1})
	f0.Append(frame.Record{Entity: ents[2], Pos: 2})
	f0.Append(frame.Record{Entity: ents[0], Pos: 0})

	f1 := frame.New(1)
	f1.Append(frame.Record{Entity: ents[0], Pos: 1})
	f1.Append(frame.Record{Entity: ents[1], Pos: 0})

	RenderOrder([]*frame.Frame{f0, f1})

	// B rises, C is missing from the next frame
	assert.Equal([]string{"C", "A", "B"}, f0.IDs())
	assert.Equal([]string{"A", "B"}, f1.IDs())
}

func Test_ClampAlpha(t *testing.T) {
	assert := assert.New(t)

	itemCount := 5
	ents := newEntities("A", "B", "C", "D")

	f := frame.New(0)
	f.Append(frame.Record{Entity: ents[0], Pos: float64(itemCount), Alpha: 1})
	f.Append(frame.Record{Entity: ents[1], Pos: float64(itemCount) - 0.5, Alpha: 1})
	f.Append(frame.Record{Entity: ents[2], Pos: 3, Alpha: 1})
	f.Append(frame.Record{Entity: ents[3], Pos: float64(itemCount) - 0.5, Alpha: 0.2})

	ClampAlpha([]*frame.Frame{f}, itemCount)

	assert.Equal(0.0, f.Records[0].Alpha)
	assert.Equal(0.5, f.Records[1].Alpha)
	assert.Equal(1.0, f.Records[2].Alpha)
	assert.Equal(0.2, f.Records[3].Alpha)
}
