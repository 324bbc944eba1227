package frame

import (
	"math"
	"testing"

	"github.com/FerroO2000/barrace/timeline"
	"github.com/stretchr/testify/assert"
)

func Test_Frame(t *testing.T) {
	assert := assert.New(t)

	a := &timeline.Entity{Index: 0, ID: "A"}
	b := &timeline.Entity{Index: 1, ID: "B"}

	f := New(3)
	assert.True(math.IsNaN(f.Max))

	f.Append(Record{Entity: a, Value: 10, Fields: []float64{1}})
	f.Append(Record{Entity: b, Value: 4})
	f.Append(Record{Entity: &timeline.Entity{Index: 2, ID: "C"}, Value: math.NaN()})

	assert.Equal(10.0, f.Max)
	assert.Equal(4.0, f.Min)
	assert.Equal(3, f.Len())

	rec, ok := f.Lookup(1)
	assert.True(ok)
	assert.Equal("B", rec.ID())

	_, ok = f.Lookup(7)
	assert.False(ok)

	f.SortStable(func(x, y *Record) int {
		return x.Entity.Index - y.Entity.Index
	})
	f.SortStable(func(x, y *Record) int {
		return y.Entity.Index - x.Entity.Index
	})
	assert.Equal([]string{"C", "B", "A"}, f.IDs())

	rec, ok = f.Lookup(0)
	assert.True(ok)
	assert.Equal("A", rec.ID())

	cloned := f.Clone(9)
	assert.Equal(9, cloned.Index)
	assert.Equal(f.IDs(), cloned.IDs())

	cloned.Records[2].Fields[0] = 42
	assert.Equal(1.0, f.Records[2].Fields[0])
}

func Test_Record_Excluded(t *testing.T) {
	assert := assert.New(t)

	assert.False((&Record{State: StateNormal, Value: 1}).Excluded())
	assert.False((&Record{State: StateEntering, Value: 1}).Excluded())
	assert.True((&Record{State: StateExiting, Value: 1}).Excluded())
	assert.True((&Record{State: StateNull, Value: 1}).Excluded())
	assert.True((&Record{State: StateNormal, Value: math.NaN()}).Excluded())
}

func Test_Extremes(t *testing.T) {
	assert := assert.New(t)

	ext := NewExtremes()
	ext.Observe(&Record{Value: 5})
	ext.Observe(&Record{Value: 12})
	ext.Observe(&Record{Value: 2})
	ext.Observe(&Record{Value: 7})
	ext.Observe(&Record{Value: math.NaN()})

	assert.Equal(12.0, ext.Max)
	assert.Equal(2.0, ext.Min)
	assert.Equal(12.0, ext.MaxRecord.Value)
	assert.Equal(2.0, ext.MinRecord.Value)
}
