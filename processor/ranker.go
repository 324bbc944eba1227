package processor

import (
	"context"
	"sync/atomic"

	"github.com/FerroO2000/barrace/frame"
	"github.com/FerroO2000/barrace/internal"
	"go.opentelemetry.io/otel/attribute"
)

// RankerConfig contains the parameters of the ranker.
type RankerConfig struct {
	// ItemCount is the number of visible entities.
	ItemCount int

	// Sort is the sort direction: 1 sorts by descending value,
	// -1 by ascending value.
	Sort int
}

// Ranker assigns the integer rank of every record of a frame.
type Ranker struct {
	tel *internal.Telemetry

	cfg *RankerConfig

	// Metrics
	rankedRecords   atomic.Int64
	excludedRecords atomic.Int64
}

// NewRanker returns a new ranker.
func NewRanker(cfg *RankerConfig) *Ranker {
	r := &Ranker{
		tel: internal.NewTelemetry("processor", "ranker"),

		cfg: cfg,
	}

	r.tel.NewCounter("ranked_records", func() int64 { return r.rankedRecords.Load() })
	r.tel.NewCounter("excluded_records", func() int64 { return r.excludedRecords.Load() })

	return r
}

// Compare orders two records: excluded records go last,
// the others follow the sort direction of their values.
func (r *Ranker) Compare(a, b *frame.Record) int {
	aExcl := a.Excluded()
	bExcl := b.Excluded()

	switch {
	case aExcl && bExcl:
		return 0
	case aExcl:
		return 1
	case bExcl:
		return -1
	}

	diff := float64(r.cfg.Sort) * (b.Value - a.Value)
	switch {
	case diff < 0:
		return -1
	case diff > 0:
		return 1
	default:
		return 0
	}
}

// RankFrame sorts the records of the frame and assigns their ranks.
// Excluded records get the off-screen rank.
func (r *Ranker) RankFrame(f *frame.Frame) {
	f.SortStable(r.Compare)

	offScreen := frame.OffScreenRank(r.cfg.ItemCount)

	var ranked, excluded int64
	for i := range f.Records {
		rec := &f.Records[i]

		if rec.Excluded() {
			rec.Rank = offScreen
			excluded++
			continue
		}

		rec.Rank = i
		ranked++
	}

	r.rankedRecords.Add(ranked)
	r.excludedRecords.Add(excluded)
}

// Rank ranks every frame.
func (r *Ranker) Rank(ctx context.Context, frames []*frame.Frame) {
	_, span := r.tel.NewTrace(ctx, "rank")
	defer span.End()

	for _, f := range frames {
		r.RankFrame(f)
	}

	span.SetAttributes(attribute.Int("frames", len(frames)))
}
