// Package ingress contains the data sources of the engine.
package ingress

import (
	"context"
	"errors"

	"github.com/FerroO2000/barrace/timeline"
)

// ErrMissingColumn is returned when a required column is not in the header.
var ErrMissingColumn = errors.New("missing required column")

// DataSource produces the raw samples of a run.
type DataSource interface {
	// Name identifies the source in logs.
	Name() string

	// Load reads every sample of the source.
	Load(ctx context.Context) ([]*timeline.Sample, error)
}
