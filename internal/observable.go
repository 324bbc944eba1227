package internal

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/metric"
)

var (
	observablesMu sync.Mutex
	observables   = make(map[string]*observable)
)

// observable is a single instrument fed by the callbacks of every
// component reporting the same metric.
type observable struct {
	mu sync.Mutex

	monotonic bool
	callbacks map[*Telemetry]func() int64

	// released holds the last values of the closed components
	released int64
}

func getObservable(meter metric.Meter, name string, monotonic bool) (*observable, error) {
	observablesMu.Lock()
	defer observablesMu.Unlock()

	if obs, ok := observables[name]; ok {
		return obs, nil
	}

	obs := &observable{
		monotonic: monotonic,
		callbacks: make(map[*Telemetry]func() int64),
	}

	observe := metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
		o.Observe(obs.value())
		return nil
	})

	var err error
	if monotonic {
		_, err = meter.Int64ObservableCounter(name, observe)
	} else {
		_, err = meter.Int64ObservableUpDownCounter(name, observe)
	}
	if err != nil {
		return nil, err
	}

	observables[name] = obs

	return obs, nil
}

func (o *observable) add(tel *Telemetry, callback func() int64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.callbacks[tel] = callback
}

func (o *observable) release(tel *Telemetry) {
	o.mu.Lock()
	defer o.mu.Unlock()

	callback, ok := o.callbacks[tel]
	if !ok {
		return
	}

	if o.monotonic {
		o.released += callback()
	}
	delete(o.callbacks, tel)
}

func (o *observable) value() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()

	total := o.released
	for _, callback := range o.callbacks {
		total += callback()
	}

	return total
}
