package ingress

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/FerroO2000/barrace/internal"
	"github.com/FerroO2000/barrace/internal/config"
	"github.com/FerroO2000/barrace/timeline"
	"github.com/fsnotify/fsnotify"
)

///////////////////
//  FILE SOURCE  //
///////////////////

var _ DataSource = (*CSVFileSource)(nil)

// CSVFileSource reads samples from a CSV file.
type CSVFileSource struct {
	tel *internal.Telemetry

	cfg *CSVConfig

	path string

	metrics *csvMetrics
}

// NewCSVFileSource returns a new CSV source reading the file at path.
func NewCSVFileSource(path string, cfg *CSVConfig) *CSVFileSource {
	src := &CSVFileSource{
		tel: internal.NewTelemetry("ingress", "csv_file"),

		cfg: cfg,

		path: path,

		metrics: &csvMetrics{},
	}

	src.metrics.init(src.tel)

	return src
}

// Name returns the name of the source.
func (s *CSVFileSource) Name() string {
	return "csv_file"
}

// Path returns the path of the file.
func (s *CSVFileSource) Path() string {
	return s.path
}

// Load reads every sample of the file.
func (s *CSVFileSource) Load(ctx context.Context) ([]*timeline.Sample, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}

	s.tel.LogDebug("file read", "path", s.path, "bytes", len(data))

	return decodeSamples(ctx, s.tel, s.cfg, s.metrics, data)
}

///////////////
//  WATCHER  //
///////////////

// Default values for the watcher configuration.
const (
	DefaultWatcherConfigDebounce = 500 * time.Millisecond

	minWatcherDebounce = 10 * time.Millisecond
)

// WatcherConfig contains the configuration of the file watcher.
type WatcherConfig struct {
	// Debounce is the quiet period after the last change
	// before the callback is invoked. It is useful to collapse
	// the bursts of events fired while a file is being written.
	Debounce time.Duration
}

// NewWatcherConfig returns the default configuration of the file watcher.
func NewWatcherConfig() *WatcherConfig {
	return &WatcherConfig{
		Debounce: DefaultWatcherConfigDebounce,
	}
}

// Validate checks the configuration.
func (c *WatcherConfig) Validate(ac *config.AnomalyCollector) {
	config.CheckNotLower(ac, "Debounce", &c.Debounce, minWatcherDebounce)
}

// Watcher notifies the changes of a file.
type Watcher struct {
	tel *internal.Telemetry

	cfg *WatcherConfig

	path string

	watcher *fsnotify.Watcher

	// Metrics
	changes atomic.Int64
}

// NewWatcher returns a new watcher of the file at path.
// The parent directory is watched, so the file may be
// removed and created again.
func NewWatcher(path string, cfg *WatcherConfig) (*Watcher, error) {
	tel := internal.NewTelemetry("ingress", "watcher")
	config.NewValidator(tel).Validate(cfg)

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return nil, err
	}

	w := &Watcher{
		tel: tel,

		cfg: cfg,

		path: absPath,

		watcher: watcher,
	}

	w.tel.NewCounter("changes", func() int64 { return w.changes.Load() })

	return w, nil
}

// Run invokes onChange after every change of the file,
// until the context is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context)) {
	w.tel.LogInfo("watching file", "path", w.path)

	timer := time.NewTimer(w.cfg.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if !w.isRelevant(event) {
				continue
			}

			timer.Reset(w.cfg.Debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}

			w.tel.LogError("watcher error", err)

		case <-timer.C:
			w.changes.Add(1)
			w.tel.LogInfo("file changed", "path", w.path)

			onChange(ctx)
		}
	}
}

func (w *Watcher) isRelevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}

	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write)
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.tel.Close()
	return w.watcher.Close()
}
