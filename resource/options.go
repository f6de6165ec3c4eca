package resource

import (
	"time"

	"go.uber.org/zap"
)

// Metrics exposes manager-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
type Metrics interface {
	// Hit is called when Load finds a resident entry.
	Hit()
	// Miss is called when Load has to invoke the loader.
	Miss()
	// LoadDone reports the duration and outcome of one loader call.
	LoadDone(d time.Duration, err error)
	// Size reports the number of resident entries after a change.
	Size(entries int)
}

// Options configures a Manager. Zero values are safe;
// defaults are applied in New/NewKeyed:
//   - nil Logger  => zap.NewNop()
//   - nil Metrics => NoopMetrics
//   - nil Clock   => time.Now
//
// Managers wrapped with Guard call Logger and Metrics from several
// goroutines; both must then be safe for concurrent use.
type Options struct {
	// Logger receives Debug records for hits/misses and Warn records for
	// failed loads.
	Logger *zap.Logger

	// Metrics receives Hit/Miss/LoadDone/Size signals.
	Metrics Metrics

	// Clock is used to time loader calls (tests).
	Clock func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Metrics == nil {
		o.Metrics = NoopMetrics{}
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}
