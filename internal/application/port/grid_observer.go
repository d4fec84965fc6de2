package port

import "time"

// GridObserver receives instrumentation events from the grid use cases.
type GridObserver interface {
	// ObserveGridBuild records one grid build; cached reports a cache hit.
	ObserveGridBuild(scope string, cells int, cached bool, duration time.Duration, err error)

	// ObserveIngest records an ingested evaluation by its overall result.
	ObserveIngest(result string, err error)

	// ObserveRender records a rendered heatmap.
	ObserveRender(format string, bytes int, duration time.Duration, err error)
}

// NopGridObserver discards all events.
type NopGridObserver struct{}

func (NopGridObserver) ObserveGridBuild(string, int, bool, time.Duration, error) {}
func (NopGridObserver) ObserveIngest(string, error)                              {}
func (NopGridObserver) ObserveRender(string, int, time.Duration, error)          {}
