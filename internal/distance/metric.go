package distance

import (
	"context"
	"fmt"

	"spatial-allocator/internal/models"
)

// Metric names accepted by New.
const (
	MetricEuclidean = "euclidean"
	MetricHaversine = "haversine"
	MetricOSRM      = "osrm"
	MetricGoogle    = "google"
)

// Metric computes a cost matrix between two point sets. A nil destination set
// means "destinations = sources". Implementations must return a zero-sized
// matrix for empty inputs without touching the underlying backend.
type Metric interface {
	Name() string
	Matrix(ctx context.Context, src, dst []models.Point) (Matrix, error)
}

// Options carries the per-backend configuration used by New.
type Options struct {
	OSRM   OSRMConfig
	Google GoogleConfig
}

// New returns the metric registered under name. Configuration problems, such
// as a missing Google API key, surface here before any network call.
func New(name string, opts Options) (Metric, error) {
	switch name {
	case MetricEuclidean:
		return NewPlanar(), nil
	case MetricHaversine:
		return NewGreatCircle(), nil
	case MetricOSRM:
		return NewOSRM(opts.OSRM), nil
	case MetricGoogle:
		return NewGoogle(opts.Google)
	}
	return nil, fmt.Errorf("unknown distance metric %q", name)
}

// normalize applies the dst-defaults-to-src rule shared by all metrics.
func normalize(src, dst []models.Point) ([]models.Point, []models.Point) {
	if dst == nil {
		dst = src
	}
	return src, dst
}

// span is a half-open index range covered by one chunked request.
type span struct {
	lo, hi int
}

// chunkSpans splits [0, n) into contiguous spans of at most size entries.
func chunkSpans(n, size int) []span {
	spans := make([]span, 0, (n+size-1)/size)
	for lo := 0; lo < n; lo += size {
		hi := lo + size
		if hi > n {
			hi = n
		}
		spans = append(spans, span{lo: lo, hi: hi})
	}
	return spans
}
