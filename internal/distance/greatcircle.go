package distance

import (
	"context"
	"math"

	"spatial-allocator/internal/models"
)

// earthRadiusM is the IUGG mean earth radius in meters.
const earthRadiusM = 6371008.8

type greatCircleMetric struct{}

// NewGreatCircle returns the haversine great-circle metric in meters. Slower
// per pair than the planar metric but valid at any separation.
func NewGreatCircle() Metric { return greatCircleMetric{} }

func (greatCircleMetric) Name() string { return MetricHaversine }

func (greatCircleMetric) Matrix(_ context.Context, src, dst []models.Point) (Matrix, error) {
	src, dst = normalize(src, dst)
	out := NewMatrix(len(src), len(dst))
	for i := range src {
		for j := range dst {
			out[i][j] = haversineM(src[i], dst[j])
		}
	}
	return out, nil
}

func haversineM(a, b models.Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	return 2 * earthRadiusM * math.Asin(math.Sqrt(h))
}
