package distance

import (
	"context"
	"math"

	"spatial-allocator/internal/models"
)

// WGS84 / UTM projection constants.
const (
	utmK0 = 0.9996
	utmE  = 0.00669438
	utmR  = 6378137.0
)

var (
	utmE2  = utmE * utmE
	utmE3  = utmE2 * utmE
	utmEP2 = utmE / (1 - utmE)

	utmM1 = 1 - utmE/4 - 3*utmE2/64 - 5*utmE3/256
	utmM2 = 3*utmE/8 + 3*utmE2/32 + 45*utmE3/1024
	utmM3 = 15*utmE2/256 + 45*utmE3/1024
	utmM4 = 35 * utmE3 / 3072
)

// utmZone picks the UTM zone for a coordinate, including the Norway and
// Svalbard exceptions.
func utmZone(lat, lon float64) int {
	if 56 <= lat && lat < 64 && 3 <= lon && lon < 12 {
		return 32
	}
	if 72 <= lat && lat <= 84 && lon >= 0 {
		switch {
		case lon < 9:
			return 31
		case lon < 21:
			return 33
		case lon < 33:
			return 35
		case lon < 42:
			return 37
		}
	}
	return int((lon+180)/6) + 1
}

// latLonToUTM projects a WGS84 coordinate to UTM easting/northing in meters.
// The zone is chosen per point, so pairs straddling a zone boundary carry a
// small error; the planar metric is only locally accurate by construction.
func latLonToUTM(lat, lon float64) (x, y float64) {
	zone := utmZone(lat, lon)
	centralLon := float64((zone-1)*6 - 180 + 3)

	latRad := lat * math.Pi / 180
	lonRad := lon * math.Pi / 180
	centralRad := centralLon * math.Pi / 180

	sinLat := math.Sin(latRad)
	cosLat := math.Cos(latRad)
	tanLat := math.Tan(latRad)

	n := utmR / math.Sqrt(1-utmE*sinLat*sinLat)
	c := utmEP2 * cosLat * cosLat
	t := tanLat * tanLat

	a := cosLat * (lonRad - centralRad)
	a2 := a * a
	a3 := a2 * a
	a4 := a3 * a
	a5 := a4 * a
	a6 := a5 * a

	m := utmR * (utmM1*latRad - utmM2*math.Sin(2*latRad) +
		utmM3*math.Sin(4*latRad) - utmM4*math.Sin(6*latRad))

	x = utmK0*n*(a+a3/6*(1-t+c)+a5/120*(5-18*t+t*t+72*c-58*utmEP2)) + 500000
	y = utmK0 * (m + n*tanLat*(a2/2+a4/24*(5-t+9*c+4*c*c)+a6/720*(61-58*t+t*t+600*c-330*utmEP2)))
	if lat < 0 {
		y += 10000000
	}
	return x, y
}

type planarMetric struct{}

// NewPlanar returns the projected-Euclidean metric: each point is projected
// into its UTM zone and costs are straight-line distances in that plane, in
// meters. Raw lon/lat Euclidean distance is not metrically meaningful;
// projecting first gives locally accurate distances without a network call.
func NewPlanar() Metric { return planarMetric{} }

func (planarMetric) Name() string { return MetricEuclidean }

func (planarMetric) Matrix(_ context.Context, src, dst []models.Point) (Matrix, error) {
	src, dst = normalize(src, dst)
	out := NewMatrix(len(src), len(dst))
	if len(src) == 0 || len(dst) == 0 {
		return out, nil
	}

	sx := make([]float64, len(src))
	sy := make([]float64, len(src))
	for i, p := range src {
		sx[i], sy[i] = latLonToUTM(p.Lat, p.Lon)
	}
	dx := make([]float64, len(dst))
	dy := make([]float64, len(dst))
	for j, p := range dst {
		dx[j], dy[j] = latLonToUTM(p.Lat, p.Lon)
	}

	for i := range src {
		for j := range dst {
			out[i][j] = math.Hypot(sx[i]-dx[j], sy[i]-dy[j])
		}
	}
	return out, nil
}
