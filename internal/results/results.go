// Package results writes allocation outputs to disk in stable formats.
package results

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"spatial-allocator/internal/models"
	"spatial-allocator/internal/tour"
)

// Run identifies one allocation run in summaries and filenames.
type Run struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Mode      string    `json:"mode"`
	Metric    string    `json:"metric"`
	K         int       `json:"k,omitempty"`
	Seed      int64     `json:"seed,omitempty"`
}

// NewRun stamps a fresh run with a unique id.
func NewRun(mode, metric string) Run {
	return Run{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Mode:      mode,
		Metric:    metric,
	}
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteAssignments writes one row per point with its 1-based id, coordinates
// and cluster label.
func WriteAssignments(path string, points []models.Point, labels []int) error {
	if len(labels) != len(points) {
		return fmt.Errorf("got %d labels for %d points", len(labels), len(points))
	}
	rows := make([][]string, 0, len(points)+1)
	rows = append(rows, []string{"id", "lon", "lat", "cluster"})
	for i, p := range points {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			formatCoord(p.Lon),
			formatCoord(p.Lat),
			strconv.Itoa(labels[i]),
		})
	}
	return writeCSV(path, rows)
}

// WriteCentroids writes cluster centroids, one row per cluster in label order.
func WriteCentroids(path string, centroids []models.Point) error {
	rows := make([][]string, 0, len(centroids)+1)
	rows = append(rows, []string{"cluster", "lon", "lat"})
	for i, c := range centroids {
		rows = append(rows, []string{
			strconv.Itoa(i),
			formatCoord(c.Lon),
			formatCoord(c.Lat),
		})
	}
	return writeCSV(path, rows)
}

// WriteTour writes the visiting order of a closed tour, one row per stop
// including the final return to the start.
func WriteTour(path string, points []models.Point, t *tour.Tour) error {
	rows := make([][]string, 0, len(t.Order)+1)
	rows = append(rows, []string{"seq", "id", "lon", "lat"})
	for seq, idx := range t.Order {
		if idx < 0 || idx >= len(points) {
			return fmt.Errorf("tour stop %d out of range", idx)
		}
		p := points[idx]
		rows = append(rows, []string{
			strconv.Itoa(seq),
			strconv.Itoa(idx + 1),
			formatCoord(p.Lon),
			formatCoord(p.Lat),
		})
	}
	return writeCSV(path, rows)
}

// WriteSummary writes an indented JSON document, typically the Run plus the
// mode-specific payload.
func WriteSummary(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
