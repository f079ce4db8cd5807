package pointio

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"spatial-allocator/internal/models"
)

// Column names recognised as coordinates, lower-cased. Files from different
// exporters disagree on these, so be liberal.
var (
	lonAliases = map[string]bool{
		"lon": true, "lng": true, "long": true, "longitude": true,
		"x": true, "start_lon": true, "start_lng": true, "start_long": true,
	}
	latAliases = map[string]bool{
		"lat": true, "latitude": true,
		"y": true, "start_lat": true,
	}
)

// LoadCSV reads points from a CSV file with a header row. The longitude and
// latitude columns are found by name; every other column is carried along as
// a point attribute. Rows with unparsable coordinates are skipped with a
// warning rather than failing the whole load.
func LoadCSV(path string) ([]models.Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	lonCol, latCol := -1, -1
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if lonAliases[key] && lonCol < 0 {
			lonCol = i
		}
		if latAliases[key] && latCol < 0 {
			latCol = i
		}
	}
	if lonCol < 0 || latCol < 0 {
		return nil, fmt.Errorf("no coordinate columns in header %v", header)
	}

	var points []models.Point
	skipped := 0
	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		if lonCol >= len(record) || latCol >= len(record) {
			log.Printf("[POINTIO] Skipping line %d of %s: too few fields", line, path)
			skipped++
			continue
		}
		lon, lonErr := strconv.ParseFloat(strings.TrimSpace(record[lonCol]), 64)
		lat, latErr := strconv.ParseFloat(strings.TrimSpace(record[latCol]), 64)
		if lonErr != nil || latErr != nil {
			log.Printf("[POINTIO] Skipping line %d of %s: bad coordinates", line, path)
			skipped++
			continue
		}

		p := models.Point{Lon: lon, Lat: lat}
		for i, v := range record {
			if i == lonCol || i == latCol || i >= len(header) {
				continue
			}
			if p.Attrs == nil {
				p.Attrs = make(map[string]string)
			}
			p.Attrs[header[i]] = v
		}
		points = append(points, p)
	}

	log.Printf("[POINTIO] Loaded %d points from %s (%d skipped)", len(points), path, skipped)
	return points, nil
}
