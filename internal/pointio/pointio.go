// Package pointio loads point sets from CSV and GeoJSON files.
package pointio

import (
	"fmt"
	"path/filepath"
	"strings"

	"spatial-allocator/internal/models"
)

// Load reads points from path, dispatching on the file extension. CSV files
// need a header with recognisable longitude and latitude columns; GeoJSON
// files need Point features.
func Load(path string) ([]models.Point, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadCSV(path)
	case ".json", ".geojson":
		return LoadGeoJSON(path)
	}
	return nil, fmt.Errorf("unsupported point file %q: want .csv, .json or .geojson", path)
}
