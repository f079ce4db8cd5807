package pointio

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"spatial-allocator/internal/models"
)

type geoJSONFile struct {
	Type     string           `json:"type"`
	Features []geoJSONFeature `json:"features"`
	// Bare geometry documents.
	Coordinates []float64 `json:"coordinates"`
}

type geoJSONFeature struct {
	Type     string          `json:"type"`
	Geometry geoJSONGeometry `json:"geometry"`
	// Properties values may be any JSON type; they are flattened to strings.
	Properties map[string]any `json:"properties"`
}

type geoJSONGeometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// LoadGeoJSON reads points from a GeoJSON file: a FeatureCollection of Point
// features, a single Feature, or a bare Point geometry. Non-point features
// are skipped with a warning. Feature properties become point attributes.
func LoadGeoJSON(path string) ([]models.Point, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc geoJSONFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	var features []geoJSONFeature
	switch doc.Type {
	case "FeatureCollection":
		features = doc.Features
	case "Feature":
		var f geoJSONFeature
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		features = []geoJSONFeature{f}
	case "Point":
		features = []geoJSONFeature{{
			Type:     "Feature",
			Geometry: geoJSONGeometry{Type: "Point", Coordinates: doc.Coordinates},
		}}
	default:
		return nil, fmt.Errorf("unsupported GeoJSON type %q in %s", doc.Type, path)
	}

	var points []models.Point
	skipped := 0
	for i, f := range features {
		if f.Geometry.Type != "Point" || len(f.Geometry.Coordinates) < 2 {
			log.Printf("[POINTIO] Skipping feature %d of %s: not a point", i, path)
			skipped++
			continue
		}
		p := models.Point{
			Lon: f.Geometry.Coordinates[0],
			Lat: f.Geometry.Coordinates[1],
		}
		for k, v := range f.Properties {
			if p.Attrs == nil {
				p.Attrs = make(map[string]string)
			}
			p.Attrs[k] = fmt.Sprint(v)
		}
		points = append(points, p)
	}

	log.Printf("[POINTIO] Loaded %d points from %s (%d skipped)", len(points), path, skipped)
	return points, nil
}
