package pointio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeFile(t, "points.csv",
		"name,start_long,start_lat\n"+
			"depot,13.405,52.52\n"+
			"stop a,13.41,52.53\n")

	points, err := LoadCSV(path)
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.Equal(t, 13.405, points[0].Lon)
	assert.Equal(t, 52.52, points[0].Lat)
	assert.Equal(t, "depot", points[0].Attrs["name"])
	assert.Equal(t, "stop a", points[1].Attrs["name"])
}

func TestLoadCSVAliasColumns(t *testing.T) {
	for _, header := range []string{"lng,lat", "longitude,latitude", "x,y", "LON,LAT"} {
		path := writeFile(t, "p.csv", header+"\n1.5,2.5\n")
		points, err := LoadCSV(path)
		require.NoError(t, err, "header %q", header)
		require.Len(t, points, 1)
		assert.Equal(t, 1.5, points[0].Lon)
		assert.Equal(t, 2.5, points[0].Lat)
	}
}

func TestLoadCSVSkipsBadRows(t *testing.T) {
	path := writeFile(t, "points.csv",
		"lon,lat\n"+
			"13.4,52.5\n"+
			"not-a-number,52.5\n"+
			"13.5\n"+
			"13.6,52.6\n")

	points, err := LoadCSV(path)
	require.NoError(t, err)
	assert.Len(t, points, 2)
}

func TestLoadCSVMissingCoordinateColumns(t *testing.T) {
	path := writeFile(t, "points.csv", "name,address\na,b\n")
	_, err := LoadCSV(path)
	assert.Error(t, err)
}

func TestLoadGeoJSONFeatureCollection(t *testing.T) {
	path := writeFile(t, "points.geojson", `{
		"type": "FeatureCollection",
		"features": [
			{"type": "Feature", "geometry": {"type": "Point", "coordinates": [13.4, 52.5]},
			 "properties": {"name": "depot", "capacity": 3}},
			{"type": "Feature", "geometry": {"type": "LineString", "coordinates": []}},
			{"type": "Feature", "geometry": {"type": "Point", "coordinates": [13.5, 52.6]}}
		]
	}`)

	points, err := LoadGeoJSON(path)
	require.NoError(t, err)
	require.Len(t, points, 2, "non-point features are skipped")

	assert.Equal(t, 13.4, points[0].Lon)
	assert.Equal(t, 52.5, points[0].Lat)
	assert.Equal(t, "depot", points[0].Attrs["name"])
	assert.Equal(t, "3", points[0].Attrs["capacity"], "numeric properties flatten to strings")
	assert.Nil(t, points[1].Attrs)
}

func TestLoadGeoJSONBareGeometry(t *testing.T) {
	path := writeFile(t, "point.json", `{"type": "Point", "coordinates": [1.0, 2.0]}`)
	points, err := LoadGeoJSON(path)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 1.0, points[0].Lon)
	assert.Equal(t, 2.0, points[0].Lat)
}

func TestLoadDispatchesOnExtension(t *testing.T) {
	csvPath := writeFile(t, "points.csv", "lon,lat\n1,2\n")
	points, err := Load(csvPath)
	require.NoError(t, err)
	assert.Len(t, points, 1)

	jsonPath := writeFile(t, "points.geojson", `{"type": "Point", "coordinates": [1, 2]}`)
	points, err = Load(jsonPath)
	require.NoError(t, err)
	assert.Len(t, points, 1)

	_, err = Load("points.txt")
	assert.Error(t, err)
}
