package distance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"spatial-allocator/internal/cache"
	"spatial-allocator/internal/models"
)

// Defaults for the public OSRM server.
const (
	DefaultOSRMBaseURL  = "https://router.project-osrm.org"
	DefaultMaxTableSize = 100
)

// OSRMConfig configures the OSRM table-service metric. The zero value targets
// the public server with the default table size and duration costs.
type OSRMConfig struct {
	BaseURL      string
	MaxTableSize int  // per-side chunk size: at most this many origins and destinations per request
	ByDistance   bool // request meters instead of seconds
	Client       *http.Client
	Cache        cache.PairCache // optional persistent pair cache
}

type osrmMetric struct {
	cfg OSRMConfig
}

// NewOSRM returns the road-network metric backed by an OSRM /table service.
// Costs are directional travel durations in seconds (or distances in meters
// with ByDistance set), so the matrix is generally asymmetric.
func NewOSRM(cfg OSRMConfig) Metric {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOSRMBaseURL
	}
	if cfg.MaxTableSize <= 0 {
		cfg.MaxTableSize = DefaultMaxTableSize
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 30 * time.Second}
	}
	return &osrmMetric{cfg: cfg}
}

func (m *osrmMetric) Name() string { return MetricOSRM }

func (m *osrmMetric) annotation() string {
	if m.cfg.ByDistance {
		return "distance"
	}
	return "duration"
}

func (m *osrmMetric) cacheName() string {
	return MetricOSRM + "-" + m.annotation()
}

func (m *osrmMetric) Matrix(ctx context.Context, src, dst []models.Point) (Matrix, error) {
	src, dst = normalize(src, dst)
	out := NewMatrix(len(src), len(dst))
	if len(src) == 0 || len(dst) == 0 {
		return out, nil
	}

	if m.cfg.Cache != nil {
		hit, err := m.fillFromCache(ctx, src, dst, out)
		if err != nil {
			return nil, err
		}
		if hit {
			log.Printf("[OSRM] Table all cached: sources=%d destinations=%d", len(src), len(dst))
			return out, nil
		}
	}

	srcChunks := chunkSpans(len(src), m.cfg.MaxTableSize)
	dstChunks := chunkSpans(len(dst), m.cfg.MaxTableSize)
	requests := 0
	for si, sc := range srcChunks {
		for di, dc := range dstChunks {
			table, err := m.fetchTable(ctx, src[sc.lo:sc.hi], dst[dc.lo:dc.hi])
			if err != nil {
				log.Printf("[ERROR] OSRM table request failed: chunk=%d/%d err=%v", si, di, err)
				return nil, &ErrMatrixRequestFailed{Metric: MetricOSRM, SrcChunk: si, DstChunk: di, Reason: err.Error()}
			}
			for i := range table {
				copy(out[sc.lo+i][dc.lo:dc.hi], table[i])
			}
			requests++
		}
	}
	log.Printf("[OSRM] Table complete: sources=%d destinations=%d requests=%d", len(src), len(dst), requests)

	if m.cfg.Cache != nil {
		if err := m.storeToCache(ctx, src, dst, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// fillFromCache populates out from the pair cache. It reports true only when
// every pair was present; on any miss the whole matrix is fetched remotely.
func (m *osrmMetric) fillFromCache(ctx context.Context, src, dst []models.Point, out Matrix) (bool, error) {
	for i := range src {
		for j := range dst {
			entry, err := m.cfg.Cache.Get(ctx, m.cacheName(), src[i], dst[j])
			if err != nil {
				return false, err
			}
			if entry == nil {
				return false, nil
			}
			out[i][j] = entry.Cost
		}
	}
	return true, nil
}

func (m *osrmMetric) storeToCache(ctx context.Context, src, dst []models.Point, out Matrix) error {
	entries := make([]cache.Entry, 0, len(src)*len(dst))
	for i := range src {
		for j := range dst {
			entries = append(entries, cache.Entry{
				Metric: m.cacheName(),
				Origin: src[i].Coordinates(),
				Dest:   dst[j].Coordinates(),
				Cost:   out[i][j],
			})
		}
	}
	return m.cfg.Cache.SetBatch(ctx, entries)
}

type osrmTableResponse struct {
	Code      string      `json:"code"`
	Durations [][]float64 `json:"durations"`
	Distances [][]float64 `json:"distances"`
}

// fetchTable issues a single /table request. The coordinate list is the
// source chunk followed by the destination chunk, with sources and
// destinations addressing their halves by position.
func (m *osrmMetric) fetchTable(ctx context.Context, src, dst []models.Point) ([][]float64, error) {
	coords := make([]string, 0, len(src)+len(dst))
	for _, p := range src {
		coords = append(coords, fmt.Sprintf("%.6f,%.6f", p.Lon, p.Lat))
	}
	for _, p := range dst {
		coords = append(coords, fmt.Sprintf("%.6f,%.6f", p.Lon, p.Lat))
	}

	sources := make([]string, len(src))
	for i := range src {
		sources[i] = strconv.Itoa(i)
	}
	destinations := make([]string, len(dst))
	for i := range dst {
		destinations[i] = strconv.Itoa(len(src) + i)
	}

	queryURL := fmt.Sprintf("%s/table/v1/driving/%s?annotations=%s&sources=%s&destinations=%s",
		m.cfg.BaseURL, strings.Join(coords, ";"), m.annotation(),
		strings.Join(sources, ";"), strings.Join(destinations, ";"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := m.cfg.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var table osrmTableResponse
	if err := json.NewDecoder(resp.Body).Decode(&table); err != nil {
		return nil, err
	}
	if table.Code != "Ok" {
		return nil, fmt.Errorf("OSRM error: %s", table.Code)
	}

	vals := table.Durations
	if m.cfg.ByDistance {
		vals = table.Distances
	}
	if len(vals) != len(src) {
		return nil, fmt.Errorf("unexpected table shape: got %d rows, want %d", len(vals), len(src))
	}
	for i := range vals {
		if len(vals[i]) != len(dst) {
			return nil, fmt.Errorf("unexpected table shape: row %d has %d cols, want %d", i, len(vals[i]), len(dst))
		}
	}
	return vals, nil
}
