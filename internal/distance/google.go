package distance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"spatial-allocator/internal/models"
)

// Defaults and quota limits for the Google Distance Matrix API. The standard
// quota caps a request at 100 elements and 25 origins or destinations, and
// rate-limits elements per second, hence the pacing delay between requests.
const (
	DefaultGoogleEndpoint = "https://maps.googleapis.com/maps/api/distancematrix/json"
	DefaultGooglePace     = time.Second

	googleMaxElements = 100
	googleMaxSide     = 25
	googleDenseChunk  = 10
)

// GoogleConfig configures the Google Distance Matrix metric. APIKey is
// mandatory. Pace is the delay after each request (tests inject a small one);
// Endpoint overrides the API URL for tests.
type GoogleConfig struct {
	APIKey     string
	ByDistance bool // report meters instead of seconds
	Pace       time.Duration
	Endpoint   string
	Client     *http.Client
}

type googleMetric struct {
	cfg GoogleConfig
}

// NewGoogle returns the commercial road-network metric. A missing API key is
// a configuration error reported before any request is made. Unroutable pairs
// are encoded as the Unreachable sentinel, not an error.
func NewGoogle(cfg GoogleConfig) (Metric, error) {
	if cfg.APIKey == "" {
		return nil, &ErrMetricUnavailable{Metric: MetricGoogle, Reason: "missing API key"}
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultGoogleEndpoint
	}
	if cfg.Pace == 0 {
		cfg.Pace = DefaultGooglePace
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 30 * time.Second}
	}
	return &googleMetric{cfg: cfg}, nil
}

func (m *googleMetric) Name() string { return MetricGoogle }

func (m *googleMetric) Matrix(ctx context.Context, src, dst []models.Point) (Matrix, error) {
	src, dst = normalize(src, dst)
	out := NewMatrix(len(src), len(dst))
	if len(src) == 0 || len(dst) == 0 {
		return out, nil
	}

	// Two quota regimes: over 100 elements per request forces small chunks on
	// both sides; under that, only sides above 25 origins/destinations split.
	var srcSize, dstSize int
	if len(src)*len(dst) > googleMaxElements {
		srcSize, dstSize = googleDenseChunk, googleDenseChunk
	} else {
		srcSize, dstSize = googleMaxSide, googleMaxSide
	}

	srcChunks := chunkSpans(len(src), srcSize)
	dstChunks := chunkSpans(len(dst), dstSize)
	requests := 0
	for si, sc := range srcChunks {
		for di, dc := range dstChunks {
			block, err := m.fetchBlock(ctx, src[sc.lo:sc.hi], dst[dc.lo:dc.hi])
			if err != nil {
				log.Printf("[ERROR] Google matrix request failed: chunk=%d/%d err=%v", si, di, err)
				return nil, &ErrMatrixRequestFailed{Metric: MetricGoogle, SrcChunk: si, DstChunk: di, Reason: err.Error()}
			}
			for i := range block {
				copy(out[sc.lo+i][dc.lo:dc.hi], block[i])
			}
			requests++

			// Strictly sequential, one request per pacing interval.
			select {
			case <-ctx.Done():
				return nil, &ErrMatrixRequestFailed{Metric: MetricGoogle, SrcChunk: si, DstChunk: di, Reason: ctx.Err().Error()}
			case <-time.After(m.cfg.Pace):
			}
		}
	}
	log.Printf("[GOOGLE] Distance matrix complete: elements=%d requests=%d", len(src)*len(dst), requests)
	return out, nil
}

type googleMatrixResponse struct {
	Status string `json:"status"`
	Rows   []struct {
		Elements []struct {
			Status   string `json:"status"`
			Duration struct {
				Value float64 `json:"value"`
			} `json:"duration"`
			Distance struct {
				Value float64 `json:"value"`
			} `json:"distance"`
		} `json:"elements"`
	} `json:"rows"`
	ErrorMessage string `json:"error_message"`
}

func (m *googleMetric) fetchBlock(ctx context.Context, src, dst []models.Point) ([][]float64, error) {
	origins := make([]string, len(src))
	for i, p := range src {
		origins[i] = fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lon)
	}
	destinations := make([]string, len(dst))
	for i, p := range dst {
		destinations[i] = fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lon)
	}

	params := url.Values{}
	params.Set("origins", strings.Join(origins, "|"))
	params.Set("destinations", strings.Join(destinations, "|"))
	params.Set("key", m.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.cfg.Endpoint+"?"+params.Encode(), nil)
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

	var matrix googleMatrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&matrix); err != nil {
		return nil, err
	}
	if matrix.Status != "OK" {
		if matrix.ErrorMessage != "" {
			return nil, fmt.Errorf("Google error: %s (%s)", matrix.Status, matrix.ErrorMessage)
		}
		return nil, fmt.Errorf("Google error: %s", matrix.Status)
	}
	if len(matrix.Rows) != len(src) {
		return nil, fmt.Errorf("unexpected response shape: got %d rows, want %d", len(matrix.Rows), len(src))
	}

	block := make([][]float64, len(src))
	for i, row := range matrix.Rows {
		if len(row.Elements) != len(dst) {
			return nil, fmt.Errorf("unexpected response shape: row %d has %d elements, want %d", i, len(row.Elements), len(dst))
		}
		block[i] = make([]float64, len(dst))
		for j, el := range row.Elements {
			if el.Status != "OK" {
				block[i][j] = Unreachable
				continue
			}
			if m.cfg.ByDistance {
				block[i][j] = el.Distance.Value
			} else {
				block[i][j] = el.Duration.Value
			}
		}
	}
	return block, nil
}
