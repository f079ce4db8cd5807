package cache

import (
	"context"
	"database/sql"
	"fmt"

	"spatial-allocator/internal/models"
)

// Entry is one cached origin→destination cost under a named metric. Remote
// metrics are directional, so (origin, dest) and (dest, origin) are distinct
// entries.
type Entry struct {
	Metric string
	Origin models.Point
	Dest   models.Point
	Cost   float64
}

// PairCache persists remote metric results between runs. Coordinates are
// matched at 5-decimal (~1m) precision.
type PairCache interface {
	Get(ctx context.Context, metric string, origin, dest models.Point) (*Entry, error)
	SetBatch(ctx context.Context, entries []Entry) error
	Clear(ctx context.Context, metric string) error
}

type pairCacheRepository struct {
	db *sql.DB
}

func (r *pairCacheRepository) Get(ctx context.Context, metric string, origin, dest models.Point) (*Entry, error) {
	query := `
		SELECT origin_lon, origin_lat, dest_lon, dest_lat, cost
		FROM pair_cache
		WHERE metric = ?
		  AND origin_lon = ? AND origin_lat = ?
		  AND dest_lon = ? AND dest_lat = ?
	`

	entry := Entry{Metric: metric}
	err := r.db.QueryRowContext(ctx, query, metric,
		models.RoundCoordinate(origin.Lon), models.RoundCoordinate(origin.Lat),
		models.RoundCoordinate(dest.Lon), models.RoundCoordinate(dest.Lat),
	).Scan(&entry.Origin.Lon, &entry.Origin.Lat, &entry.Dest.Lon, &entry.Dest.Lat, &entry.Cost)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached cost: %w", err)
	}

	return &entry, nil
}

func (r *pairCacheRepository) SetBatch(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO pair_cache (metric, origin_lon, origin_lat, dest_lon, dest_lat, cost)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(metric, origin_lon, origin_lat, dest_lon, dest_lat)
		DO UPDATE SET cost = excluded.cost, cached_at = CURRENT_TIMESTAMP
	`

	for _, entry := range entries {
		_, err := tx.ExecContext(ctx, query, entry.Metric,
			models.RoundCoordinate(entry.Origin.Lon), models.RoundCoordinate(entry.Origin.Lat),
			models.RoundCoordinate(entry.Dest.Lon), models.RoundCoordinate(entry.Dest.Lat),
			entry.Cost,
		)
		if err != nil {
			return fmt.Errorf("failed to set cached cost: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *pairCacheRepository) Clear(ctx context.Context, metric string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM pair_cache WHERE metric = ?`, metric)
	if err != nil {
		return fmt.Errorf("failed to clear pair cache: %w", err)
	}

	return nil
}
