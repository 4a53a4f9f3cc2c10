// Package restaurant is the cuisine-based lookup collaborator. Rows live in
// MySQL; the per-cuisine row set is cached in Redis for a short TTL and the
// random pick happens in process, so repeat lookups stay random but cheap.
package restaurant

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/doinghun/merlabot-public/internal/logger"
	"github.com/doinghun/merlabot-public/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Finder yields a random restaurant for a cuisine, or (nil, nil) when the
// cuisine has no rows.
type Finder interface {
	Random(ctx context.Context, cuisine string) (*model.Restaurant, error)
}

type Repository struct {
	db  *sqlx.DB
	rds *redis.Client // optional
	ttl time.Duration
}

var _ Finder = (*Repository)(nil)

func NewRepository(db *sqlx.DB, rds *redis.Client, cacheTTL time.Duration) *Repository {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Repository{db: db, rds: rds, ttl: cacheTTL}
}

func cacheKey(cuisine string) string { return "restaurants:cuisine:" + cuisine }

func (r *Repository) Random(ctx context.Context, cuisine string) (*model.Restaurant, error) {
	rows, err := r.byCuisine(ctx, cuisine)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	pick := rows[rand.Intn(len(rows))]
	return &pick, nil
}

func (r *Repository) byCuisine(ctx context.Context, cuisine string) ([]model.Restaurant, error) {
	if r.rds != nil {
		if raw, err := r.rds.Get(ctx, cacheKey(cuisine)).Bytes(); err == nil {
			var cached []model.Restaurant
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		}
	}

	var rows []model.Restaurant
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, name, cuisine, description, map_url, image_url, created_at
		  FROM restaurants
		 WHERE cuisine = ?
	`, cuisine)
	if err != nil {
		return nil, err
	}

	if r.rds != nil && len(rows) > 0 {
		if raw, err := json.Marshal(rows); err == nil {
			if err := r.rds.Set(ctx, cacheKey(cuisine), raw, r.ttl).Err(); err != nil {
				logger.L().Warn("restaurant cache set failed",
					zap.String("cuisine", cuisine), zap.Error(err))
			}
		}
	}

	return rows, nil
}
