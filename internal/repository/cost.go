package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jeanyves777/flowsmartly-sub008/internal/model"
)

var ErrFeatureCostNotFound = errors.New("feature cost not found")

func (r *Repository) GetFeatureCost(ctx context.Context, key model.FeatureKey) (int64, error) {
	var cost int64
	err := r.db.GetContext(ctx, &cost,
		"SELECT cost_credits FROM feature_costs WHERE feature_key = $1", key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrFeatureCostNotFound
		}
		return 0, err
	}
	return cost, nil
}

func (r *Repository) SetFeatureCost(ctx context.Context, key model.FeatureKey, cost int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO feature_costs (feature_key, cost_credits, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (feature_key) DO UPDATE SET cost_credits = $2, updated_at = NOW()
	`, key, cost)
	return err
}

func (r *Repository) DeleteFeatureCost(ctx context.Context, key model.FeatureKey) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM feature_costs WHERE feature_key = $1", key)
	return err
}

func (r *Repository) ListFeatureCosts(ctx context.Context) ([]model.FeatureCost, error) {
	var costs []model.FeatureCost
	err := r.db.SelectContext(ctx, &costs,
		"SELECT * FROM feature_costs ORDER BY feature_key")
	return costs, err
}
