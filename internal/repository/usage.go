package repository

import (
	"context"
	"encoding/json"

	"github.com/jeanyves777/flowsmartly-sub008/internal/model"
)

func (r *Repository) InsertUsageRecord(ctx context.Context, record *model.UsageRecord) error {
	query := `
		INSERT INTO usage_records (user_id, feature_key, cost, reference_type, reference_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	return r.db.QueryRowContext(ctx, query,
		record.UserID,
		record.FeatureKey,
		record.Cost,
		record.ReferenceType,
		record.ReferenceID,
	).Scan(&record.ID, &record.CreatedAt)
}

func (r *Repository) ListUsageRecords(ctx context.Context, userID int64, limit, offset int) ([]model.UsageRecord, error) {
	var records []model.UsageRecord
	if userID != 0 {
		err := r.db.SelectContext(ctx, &records, `
			SELECT * FROM usage_records WHERE user_id = $1
			ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
			userID, limit, offset)
		return records, err
	}
	err := r.db.SelectContext(ctx, &records, `
		SELECT * FROM usage_records
		ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	return records, err
}

func (r *Repository) LogAdminAction(ctx context.Context, adminID int64, action model.AdminAction, targetUserID *int64, details map[string]interface{}) error {
	var detailsJSON []byte
	if details != nil {
		detailsJSON, _ = json.Marshal(details)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO admin_actions (admin_id, action, target_user_id, details)
		VALUES ($1, $2, $3, $4)`,
		adminID, action, targetUserID, detailsJSON)
	return err
}
