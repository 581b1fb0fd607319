package model

import (
	"time"

	"github.com/google/uuid"
)

// UsageRecord is the observability trail for paid-feature invocations. Every
// invocation gets a row; admin calls carry cost 0 and produce no ledger
// entry, which is how privileged usage stays visible without being billed.
type UsageRecord struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	UserID        int64      `json:"user_id" db:"user_id"`
	FeatureKey    FeatureKey `json:"feature_key" db:"feature_key"`
	Cost          int64      `json:"cost" db:"cost"`
	ReferenceType *string    `json:"reference_type,omitempty" db:"reference_type"`
	ReferenceID   *string    `json:"reference_id,omitempty" db:"reference_id"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

type AdminAction string

const (
	AdminActionGrantCredits  AdminAction = "grant_credits"
	AdminActionSetCost       AdminAction = "set_cost"
	AdminActionDeleteCost    AdminAction = "delete_cost"
	AdminActionUpdateSetting AdminAction = "update_setting"
)

type AdminActionLog struct {
	ID           uuid.UUID   `json:"id" db:"id"`
	AdminID      int64       `json:"admin_id" db:"admin_id"`
	Action       AdminAction `json:"action" db:"action"`
	TargetUserID *int64      `json:"target_user_id,omitempty" db:"target_user_id"`
	Details      []byte      `json:"details,omitempty" db:"details"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
}
