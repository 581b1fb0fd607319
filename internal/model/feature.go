package model

import "time"

type FeatureKey string

const (
	FeatureVisualDesign FeatureKey = "AI_VISUAL_DESIGN"
	FeatureImage        FeatureKey = "AI_IMAGE"
	FeatureVoiceClone   FeatureKey = "AI_VOICE_CLONE"
	FeatureAutomation   FeatureKey = "AI_AUTO"
	FeatureSMSSend      FeatureKey = "SMS_SEND"
)

// DefaultFeatureCosts is the compiled-in price table. Admin overrides in the
// feature_costs table take precedence; an override that is zero or negative
// falls back to these values.
var DefaultFeatureCosts = map[FeatureKey]int64{
	FeatureVisualDesign: 5,
	FeatureImage:        2,
	FeatureVoiceClone:   10,
	FeatureAutomation:   3,
	FeatureSMSSend:      1,
}

// FeatureCost is an admin-configured price override for a single feature.
type FeatureCost struct {
	FeatureKey  FeatureKey `json:"feature_key" db:"feature_key"`
	CostCredits int64      `json:"cost_credits" db:"cost_credits"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}
