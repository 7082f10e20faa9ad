package security

import (
	"database/sql"
	"fmt"

	"github.com/entropy80/investment-app-sub002/src/model"
)

// Feature keys gated by subscription tier.
const (
	FeatureTaxReport           = "tax_report"
	FeatureBenchmarkComparison = "benchmark_comparison"
)

// Subscription tiers, ordered; every tier includes the features of the ones
// before it.
const (
	TierFree    = "free"
	TierPremium = "premium"
)

var tierRank = map[string]int{
	TierFree:    0,
	TierPremium: 1,
}

// featureTiers maps each gated feature to the minimum tier that may use it.
// Features absent from the map are available to everyone.
var featureTiers = map[string]string{
	FeatureTaxReport:           TierPremium,
	FeatureBenchmarkComparison: TierPremium,
}

// AccessDecision is the authorization collaborator's answer. A disallowed
// result means "report unavailable" to the engine, never an internal error.
type AccessDecision struct {
	Allowed      bool   `json:"allowed"`
	Tier         string `json:"tier"`
	RequiredTier string `json:"requiredTier"`
}

// AccessService gates premium report types by subscription tier.
type AccessService interface {
	ValidateAccess(userID int64, featureKey string) (AccessDecision, error)
}

type accessServiceImpl struct {
	db *sql.DB
}

func NewAccessService(db *sql.DB) AccessService {
	return &accessServiceImpl{db: db}
}

func (s *accessServiceImpl) ValidateAccess(userID int64, featureKey string) (AccessDecision, error) {
	tier, err := model.GetSubscriptionTier(s.db, userID)
	if err != nil {
		return AccessDecision{}, fmt.Errorf("error resolving subscription tier for user %d: %w", userID, err)
	}

	required, gated := featureTiers[featureKey]
	if !gated {
		required = TierFree
	}

	return AccessDecision{
		Allowed:      tierRank[tier] >= tierRank[required],
		Tier:         tier,
		RequiredTier: required,
	}, nil
}
