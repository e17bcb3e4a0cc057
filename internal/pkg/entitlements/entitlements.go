package entitlements

import (
	"time"

	"github.com/sellforge/sellforge/app/models"
	"github.com/sellforge/sellforge/app/repository"
)

// Service grants and revokes feature entitlements. All writes are idempotent
// against the (user, feature_key, source_type, source_reference) key, so a
// replayed fulfillment never produces a second grant.
type Service struct {
	repo repository.FulfillmentRepository
}

// NewService creates an entitlement service over the fulfillment repository.
func NewService(repo repository.FulfillmentRepository) *Service {
	return &Service{repo: repo}
}

// GrantPurchase records entitlements for a one-time purchase. The source
// reference is the order public ID.
func (s *Service) GrantPurchase(userID uint, featureKeys []string, orderPublicID string, at time.Time) error {
	for _, raw := range featureKeys {
		key := models.NormalizeFeatureKey(raw)
		if key == "" {
			continue
		}
		if err := s.grantCurrent(userID, key, models.EntitlementSourcePurchase, orderPublicID, at); err != nil {
			return err
		}
	}
	return nil
}

// SyncSubscription reconciles plan entitlements with a subscription state.
// Entitling statuses grant the plan's feature keys; all other statuses end
// them. The source reference is the provider subscription ID.
func (s *Service) SyncSubscription(userID uint, featureKeys []string, providerSubscriptionID, status string, at time.Time) error {
	if models.SubscriptionStatusEntitles(status) {
		for _, raw := range featureKeys {
			key := models.NormalizeFeatureKey(raw)
			if key == "" {
				continue
			}
			if err := s.grantCurrent(userID, key, models.EntitlementSourcePlan, providerSubscriptionID, at); err != nil {
				return err
			}
		}
		return nil
	}
	return s.endBySource(userID, models.EntitlementSourcePlan, providerSubscriptionID, at)
}

// grantCurrent creates or revives the entitlement row for the source key and
// makes it the single current one for (user, feature_key).
func (s *Service) grantCurrent(userID uint, featureKey, sourceType, sourceReference string, at time.Time) error {
	ent := &models.Entitlement{
		UserID:          userID,
		FeatureKey:      featureKey,
		SourceType:      sourceType,
		SourceReference: sourceReference,
		IsCurrent:       true,
	}
	created, stored, err := s.repo.CreateEntitlementIfNotExists(ent)
	if err != nil {
		return err
	}
	if !created && (!stored.IsCurrent || stored.EndedAt != nil) {
		stored.IsCurrent = true
		stored.EndedAt = nil
		if err := s.repo.SaveEntitlement(stored); err != nil {
			return err
		}
	}
	return s.repo.DeactivateCurrentEntitlements(userID, featureKey, stored.ID, at)
}

// endBySource ends every current entitlement that was granted by the given
// source. Entitlements from other sources are untouched.
func (s *Service) endBySource(userID uint, sourceType, sourceReference string, at time.Time) error {
	ents, err := s.repo.ListEntitlementsBySource(userID, sourceType, sourceReference)
	if err != nil {
		return err
	}
	for i := range ents {
		ent := &ents[i]
		if !ent.IsCurrent {
			continue
		}
		ent.IsCurrent = false
		ended := at
		ent.EndedAt = &ended
		if err := s.repo.SaveEntitlement(ent); err != nil {
			return err
		}
	}
	return nil
}
