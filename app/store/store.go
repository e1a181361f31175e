package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"example/plan-api/app/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store implements the quota-gated insert as a single gorm transaction.
type Store struct {
	db        *gorm.DB
	freeLimit int
	now       func() time.Time
}

func New(db *gorm.DB, freeLimit int) *Store {
	return &Store{db: db, freeLimit: freeLimit, now: func() time.Time { return time.Now().UTC() }}
}

// ConsumeRequestAndInsertPlan provisions the account if needed, consumes one
// request and inserts the plan. The quota check is the WHERE clause of the
// increment, so it is evaluated against the row the UPDATE locks. Nothing is
// written when it returns ErrUsageLimit.
func (s *Store) ConsumeRequestAndInsertPlan(ctx context.Context, p models.NewPlan) (models.Plan, error) {
	if strings.TrimSpace(p.UserID) == "" {
		return models.Plan{}, errors.New("store: missing user id")
	}

	var plan models.Plan
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now()
		if err := ensureAccount(tx, p.UserID, "", now); err != nil {
			return err
		}

		res := tx.Exec(`
			UPDATE usage
			SET total_requests = total_requests + 1, updated_at = ?
			WHERE user_id = ?
			  AND (total_requests < ?
			       OR EXISTS (SELECT 1 FROM profiles WHERE id = ? AND tier = ?))
		`, now, p.UserID, s.freeLimit, p.UserID, models.TierPro)
		if res.Error != nil {
			return fmt.Errorf("consume request: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrUsageLimit
		}

		plan = models.Plan{
			ID:          uuid.NewString(),
			UserID:      p.UserID,
			Title:       p.Title,
			ContentJSON: datatypes.NewJSONType(p.Content),
			Model:       p.Model,
			TokensIn:    p.TokensIn,
			TokensOut:   p.TokensOut,
			CreatedAt:   now,
		}
		if err := tx.Create(&plan).Error; err != nil {
			return fmt.Errorf("insert plan: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Plan{}, err
	}
	return plan, nil
}

// GetAccount returns tier and usage, provisioning a free account on first use.
func (s *Store) GetAccount(ctx context.Context, userID, email string) (models.Account, error) {
	var (
		profile models.Profile
		usage   models.Usage
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureAccount(tx, userID, email, s.now()); err != nil {
			return err
		}
		if err := tx.First(&profile, "id = ?", userID).Error; err != nil {
			return err
		}
		return tx.First(&usage, "user_id = ?", userID).Error
	})
	if err != nil {
		return models.Account{}, err
	}

	account := models.Account{
		UserID:        userID,
		Tier:          profile.Tier,
		TotalRequests: usage.TotalRequests,
	}
	if profile.Tier != models.TierPro {
		limit := s.freeLimit
		remaining := max(limit-usage.TotalRequests, 0)
		account.Limit = &limit
		account.Remaining = &remaining
	}
	return account, nil
}

// SetTier sets the tier of userID and, when customerID is not empty,
// remembers it as the account's billing customer.
func (s *Store) SetTier(ctx context.Context, userID string, tier models.Tier, customerID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now()
		if err := ensureAccount(tx, userID, "", now); err != nil {
			return err
		}
		updates := map[string]any{"tier": tier, "updated_at": now}
		if customerID != "" {
			updates["stripe_customer_id"] = customerID
		}
		return tx.Model(&models.Profile{}).Where("id = ?", userID).Updates(updates).Error
	})
}

// SetTierByCustomer updates the account linked to a billing customer. It
// reports false when no account carries that customer id.
func (s *Store) SetTierByCustomer(ctx context.Context, customerID string, tier models.Tier) (bool, error) {
	if customerID == "" {
		return false, nil
	}
	res := s.db.WithContext(ctx).Model(&models.Profile{}).
		Where("stripe_customer_id = ?", customerID).
		Updates(map[string]any{"tier": tier, "updated_at": s.now()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func ensureAccount(tx *gorm.DB, userID, email string, now time.Time) error {
	profile := models.Profile{ID: userID, Tier: models.TierFree, CreatedAt: now, UpdatedAt: now}
	if email != "" {
		profile.Email = &email
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&profile).Error; err != nil {
		return fmt.Errorf("provision profile: %w", err)
	}
	usage := models.Usage{UserID: userID, UpdatedAt: now}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&usage).Error; err != nil {
		return fmt.Errorf("provision usage: %w", err)
	}
	return nil
}
