package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"example/plan-api/app/models"

	"gorm.io/gorm"
)

// RPCStore delegates the quota-gated insert to the
// consume_request_and_insert_plan function in one round trip. Account reads
// and tier updates go through the embedded Store.
type RPCStore struct {
	*Store
}

func NewRPCStore(db *gorm.DB, freeLimit int) *RPCStore {
	return &RPCStore{Store: New(db, freeLimit)}
}

func (s *RPCStore) ConsumeRequestAndInsertPlan(ctx context.Context, p models.NewPlan) (models.Plan, error) {
	content, err := json.Marshal(p.Content)
	if err != nil {
		return models.Plan{}, fmt.Errorf("encode plan content: %w", err)
	}

	var plan models.Plan
	err = s.db.WithContext(ctx).
		Raw("SELECT * FROM consume_request_and_insert_plan(?, ?, ?::jsonb, ?, ?, ?, ?)",
			p.UserID, p.Title, string(content), p.Model, p.TokensIn, p.TokensOut, s.freeLimit).
		Scan(&plan).Error
	if err != nil {
		return models.Plan{}, err
	}
	if plan.ID == "" {
		return models.Plan{}, errors.New("consume_request_and_insert_plan returned no row")
	}
	return plan, nil
}
