package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "surplus-relay.com/surplus-relay/internal/errors"
	"surplus-relay.com/surplus-relay/pkg/constants"
	model "surplus-relay.com/surplus-relay/pkg/models"
)

type ItemRepository struct {
	db *gorm.DB
}

func NewItemRepository(db *gorm.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

func (r *ItemRepository) Create(ctx context.Context, item *model.Item) error {
	now := time.Now().UTC()
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.Status = constants.ItemAvailable
	item.ClaimantID = nil
	item.CarrierID = nil
	if item.ExpiresAt != nil {
		// stored in UTC so expiry comparisons stay lexical-safe on SQLite
		expiresAt := item.ExpiresAt.UTC()
		item.ExpiresAt = &expiresAt
	}
	item.CreatedAt = now
	item.UpdatedAt = now

	return r.db.WithContext(ctx).Create(item).Error
}

func (r *ItemRepository) FindByID(ctx context.Context, id string) (*model.Item, error) {
	var item model.Item
	err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("item %s: %w", id, apperrors.ErrItemNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListAvailable returns claimable items, skipping those already past expiry at
// now that the sweeper has not reached yet.
func (r *ItemRepository) ListAvailable(ctx context.Context, now time.Time, limit int) ([]model.Item, error) {
	if limit <= 0 {
		return nil, apperrors.NewValidationError("limit must be positive")
	}

	var items []model.Item
	err := r.db.WithContext(ctx).
		Where("status = ? AND (expires_at IS NULL OR expires_at > ?)", constants.ItemAvailable, now.UTC()).
		Order("created_at desc").Limit(limit).
		Find(&items).Error
	return items, err
}

// Claim is the single compare-and-set that decides a claim race. An item whose
// expiry has passed at now never matches.
func (r *ItemRepository) Claim(ctx context.Context, id, recipientID string, now time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.Item{}).
		Where("id = ? AND status = ? AND (expires_at IS NULL OR expires_at > ?)",
			id, constants.ItemAvailable, now.UTC()).
		Updates(map[string]interface{}{
			"status":      constants.ItemClaimed,
			"claimant_id": recipientID,
			"updated_at":  time.Now().UTC(),
		})
	return affected(res)
}

// Transition moves the item from one status to another, applying extra column
// updates in the same statement.
func (r *ItemRepository) Transition(
	ctx context.Context,
	id string,
	from, to constants.ItemStatus,
	extra map[string]interface{},
) error {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	for k, v := range extra {
		updates[k] = v
	}

	res := r.db.WithContext(ctx).Model(&model.Item{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return affected(res)
}

// ReleaseClaim puts a claimed item back on the shelf for the owner.
func (r *ItemRepository) ReleaseClaim(ctx context.Context, id, ownerID string) error {
	res := r.db.WithContext(ctx).Model(&model.Item{}).
		Where("id = ? AND owner_id = ? AND status = ?", id, ownerID, constants.ItemClaimed).
		Updates(map[string]interface{}{
			"status":      constants.ItemAvailable,
			"claimant_id": nil,
			"carrier_id":  nil,
			"updated_at":  time.Now().UTC(),
		})
	return affected(res)
}

// SetCarrier mirrors the task's carrier onto a held item. A nil carrierID
// clears it.
func (r *ItemRepository) SetCarrier(ctx context.Context, id string, carrierID *string) error {
	res := r.db.WithContext(ctx).Model(&model.Item{}).
		Where("id = ? AND status IN ?", id, []constants.ItemStatus{constants.ItemClaimed, constants.ItemAccepted}).
		Updates(map[string]interface{}{
			"carrier_id": carrierID,
			"updated_at": time.Now().UTC(),
		})
	return affected(res)
}

func (r *ItemRepository) AddFeedback(ctx context.Context, id, recipientID string, rating int, text string) error {
	res := r.db.WithContext(ctx).Model(&model.Item{}).
		Where("id = ? AND status = ? AND claimant_id = ? AND feedback = ''", id, constants.ItemDelivered, recipientID).
		Updates(map[string]interface{}{
			"feedback":        text,
			"feedback_rating": rating,
			"updated_at":      time.Now().UTC(),
		})
	return affected(res)
}

func (r *ItemRepository) ListOverdue(ctx context.Context, now time.Time, limit int) ([]model.Item, error) {
	var items []model.Item
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", constants.ItemAvailable, now.UTC()).
		Order("expires_at asc").Limit(limit).
		Find(&items).Error
	return items, err
}
