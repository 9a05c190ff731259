package services

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "surplus-relay.com/surplus-relay/internal/errors"
	"surplus-relay.com/surplus-relay/internal/metrics"
	"surplus-relay.com/surplus-relay/internal/notifications"
	repository "surplus-relay.com/surplus-relay/internal/repositories"
	"surplus-relay.com/surplus-relay/internal/transitions"
	"surplus-relay.com/surplus-relay/pkg/constants"
	model "surplus-relay.com/surplus-relay/pkg/models"
)

const sweepBatchSize = 100

// ClaimService runs the claim -> accept/reject cycle between recipient and
// donor, and the rest of an item's own lifecycle.
type ClaimService struct {
	store   *repository.Store
	emitter Emitter
	now     func() time.Time
}

func NewClaimService(store *repository.Store, emitter Emitter) *ClaimService {
	return &ClaimService{
		store:   store,
		emitter: emitter,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

type NewItem struct {
	Title     string
	Category  string
	Quantity  int
	Unit      string
	Location  string
	ExpiresAt *time.Time
}

func (n NewItem) Validate(now time.Time) error {
	switch {
	case strings.TrimSpace(n.Title) == "":
		return apperrors.NewValidationError("title is required")
	case strings.TrimSpace(n.Category) == "":
		return apperrors.NewValidationError("category is required")
	case n.Quantity <= 0:
		return apperrors.NewValidationError("quantity must be positive")
	case strings.TrimSpace(n.Unit) == "":
		return apperrors.NewValidationError("unit is required")
	case strings.TrimSpace(n.Location) == "":
		return apperrors.NewValidationError("location is required")
	case n.ExpiresAt != nil && !n.ExpiresAt.After(now):
		return apperrors.NewValidationError("expires_at must be in the future")
	}
	return nil
}

func (s *ClaimService) CreateItem(ctx context.Context, donorID string, in NewItem) (*model.Item, error) {
	if donorID == "" {
		return nil, apperrors.NewValidationError("donor id is required")
	}
	if err := in.Validate(s.now()); err != nil {
		return nil, err
	}

	item := &model.Item{
		OwnerID:   donorID,
		Title:     in.Title,
		Category:  in.Category,
		Quantity:  in.Quantity,
		Unit:      in.Unit,
		Location:  in.Location,
		ExpiresAt: in.ExpiresAt,
	}
	if err := s.store.Items().Create(ctx, item); err != nil {
		return nil, err
	}

	return item, nil
}

func (s *ClaimService) GetItem(ctx context.Context, id string) (*model.Item, error) {
	return s.store.Items().FindByID(ctx, id)
}

func (s *ClaimService) ListAvailable(ctx context.Context, limit int) ([]model.Item, error) {
	return s.store.Items().ListAvailable(ctx, s.now(), limit)
}

// Claim reserves an available item for a recipient and opens its delivery
// task. Losing the race to another recipient yields ErrClaimLost; callers
// should not retry the same item.
func (s *ClaimService) Claim(ctx context.Context, itemID, recipientID string) (*model.Task, error) {
	item, err := s.store.Items().FindByID(ctx, itemID)
	if err != nil {
		return nil, observe("claim", err)
	}
	now := s.now()
	if err := transitions.CanClaim(item, recipientID, now); err != nil {
		return nil, observe("claim", err)
	}

	var task *model.Task
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Items().Claim(ctx, itemID, recipientID, now); err != nil {
			if !errors.Is(err, repository.ErrConditionNotMet) {
				return err
			}
			current, findErr := tx.Items().FindByID(ctx, itemID)
			if findErr != nil {
				return findErr
			}
			if current.Status == constants.ItemAvailable && current.Overdue(now) {
				return apperrors.Detail(apperrors.ErrInvalidTransition, "item "+itemID+" expired")
			}
			return conditionFailed(err, apperrors.ErrClaimLost, "item "+itemID)
		}

		created, err := tx.Tasks().CreateForItem(ctx, item, recipientID)
		if err != nil {
			return err
		}
		task = created
		return nil
	})
	if err != nil {
		return nil, observe("claim", err)
	}

	s.emitter.Emit(notifications.ClaimPlaced{
		ItemID:      item.ID,
		TaskID:      task.ID,
		DonorID:     item.OwnerID,
		RecipientID: recipientID,
	})

	return task, observe("claim", nil)
}

// Accept approves the pending claim. Item and task move together.
func (s *ClaimService) Accept(ctx context.Context, itemID, donorID string) (*model.Task, error) {
	item, err := s.store.Items().FindByID(ctx, itemID)
	if err != nil {
		return nil, observe("accept", err)
	}
	if err := transitions.CanAccept(item, donorID); err != nil {
		return nil, observe("accept", err)
	}

	var task *model.Task
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Items().Transition(ctx, itemID, constants.ItemClaimed, constants.ItemAccepted, nil); err != nil {
			return conditionFailed(err, apperrors.ErrInvalidTransition, "item "+itemID+" is no longer claimed")
		}
		if err := tx.Tasks().MarkAccepted(ctx, itemID); err != nil {
			return conditionFailed(err, apperrors.ErrInvalidTransition, "task for item "+itemID+" cannot be assigned")
		}

		found, err := tx.Tasks().FindByItemID(ctx, itemID)
		if err != nil {
			return err
		}
		task = found
		return nil
	})
	if err != nil {
		return nil, observe("accept", err)
	}

	s.emitter.Emit(notifications.ClaimAccepted{
		ItemID:      itemID,
		TaskID:      task.ID,
		DonorID:     donorID,
		RecipientID: task.ClaimantID,
	})

	return task, observe("accept", nil)
}

// Reject hands the item back to the pool and deletes its task outright.
func (s *ClaimService) Reject(ctx context.Context, itemID, donorID string) error {
	item, err := s.store.Items().FindByID(ctx, itemID)
	if err != nil {
		return observe("reject", err)
	}
	if err := transitions.CanReject(item, donorID); err != nil {
		return observe("reject", err)
	}

	var task *model.Task
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		found, err := tx.Tasks().FindByItemID(ctx, itemID)
		if err != nil {
			return err
		}
		task = found

		if err := tx.Items().ReleaseClaim(ctx, itemID, donorID); err != nil {
			return conditionFailed(err, apperrors.ErrInvalidTransition, "item "+itemID+" is no longer claimed")
		}
		if err := tx.Tasks().DeleteByItemID(ctx, itemID); err != nil {
			return conditionFailed(err, apperrors.ErrTaskNotFound, "item "+itemID)
		}
		if task.IsVolunteer && task.HasCarrier() {
			return tx.Stats().DecrementActive(ctx, *task.CarrierID)
		}
		return nil
	})
	if err != nil {
		return observe("reject", err)
	}

	s.emitter.Emit(notifications.ClaimRejected{
		ItemID:      itemID,
		DonorID:     donorID,
		RecipientID: task.ClaimantID,
	})
	if task.HasCarrier() {
		s.emitter.Emit(notifications.CarrierReleased{
			ItemID:        itemID,
			TaskID:        task.ID,
			DonorID:       donorID,
			RecipientID:   task.ClaimantID,
			CarrierID:     *task.CarrierID,
			Reason:        "claim rejected by donor",
			NotifyCarrier: true,
		})
	}

	return observe("reject", nil)
}

// Expire withdraws an unclaimed item on the owner's request.
func (s *ClaimService) Expire(ctx context.Context, itemID, donorID string) error {
	item, err := s.store.Items().FindByID(ctx, itemID)
	if err != nil {
		return observe("expire", err)
	}
	if err := transitions.CanExpire(item, donorID); err != nil {
		return observe("expire", err)
	}

	err = s.store.Items().Transition(ctx, itemID, constants.ItemAvailable, constants.ItemExpired, nil)
	return observe("expire", conditionFailed(err, apperrors.ErrInvalidTransition, "item "+itemID+" is no longer available"))
}

// ExpireOverdueItems expires available items whose expiry time has passed.
// Each item is flipped by its own conditional write, so an item claimed in the
// meantime is left alone.
func (s *ClaimService) ExpireOverdueItems(ctx context.Context) (int, error) {
	items, err := s.store.Items().ListOverdue(ctx, s.now(), sweepBatchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, item := range items {
		err := s.store.Items().Transition(ctx, item.ID, constants.ItemAvailable, constants.ItemExpired, nil)
		if errors.Is(err, repository.ErrConditionNotMet) {
			continue
		}
		if err != nil {
			return expired, err
		}

		expired++
		metrics.SweptRecords.WithLabelValues("item_expired").Inc()
		s.emitter.Emit(notifications.ItemExpired{ItemID: item.ID, DonorID: item.OwnerID})
	}

	return expired, nil
}

// AddFeedback attaches the recipient's rating and comment to a delivered item.
// Feedback can be left once.
func (s *ClaimService) AddFeedback(ctx context.Context, itemID, recipientID string, rating int, text string) error {
	if rating < 1 || rating > 5 {
		return apperrors.NewValidationError("rating must be between 1 and 5")
	}
	if strings.TrimSpace(text) == "" {
		return apperrors.NewValidationError("feedback text is required")
	}

	item, err := s.store.Items().FindByID(ctx, itemID)
	if err != nil {
		return err
	}
	if err := transitions.CanAddFeedback(item, recipientID); err != nil {
		return err
	}

	err = s.store.Items().AddFeedback(ctx, itemID, recipientID, rating, text)
	return conditionFailed(err, apperrors.ErrInvalidTransition, "feedback already recorded for item "+itemID)
}

// DeliveryRecord answers the receipt subsystem: is the item delivered, and by
// whom.
func (s *ClaimService) DeliveryRecord(ctx context.Context, itemID string) (*model.DeliveryRecord, error) {
	item, err := s.store.Items().FindByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	record := &model.DeliveryRecord{
		ItemID:      item.ID,
		Delivered:   item.Status == constants.ItemDelivered,
		DonorID:     item.OwnerID,
		ConfirmedAt: item.ConfirmedAt,
	}
	if !record.Delivered {
		return record, nil
	}

	if item.ClaimantID != nil {
		record.RecipientID = *item.ClaimantID
	}
	if item.CarrierID != nil {
		record.CarrierID = *item.CarrierID
	}

	task, err := s.store.Tasks().FindByItemID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	record.DeliveredAt = task.DeliveryTimestamp
	record.SelfDeliver = !task.HasCarrier()

	return record, nil
}
