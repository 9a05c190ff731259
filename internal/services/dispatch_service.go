package services

import (
	"context"
	"errors"
	"log"
	"time"

	apperrors "surplus-relay.com/surplus-relay/internal/errors"
	"surplus-relay.com/surplus-relay/internal/metrics"
	"surplus-relay.com/surplus-relay/internal/notifications"
	repository "surplus-relay.com/surplus-relay/internal/repositories"
	"surplus-relay.com/surplus-relay/internal/scoring"
	"surplus-relay.com/surplus-relay/internal/transitions"
	"surplus-relay.com/surplus-relay/pkg/constants"
	model "surplus-relay.com/surplus-relay/pkg/models"
)

// DispatchService moves delivery tasks from carrier assignment to completion,
// including the volunteer and donor self-delivery paths.
type DispatchService struct {
	store   *repository.Store
	emitter Emitter
	badges  scoring.BadgeRules
	now     func() time.Time
}

func NewDispatchService(store *repository.Store, emitter Emitter, badges scoring.BadgeRules) *DispatchService {
	return &DispatchService{
		store:   store,
		emitter: emitter,
		badges:  badges,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

type AssignOptions struct {
	Volunteer bool
}

func (s *DispatchService) GetTask(ctx context.Context, id string) (*model.Task, error) {
	return s.store.Tasks().FindByID(ctx, id)
}

func (s *DispatchService) TasksForCarrier(ctx context.Context, carrierID string) ([]model.Task, error) {
	return s.store.Tasks().ListByCarrier(ctx, carrierID)
}

func (s *DispatchService) CarrierStats(ctx context.Context, carrierID string) (*model.CarrierStats, error) {
	return s.store.Stats().Get(ctx, carrierID)
}

// AssignCarrier lets a carrier take a task nobody holds yet. Losing the race
// to another carrier yields ErrAssignmentLost.
func (s *DispatchService) AssignCarrier(ctx context.Context, taskID, carrierID string, opts AssignOptions) (*model.Task, error) {
	task, err := s.store.Tasks().FindByID(ctx, taskID)
	if err != nil {
		return nil, observe("assign_carrier", err)
	}
	if err := transitions.CanAssignCarrier(task, carrierID); err != nil {
		return nil, observe("assign_carrier", err)
	}

	at := s.now()
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Tasks().AssignCarrier(ctx, taskID, carrierID, opts.Volunteer, at); err != nil {
			return conditionFailed(err, apperrors.ErrAssignmentLost, "task "+taskID)
		}
		if err := tx.Items().SetCarrier(ctx, task.ItemID, &carrierID); err != nil {
			return conditionFailed(err, apperrors.ErrInvalidTransition, "item "+task.ItemID+" is not held")
		}
		if opts.Volunteer {
			if err := tx.Stats().IncrementActive(ctx, carrierID); err != nil {
				return err
			}
		}

		found, err := tx.Tasks().FindByID(ctx, taskID)
		if err != nil {
			return err
		}
		task = found
		return nil
	})
	if err != nil {
		return nil, observe("assign_carrier", err)
	}

	s.emitter.Emit(notifications.CarrierAssigned{
		ItemID:      task.ItemID,
		TaskID:      task.ID,
		DonorID:     task.OwnerID,
		RecipientID: task.ClaimantID,
		CarrierID:   carrierID,
		Volunteer:   opts.Volunteer,
	})

	return task, observe("assign_carrier", nil)
}

// MarkPickedUp is the carrier path into in-transit.
func (s *DispatchService) MarkPickedUp(ctx context.Context, taskID, carrierID string) (*model.Task, error) {
	task, item, err := s.load(ctx, taskID)
	if err != nil {
		return nil, observe("pickup", err)
	}
	if err := transitions.CanPickUp(task, item, carrierID); err != nil {
		return nil, observe("pickup", err)
	}

	at := s.now()
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Tasks().Advance(ctx, taskID, carrierID, constants.TaskAssigned, constants.TaskPickedUp,
			map[string]interface{}{"pickup_timestamp": at}); err != nil {
			return conditionFailed(err, apperrors.ErrInvalidTransition, "task "+taskID+" changed before pickup")
		}
		if err := tx.Items().Transition(ctx, item.ID, constants.ItemAccepted, constants.ItemInTransit, nil); err != nil {
			return conditionFailed(err, apperrors.ErrInvalidTransition, "item "+item.ID+" is not accepted")
		}
		return nil
	})
	if err != nil {
		return nil, observe("pickup", err)
	}

	task.Status = constants.TaskPickedUp
	task.PickupTimestamp = &at
	s.emitter.Emit(notifications.PickedUp{
		ItemID:      item.ID,
		TaskID:      task.ID,
		DonorID:     task.OwnerID,
		RecipientID: task.ClaimantID,
		CarrierID:   carrierID,
	})

	return task, observe("pickup", nil)
}

// MarkDelivered completes a picked-up task, or an assigned one when the
// carrier is a volunteer. Volunteer completions credit the carrier's stats in
// the same transaction.
func (s *DispatchService) MarkDelivered(ctx context.Context, taskID, carrierID string) (*model.Task, error) {
	task, item, err := s.load(ctx, taskID)
	if err != nil {
		return nil, observe("deliver", err)
	}
	if err := transitions.CanDeliver(task, item, carrierID); err != nil {
		return nil, observe("deliver", err)
	}

	at := s.now()
	fields := map[string]interface{}{"delivery_timestamp": at}
	if task.PickupTimestamp == nil {
		fields["pickup_timestamp"] = at
	}

	var badges []string
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Tasks().Advance(ctx, taskID, carrierID, task.Status, constants.TaskDelivered, fields); err != nil {
			return conditionFailed(err, apperrors.ErrInvalidTransition, "task "+taskID+" changed before delivery")
		}
		if err := tx.Items().Transition(ctx, item.ID, item.Status, constants.ItemDelivered, nil); err != nil {
			return conditionFailed(err, apperrors.ErrInvalidTransition, "item "+item.ID+" changed before delivery")
		}
		if !task.IsVolunteer {
			return nil
		}

		earned, err := s.creditVolunteer(ctx, tx, carrierID, item, at)
		badges = earned
		return err
	})
	if err != nil {
		return nil, observe("deliver", err)
	}

	task.Status = constants.TaskDelivered
	task.DeliveryTimestamp = &at
	if task.PickupTimestamp == nil {
		task.PickupTimestamp = &at
	}

	s.emitter.Emit(notifications.Delivered{
		ItemID:      item.ID,
		TaskID:      task.ID,
		DonorID:     task.OwnerID,
		RecipientID: task.ClaimantID,
		CarrierID:   carrierID,
	})
	s.emitBadges(carrierID, badges)

	return task, observe("deliver", nil)
}

// DirectDeliver is the donor's own delivery: no carrier is assigned and the
// task goes to self-delivery while the item goes in-transit.
func (s *DispatchService) DirectDeliver(ctx context.Context, itemID, donorID string) (*model.Task, error) {
	item, err := s.store.Items().FindByID(ctx, itemID)
	if err != nil {
		return nil, observe("direct_deliver", err)
	}
	task, err := s.store.Tasks().FindByItemID(ctx, itemID)
	if err != nil && !errors.Is(err, apperrors.ErrTaskNotFound) {
		return nil, observe("direct_deliver", err)
	}
	if err := transitions.CanDirectDeliver(item, task, donorID); err != nil {
		return nil, observe("direct_deliver", err)
	}

	at := s.now()
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Items().Transition(ctx, itemID, constants.ItemAccepted, constants.ItemInTransit, nil); err != nil {
			return conditionFailed(err, apperrors.ErrInvalidTransition, "item "+itemID+" is not accepted")
		}
		if err := tx.Tasks().StartSelfDelivery(ctx, task.ID, at); err != nil {
			return conditionFailed(err, apperrors.ErrInvalidTransition, "task "+task.ID+" gained a carrier")
		}
		return nil
	})
	if err != nil {
		return nil, observe("direct_deliver", err)
	}

	task.Status = constants.TaskSelfDelivery
	task.PickupTimestamp = &at
	s.emitter.Emit(notifications.SelfDeliveryStarted{
		ItemID:      itemID,
		TaskID:      task.ID,
		DonorID:     donorID,
		RecipientID: task.ClaimantID,
	})

	return task, observe("direct_deliver", nil)
}

// ConfirmReceipt is the recipient's terminal acknowledgement. Confirming an
// already delivered item succeeds without writing or notifying.
func (s *DispatchService) ConfirmReceipt(ctx context.Context, itemID, recipientID string) (*model.Item, error) {
	item, err := s.store.Items().FindByID(ctx, itemID)
	if err != nil {
		return nil, observe("confirm_receipt", err)
	}
	done, err := transitions.CanConfirmReceipt(item, recipientID)
	if err != nil {
		return nil, observe("confirm_receipt", err)
	}
	if done {
		metrics.Transitions.WithLabelValues("confirm_receipt", metrics.OutcomeNoop).Inc()
		return item, nil
	}

	task, err := s.store.Tasks().FindByItemID(ctx, itemID)
	if err != nil {
		return nil, observe("confirm_receipt", err)
	}

	at := s.now()
	var badges []string
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Items().Transition(ctx, itemID, constants.ItemInTransit, constants.ItemDelivered,
			map[string]interface{}{"confirmed_at": at}); err != nil {
			return err
		}

		if !transitions.TaskEdge(task.Status, constants.TaskDelivered) {
			return nil
		}
		if err := tx.Tasks().Advance(ctx, task.ID, "", task.Status, constants.TaskDelivered,
			map[string]interface{}{"delivery_timestamp": at}); err != nil {
			return conditionFailed(err, apperrors.ErrInvalidTransition, "task "+task.ID+" changed before confirmation")
		}
		if task.IsVolunteer && task.HasCarrier() {
			earned, err := s.creditVolunteer(ctx, tx, *task.CarrierID, item, at)
			badges = earned
			return err
		}
		return nil
	})
	if errors.Is(err, repository.ErrConditionNotMet) {
		// lost to a concurrent delivery; idempotent if it ended delivered
		current, findErr := s.store.Items().FindByID(ctx, itemID)
		if findErr == nil && current.Status == constants.ItemDelivered {
			metrics.Transitions.WithLabelValues("confirm_receipt", metrics.OutcomeNoop).Inc()
			return current, nil
		}
		err = apperrors.Detail(apperrors.ErrInvalidTransition, "item "+itemID+" left transit before confirmation")
	}
	if err != nil {
		return nil, observe("confirm_receipt", err)
	}

	item.Status = constants.ItemDelivered
	item.ConfirmedAt = &at

	carrierID := ""
	if task.HasCarrier() {
		carrierID = *task.CarrierID
	}
	s.emitter.Emit(notifications.ReceiptConfirmed{
		ItemID:      itemID,
		DonorID:     item.OwnerID,
		RecipientID: recipientID,
		CarrierID:   carrierID,
	})
	s.emitBadges(carrierID, badges)

	return item, observe("confirm_receipt", nil)
}

// ReleaseCarrier lets the assigned carrier hand back a task before pickup.
// The task stays donor-approved and open to other carriers.
func (s *DispatchService) ReleaseCarrier(ctx context.Context, taskID, carrierID string) (*model.Task, error) {
	task, err := s.store.Tasks().FindByID(ctx, taskID)
	if err != nil {
		return nil, observe("release_carrier", err)
	}
	if err := transitions.CanRelease(task, carrierID); err != nil {
		return nil, observe("release_carrier", err)
	}

	if err := s.release(ctx, task, "released by carrier", false); err != nil {
		return nil, observe("release_carrier", err)
	}

	return task, observe("release_carrier", nil)
}

// ReleaseStaleAssignments frees tasks whose carrier has not picked up within
// olderThan of being assigned.
func (s *DispatchService) ReleaseStaleAssignments(ctx context.Context, olderThan time.Duration) (int, error) {
	tasks, err := s.store.Tasks().ListStaleAssignments(ctx, s.now().Add(-olderThan), sweepBatchSize)
	if err != nil {
		return 0, err
	}

	released := 0
	for i := range tasks {
		task := &tasks[i]
		err := s.release(ctx, task, "no pickup before the assignment timeout", true)
		if errors.Is(err, apperrors.ErrInvalidTransition) {
			// picked up or released since it was listed
			continue
		}
		if err != nil {
			return released, err
		}

		released++
		metrics.SweptRecords.WithLabelValues("assignment_released").Inc()
	}

	return released, nil
}

// release clears task's carrier and resets task in place on success.
func (s *DispatchService) release(ctx context.Context, task *model.Task, reason string, notifyCarrier bool) error {
	carrierID := *task.CarrierID

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Tasks().ReleaseCarrier(ctx, task.ID, carrierID); err != nil {
			return conditionFailed(err, apperrors.ErrInvalidTransition, "task "+task.ID+" is no longer held by "+carrierID)
		}
		if err := tx.Items().SetCarrier(ctx, task.ItemID, nil); err != nil {
			return conditionFailed(err, apperrors.ErrInvalidTransition, "item "+task.ItemID+" is not held")
		}
		if task.IsVolunteer {
			return tx.Stats().DecrementActive(ctx, carrierID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("dispatch: task %s released from carrier %s: %s", task.ID, carrierID, reason)

	task.CarrierID = nil
	task.IsVolunteer = false
	task.AssignedAt = nil
	s.emitter.Emit(notifications.CarrierReleased{
		ItemID:        task.ItemID,
		TaskID:        task.ID,
		DonorID:       task.OwnerID,
		RecipientID:   task.ClaimantID,
		CarrierID:     carrierID,
		Reason:        reason,
		NotifyCarrier: notifyCarrier,
	})
	return nil
}

// creditVolunteer records one completed delivery for the volunteer and awards
// any badge the new totals unlock. It returns only badges earned just now.
func (s *DispatchService) creditVolunteer(
	ctx context.Context,
	tx *repository.Store,
	carrierID string,
	item *model.Item,
	at time.Time,
) ([]string, error) {
	people := scoring.EstimatePeopleHelped(item.Quantity, item.Unit)
	credit := repository.DeliveryCredit{
		PeopleHelped: people,
		Points:       scoring.Points(people),
		At:           at,
	}
	if err := tx.Stats().RecordDelivery(ctx, carrierID, credit); err != nil {
		return nil, err
	}

	stats, err := tx.Stats().Get(ctx, carrierID)
	if err != nil {
		return nil, err
	}

	var earned []string
	for _, badge := range s.badges.Evaluate(stats) {
		isNew, err := tx.Stats().AwardBadge(ctx, carrierID, badge, at)
		if err != nil {
			return nil, err
		}
		if isNew {
			earned = append(earned, badge)
		}
	}

	return earned, nil
}

func (s *DispatchService) emitBadges(carrierID string, badges []string) {
	for _, badge := range badges {
		s.emitter.Emit(notifications.BadgeEarned{CarrierID: carrierID, Badge: badge})
	}
}

func (s *DispatchService) load(ctx context.Context, taskID string) (*model.Task, *model.Item, error) {
	task, err := s.store.Tasks().FindByID(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	item, err := s.store.Items().FindByID(ctx, task.ItemID)
	if err != nil {
		return nil, nil, err
	}
	return task, item, nil
}
