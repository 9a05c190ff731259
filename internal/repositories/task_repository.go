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

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// CreateForItem opens the pending delivery task for a freshly claimed item.
func (r *TaskRepository) CreateForItem(ctx context.Context, item *model.Item, claimantID string) (*model.Task, error) {
	now := time.Now().UTC()
	task := &model.Task{
		ID:         uuid.NewString(),
		ItemID:     item.ID,
		OwnerID:    item.OwnerID,
		ClaimantID: claimantID,
		Status:     constants.TaskPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return nil, err
	}

	return task, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("task %s: %w", id, apperrors.ErrTaskNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *TaskRepository) FindByItemID(ctx context.Context, itemID string) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).First(&task, "item_id = ?", itemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("task for item %s: %w", itemID, apperrors.ErrTaskNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// MarkAccepted flips the item's task to assigned once the donor approves.
func (r *TaskRepository) MarkAccepted(ctx context.Context, itemID string) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("item_id = ? AND status IN ?", itemID, []constants.TaskStatus{constants.TaskPending, constants.TaskAssigned}).
		Updates(map[string]interface{}{
			"status":     constants.TaskAssigned,
			"updated_at": time.Now().UTC(),
		})
	return affected(res)
}

// AssignCarrier is the single compare-and-set that decides an assignment race.
func (r *TaskRepository) AssignCarrier(ctx context.Context, id, carrierID string, volunteer bool, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND carrier_id IS NULL AND status IN ?", id,
			[]constants.TaskStatus{constants.TaskPending, constants.TaskAssigned}).
		Updates(map[string]interface{}{
			"carrier_id":   carrierID,
			"status":       constants.TaskAssigned,
			"is_volunteer": volunteer,
			"assigned_at":  at,
			"updated_at":   at,
		})
	return affected(res)
}

// Advance moves the task from one status to another. When carrierID is
// non-empty the write only applies while that carrier holds the task.
func (r *TaskRepository) Advance(
	ctx context.Context,
	id, carrierID string,
	from, to constants.TaskStatus,
	extra map[string]interface{},
) error {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	for k, v := range extra {
		updates[k] = v
	}

	query := r.db.WithContext(ctx).Model(&model.Task{}).Where("id = ? AND status = ?", id, from)
	if carrierID != "" {
		query = query.Where("carrier_id = ?", carrierID)
	}
	return affected(query.Updates(updates))
}

// StartSelfDelivery puts a carrier-free, donor-approved task on the donor's
// own delivery path.
func (r *TaskRepository) StartSelfDelivery(ctx context.Context, id string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND carrier_id IS NULL AND status = ?", id, constants.TaskAssigned).
		Updates(map[string]interface{}{
			"status":           constants.TaskSelfDelivery,
			"pickup_timestamp": at,
			"updated_at":       at,
		})
	return affected(res)
}

// ReleaseCarrier clears the carrier from a task that was never picked up.
func (r *TaskRepository) ReleaseCarrier(ctx context.Context, id, carrierID string) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND carrier_id = ? AND status = ?", id, carrierID, constants.TaskAssigned).
		Updates(map[string]interface{}{
			"carrier_id":   nil,
			"is_volunteer": false,
			"assigned_at":  nil,
			"updated_at":   time.Now().UTC(),
		})
	return affected(res)
}

func (r *TaskRepository) DeleteByItemID(ctx context.Context, itemID string) error {
	res := r.db.WithContext(ctx).Where("item_id = ?", itemID).Delete(&model.Task{})
	return affected(res)
}

// ListStaleAssignments returns carrier-held tasks assigned before cutoff and
// still waiting for pickup.
func (r *TaskRepository) ListStaleAssignments(ctx context.Context, cutoff time.Time, limit int) ([]model.Task, error) {
	if limit <= 0 {
		return nil, apperrors.NewValidationError("limit must be positive")
	}

	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Where("status = ? AND carrier_id IS NOT NULL AND assigned_at < ?", constants.TaskAssigned, cutoff).
		Order("assigned_at asc").Limit(limit).
		Find(&tasks).Error
	return tasks, err
}

func (r *TaskRepository) ListByCarrier(ctx context.Context, carrierID string) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Where("carrier_id = ?", carrierID).
		Order("created_at desc").
		Find(&tasks).Error
	return tasks, err
}
