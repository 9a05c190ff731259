package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	config "surplus-relay.com/surplus-relay/internal/configs"
	apperrors "surplus-relay.com/surplus-relay/internal/errors"
	"surplus-relay.com/surplus-relay/pkg/constants"
	model "surplus-relay.com/surplus-relay/pkg/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := config.Migrate(db); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	return db
}

func newItem(t *testing.T, store *Store) *model.Item {
	t.Helper()

	item := &model.Item{OwnerID: "donor-1", Title: "Rice", Category: "food", Quantity: 4, Unit: "kg", Location: "Depot"}
	if err := store.Items().Create(context.Background(), item); err != nil {
		t.Fatalf("failed to create item: %v", err)
	}
	return item
}

func TestItemRepository_ClaimIsConditional(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()
	item := newItem(t, store)

	if err := store.Items().Claim(ctx, item.ID, "ngo-1", time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Items().Claim(ctx, item.ID, "ngo-2", time.Now()); !errors.Is(err, ErrConditionNotMet) {
		t.Errorf("expected ErrConditionNotMet, got %v", err)
	}

	stored, err := store.Items().FindByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.ClaimantID == nil || *stored.ClaimantID != "ngo-1" {
		t.Errorf("expected claimant ngo-1, got %v", stored.ClaimantID)
	}
}

func TestItemRepository_ClaimSkipsOverdueItems(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	expiresAt := now.Add(time.Hour)
	item := &model.Item{
		OwnerID: "donor-1", Title: "Soup", Category: "food", Quantity: 2, Unit: "l", Location: "Kitchen",
		ExpiresAt: &expiresAt,
	}
	if err := store.Items().Create(ctx, item); err != nil {
		t.Fatalf("failed to create item: %v", err)
	}

	later := now.Add(2 * time.Hour)
	listed, err := store.Items().ListAvailable(ctx, later, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(listed) != 0 {
		t.Errorf("expected overdue item hidden from the available list, got %d", len(listed))
	}

	if err := store.Items().Claim(ctx, item.ID, "ngo-1", later); !errors.Is(err, ErrConditionNotMet) {
		t.Errorf("expected ErrConditionNotMet claiming past expiry, got %v", err)
	}
	if err := store.Items().Claim(ctx, item.ID, "ngo-1", now); err != nil {
		t.Errorf("expected claim before expiry to succeed, got %v", err)
	}
}

func TestItemRepository_FindMissing(t *testing.T) {
	store := NewStore(setupTestDB(t))

	_, err := store.Items().FindByID(context.Background(), "missing")
	if !errors.Is(err, apperrors.ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
}

func TestItemRepository_AddFeedbackOnce(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()
	item := newItem(t, store)

	if err := store.Items().AddFeedback(ctx, item.ID, "ngo-1", 5, "thanks"); !errors.Is(err, ErrConditionNotMet) {
		t.Errorf("expected feedback on an undelivered item to match nothing, got %v", err)
	}

	if err := store.Items().Claim(ctx, item.ID, "ngo-1", time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Items().Transition(ctx, item.ID, constants.ItemClaimed, constants.ItemDelivered, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := store.Items().AddFeedback(ctx, item.ID, "ngo-1", 5, "thanks"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Items().AddFeedback(ctx, item.ID, "ngo-1", 1, "again"); !errors.Is(err, ErrConditionNotMet) {
		t.Errorf("expected second feedback to match nothing, got %v", err)
	}
}

func TestStore_TransactionRollsBack(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()
	item := newItem(t, store)

	boom := errors.New("boom")
	err := store.Transaction(ctx, func(tx *Store) error {
		if err := tx.Items().Claim(ctx, item.ID, "ngo-1", time.Now()); err != nil {
			return err
		}
		if _, err := tx.Tasks().CreateForItem(ctx, item, "ngo-1"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected transaction error, got %v", err)
	}

	stored, err := store.Items().FindByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.Status != constants.ItemAvailable {
		t.Errorf("expected claim rolled back, got %s", stored.Status)
	}
	if _, err := store.Tasks().FindByItemID(ctx, item.ID); !errors.Is(err, apperrors.ErrTaskNotFound) {
		t.Errorf("expected task insert rolled back, got %v", err)
	}
}

func TestTaskRepository_AssignCarrierIsConditional(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()
	item := newItem(t, store)
	task, err := store.Tasks().CreateForItem(ctx, item, "ngo-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now := time.Now().UTC()
	if err := store.Tasks().AssignCarrier(ctx, task.ID, "carrier-1", false, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Tasks().AssignCarrier(ctx, task.ID, "carrier-2", false, now); !errors.Is(err, ErrConditionNotMet) {
		t.Errorf("expected ErrConditionNotMet, got %v", err)
	}
	if err := store.Tasks().StartSelfDelivery(ctx, task.ID, now); !errors.Is(err, ErrConditionNotMet) {
		t.Errorf("expected self delivery on a carried task to match nothing, got %v", err)
	}

	if err := store.Tasks().ReleaseCarrier(ctx, task.ID, "carrier-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, err := store.Tasks().FindByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.HasCarrier() || stored.AssignedAt != nil || stored.Status != constants.TaskAssigned {
		t.Errorf("expected released assigned task, got %+v", stored)
	}
}

func TestTaskRepository_ListStaleAssignments(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	old, err := store.Tasks().CreateForItem(ctx, newItem(t, store), "ngo-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fresh, err := store.Tasks().CreateForItem(ctx, newItem(t, store), "ngo-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Tasks().AssignCarrier(ctx, old.ID, "carrier-1", false, now.Add(-3*time.Hour)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Tasks().AssignCarrier(ctx, fresh.ID, "carrier-2", false, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stale, err := store.Tasks().ListStaleAssignments(ctx, now.Add(-time.Hour), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stale) != 1 || stale[0].ID != old.ID {
		t.Errorf("expected only the old assignment, got %+v", stale)
	}

	if _, err := store.Tasks().ListStaleAssignments(ctx, now, 0); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected ErrValidation for zero limit, got %v", err)
	}
}

func TestCarrierStatsRepository_ActiveCounterFloorsAtZero(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	if err := store.Stats().DecrementActive(ctx, "vol-1"); err != nil {
		t.Fatalf("unexpected error decrementing an unknown carrier: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := store.Stats().IncrementActive(ctx, "vol-1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	for i := 0; i < 3; i++ {
		if err := store.Stats().DecrementActive(ctx, "vol-1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	stats, err := store.Stats().Get(ctx, "vol-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.ActiveDeliveries != 0 {
		t.Errorf("expected active deliveries floored at 0, got %d", stats.ActiveDeliveries)
	}
}

func TestCarrierStatsRepository_RecordDelivery(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()
	day := time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)

	if err := store.Stats().IncrementActive(ctx, "vol-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	credits := []DeliveryCredit{
		{PeopleHelped: 8, Points: 12, At: day},
		{PeopleHelped: 2, Points: 3, At: day.Add(2 * time.Hour)},
	}
	for _, c := range credits {
		if err := store.Stats().RecordDelivery(ctx, "vol-1", c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	stats, err := store.Stats().Get(ctx, "vol-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalDeliveries != 2 || stats.ActiveDeliveries != 0 {
		t.Errorf("unexpected counters %+v", stats)
	}
	if stats.PeopleHelped != 10 || stats.Points != 15 {
		t.Errorf("unexpected credit %+v", stats)
	}
	if stats.Streak != 1 {
		t.Errorf("expected same-day deliveries to keep streak 1, got %d", stats.Streak)
	}
	if stats.LastDeliveryDay != "2025-03-10" {
		t.Errorf("expected last delivery day 2025-03-10, got %s", stats.LastDeliveryDay)
	}
}

func TestCarrierStatsRepository_FirstDeliveryWithoutRow(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	err := store.Stats().RecordDelivery(ctx, "vol-9", DeliveryCredit{PeopleHelped: 4, Points: 6, At: time.Now()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats, err := store.Stats().Get(ctx, "vol-9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalDeliveries != 1 || stats.Streak != 1 || stats.Points != 6 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestCarrierStatsRepository_AwardBadgeIsSetUnion(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()
	now := time.Now()

	isNew, err := store.Stats().AwardBadge(ctx, "vol-1", "first-delivery", now)
	if err != nil || !isNew {
		t.Fatalf("expected a new badge, got %v, %v", isNew, err)
	}
	isNew, err = store.Stats().AwardBadge(ctx, "vol-1", "first-delivery", now.Add(time.Hour))
	if err != nil || isNew {
		t.Fatalf("expected the repeated badge to be ignored, got %v, %v", isNew, err)
	}

	stats, err := store.Stats().Get(ctx, "vol-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stats.Badges) != 1 || stats.Badges[0] != "first-delivery" {
		t.Errorf("expected one badge, got %v", stats.Badges)
	}
}
