package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	config "surplus-relay.com/surplus-relay/internal/configs"
	"surplus-relay.com/surplus-relay/internal/metrics"
	"surplus-relay.com/surplus-relay/internal/notifications"
	repository "surplus-relay.com/surplus-relay/internal/repositories"
	"surplus-relay.com/surplus-relay/internal/scoring"
	model "surplus-relay.com/surplus-relay/pkg/models"
)

// recordingEmitter keeps every notification in memory for assertions
type recordingEmitter struct {
	mu   sync.Mutex
	sent []notifications.Notification
}

func (r *recordingEmitter) Emit(n notifications.Notification) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sent = append(r.sent, n)
	return true
}

func (r *recordingEmitter) count(kind notifications.Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, s := range r.sent {
		if s.Kind() == kind {
			n++
		}
	}
	return n
}

func (r *recordingEmitter) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.sent)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

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

type fixture struct {
	store    *repository.Store
	emitter  *recordingEmitter
	clock    *testClock
	claims   *ClaimService
	dispatch *DispatchService
}

func newFixture(t *testing.T) *fixture {
	store := repository.NewStore(setupTestDB(t))
	emitter := &recordingEmitter{}
	clock := &testClock{now: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)}

	claims := NewClaimService(store, emitter)
	claims.now = clock.Now
	dispatch := NewDispatchService(store, emitter, scoring.DefaultBadgeRules())
	dispatch.now = clock.Now

	return &fixture{
		store:    store,
		emitter:  emitter,
		clock:    clock,
		claims:   claims,
		dispatch: dispatch,
	}
}

func (f *fixture) createItem(t *testing.T, donorID string) *model.Item {
	t.Helper()

	item, err := f.claims.CreateItem(context.Background(), donorID, NewItem{
		Title:    "Vegetable soup",
		Category: "food",
		Quantity: 10,
		Unit:     "meals",
		Location: "Depot 4",
	})
	if err != nil {
		t.Fatalf("failed to create item: %v", err)
	}
	return item
}

// acceptedTask walks a fresh item through claim and accept.
func (f *fixture) acceptedTask(t *testing.T, donorID, recipientID string) (*model.Item, *model.Task) {
	t.Helper()
	ctx := context.Background()

	item := f.createItem(t, donorID)
	if _, err := f.claims.Claim(ctx, item.ID, recipientID); err != nil {
		t.Fatalf("failed to claim item: %v", err)
	}
	task, err := f.claims.Accept(ctx, item.ID, donorID)
	if err != nil {
		t.Fatalf("failed to accept claim: %v", err)
	}
	return item, task
}

func (f *fixture) item(t *testing.T, id string) *model.Item {
	t.Helper()

	item, err := f.store.Items().FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to load item %s: %v", id, err)
	}
	return item
}

func (f *fixture) task(t *testing.T, id string) *model.Task {
	t.Helper()

	task, err := f.store.Tasks().FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to load task %s: %v", id, err)
	}
	return task
}

// recordingPublisher collects envelopes and can be told to fail
type recordingPublisher struct {
	mu   sync.Mutex
	envs []notifications.Envelope
	fail bool
}

func (p *recordingPublisher) Publish(ctx context.Context, env notifications.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.fail {
		return errors.New("backend unavailable")
	}
	p.envs = append(p.envs, env)
	return nil
}

func (p *recordingPublisher) recipients() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]int)
	for _, e := range p.envs {
		out[e.RecipientID]++
	}
	return out
}

func TestEmitterService_PublishesToEveryRecipient(t *testing.T) {
	publisher := &recordingPublisher{}
	emitter := NewEmitterService(publisher, 2, 10)

	if ok := emitter.Emit(notifications.PickedUp{ItemID: "i", TaskID: "t", DonorID: "donor", RecipientID: "ngo", CarrierID: "c"}); !ok {
		t.Fatal("expected notification to be queued")
	}
	emitter.Shutdown(context.Background())

	got := publisher.recipients()
	if got["donor"] != 1 || got["ngo"] != 1 || len(got) != 2 {
		t.Errorf("expected one envelope each for donor and ngo, got %v", got)
	}
}

func TestEmitterService_SwallowsPublishFailures(t *testing.T) {
	publisher := &recordingPublisher{fail: true}
	emitter := NewEmitterService(publisher, 1, 10)

	for i := 0; i < 5; i++ {
		if ok := emitter.Emit(notifications.ClaimPlaced{ItemID: "i", DonorID: "donor"}); !ok {
			t.Fatal("expected notification to be queued despite a failing backend")
		}
	}
	emitter.Shutdown(context.Background())
}

func TestEmitterService_DropsWhenFull(t *testing.T) {
	emitter := NewEmitterService(&recordingPublisher{}, 0, 2)
	defer emitter.Shutdown(context.Background())

	results := make([]bool, 0, 4)
	for i := 0; i < 4; i++ {
		results = append(results, emitter.Emit(notifications.ItemExpired{ItemID: "i", DonorID: "d"}))
	}

	queued := 0
	for _, ok := range results {
		if ok {
			queued++
		}
	}
	if queued != 2 {
		t.Errorf("expected 2 notifications queued (queue size), got %d", queued)
	}
}

func TestEmitterService_QueueDepthCountsOnlyQueued(t *testing.T) {
	before := testutil.ToFloat64(metrics.EmitterQueueDepth)

	emitter := NewEmitterService(&recordingPublisher{}, 0, 1)
	defer emitter.Shutdown(context.Background())

	emitter.Emit(notifications.ItemExpired{ItemID: "i", DonorID: "d"})
	emitter.Emit(notifications.ItemExpired{ItemID: "i", DonorID: "d"})

	if got := testutil.ToFloat64(metrics.EmitterQueueDepth) - before; got != 1 {
		t.Errorf("expected queue depth to grow by 1, got %v", got)
	}
}

func TestEmitterService_QueueDepthReturnsAfterDrain(t *testing.T) {
	before := testutil.ToFloat64(metrics.EmitterQueueDepth)

	emitter := NewEmitterService(&recordingPublisher{}, 2, 8)
	for i := 0; i < 50; i++ {
		emitter.Emit(notifications.ItemExpired{ItemID: fmt.Sprintf("item-%d", i), DonorID: "d"})
	}
	emitter.Shutdown(context.Background())

	if got := testutil.ToFloat64(metrics.EmitterQueueDepth); got != before {
		t.Errorf("expected queue depth back at %v after drain, got %v", before, got)
	}
}

func TestEmitterService_EmitAfterShutdown(t *testing.T) {
	emitter := NewEmitterService(&recordingPublisher{}, 1, 2)
	emitter.Shutdown(context.Background())

	if emitter.Emit(notifications.ItemExpired{ItemID: "i", DonorID: "d"}) {
		t.Error("expected emit after shutdown to be dropped")
	}
	emitter.Shutdown(context.Background())
}

func TestEmitterService_ConcurrentEmit(t *testing.T) {
	publisher := &recordingPublisher{}
	emitter := NewEmitterService(publisher, 4, 100)

	const count = 50
	var wg sync.WaitGroup
	wg.Add(count)
	for i := 0; i < count; i++ {
		go func(idx int) {
			defer wg.Done()
			emitter.Emit(notifications.BadgeEarned{CarrierID: fmt.Sprintf("carrier-%d", idx), Badge: "first-delivery"})
		}(i)
	}
	wg.Wait()
	emitter.Shutdown(context.Background())

	if got := len(publisher.recipients()); got != count {
		t.Errorf("expected %d distinct recipients, got %d", count, got)
	}
}
