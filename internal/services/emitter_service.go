package services

import (
	"context"
	"log"
	"sync"
	"time"

	"surplus-relay.com/surplus-relay/internal/metrics"
	"surplus-relay.com/surplus-relay/internal/notifications"
	"surplus-relay.com/surplus-relay/internal/queue"
)

const publishTimeout = 5 * time.Second

// Emitter accepts notifications for committed transitions. Emit must never
// block and never fail the caller.
type Emitter interface {
	Emit(n notifications.Notification) bool
}

// EmitterService fans notifications out to a Publisher from a fixed pool of
// workers reading a bounded queue.
type EmitterService struct {
	queue     chan notifications.Notification
	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
	publisher queue.Publisher
}

func NewEmitterService(publisher queue.Publisher, workers int, queueSize int) *EmitterService {
	e := &EmitterService{
		queue:     make(chan notifications.Notification, queueSize),
		publisher: publisher,
	}

	for i := 1; i <= workers; i++ {
		e.wg.Add(1)
		go e.worker(i)
	}

	return e
}

// Emit queues n and returns immediately. A full queue or a stopped emitter
// drops the notification.
func (e *EmitterService) Emit(n notifications.Notification) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		log.Printf("emitter: dropped %s after shutdown", n.Kind())
		metrics.Notifications.WithLabelValues(string(n.Kind()), "dropped").Inc()
		return false
	}

	// Counted before the send so a worker's Dec can never land first.
	metrics.EmitterQueueDepth.Inc()
	select {
	case e.queue <- n:
		return true
	default:
		metrics.EmitterQueueDepth.Dec()
		log.Printf("emitter: queue full, dropped %s", n.Kind())
		metrics.Notifications.WithLabelValues(string(n.Kind()), "dropped").Inc()
		return false
	}
}

func (e *EmitterService) worker(workerID int) {
	defer e.wg.Done()

	log.Printf("emitter worker %d started", workerID)

	for n := range e.queue {
		metrics.EmitterQueueDepth.Dec()
		e.handle(workerID, n)
	}

	log.Printf("emitter worker %d stopped", workerID)
}

func (e *EmitterService) handle(workerID int, n notifications.Notification) {
	for _, env := range notifications.Expand(n, time.Now()) {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err := e.publisher.Publish(ctx, env)
		cancel()

		if err != nil {
			log.Printf("emitter worker %d: failed to publish %s to %s: %v", workerID, env.Kind, env.RecipientID, err)
			metrics.Notifications.WithLabelValues(string(env.Kind), "failed").Inc()
			continue
		}
		metrics.Notifications.WithLabelValues(string(env.Kind), "sent").Inc()
	}
}

// Shutdown stops accepting notifications and waits for queued ones to be
// published, or for ctx to expire.
func (e *EmitterService) Shutdown(ctx context.Context) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.queue)
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("emitter drained cleanly")
	case <-ctx.Done():
		log.Println("emitter shutdown timed out")
	}
}
