package services

import (
	"context"
	"log"
	"sync"
	"time"
)

// SweeperService periodically expires overdue items and frees tasks whose
// carrier never showed up.
type SweeperService struct {
	claims            *ClaimService
	dispatch          *DispatchService
	interval          time.Duration
	assignmentTimeout time.Duration
	wg                sync.WaitGroup
	stop              chan struct{}
	once              sync.Once
}

func NewSweeperService(
	claims *ClaimService,
	dispatch *DispatchService,
	interval time.Duration,
	assignmentTimeout time.Duration,
) *SweeperService {
	return &SweeperService{
		claims:            claims,
		dispatch:          dispatch,
		interval:          interval,
		assignmentTimeout: assignmentTimeout,
		stop:              make(chan struct{}),
	}
}

func (s *SweeperService) Start() {
	s.wg.Add(1)
	go s.loop()
}

func (s *SweeperService) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunOnce(context.Background())
		case <-s.stop:
			return
		}
	}
}

// RunOnce performs a single sweep and reports what it changed.
func (s *SweeperService) RunOnce(ctx context.Context) (expired, released int) {
	expired, err := s.claims.ExpireOverdueItems(ctx)
	if err != nil {
		log.Printf("sweeper: failed to expire overdue items: %v", err)
	}

	released, err = s.dispatch.ReleaseStaleAssignments(ctx, s.assignmentTimeout)
	if err != nil {
		log.Printf("sweeper: failed to release stale assignments: %v", err)
	}

	if expired > 0 || released > 0 {
		log.Printf("sweeper: expired %d items, released %d assignments", expired, released)
	}
	return expired, released
}

func (s *SweeperService) Shutdown() {
	s.once.Do(func() {
		close(s.stop)
	})
	s.wg.Wait()
}
