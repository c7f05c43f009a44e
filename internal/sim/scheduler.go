package sim

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/technosupport/fleetwatch/internal/data"
)

// TransitionPublisher forwards a tick's transition set to interested
// consumers (the NATS event stream). Publishing happens after the tick has
// been fully applied and persisted.
type TransitionPublisher interface {
	Publish(ctx context.Context, transitions []data.Transition) error
}

// SchedulerConfig defines the tick cadence.
type SchedulerConfig struct {
	Interval time.Duration
}

// Scheduler drives the engine on a fixed period. Ticks are strictly
// serialized: the single run loop does not start a tick before the previous
// tick's apply-and-propagate sequence has returned.
type Scheduler struct {
	config    SchedulerConfig
	engine    *Engine
	publisher TransitionPublisher
	quit      chan struct{}
	wg        sync.WaitGroup
}

func NewScheduler(cfg SchedulerConfig, engine *Engine, pub TransitionPublisher) *Scheduler {
	if cfg.Interval == 0 {
		cfg.Interval = 3 * time.Second
	}
	return &Scheduler{
		config:    cfg,
		engine:    engine,
		publisher: pub,
		quit:      make(chan struct{}),
	}
}

// Start launches the tick loop.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.run()
}

// Stop waits for an in-flight tick to finish before returning.
func (s *Scheduler) Stop() {
	close(s.quit)
	s.wg.Wait()
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	ctx := context.Background()
	for {
		select {
		case <-s.quit:
			return
		case <-ticker.C:
			s.tickOnce(ctx)
		}
	}
}

// tickOnce never halts the loop: a persistence or publish failure is logged
// and the next tick proceeds.
func (s *Scheduler) tickOnce(ctx context.Context) {
	transitions, err := s.engine.Tick(ctx)
	if err != nil {
		log.Printf("sim: tick apply error: %v", err)
	}
	if len(transitions) == 0 || s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, transitions); err != nil {
		log.Printf("sim: transition publish failed: %v", err)
	}
}
