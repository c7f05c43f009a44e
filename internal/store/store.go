package store

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/technosupport/fleetwatch/internal/alerts"
	"github.com/technosupport/fleetwatch/internal/audit"
	"github.com/technosupport/fleetwatch/internal/data"
	"github.com/technosupport/fleetwatch/internal/faults"
	"github.com/technosupport/fleetwatch/internal/metrics"
	"github.com/technosupport/fleetwatch/internal/notify"
)

var (
	ErrNotFound      = errors.New("not_found")
	ErrValidation    = errors.New("validation failed")
	ErrEmailTaken    = errors.New("email already registered")
	ErrNotConfirmed  = errors.New("destructive action not confirmed")
	ErrImportInvalid = errors.New("import rejected")
)

// Notifier publishes short-lived user-facing notices.
type Notifier interface {
	Publish(kind notify.NoticeKind, message string)
}

// Auditor records operator actions.
type Auditor interface {
	WriteEvent(ctx context.Context, evt audit.Event) error
}

// Store owns the live collections. Every mutation goes through Mutate, which
// serializes access and persists the snapshot before the mutation is
// considered complete. Ticks and user actions therefore form one total order.
type Store struct {
	mu        sync.Mutex
	state     *data.State
	snapshots data.SnapshotRepository
	notifier  Notifier
	auditor   Auditor
	ledger    *faults.Ledger
	emitter   *alerts.Emitter

	now func() time.Time
}

type Options struct {
	Snapshots data.SnapshotRepository
	Notifier  Notifier
	Auditor   Auditor
	Ledger    *faults.Ledger
	Emitter   *alerts.Emitter
	Clock     func() time.Time
}

func New(opts Options) *Store {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Ledger == nil {
		opts.Ledger = faults.NewLedger()
	}
	if opts.Emitter == nil {
		opts.Emitter = alerts.NewEmitter(0, 0)
	}
	return &Store{
		state:     data.NewState(),
		snapshots: opts.Snapshots,
		notifier:  opts.Notifier,
		auditor:   opts.Auditor,
		ledger:    opts.Ledger,
		emitter:   opts.Emitter,
		now:       opts.Clock,
	}
}

// Load restores state from the snapshot repository, seeding the default fleet
// on first boot.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.snapshots.Load(ctx)
	if errors.Is(err, data.ErrNoSnapshot) {
		log.Printf("store: no snapshot found, seeding default fleet")
		seedState(s.state, s.now())
		return s.persistLocked(ctx)
	}
	if err != nil {
		return err
	}
	snap.Restore(s.state)
	log.Printf("store: restored snapshot (%d cameras, %d nvrs, %d faults, %d alerts)",
		len(s.state.Cameras), len(s.state.NVRs), len(s.state.Faults), len(s.state.Alerts))
	return nil
}

// Mutate runs fn inside the exclusive section. If fn reports a change, the
// snapshot is persisted before Mutate returns. fn returning an error leaves
// the persisted snapshot untouched.
func (s *Store) Mutate(ctx context.Context, fn func(st *data.State) (changed bool, err error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed, err := fn(s.state)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return s.persistLocked(ctx)
}

// View runs fn with shared read access to the state. fn must not retain or
// mutate anything it is handed.
func (s *Store) View(fn func(st *data.State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.state)
}

// Ledger exposes the fault ledger for callers composing mutations (the tick
// engine runs the ledger inside a single Mutate).
func (s *Store) Ledger() *faults.Ledger { return s.ledger }

// Emitter exposes the alert emitter for the same purpose.
func (s *Store) Emitter() *alerts.Emitter { return s.emitter }

func (s *Store) persistLocked(ctx context.Context) error {
	snap := data.CaptureSnapshot(s.state, s.now())
	if err := s.snapshots.Save(ctx, snap); err != nil {
		metrics.SnapshotWritesTotal.WithLabelValues("fail").Inc()
		log.Printf("store: snapshot persist failed: %v", err)
		return err
	}
	metrics.SnapshotWritesTotal.WithLabelValues("success").Inc()
	return nil
}

func (s *Store) notifyUser(kind notify.NoticeKind, message string) {
	if s.notifier != nil {
		s.notifier.Publish(kind, message)
	}
}

func (s *Store) auditAction(ctx context.Context, action, targetType, targetID, result string) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.WriteEvent(ctx, audit.Event{
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Result:     result,
		CreatedAt:  s.now(),
	}); err != nil {
		log.Printf("store: audit write failed for %s: %v", action, err)
	}
}
