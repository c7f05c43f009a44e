package sim

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/technosupport/fleetwatch/internal/data"
	"github.com/technosupport/fleetwatch/internal/metrics"
	"github.com/technosupport/fleetwatch/internal/store"
)

// Engine perturbs camera/NVR availability on each tick and drives the fault
// ledger and alert emitter with the resulting transition set. A tick runs
// entirely inside one store mutation, so ticks and user actions form a single
// total order and no tick can observe another tick's partial results.
type Engine struct {
	store *store.Store
	rng   Rand
	now   func() time.Time

	probsMu sync.RWMutex
	probs   Probabilities
}

func NewEngine(st *store.Store, rng Rand, probs Probabilities, clock func() time.Time) *Engine {
	if clock == nil {
		clock = time.Now
	}
	return &Engine{store: st, rng: rng, now: clock, probs: probs}
}

// Probabilities returns the current roll table.
func (e *Engine) Probabilities() Probabilities {
	e.probsMu.RLock()
	defer e.probsMu.RUnlock()
	return e.probs
}

// SetProbabilities swaps the roll table (config hot reload).
func (e *Engine) SetProbabilities(p Probabilities) {
	e.probsMu.Lock()
	defer e.probsMu.Unlock()
	e.probs = p
}

// Tick computes and applies one round of transitions. A tick with zero
// transitions mutates nothing: collections are left untouched and the
// snapshot is not rewritten. Tick never panics over a bad draw; a persistence
// failure is returned for logging but the in-memory state stays consistent.
func (e *Engine) Tick(ctx context.Context) ([]data.Transition, error) {
	var transitions []data.Transition
	p := e.Probabilities()

	err := e.store.Mutate(ctx, func(st *data.State) (bool, error) {
		now := e.now()

		// Pre-tick snapshot of availability. All branch decisions below are
		// made against this, never against partial results of the same tick.
		preOnline := make(map[uuid.UUID]bool, len(st.Cameras))
		for _, c := range st.Cameras {
			preOnline[c.ID] = c.IsOnline
		}

		// Step 1: whole-NVR failure roll.
		var failedNVR uuid.UUID
		cascaded := false
		if e.rng.Float64() < p.NVRFailure {
			ids := representedNVRs(st.Cameras)
			if len(ids) > 0 {
				nvrID := ids[e.rng.Intn(len(ids))]
				anyOnline := false
				for _, c := range st.CamerasUnder(nvrID) {
					if preOnline[c.ID] {
						anyOnline = true
						break
					}
				}
				if anyOnline {
					for _, c := range st.CamerasUnder(nvrID) {
						markOffline(c, now)
					}
					if n := st.FindNVR(nvrID); n != nil {
						n.Status = data.NVRStatusOffline
					}
					transitions = append(transitions, data.NVRFailure(nvrID, now))
					failedNVR, cascaded = nvrID, true
				}
			}
		}

		// Step 2: per-camera rolls, skipping the cascade from step 1.
		// NVR recovery is rolled once per tick per NVR and the result applied
		// uniformly to every camera under it.
		recoveryRolls := make(map[uuid.UUID]bool)
		for _, c := range st.Cameras {
			if cascaded && c.NVRID == failedNVR {
				continue
			}
			if !preOnline[c.ID] {
				if e.rng.Float64() >= p.CameraRepair {
					continue
				}
				if n := st.FindNVR(c.NVRID); n != nil && n.Status == data.NVRStatusOffline {
					recovered, rolled := recoveryRolls[c.NVRID]
					if !rolled {
						recovered = e.rng.Float64() < p.NVRRecovery
						recoveryRolls[c.NVRID] = recovered
					}
					if !recovered {
						continue // NVR stayed down, camera stays down
					}
					n.Status = data.NVRStatusOnline
				}
				markOnline(c, now)
				transitions = append(transitions, data.Repair(c.ID, now))
			} else if e.rng.Float64() < p.CameraFailure {
				markOffline(c, now)
				transitions = append(transitions, data.Failure(c.ID, now))
			}
		}

		if len(transitions) == 0 {
			return false, nil
		}

		e.store.Ledger().Apply(st, transitions)
		e.store.Emitter().Apply(st, transitions)
		return true, nil
	})

	metrics.RecordTick(len(transitions) > 0)
	for _, tr := range transitions {
		metrics.RecordTransition(string(tr.Type))
	}
	return transitions, err
}

// representedNVRs lists distinct NVR ids in first-appearance order over the
// camera collection, so the uniform pick is deterministic under a scripted
// Rand.
func representedNVRs(cameras []*data.Camera) []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, c := range cameras {
		if !seen[c.NVRID] {
			seen[c.NVRID] = true
			ids = append(ids, c.NVRID)
		}
	}
	return ids
}

func markOffline(c *data.Camera, now time.Time) {
	if !c.IsOnline && !c.IsRecording {
		c.UpdatedAt = now
		return
	}
	c.IsOnline = false
	c.IsRecording = false // recording implies online, cleared in the same step
	c.StatusChangedAt = now
	c.UpdatedAt = now
}

func markOnline(c *data.Camera, now time.Time) {
	c.IsOnline = true
	c.IsRecording = true
	c.StatusChangedAt = now
	c.UpdatedAt = now
}
