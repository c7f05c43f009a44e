package faults

import (
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/technosupport/fleetwatch/internal/data"
	"github.com/technosupport/fleetwatch/internal/metrics"
)

// Ledger maintains the append-only FaultRecord collection. All methods expect
// to run inside the store's exclusive section; the ledger itself holds no
// state beyond what lives in data.State.
type Ledger struct{}

func NewLedger() *Ledger { return &Ledger{} }

// Apply folds one tick's transition set into the fault collection. Fault
// records are appended for failures and closed for repairs; the single
// open-fault-per-camera invariant is preserved by checking for an existing
// open record before appending.
func (l *Ledger) Apply(s *data.State, transitions []data.Transition) {
	for _, tr := range transitions {
		switch tr.Type {
		case data.TransitionNVRFailure:
			for _, cam := range s.CamerasUnder(tr.NVRID) {
				l.open(s, cam, tr.At)
			}
		case data.TransitionFailure:
			if cam := s.FindCamera(tr.CameraID); cam != nil {
				l.open(s, cam, tr.At)
			}
		case data.TransitionRepair:
			l.Close(s, tr.CameraID, tr.At)
		}
	}
	metrics.SetOpenFaults(countOpen(s))
}

// Close sets TimeOn on the camera's open fault, if one exists. A repair for a
// camera with no open fault is a diagnostic no-op, never an error.
func (l *Ledger) Close(s *data.State, cameraID uuid.UUID, at time.Time) bool {
	f := s.OpenFault(cameraID)
	if f == nil {
		log.Printf("fault ledger: repair for camera %s with no open fault (ignored)", cameraID)
		return false
	}
	t := at
	f.TimeOn = &t
	metrics.SetOpenFaults(countOpen(s))
	return true
}

// DropForCameras removes every fault record referencing one of the given
// cameras. Only cascading NVR deletion is allowed to call this; all other
// paths are append/close only.
func (l *Ledger) DropForCameras(s *data.State, cameraIDs map[uuid.UUID]bool) {
	kept := s.Faults[:0]
	for _, f := range s.Faults {
		if !cameraIDs[f.CameraID] {
			kept = append(kept, f)
		}
	}
	s.Faults = kept
	metrics.SetOpenFaults(countOpen(s))
}

func (l *Ledger) open(s *data.State, cam *data.Camera, at time.Time) {
	if s.OpenFault(cam.ID) != nil {
		return
	}
	s.Faults = append(s.Faults, &data.FaultRecord{
		ID:         uuid.New(),
		CameraID:   cam.ID,
		CameraName: cam.Name,
		Location:   cam.Location,
		NVRID:      cam.NVRID,
		TimeOff:    at,
	})
}

func countOpen(s *data.State) int {
	n := 0
	for _, f := range s.Faults {
		if f.Open() {
			n++
		}
	}
	return n
}
