package alerts

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/technosupport/fleetwatch/internal/data"
	"github.com/technosupport/fleetwatch/internal/metrics"
)

// Emitter translates transition events, analysis results and CRUD outcomes
// into Alert entries. Alerts are prepended (newest first) and never mutated in
// place. Methods expect to run inside the store's exclusive section.
type Emitter struct {
	dedup *lru.Cache[string, time.Time]
	ttl   time.Duration
}

// NewEmitter builds an emitter with a bounded dedup cache for analysis
// alerts. A zero ttl disables deduplication.
func NewEmitter(dedupKeys int, dedupTTL time.Duration) *Emitter {
	if dedupKeys <= 0 {
		dedupKeys = 512
	}
	c, _ := lru.New[string, time.Time](dedupKeys)
	return &Emitter{dedup: c, ttl: dedupTTL}
}

// Apply appends alerts for one tick's transition set.
//   - NVR_FAILURE: one CRITICAL system alert naming the unreachable NVR.
//   - FAILURE: one WARNING alert sourced from the camera, naming the owning
//     NVR as the cause.
//   - REPAIR: quiet. Recovery surfaces only through the manual reconnect flow.
func (e *Emitter) Apply(s *data.State, transitions []data.Transition) {
	for _, tr := range transitions {
		switch tr.Type {
		case data.TransitionNVRFailure:
			name := tr.NVRID.String()
			if n := s.FindNVR(tr.NVRID); n != nil {
				name = n.Name
			}
			e.append(s, &data.Alert{
				Source:   data.AlertSourceSystem,
				Message:  fmt.Sprintf("NVR %s unreachable: all channels lost", name),
				Severity: data.SeverityCritical,
			}, tr.At)
		case data.TransitionFailure:
			cam := s.FindCamera(tr.CameraID)
			if cam == nil {
				continue
			}
			nvrName := cam.NVRID.String()
			if n := s.FindNVR(cam.NVRID); n != nil {
				nvrName = n.Name
			}
			e.append(s, &data.Alert{
				Source:   cam.ID.String(),
				Message:  fmt.Sprintf("Camera %s offline (NVR %s)", cam.Name, nvrName),
				Severity: data.SeverityWarning,
			}, tr.At)
		case data.TransitionRepair:
			// quiet by design
		}
	}
}

// FromAnalysis appends an alert for a frame analysis result when the result
// warrants one: threat level HIGH or CRITICAL, or any detected anomaly.
// Severity is CRITICAL iff the threat level is CRITICAL. Returns true if an
// alert was appended.
func (e *Emitter) FromAnalysis(s *data.State, cam *data.Camera, res *data.AnalysisResult, frame []byte) bool {
	if res.ThreatLevel != data.ThreatHigh && res.ThreatLevel != data.ThreatCritical && len(res.Anomalies) == 0 {
		return false
	}

	detail := "Suspicious activity"
	if len(res.Anomalies) > 0 {
		detail = strings.Join(res.Anomalies, ", ")
	}

	if e.ttl > 0 {
		key := fmt.Sprintf("%s|%s|%s", cam.ID, res.ThreatLevel, detail)
		if at, ok := e.dedup.Get(key); ok && time.Since(at) < e.ttl {
			return false
		}
		e.dedup.Add(key, time.Now())
	}

	sev := data.SeverityWarning
	if res.ThreatLevel == data.ThreatCritical {
		sev = data.SeverityCritical
	}
	e.append(s, &data.Alert{
		Source:    cam.ID.String(),
		Message:   fmt.Sprintf("%s: %s", res.ThreatLevel, detail),
		Severity:  sev,
		Thumbnail: frame,
	}, res.AnalyzedAt)
	return true
}

// SystemEvent appends a system-sourced alert for CRUD outcomes.
func (e *Emitter) SystemEvent(s *data.State, message string, severity data.AlertSeverity, at time.Time) {
	e.append(s, &data.Alert{
		Source:   data.AlertSourceSystem,
		Message:  message,
		Severity: severity,
	}, at)
}

// PurgeForCamera removes every alert sourced from the camera. Used by the
// manual reconnect flow, which is intentionally quiet otherwise.
func (e *Emitter) PurgeForCamera(s *data.State, cameraID uuid.UUID) int {
	src := cameraID.String()
	kept := s.Alerts[:0]
	removed := 0
	for _, a := range s.Alerts {
		if a.Source == src {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	s.Alerts = kept
	return removed
}

// DropForCameras removes alerts referencing any of the given cameras. Only
// cascading NVR deletion calls this.
func (e *Emitter) DropForCameras(s *data.State, cameraIDs map[uuid.UUID]bool) {
	kept := s.Alerts[:0]
	for _, a := range s.Alerts {
		if id, err := uuid.Parse(a.Source); err == nil && cameraIDs[id] {
			continue
		}
		kept = append(kept, a)
	}
	s.Alerts = kept
}

func (e *Emitter) append(s *data.State, a *data.Alert, at time.Time) {
	a.ID = uuid.New()
	a.Timestamp = at
	s.Alerts = append([]*data.Alert{a}, s.Alerts...)
	metrics.RecordAlert(string(a.Severity))
}
