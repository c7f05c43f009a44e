package data

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SnapshotVersion is the current persisted blob format.
const SnapshotVersion = 1

var (
	ErrSnapshotMalformed = errors.New("snapshot malformed")
	ErrSnapshotVersion   = errors.New("unsupported snapshot version")
)

// Snapshot is the versioned blob holding every collection. It is written to
// the snapshot repository after each mutation and is what backup export and
// import exchange.
type Snapshot struct {
	Version    int            `json:"version"`
	ExportedAt time.Time      `json:"exported_at"`
	Cameras    []*Camera      `json:"cameras"`
	NVRs       []*NVRDevice   `json:"nvrs"`
	Users      []*User        `json:"users"`
	Alerts     []*Alert       `json:"alerts"`
	Faults     []*FaultRecord `json:"faults"`
}

// CaptureSnapshot copies the state's collections into a snapshot. The slices
// share element pointers; callers marshal the result before releasing the
// store's exclusive section.
func CaptureSnapshot(s *State, now time.Time) *Snapshot {
	return &Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: now,
		Cameras:    append([]*Camera(nil), s.Cameras...),
		NVRs:       append([]*NVRDevice(nil), s.NVRs...),
		Users:      append([]*User(nil), s.Users...),
		Alerts:     append([]*Alert(nil), s.Alerts...),
		Faults:     append([]*FaultRecord(nil), s.Faults...),
	}
}

// ParseSnapshot validates and decodes an imported blob. Cameras and NVRs must
// be present and array-shaped; any other missing collection defaults to empty.
// A rejected blob produces no partial result.
func ParseSnapshot(raw []byte) (*Snapshot, error) {
	var shape map[string]json.RawMessage
	if err := json.Unmarshal(raw, &shape); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotMalformed, err)
	}

	for _, key := range []string{"cameras", "nvrs"} {
		v, ok := shape[key]
		if !ok {
			return nil, fmt.Errorf("%w: missing %q", ErrSnapshotMalformed, key)
		}
		if !isJSONArray(v) {
			return nil, fmt.Errorf("%w: %q is not an array", ErrSnapshotMalformed, key)
		}
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotMalformed, err)
	}
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSnapshotVersion, snap.Version, SnapshotVersion)
	}

	if snap.Users == nil {
		snap.Users = []*User{}
	}
	if snap.Alerts == nil {
		snap.Alerts = []*Alert{}
	}
	if snap.Faults == nil {
		snap.Faults = []*FaultRecord{}
	}
	return &snap, nil
}

// Restore replaces the state's collections with the snapshot contents.
func (snap *Snapshot) Restore(s *State) {
	s.Cameras = append([]*Camera(nil), snap.Cameras...)
	s.NVRs = append([]*NVRDevice(nil), snap.NVRs...)
	s.Users = append([]*User(nil), snap.Users...)
	s.Alerts = append([]*Alert(nil), snap.Alerts...)
	s.Faults = append([]*FaultRecord(nil), snap.Faults...)
	s.Pinned = make(map[uuid.UUID]bool)
}

func isJSONArray(raw json.RawMessage) bool {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '[':
			return true
		default:
			return false
		}
	}
	return false
}
