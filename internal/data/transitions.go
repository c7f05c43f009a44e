package data

import (
	"time"

	"github.com/google/uuid"
)

type TransitionType string

const (
	// TransitionNVRFailure marks a whole-NVR outage cascading to its cameras.
	TransitionNVRFailure TransitionType = "NVR_FAILURE"
	// TransitionRepair marks a single camera coming back online.
	TransitionRepair TransitionType = "REPAIR"
	// TransitionFailure marks a single camera going offline.
	TransitionFailure TransitionType = "FAILURE"
)

// Transition is the tagged union produced by a tick and consumed by the fault
// ledger and the alert emitter. Exactly one of NVRID/CameraID is meaningful:
// NVRID for NVR_FAILURE, CameraID for REPAIR and FAILURE.
type Transition struct {
	Type     TransitionType `json:"type"`
	NVRID    uuid.UUID      `json:"nvr_id,omitempty"`
	CameraID uuid.UUID      `json:"camera_id,omitempty"`
	At       time.Time      `json:"at"`
}

func NVRFailure(nvrID uuid.UUID, at time.Time) Transition {
	return Transition{Type: TransitionNVRFailure, NVRID: nvrID, At: at}
}

func Repair(cameraID uuid.UUID, at time.Time) Transition {
	return Transition{Type: TransitionRepair, CameraID: cameraID, At: at}
}

func Failure(cameraID uuid.UUID, at time.Time) Transition {
	return Transition{Type: TransitionFailure, CameraID: cameraID, At: at}
}
