package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/technosupport/fleetwatch/internal/data"
	"github.com/technosupport/fleetwatch/internal/notify"
)

// checkCredentials is the simulation's pass/fail oracle: an empty password
// fails authentication, anything else passes.
func checkCredentials(n *data.NVRDevice) data.NVRStatus {
	if n.Password == "" {
		return data.NVRStatusAuthFailure
	}
	return data.NVRStatusOnline
}

// CreateNVR registers a recorder and provisions one simulated camera per
// channel. A validation failure appends a WARNING system alert and mutates
// nothing else.
func (s *Store) CreateNVR(ctx context.Context, n *data.NVRDevice, channels int) error {
	var opErr error
	err := s.Mutate(ctx, func(st *data.State) (bool, error) {
		now := s.now()
		if n.Name == "" || n.Address == "" {
			opErr = fmt.Errorf("%w: name and address are required", ErrValidation)
			s.emitter.SystemEvent(st, fmt.Sprintf("Failed to add NVR %q: incomplete form", n.Name), data.SeverityWarning, now)
			return true, nil
		}

		n.ID = uuid.New()
		n.CreatedAt = now
		if n.Port == 0 {
			n.Port = 554
		}
		if n.Protocol == "" {
			n.Protocol = "rtsp"
		}
		n.Status = checkCredentials(n)
		st.NVRs = append(st.NVRs, n)

		online := n.Status == data.NVRStatusOnline
		if channels < 1 {
			channels = 1
		}
		for i := 1; i <= channels; i++ {
			st.Cameras = append(st.Cameras, &data.Camera{
				ID:              uuid.New(),
				Name:            fmt.Sprintf("%s CH%02d", n.Name, i),
				Location:        n.Address,
				NVRID:           n.ID,
				FeedKind:        data.FeedSimulated,
				IsOnline:        online,
				IsRecording:     online,
				StatusChangedAt: now,
				UpdatedAt:       now,
			})
		}

		s.emitter.SystemEvent(st, fmt.Sprintf("NVR %s added (%d channels)", n.Name, channels), data.SeverityInfo, now)
		return true, nil
	})
	if err != nil {
		return err
	}
	if opErr != nil {
		s.notifyUser(notify.NoticeError, opErr.Error())
		s.auditAction(ctx, "nvr.create", "nvr", n.Name, "failure")
		return opErr
	}
	s.notifyUser(notify.NoticeSuccess, fmt.Sprintf("NVR %s added", n.Name))
	s.auditAction(ctx, "nvr.create", "nvr", n.ID.String(), "success")
	return nil
}

// UpdateNVR edits connection settings and re-runs the credential oracle.
func (s *Store) UpdateNVR(ctx context.Context, upd *data.NVRDevice) error {
	var opErr error
	err := s.Mutate(ctx, func(st *data.State) (bool, error) {
		now := s.now()
		n := st.FindNVR(upd.ID)
		if n == nil {
			opErr = fmt.Errorf("%w: nvr %s", ErrNotFound, upd.ID)
			return false, nil
		}
		if upd.Name == "" || upd.Address == "" {
			opErr = fmt.Errorf("%w: name and address are required", ErrValidation)
			s.emitter.SystemEvent(st, fmt.Sprintf("Failed to update NVR %s: incomplete form", n.Name), data.SeverityWarning, now)
			return true, nil
		}

		n.Name = upd.Name
		n.Address = upd.Address
		if upd.Port != 0 {
			n.Port = upd.Port
		}
		if upd.Protocol != "" {
			n.Protocol = upd.Protocol
		}
		n.Username = upd.Username
		n.Password = upd.Password
		n.Status = checkCredentials(n)

		s.emitter.SystemEvent(st, fmt.Sprintf("NVR %s updated", n.Name), data.SeverityInfo, now)
		return true, nil
	})
	if err != nil {
		return err
	}
	if opErr != nil {
		s.notifyUser(notify.NoticeError, opErr.Error())
		s.auditAction(ctx, "nvr.update", "nvr", upd.ID.String(), "failure")
		return opErr
	}
	s.notifyUser(notify.NoticeSuccess, fmt.Sprintf("NVR %s updated", upd.Name))
	s.auditAction(ctx, "nvr.update", "nvr", upd.ID.String(), "success")
	return nil
}

// DeleteNVR is the only operation allowed to destroy fault and alert history.
// It cascades: member cameras, their fault records, their alerts, and their
// live-view membership all go.
func (s *Store) DeleteNVR(ctx context.Context, id uuid.UUID) error {
	var opErr error
	var name string
	err := s.Mutate(ctx, func(st *data.State) (bool, error) {
		now := s.now()
		n := st.FindNVR(id)
		if n == nil {
			opErr = fmt.Errorf("%w: nvr %s", ErrNotFound, id)
			return false, nil
		}
		name = n.Name

		doomed := make(map[uuid.UUID]bool)
		keptCams := st.Cameras[:0]
		for _, c := range st.Cameras {
			if c.NVRID == id {
				doomed[c.ID] = true
				delete(st.Pinned, c.ID)
				continue
			}
			keptCams = append(keptCams, c)
		}
		st.Cameras = keptCams

		keptNVRs := st.NVRs[:0]
		for _, nv := range st.NVRs {
			if nv.ID != id {
				keptNVRs = append(keptNVRs, nv)
			}
		}
		st.NVRs = keptNVRs

		s.ledger.DropForCameras(st, doomed)
		s.emitter.DropForCameras(st, doomed)
		s.emitter.SystemEvent(st, fmt.Sprintf("NVR %s removed (%d cameras)", name, len(doomed)), data.SeverityInfo, now)
		return true, nil
	})
	if err != nil {
		return err
	}
	if opErr != nil {
		s.notifyUser(notify.NoticeError, opErr.Error())
		return opErr
	}
	s.notifyUser(notify.NoticeSuccess, fmt.Sprintf("NVR %s removed", name))
	s.auditAction(ctx, "nvr.delete", "nvr", id.String(), "success")
	return nil
}

// TestNVRConnection re-runs the credential oracle and stamps the status.
func (s *Store) TestNVRConnection(ctx context.Context, id uuid.UUID) (data.NVRStatus, error) {
	var status data.NVRStatus
	var opErr error
	err := s.Mutate(ctx, func(st *data.State) (bool, error) {
		n := st.FindNVR(id)
		if n == nil {
			opErr = fmt.Errorf("%w: nvr %s", ErrNotFound, id)
			return false, nil
		}
		status = checkCredentials(n)
		if status == n.Status {
			return false, nil
		}
		n.Status = status
		return true, nil
	})
	if err != nil {
		return "", err
	}
	if opErr != nil {
		return "", opErr
	}
	s.auditAction(ctx, "nvr.test", "nvr", id.String(), string(status))
	return status, nil
}

// ReconnectCamera is the manual recovery path: the camera comes back online,
// its open fault closes, and every alert sourced from it is purged. The flow
// emits a success notice, never a persisted alert.
func (s *Store) ReconnectCamera(ctx context.Context, id uuid.UUID) error {
	var opErr error
	var name string
	err := s.Mutate(ctx, func(st *data.State) (bool, error) {
		now := s.now()
		cam := st.FindCamera(id)
		if cam == nil {
			opErr = fmt.Errorf("%w: camera %s", ErrNotFound, id)
			return false, nil
		}
		name = cam.Name

		if !cam.IsOnline {
			cam.IsOnline = true
			cam.IsRecording = true
			cam.StatusChangedAt = now
		}
		cam.UpdatedAt = now

		s.ledger.Close(st, cam.ID, now)
		s.emitter.PurgeForCamera(st, cam.ID)
		return true, nil
	})
	if err != nil {
		return err
	}
	if opErr != nil {
		s.notifyUser(notify.NoticeError, opErr.Error())
		return opErr
	}
	s.notifyUser(notify.NoticeSuccess, fmt.Sprintf("Camera %s reconnected", name))
	s.auditAction(ctx, "camera.reconnect", "camera", id.String(), "success")
	return nil
}

// ApplyAnalysis stores a frame analysis result on the camera and lets the
// emitter decide whether it warrants an alert. The camera may have gone
// offline while the call was in flight; the result is applied regardless.
// The update is read-modify-write against the current state, never a stale
// snapshot.
func (s *Store) ApplyAnalysis(ctx context.Context, cameraID uuid.UUID, res *data.AnalysisResult, frame []byte) (alerted bool, err error) {
	var opErr error
	err = s.Mutate(ctx, func(st *data.State) (bool, error) {
		cam := st.FindCamera(cameraID)
		if cam == nil {
			opErr = fmt.Errorf("%w: camera %s", ErrNotFound, cameraID)
			return false, nil
		}
		cam.LastAnalysis = res
		cam.UpdatedAt = s.now()
		alerted = s.emitter.FromAnalysis(st, cam, res, frame)
		return true, nil
	})
	if err != nil {
		return false, err
	}
	if opErr != nil {
		return false, opErr
	}
	if alerted {
		s.notifyUser(notify.NoticeWarning, fmt.Sprintf("Analysis flagged camera %s: %s", cameraID, res.ThreatLevel))
	}
	return alerted, nil
}

// PinCamera adds the camera to the live-view membership.
func (s *Store) PinCamera(ctx context.Context, id uuid.UUID) error {
	var opErr error
	err := s.Mutate(ctx, func(st *data.State) (bool, error) {
		if st.FindCamera(id) == nil {
			opErr = fmt.Errorf("%w: camera %s", ErrNotFound, id)
			return false, nil
		}
		if st.Pinned[id] {
			return false, nil
		}
		st.Pinned[id] = true
		return true, nil
	})
	if err != nil {
		return err
	}
	return opErr
}

// UnpinCamera removes the camera from the live-view membership.
func (s *Store) UnpinCamera(ctx context.Context, id uuid.UUID) error {
	return s.Mutate(ctx, func(st *data.State) (bool, error) {
		if !st.Pinned[id] {
			return false, nil
		}
		delete(st.Pinned, id)
		return true, nil
	})
}

// AcknowledgeFault flips the only mutable bit on a closed-or-open fault.
func (s *Store) AcknowledgeFault(ctx context.Context, id uuid.UUID) error {
	var opErr error
	err := s.Mutate(ctx, func(st *data.State) (bool, error) {
		for _, f := range st.Faults {
			if f.ID == id {
				if f.Acknowledged {
					return false, nil
				}
				f.Acknowledged = true
				return true, nil
			}
		}
		opErr = fmt.Errorf("%w: fault %s", ErrNotFound, id)
		return false, nil
	})
	if err != nil {
		return err
	}
	if opErr != nil {
		return opErr
	}
	s.auditAction(ctx, "fault.ack", "fault", id.String(), "success")
	return nil
}

// ClearAlerts drops every alert (the acknowledgment/reset flow).
func (s *Store) ClearAlerts(ctx context.Context) error {
	err := s.Mutate(ctx, func(st *data.State) (bool, error) {
		if len(st.Alerts) == 0 {
			return false, nil
		}
		st.Alerts = nil
		return true, nil
	})
	if err != nil {
		return err
	}
	s.auditAction(ctx, "alerts.clear", "alert", "", "success")
	return nil
}
