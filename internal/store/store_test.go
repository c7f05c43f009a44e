package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/technosupport/fleetwatch/internal/audit"
	"github.com/technosupport/fleetwatch/internal/data"
	"github.com/technosupport/fleetwatch/internal/notify"
	"github.com/technosupport/fleetwatch/internal/store"
)

var now = time.Date(2026, 8, 23, 8, 0, 0, 0, time.UTC)

type memSnapshots struct {
	saves int
	snap  *data.Snapshot
}

func (m *memSnapshots) Save(_ context.Context, snap *data.Snapshot) error {
	m.saves++
	m.snap = snap
	return nil
}

func (m *memSnapshots) Load(_ context.Context) (*data.Snapshot, error) {
	if m.snap == nil {
		return nil, data.ErrNoSnapshot
	}
	return m.snap, nil
}

type memNotifier struct {
	notices []notify.Notice
}

func (m *memNotifier) Publish(kind notify.NoticeKind, message string) {
	m.notices = append(m.notices, notify.Notice{Kind: kind, Message: message})
}

func (m *memNotifier) last() *notify.Notice {
	if len(m.notices) == 0 {
		return nil
	}
	return &m.notices[len(m.notices)-1]
}

type memAuditor struct {
	events []audit.Event
}

func (m *memAuditor) WriteEvent(_ context.Context, evt audit.Event) error {
	m.events = append(m.events, evt)
	return nil
}

func newStore(t *testing.T) (*store.Store, *memSnapshots, *memNotifier, *memAuditor) {
	t.Helper()
	repo := &memSnapshots{}
	notifier := &memNotifier{}
	auditor := &memAuditor{}
	st := store.New(store.Options{
		Snapshots: repo,
		Notifier:  notifier,
		Auditor:   auditor,
		Clock:     func() time.Time { return now },
	})
	return st, repo, notifier, auditor
}

func TestLoadSeedsOnFirstBoot(t *testing.T) {
	st, repo, _, _ := newStore(t)
	if err := st.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	st.View(func(s *data.State) {
		if len(s.NVRs) == 0 || len(s.Cameras) == 0 {
			t.Error("seed produced an empty fleet")
		}
		if len(s.Users) == 0 {
			t.Error("seed produced no admin user")
		}
		for _, c := range s.Cameras {
			if !c.IsOnline || !c.IsRecording {
				t.Errorf("seeded camera %s not online and recording", c.Name)
			}
		}
	})
	if repo.saves != 1 {
		t.Errorf("seed not persisted: %d saves", repo.saves)
	}
}

func TestCreateNVRProvisionsChannels(t *testing.T) {
	st, _, notifier, auditor := newStore(t)
	n := &data.NVRDevice{Name: "NVR-Dock", Address: "10.0.0.5", Password: "secret"}

	if err := st.CreateNVR(context.Background(), n, 4); err != nil {
		t.Fatalf("create: %v", err)
	}

	st.View(func(s *data.State) {
		cams := s.CamerasUnder(n.ID)
		if len(cams) != 4 {
			t.Fatalf("cameras = %d, want 4", len(cams))
		}
		if cams[0].Name != "NVR-Dock CH01" {
			t.Errorf("channel naming: %q", cams[0].Name)
		}
		for _, c := range cams {
			if !c.IsOnline || !c.IsRecording {
				t.Errorf("channel %s not live under ONLINE recorder", c.Name)
			}
		}
		if len(s.Alerts) != 1 || s.Alerts[0].Severity != data.SeverityInfo {
			t.Errorf("expected one INFO alert, got %+v", s.Alerts)
		}
	})
	if n := notifier.last(); n == nil || n.Kind != notify.NoticeSuccess {
		t.Errorf("expected success notice, got %+v", n)
	}
	if len(auditor.events) != 1 || auditor.events[0].Action != "nvr.create" {
		t.Errorf("audit trail: %+v", auditor.events)
	}
}

func TestCreateNVRValidationFailureAlertsAndRejects(t *testing.T) {
	st, _, notifier, _ := newStore(t)
	err := st.CreateNVR(context.Background(), &data.NVRDevice{Name: ""}, 2)
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	st.View(func(s *data.State) {
		if len(s.NVRs) != 0 || len(s.Cameras) != 0 {
			t.Error("rejected create still mutated devices")
		}
		if len(s.Alerts) != 1 || s.Alerts[0].Severity != data.SeverityWarning {
			t.Errorf("expected one WARNING alert, got %+v", s.Alerts)
		}
	})
	if n := notifier.last(); n == nil || n.Kind != notify.NoticeError {
		t.Errorf("expected error notice, got %+v", n)
	}
}

func TestCreateNVRWithEmptyPasswordIsAuthFailure(t *testing.T) {
	st, _, _, _ := newStore(t)
	n := &data.NVRDevice{Name: "NVR-X", Address: "10.0.0.9"}
	if err := st.CreateNVR(context.Background(), n, 1); err != nil {
		t.Fatalf("create: %v", err)
	}
	st.View(func(s *data.State) {
		if got := s.FindNVR(n.ID).Status; got != data.NVRStatusAuthFailure {
			t.Errorf("status = %s, want AUTH_FAILURE", got)
		}
		for _, c := range s.CamerasUnder(n.ID) {
			if c.IsOnline || c.IsRecording {
				t.Error("channels of an unauthenticated recorder must start offline")
			}
		}
	})
}

func TestDeleteNVRCascades(t *testing.T) {
	st, _, _, _ := newStore(t)
	ctx := context.Background()

	doomed := &data.NVRDevice{Name: "NVR-Doomed", Address: "10.0.0.5", Password: "x"}
	kept := &data.NVRDevice{Name: "NVR-Kept", Address: "10.0.0.6", Password: "x"}
	if err := st.CreateNVR(ctx, doomed, 2); err != nil {
		t.Fatal(err)
	}
	if err := st.CreateNVR(ctx, kept, 1); err != nil {
		t.Fatal(err)
	}

	var doomedCam, keptCam uuid.UUID
	err := st.Mutate(ctx, func(s *data.State) (bool, error) {
		doomedCam = s.CamerasUnder(doomed.ID)[0].ID
		keptCam = s.CamerasUnder(kept.ID)[0].ID
		s.Pinned[doomedCam] = true
		s.Faults = append(s.Faults,
			&data.FaultRecord{ID: uuid.New(), CameraID: doomedCam, NVRID: doomed.ID, TimeOff: now},
			&data.FaultRecord{ID: uuid.New(), CameraID: keptCam, NVRID: kept.ID, TimeOff: now},
		)
		s.Alerts = append(s.Alerts,
			&data.Alert{ID: uuid.New(), Source: doomedCam.String(), Severity: data.SeverityWarning},
			&data.Alert{ID: uuid.New(), Source: keptCam.String(), Severity: data.SeverityWarning},
		)
		return true, nil
	})
	if err != nil {
		t.Fatalf("arrange: %v", err)
	}

	if err := st.DeleteNVR(ctx, doomed.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	st.View(func(s *data.State) {
		if s.FindNVR(doomed.ID) != nil {
			t.Error("NVR survived deletion")
		}
		if len(s.CamerasUnder(doomed.ID)) != 0 {
			t.Error("cameras survived cascade")
		}
		if s.Pinned[doomedCam] {
			t.Error("pinned membership survived cascade")
		}
		for _, f := range s.Faults {
			if f.CameraID == doomedCam {
				t.Error("fault history survived cascade")
			}
		}
		for _, a := range s.Alerts {
			if a.Source == doomedCam.String() {
				t.Error("alert survived cascade")
			}
		}
		// The sibling NVR's records are untouched.
		if s.FindCamera(keptCam) == nil {
			t.Error("cascade deleted an unrelated camera")
		}
		foundFault := false
		for _, f := range s.Faults {
			if f.CameraID == keptCam {
				foundFault = true
			}
		}
		if !foundFault {
			t.Error("cascade deleted an unrelated fault")
		}
	})
}

func TestReconnectCameraClosesFaultAndPurgesAlerts(t *testing.T) {
	st, _, notifier, _ := newStore(t)
	ctx := context.Background()

	n := &data.NVRDevice{Name: "NVR-A", Address: "10.0.0.5", Password: "x"}
	if err := st.CreateNVR(ctx, n, 1); err != nil {
		t.Fatal(err)
	}
	var camID uuid.UUID
	err := st.Mutate(ctx, func(s *data.State) (bool, error) {
		cam := s.CamerasUnder(n.ID)[0]
		camID = cam.ID
		cam.IsOnline = false
		cam.IsRecording = false
		s.Faults = append(s.Faults, &data.FaultRecord{ID: uuid.New(), CameraID: camID, NVRID: n.ID, TimeOff: now.Add(-time.Minute)})
		s.Alerts = append(s.Alerts, &data.Alert{ID: uuid.New(), Source: camID.String(), Severity: data.SeverityWarning})
		return true, nil
	})
	if err != nil {
		t.Fatalf("arrange: %v", err)
	}

	alertsBefore := 0
	st.View(func(s *data.State) { alertsBefore = len(s.Alerts) })

	if err := st.ReconnectCamera(ctx, camID); err != nil {
		t.Fatalf("reconnect: %v", err)
	}

	st.View(func(s *data.State) {
		cam := s.FindCamera(camID)
		if !cam.IsOnline || !cam.IsRecording {
			t.Error("camera not restored")
		}
		if s.OpenFault(camID) != nil {
			t.Error("fault still open after manual reconnect")
		}
		for _, a := range s.Alerts {
			if a.Source == camID.String() {
				t.Error("camera alert survived reconnect purge")
			}
		}
		if len(s.Alerts) >= alertsBefore {
			t.Error("reconnect added alerts instead of purging")
		}
	})
	if n := notifier.last(); n == nil || n.Kind != notify.NoticeSuccess {
		t.Errorf("expected success notice, got %+v", n)
	}
}

func TestImportSnapshotRejectsInvalidWithoutPartialApply(t *testing.T) {
	st, repo, notifier, _ := newStore(t)
	ctx := context.Background()
	if err := st.Load(ctx); err != nil {
		t.Fatal(err)
	}
	savesBefore := repo.saves

	err := st.ImportSnapshot(ctx, []byte(`{"version":1,"cameras":{}}`))
	if !errors.Is(err, store.ErrImportInvalid) {
		t.Fatalf("err = %v, want ErrImportInvalid", err)
	}
	if repo.saves != savesBefore {
		t.Error("rejected import persisted a snapshot")
	}
	st.View(func(s *data.State) {
		if len(s.NVRs) == 0 {
			t.Error("rejected import wiped state")
		}
	})
	if n := notifier.last(); n == nil || n.Kind != notify.NoticeError {
		t.Errorf("expected error notice, got %+v", n)
	}
}

func TestBackupRoundTrip(t *testing.T) {
	st, _, _, _ := newStore(t)
	ctx := context.Background()
	if err := st.Load(ctx); err != nil {
		t.Fatal(err)
	}

	raw, err := st.ExportSnapshot(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	st2, _, _, _ := newStore(t)
	if err := st2.ImportSnapshot(ctx, raw); err != nil {
		t.Fatalf("import: %v", err)
	}

	var want, got int
	st.View(func(s *data.State) { want = len(s.Cameras) })
	st2.View(func(s *data.State) { got = len(s.Cameras) })
	if want != got {
		t.Errorf("cameras after round trip = %d, want %d", got, want)
	}
}

func TestFactoryResetRequiresConfirmation(t *testing.T) {
	st, _, _, _ := newStore(t)
	ctx := context.Background()
	if err := st.Load(ctx); err != nil {
		t.Fatal(err)
	}

	if err := st.FactoryReset(ctx, false); !errors.Is(err, store.ErrNotConfirmed) {
		t.Fatalf("err = %v, want ErrNotConfirmed", err)
	}

	// Dirty the state, then reset for real.
	n := &data.NVRDevice{Name: "NVR-Extra", Address: "10.0.0.7", Password: "x"}
	if err := st.CreateNVR(ctx, n, 1); err != nil {
		t.Fatal(err)
	}
	if err := st.FactoryReset(ctx, true); err != nil {
		t.Fatalf("reset: %v", err)
	}
	st.View(func(s *data.State) {
		if s.FindNVR(n.ID) != nil {
			t.Error("factory reset kept a user-added NVR")
		}
		if len(s.Faults) != 0 || len(s.Alerts) != 0 {
			t.Error("factory reset kept history")
		}
		if len(s.NVRs) == 0 {
			t.Error("factory reset did not reseed")
		}
	})
}

func TestAddUserRejectsDuplicateEmail(t *testing.T) {
	st, _, _, _ := newStore(t)
	ctx := context.Background()

	u1 := &data.User{Name: "A", Email: "ops@example.com"}
	if err := st.AddUser(ctx, u1); err != nil {
		t.Fatal(err)
	}
	u2 := &data.User{Name: "B", Email: "OPS@Example.com"}
	if err := st.AddUser(ctx, u2); !errors.Is(err, store.ErrEmailTaken) {
		t.Fatalf("err = %v, want ErrEmailTaken", err)
	}
	if u1.Role != data.RoleViewer || u1.Status != data.UserActive {
		t.Errorf("defaults not applied: role=%s status=%s", u1.Role, u1.Status)
	}
}

func TestTestNVRConnectionStampsStatus(t *testing.T) {
	st, _, _, _ := newStore(t)
	ctx := context.Background()

	n := &data.NVRDevice{Name: "NVR-A", Address: "10.0.0.5", Password: "x"}
	if err := st.CreateNVR(ctx, n, 1); err != nil {
		t.Fatal(err)
	}
	err := st.Mutate(ctx, func(s *data.State) (bool, error) {
		s.FindNVR(n.ID).Password = ""
		return true, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	status, err := st.TestNVRConnection(ctx, n.ID)
	if err != nil {
		t.Fatalf("test-connection: %v", err)
	}
	if status != data.NVRStatusAuthFailure {
		t.Errorf("status = %s, want AUTH_FAILURE", status)
	}
	st.View(func(s *data.State) {
		if s.FindNVR(n.ID).Status != data.NVRStatusAuthFailure {
			t.Error("status not stamped on the record")
		}
	})
}
