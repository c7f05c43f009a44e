package data

import (
	"time"

	"github.com/google/uuid"
)

type FeedKind string

const (
	FeedSimulated FeedKind = "SIMULATED"
	FeedWebcam    FeedKind = "WEBCAM"
	FeedStatic    FeedKind = "STATIC"
)

type NVRStatus string

const (
	NVRStatusOnline      NVRStatus = "ONLINE"
	NVRStatusOffline     NVRStatus = "OFFLINE"
	NVRStatusAuthFailure NVRStatus = "AUTH_FAILURE"
)

type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "INFO"
	SeverityWarning  AlertSeverity = "WARNING"
	SeverityCritical AlertSeverity = "CRITICAL"
)

type ThreatLevel string

const (
	ThreatLow      ThreatLevel = "LOW"
	ThreatMedium   ThreatLevel = "MEDIUM"
	ThreatHigh     ThreatLevel = "HIGH"
	ThreatCritical ThreatLevel = "CRITICAL"
)

type UserRole string

const (
	RoleAdmin    UserRole = "ADMIN"
	RoleOperator UserRole = "OPERATOR"
	RoleViewer   UserRole = "VIEWER"
)

type UserStatus string

const (
	UserActive    UserStatus = "ACTIVE"
	UserSuspended UserStatus = "SUSPENDED"
)

// AlertSourceSystem is the sentinel source for infrastructure-wide alerts.
const AlertSourceSystem = "SYSTEM"

// Camera is a monitored feed belonging to exactly one NVR.
// Invariant: IsRecording implies IsOnline; every mutation that clears
// IsOnline clears IsRecording in the same step.
type Camera struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	Location        string          `json:"location"`
	NVRID           uuid.UUID       `json:"nvr_id"`
	FeedKind        FeedKind        `json:"feed_kind"`
	IsOnline        bool            `json:"is_online"`
	IsRecording     bool            `json:"is_recording"`
	StatusChangedAt time.Time       `json:"status_changed_at"`
	LastAnalysis    *AnalysisResult `json:"last_analysis,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NVRDevice owns many cameras. Credentials are a pass/fail oracle for the
// simulation: an empty password means AUTH_FAILURE, anything else passes.
type NVRDevice struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Port      int       `json:"port"`
	Username  string    `json:"username"`
	Password  string    `json:"password,omitempty"`
	Protocol  string    `json:"protocol"`
	Status    NVRStatus `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// FaultRecord is one downtime interval for a camera. TimeOn is nil while the
// fault is open. Camera fields are a denormalized snapshot taken at open time.
type FaultRecord struct {
	ID           uuid.UUID  `json:"id"`
	CameraID     uuid.UUID  `json:"camera_id"`
	CameraName   string     `json:"camera_name"`
	Location     string     `json:"location"`
	NVRID        uuid.UUID  `json:"nvr_id"`
	TimeOff      time.Time  `json:"time_off"`
	TimeOn       *time.Time `json:"time_on,omitempty"`
	Acknowledged bool       `json:"acknowledged"`
}

// Open reports whether the fault interval is still running.
func (f *FaultRecord) Open() bool { return f.TimeOn == nil }

// Duration returns the elapsed downtime, truncated to whole seconds.
func (f *FaultRecord) Duration(now time.Time) time.Duration {
	end := now
	if f.TimeOn != nil {
		end = *f.TimeOn
	}
	return end.Sub(f.TimeOff).Truncate(time.Second)
}

// Alert is an immutable user-facing entry. Source is a camera ID string or
// AlertSourceSystem.
type Alert struct {
	ID        uuid.UUID     `json:"id"`
	Source    string        `json:"source"`
	Timestamp time.Time     `json:"timestamp"`
	Message   string        `json:"message"`
	Severity  AlertSeverity `json:"severity"`
	Thumbnail []byte        `json:"thumbnail,omitempty"`
}

type User struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Role         UserRole   `json:"role"`
	PasswordHash string     `json:"password_hash,omitempty"`
	LastActiveAt time.Time  `json:"last_active_at"`
	Status       UserStatus `json:"status"`
}

// AnalysisResult is the structured output of the frame analysis service.
// Degraded results (missing credentials, quota exhaustion) are still
// well-formed: LOW threat, empty lists, explanatory summary.
type AnalysisResult struct {
	Summary         string      `json:"summary"`
	PersonCount     int         `json:"person_count"`
	ThreatLevel     ThreatLevel `json:"threat_level"`
	DetectedObjects []string    `json:"detected_objects"`
	Anomalies       []string    `json:"anomalies"`
	AnalyzedAt      time.Time   `json:"analyzed_at"`
}

// State holds the live collections. It is owned by the store and must only be
// touched while holding the store's exclusive section.
type State struct {
	Cameras []*Camera
	NVRs    []*NVRDevice
	Users   []*User
	Alerts  []*Alert
	Faults  []*FaultRecord
	Pinned  map[uuid.UUID]bool // live-view membership
}

func NewState() *State {
	return &State{Pinned: make(map[uuid.UUID]bool)}
}

// FindCamera returns the camera with the given id, or nil.
func (s *State) FindCamera(id uuid.UUID) *Camera {
	for _, c := range s.Cameras {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// FindNVR returns the NVR with the given id, or nil.
func (s *State) FindNVR(id uuid.UUID) *NVRDevice {
	for _, n := range s.NVRs {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// FindUser returns the user with the given id, or nil.
func (s *State) FindUser(id uuid.UUID) *User {
	for _, u := range s.Users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

// OpenFault returns the camera's open fault record, or nil. The ledger keeps
// at most one open fault per camera.
func (s *State) OpenFault(cameraID uuid.UUID) *FaultRecord {
	for _, f := range s.Faults {
		if f.CameraID == cameraID && f.Open() {
			return f
		}
	}
	return nil
}

// CamerasUnder returns the cameras owned by the given NVR, in store order.
func (s *State) CamerasUnder(nvrID uuid.UUID) []*Camera {
	var out []*Camera
	for _, c := range s.Cameras {
		if c.NVRID == nvrID {
			out = append(out, c)
		}
	}
	return out
}
