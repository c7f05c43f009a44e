package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/technosupport/fleetwatch/internal/data"
)

// seedState populates a default fleet on first boot and after factory reset:
// two NVRs with four channels each, and a default admin account (password set
// via first-login reset, hash empty here).
func seedState(st *data.State, now time.Time) {
	sites := []struct {
		name    string
		address string
		loc     []string
	}{
		{"NVR-Lobby", "10.0.10.11", []string{"Main Entrance", "Reception", "Elevator Bank", "Stairwell A"}},
		{"NVR-Warehouse", "10.0.10.12", []string{"Loading Dock", "Aisle 3", "Cold Storage", "Yard Gate"}},
	}

	for _, site := range sites {
		n := &data.NVRDevice{
			ID:        uuid.New(),
			Name:      site.name,
			Address:   site.address,
			Port:      554,
			Username:  "admin",
			Password:  "factory-default",
			Protocol:  "rtsp",
			Status:    data.NVRStatusOnline,
			CreatedAt: now,
		}
		st.NVRs = append(st.NVRs, n)

		for i, loc := range site.loc {
			st.Cameras = append(st.Cameras, &data.Camera{
				ID:              uuid.New(),
				Name:            fmt.Sprintf("%s CH%02d", site.name, i+1),
				Location:        loc,
				NVRID:           n.ID,
				FeedKind:        data.FeedSimulated,
				IsOnline:        true,
				IsRecording:     true,
				StatusChangedAt: now,
				UpdatedAt:       now,
			})
		}
	}

	st.Users = append(st.Users, &data.User{
		ID:           uuid.New(),
		Name:         "Administrator",
		Email:        "admin@fleetwatch.local",
		Role:         data.RoleAdmin,
		LastActiveAt: now,
		Status:       data.UserActive,
	})
}
