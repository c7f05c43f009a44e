package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/technosupport/fleetwatch/internal/data"
	"github.com/technosupport/fleetwatch/internal/notify"
)

// ExportSnapshot serializes the full versioned blob for download.
func (s *Store) ExportSnapshot(ctx context.Context) ([]byte, error) {
	var raw []byte
	var err error
	s.View(func(st *data.State) {
		raw, err = json.Marshal(data.CaptureSnapshot(st, s.now()))
	})
	if err != nil {
		return nil, err
	}
	s.auditAction(ctx, "backup.export", "snapshot", "", "success")
	return raw, nil
}

// ImportSnapshot validates and applies a backup blob. A blob that fails
// validation is rejected without any partial application.
func (s *Store) ImportSnapshot(ctx context.Context, raw []byte) error {
	snap, err := data.ParseSnapshot(raw)
	if err != nil {
		s.notifyUser(notify.NoticeError, "Backup import rejected: invalid snapshot")
		s.auditAction(ctx, "backup.import", "snapshot", "", "failure")
		return fmt.Errorf("%w: %v", ErrImportInvalid, err)
	}

	err = s.Mutate(ctx, func(st *data.State) (bool, error) {
		snap.Restore(st)
		return true, nil
	})
	if err != nil {
		return err
	}
	s.notifyUser(notify.NoticeSuccess, "Backup imported")
	s.auditAction(ctx, "backup.import", "snapshot", "", "success")
	return nil
}

// FactoryReset discards everything and reseeds the default fleet. The caller
// is responsible for the explicit confirmation gate.
func (s *Store) FactoryReset(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	err := s.Mutate(ctx, func(st *data.State) (bool, error) {
		*st = *data.NewState()
		seedState(st, s.now())
		return true, nil
	})
	if err != nil {
		return err
	}
	s.notifyUser(notify.NoticeCritical, "Factory reset complete")
	s.auditAction(ctx, "system.factory_reset", "system", "", "success")
	return nil
}
