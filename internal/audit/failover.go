package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	spoolMu  sync.Mutex
	spoolDir = "/var/lib/fleetwatch/audit_spool"
)

const spoolFile = "audit_spool.jsonl"

// ConfigureFailover sets the spool directory and ensures it exists.
func ConfigureFailover(dir string) {
	if dir != "" {
		spoolDir = dir
	}
	_ = os.MkdirAll(spoolDir, 0o750)
}

// SpoolEvent appends the event to the local JSONL spool.
func SpoolEvent(evt Event) error {
	spoolMu.Lock()
	defer spoolMu.Unlock()

	line, err := json.Marshal(SpooledEvent{
		EventID:   evt.EventID.String(),
		Payload:   evt,
		Timestamp: time.Now(),
	})
	if err != nil {
		return err
	}

	f, err := os.OpenFile(filepath.Join(spoolDir, spoolFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return err
	}
	return f.Sync()
}

// StartReplayer periodically drains the spool back into the database. Events
// carry idempotency keys, so replaying after a partial failure is safe.
func (s *Service) StartReplayer(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.replaySpool(ctx)
			}
		}
	}()
}

func (s *Service) replaySpool(ctx context.Context) {
	spoolMu.Lock()
	defer spoolMu.Unlock()

	path := filepath.Join(spoolDir, spoolFile)
	f, err := os.Open(path)
	if err != nil {
		return // nothing spooled
	}

	var replayed, failed int
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var se SpooledEvent
		if err := json.Unmarshal(scanner.Bytes(), &se); err != nil {
			failed++
			continue
		}
		evt := se.Payload
		_, err := s.DB.ExecContext(ctx, `
			INSERT INTO audit_log (
				event_id, actor, action, target_type, target_id, result, metadata, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (event_id) DO NOTHING`,
			evt.EventID, evt.Actor, evt.Action, evt.TargetType, evt.TargetID,
			evt.Result, evt.Metadata, evt.CreatedAt,
		)
		if err != nil {
			failed++
			break // DB still down, keep spool intact
		}
		replayed++
	}
	f.Close()

	if failed == 0 && replayed > 0 {
		if err := os.Remove(path); err != nil {
			log.Printf("audit: spool cleanup failed: %v", err)
		}
		log.Printf("audit: replayed %d spooled events", replayed)
	}
}
