package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
)

func (s *Service) WriteEvent(ctx context.Context, evt Event) error {
	if evt.EventID == uuid.Nil {
		evt.EventID = uuid.New()
	}

	query := `
		INSERT INTO audit_log (
			event_id, actor, action, target_type, target_id, result, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (event_id) DO NOTHING
	`

	_, err := s.DB.ExecContext(ctx, query,
		evt.EventID, evt.Actor, evt.Action, evt.TargetType, evt.TargetID,
		evt.Result, evt.Metadata, evt.CreatedAt,
	)
	if err != nil {
		log.Printf("audit: DB write failed: %v, spooling event %s", err, evt.EventID)
		if spoolErr := SpoolEvent(evt); spoolErr != nil {
			log.Printf("audit: spool failed for event %s: %v", evt.EventID, spoolErr)
			return fmt.Errorf("audit write and spool failed: %w", spoolErr)
		}
		return nil // swallowed: the event is durable in the spool
	}
	return nil
}

// QueryEvents returns events newest-first with optional filters.
func (s *Service) QueryEvents(ctx context.Context, f Filter) ([]Event, error) {
	q := `SELECT id, event_id, actor, action, target_type, target_id, result, metadata, created_at
	      FROM audit_log WHERE 1=1`
	args := []interface{}{}
	idx := 1

	if f.Action != "" {
		q += fmt.Sprintf(" AND action = $%d", idx)
		args = append(args, f.Action)
		idx++
	}
	if f.Result != "" {
		q += fmt.Sprintf(" AND result = $%d", idx)
		args = append(args, f.Result)
		idx++
	}

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	q += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", idx)
	args = append(args, limit)

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var evt Event
		var meta []byte
		if err := rows.Scan(&evt.ID, &evt.EventID, &evt.Actor, &evt.Action,
			&evt.TargetType, &evt.TargetID, &evt.Result, &meta, &evt.CreatedAt); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			evt.Metadata = json.RawMessage(meta)
		}
		events = append(events, evt)
	}
	return events, rows.Err()
}
