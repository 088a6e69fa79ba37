package postgres

import (
	"context"
	"encoding/json"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/orders"
	"github.com/jackc/pgx/v5/pgxpool"
	"sort"
	"time"
)

// OutboxStore dipakai relay; lease via locked_by/locked_until supaya relay > 1 instance aman.
type OutboxStore struct{ DB *pgxpool.Pool }

func (s *OutboxStore) LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]orders.OutboxEvent, error) {
	rows, err := s.DB.Query(ctx, `
		UPDATE outbox SET locked_by=$1, locked_until=now() + make_interval(secs => $3)
		WHERE id IN (
			SELECT id FROM outbox
			WHERE status='pending' AND (locked_until IS NULL OR locked_until < now())
			ORDER BY id
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, event_id, topic, aggregate_id, event_type, payload, headers, created_at, attempts`,
		relayID, batchSize, lease.Seconds())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.OutboxEvent
	for rows.Next() {
		var ev orders.OutboxEvent
		var headers []byte
		if err := rows.Scan(&ev.ID, &ev.EventID, &ev.Topic, &ev.AggregateID, &ev.EventType,
			&ev.Payload, &headers, &ev.CreatedAt, &ev.Attempts); err != nil {
			return nil, err
		}
		if len(headers) > 0 {
			if err := json.Unmarshal(headers, &ev.Headers); err != nil {
				return nil, err
			}
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// RETURNING tidak menjamin urutan
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, ids []int64) error {
	_, err := s.DB.Exec(ctx, `UPDATE outbox SET status='sent', sent_at=now(), locked_by=NULL, locked_until=NULL
		WHERE id = ANY($1)`, ids)
	return err
}

// MarkFailed: balik ke pending sampai maxAttempts, setelah itu 'failed'.
func (s *OutboxStore) MarkFailed(ctx context.Context, id int64, errMsg string, maxAttempts int) error {
	_, err := s.DB.Exec(ctx, `
		UPDATE outbox SET attempts = attempts + 1, last_error=$2, locked_by=NULL, locked_until=NULL,
			status = CASE WHEN attempts + 1 >= $3 THEN 'failed' ELSE 'pending' END
		WHERE id=$1`, id, errMsg, maxAttempts)
	return err
}
