package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dcrew44/llm-social-network/internal/domain"
)

// appendEvent inserts a new event at the next seq and returns that seq. Non-action
// events never carry an op_id; passing opID=nil for those is the caller's
// responsibility — Append does not itself enforce which kinds may have one.
func appendEvent(ctx context.Context, q dbtx, tick int64, kind domain.EventKind, opID *string, payload domain.Payload) (int64, error) {
	text, err := marshalPayload(kind, payload)
	if err != nil {
		return 0, domain.WrapKernelError(domain.ErrCodeStore, "marshal payload", err)
	}
	res, err := q.ExecContext(ctx,
		`INSERT INTO events (tick, kind, payload, op_id) VALUES (?, ?, ?, ?)`,
		tick, string(kind), text, opID,
	)
	if err != nil {
		return 0, domain.WrapKernelError(domain.ErrCodeStore, "insert event", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, domain.WrapKernelError(domain.ErrCodeStore, "read inserted seq", err)
	}
	return seq, nil
}

// lookupByOpID returns the event previously recorded under opID, or nil if
// none exists. The admission pipeline's idempotency step (§4.2 step 1)
// calls this before validating a new action so a resubmitted op_id returns
// the original outcome instead of being re-applied.
func lookupByOpID(ctx context.Context, q dbtx, opID string) (*domain.Event, error) {
	row := q.QueryRowContext(ctx,
		`SELECT seq, tick, kind, payload, op_id FROM events WHERE op_id = ?`, opID)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.WrapKernelError(domain.ErrCodeStore, "lookup event by op_id", err)
	}
	return ev, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(r rowScanner) (*domain.Event, error) {
	var (
		seq, tick int64
		kindStr   string
		payload   string
		opID      sql.NullString
	)
	if err := r.Scan(&seq, &tick, &kindStr, &payload, &opID); err != nil {
		return nil, err
	}
	kind := domain.EventKind(kindStr)
	p, err := unmarshalPayload(kind, payload)
	if err != nil {
		return nil, err
	}
	ev := &domain.Event{Seq: seq, Tick: tick, Kind: kind, Payload: p}
	if opID.Valid {
		ev.OpID = &opID.String
	}
	return ev, nil
}

// scanFrom returns every event with seq > fromSeq in ascending seq order.
// replay_all (§4.3) calls this with fromSeq=0 to fold the whole log.
func scanFrom(ctx context.Context, q dbtx, fromSeq int64) ([]domain.Event, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT seq, tick, kind, payload, op_id FROM events WHERE seq > ? ORDER BY seq ASC`, fromSeq)
	if err != nil {
		return nil, domain.WrapKernelError(domain.ErrCodeStore, "scan events", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, domain.WrapKernelError(domain.ErrCodeStore, "scan event row", err)
		}
		events = append(events, *ev)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapKernelError(domain.ErrCodeStore, "iterate events", err)
	}
	return events, nil
}

// truncateProjections deletes every row of every projection table and
// resets kernel_state's current_tick and timeline_counter to 0, leaving
// the event log and kernel_state's run_id untouched. replay_all (§4.3)
// calls this before refolding the log from seq 0 so the result reflects
// only the log, not whatever projection state happened to exist before.
func truncateProjections(ctx context.Context, q dbtx) error {
	tables := []string{"timeline_items", "timelines", "follows", "votes", "comments", "posts", "users"}
	for _, t := range tables {
		if _, err := q.ExecContext(ctx, "DELETE FROM "+t); err != nil {
			return domain.WrapKernelError(domain.ErrCodeStore, "truncate "+t, err)
		}
	}
	if _, err := q.ExecContext(ctx,
		`UPDATE kernel_state SET current_tick = 0, timeline_counter = 0 WHERE id = 0`); err != nil {
		return domain.WrapKernelError(domain.ErrCodeStore, "reset kernel_state", err)
	}
	return nil
}

// Append is the Store-level entry point for drivers that do not need a
// multi-step transaction (run_started, run_config, advance_tick).
func (s *Store) Append(ctx context.Context, tick int64, kind domain.EventKind, opID *string, payload domain.Payload) (int64, error) {
	return appendEvent(ctx, s.db, tick, kind, opID, payload)
}

func (s *Store) LookupByOpID(ctx context.Context, opID string) (*domain.Event, error) {
	return lookupByOpID(ctx, s.db, opID)
}

func (s *Store) Scan(ctx context.Context, fromSeq int64) ([]domain.Event, error) {
	return scanFrom(ctx, s.db, fromSeq)
}

func (s *Store) TruncateProjections(ctx context.Context) error {
	return truncateProjections(ctx, s.db)
}

// Append, within the admission transaction, records an action (or any
// other event) as part of the same atomic read-check-write unit.
func (t *Tx) Append(ctx context.Context, tick int64, kind domain.EventKind, opID *string, payload domain.Payload) (int64, error) {
	return appendEvent(ctx, t.tx, tick, kind, opID, payload)
}

func (t *Tx) LookupByOpID(ctx context.Context, opID string) (*domain.Event, error) {
	return lookupByOpID(ctx, t.tx, opID)
}

func (t *Tx) Scan(ctx context.Context, fromSeq int64) ([]domain.Event, error) {
	return scanFrom(ctx, t.tx, fromSeq)
}
