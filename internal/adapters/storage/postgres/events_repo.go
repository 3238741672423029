package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"medical-access-ledger/internal/domain/events"
	"medical-access-ledger/internal/domain/identity"
)

// EventsRepo escribe dentro del tx del Store; sin tx abre uno propio por append.
type EventsRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func NewEventsRepo(db *sql.DB) *EventsRepo {
	return &EventsRepo{db: db}
}

func (r *EventsRepo) q() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *EventsRepo) Append(ctx context.Context, e events.Event) (events.Event, error) {
	if r.tx != nil {
		return appendInTx(ctx, r.tx, e)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return events.Event{}, err
	}
	out, err := appendInTx(ctx, tx, e)
	if err != nil {
		_ = tx.Rollback()
		return events.Event{}, err
	}
	if err := tx.Commit(); err != nil {
		return events.Event{}, err
	}
	return out, nil
}

func appendInTx(ctx context.Context, tx *sql.Tx, e events.Event) (events.Event, error) {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, appendLockKey); err != nil {
		return events.Event{}, fmt.Errorf("lock log: %w", err)
	}

	var last int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(sequence), 0) FROM ledger_events`).Scan(&last); err != nil {
		return events.Event{}, err
	}
	e.Sequence = uint64(last) + 1

	_, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_events (sequence, id, kind, patient, doctor, occurred_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`,
		int64(e.Sequence),
		e.ID,
		string(e.Kind),
		e.Patient,
		nullableKey(e.Doctor),
		e.Timestamp,
	)
	if err != nil {
		return events.Event{}, err
	}
	return e, nil
}

func (r *EventsRepo) Recent(ctx context.Context, limit int) ([]events.Event, error) {
	rows, err := r.q().QueryContext(ctx, `
		SELECT sequence, id, kind, patient, doctor, occurred_at
		FROM ledger_events
		ORDER BY sequence DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

func (r *EventsRepo) Range(ctx context.Context, from, to uint64, limit int) ([]events.Event, error) {
	// BIGINT es con signo; sequences nunca llegan a la mitad alta.
	const maxSeq = uint64(1<<63 - 1)
	if from > maxSeq {
		return []events.Event{}, nil
	}
	if to > maxSeq {
		to = maxSeq
	}

	query := `
		SELECT sequence, id, kind, patient, doctor, occurred_at
		FROM ledger_events
		WHERE sequence BETWEEN $1 AND $2
		ORDER BY sequence ASC
	`
	args := []any{int64(from), int64(to)}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := r.q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

func (r *EventsRepo) ListByPatient(ctx context.Context, patient identity.Key, limit int) ([]events.Event, error) {
	rows, err := r.q().QueryContext(ctx, `
		SELECT sequence, id, kind, patient, doctor, occurred_at
		FROM ledger_events
		WHERE patient = $1
		ORDER BY sequence DESC
		LIMIT $2
	`, patient, limit)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]events.Event, error) {
	defer rows.Close()

	out := make([]events.Event, 0)
	for rows.Next() {
		var (
			e    events.Event
			seq  int64
			kind string
		)
		if err := rows.Scan(&seq, &e.ID, &kind, &e.Patient, &e.Doctor, &e.Timestamp); err != nil {
			return nil, err
		}
		e.Sequence = uint64(seq)
		e.Kind = events.Kind(kind)
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullableKey(k identity.Key) any {
	if k.IsZero() {
		return nil
	}
	return k
}
