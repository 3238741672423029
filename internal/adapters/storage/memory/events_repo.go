package memory

import (
	"context"

	"medical-access-ledger/internal/domain/events"
	"medical-access-ledger/internal/domain/identity"
)

type eventRepo struct {
	s  *Store
	tx *tx
}

func (r *eventRepo) Append(ctx context.Context, e events.Event) (events.Event, error) {
	if r.tx != nil {
		// Reservamos el append hasta el commit del tx.
		r.tx.reserveAppend()
		e.Sequence = r.s.lastSequence() + uint64(len(r.tx.events)) + 1
		r.tx.events = append(r.tx.events, e)
		return e, nil
	}

	r.s.appendMu.Lock()
	defer r.s.appendMu.Unlock()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e.Sequence = uint64(len(r.s.events)) + 1
	r.s.appendLocked(e)
	return e, nil
}

func (r *eventRepo) Recent(ctx context.Context, limit int) ([]events.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]events.Event, 0)
	for i := len(r.s.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.s.events[i])
	}
	return out, nil
}

// Sequence n vive en el índice n-1 (el log nunca borra).
func (r *eventRepo) Range(ctx context.Context, from, to uint64, limit int) ([]events.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]events.Event, 0)
	if from == 0 {
		from = 1
	}
	last := uint64(len(r.s.events))
	if to > last {
		to = last
	}
	for seq := from; seq <= to && (limit <= 0 || len(out) < limit); seq++ {
		out = append(out, r.s.events[seq-1])
	}
	return out, nil
}

func (r *eventRepo) ListByPatient(ctx context.Context, patient identity.Key, limit int) ([]events.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	idx := r.s.byPatient[patient]
	out := make([]events.Event, 0)
	for i := len(idx) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.s.events[idx[i]])
	}
	return out, nil
}
