package leveldbstore

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"medical-access-ledger/internal/domain/events"
	"medical-access-ledger/internal/domain/identity"
	"medical-access-ledger/internal/domain/permissions"
	"medical-access-ledger/internal/domain/records"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// -------------------------
// Records
// -------------------------

type recordRepo struct {
	s  *Store
	tx *tx
}

func (r *recordRepo) Get(ctx context.Context, owner identity.Key) (records.MedicalRecord, error) {
	if r.tx != nil {
		if rec, ok := r.tx.records[owner]; ok {
			return rec, nil
		}
	}

	raw, err := r.s.db.Get(recordKey(owner), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return records.MedicalRecord{}, records.ErrNotFound
		}
		return records.MedicalRecord{}, err
	}

	var rec records.MedicalRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return records.MedicalRecord{}, err
	}
	return rec, nil
}

func (r *recordRepo) Save(ctx context.Context, rec records.MedicalRecord) error {
	if rec.Owner.IsZero() {
		return records.ErrInvalidInput
	}
	if r.tx != nil {
		r.tx.records[rec.Owner] = rec
		return nil
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	b := new(leveldb.Batch)
	b.Put(recordKey(rec.Owner), raw)
	return r.s.write(b)
}

// -------------------------
// Permissions
// -------------------------

type permissionRepo struct {
	s  *Store
	tx *tx
}

func (r *permissionRepo) Get(ctx context.Context, patient, doctor identity.Key) (permissions.Entry, error) {
	if r.tx != nil {
		if e, ok := r.tx.perms[pairKey{patient, doctor}]; ok {
			return e, nil
		}
	}

	raw, err := r.s.db.Get(permKey(patient, doctor), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return permissions.Entry{}, permissions.ErrNotFound
		}
		return permissions.Entry{}, err
	}

	var e permissions.Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return permissions.Entry{}, err
	}
	return e, nil
}

func (r *permissionRepo) Save(ctx context.Context, e permissions.Entry) error {
	if r.tx != nil {
		r.tx.perms[pairKey{e.Patient, e.Doctor}] = e
		return nil
	}

	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	b := new(leveldb.Batch)
	b.Put(permKey(e.Patient, e.Doctor), raw)
	return r.s.write(b)
}

func (r *permissionRepo) ListByPatient(ctx context.Context, patient identity.Key) ([]permissions.Entry, error) {
	merged := make(map[identity.Key]permissions.Entry)

	it := r.s.db.NewIterator(util.BytesPrefix(permPrefix(patient)), nil)
	for it.Next() {
		var e permissions.Entry
		if err := json.Unmarshal(it.Value(), &e); err != nil {
			it.Release()
			return nil, err
		}
		merged[e.Doctor] = e
	}
	it.Release()
	if err := it.Error(); err != nil {
		return nil, err
	}

	if r.tx != nil {
		for k, e := range r.tx.perms {
			if k.patient == patient {
				merged[k.doctor] = e
			}
		}
	}

	out := make([]permissions.Entry, 0, len(merged))
	for _, e := range merged {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Ordinal < out[j].Ordinal
	})
	return out, nil
}

// -------------------------
// Events
// -------------------------

type eventRepo struct {
	s  *Store
	tx *tx
}

func (r *eventRepo) Append(ctx context.Context, e events.Event) (events.Event, error) {
	if r.tx != nil {
		r.tx.reserveAppend()
		e.Sequence = r.s.lastSeq + uint64(len(r.tx.events)) + 1
		r.tx.events = append(r.tx.events, e)
		return e, nil
	}

	r.s.appendMu.Lock()
	defer r.s.appendMu.Unlock()

	e.Sequence = r.s.lastSeq + 1
	b := new(leveldb.Batch)
	if err := putEvent(b, e); err != nil {
		return events.Event{}, err
	}
	if err := r.s.write(b); err != nil {
		return events.Event{}, err
	}
	r.s.lastSeq = e.Sequence
	return e, nil
}

func (r *eventRepo) Recent(ctx context.Context, limit int) ([]events.Event, error) {
	it := r.s.db.NewIterator(util.BytesPrefix([]byte(prefixEvent)), nil)
	defer it.Release()

	out := make([]events.Event, 0)
	for ok := it.Last(); ok && len(out) < limit; ok = it.Prev() {
		var e events.Event
		if err := json.Unmarshal(it.Value(), &e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, it.Error()
}

func (r *eventRepo) Range(ctx context.Context, from, to uint64, limit int) ([]events.Event, error) {
	if from == 0 {
		from = 1
	}
	if from > to {
		return []events.Event{}, nil
	}

	rng := &util.Range{Start: eventKey(from)}
	if to == ^uint64(0) {
		rng.Limit = util.BytesPrefix([]byte(prefixEvent)).Limit
	} else {
		rng.Limit = eventKey(to + 1)
	}

	it := r.s.db.NewIterator(rng, nil)
	defer it.Release()

	out := make([]events.Event, 0)
	for it.Next() {
		var e events.Event
		if err := json.Unmarshal(it.Value(), &e); err != nil {
			return nil, err
		}
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, it.Error()
}

func (r *eventRepo) ListByPatient(ctx context.Context, patient identity.Key, limit int) ([]events.Event, error) {
	// Snapshot: índice y eventos se leen del mismo estado.
	snap, err := r.s.db.GetSnapshot()
	if err != nil {
		return nil, err
	}
	defer snap.Release()

	prefix := patientIndexPrefix(patient)
	it := snap.NewIterator(util.BytesPrefix(prefix), nil)
	defer it.Release()

	out := make([]events.Event, 0)
	for ok := it.Last(); ok && len(out) < limit; ok = it.Prev() {
		seqPart := it.Key()[len(prefix):]
		raw, err := snap.Get(append([]byte(prefixEvent), seqPart...), nil)
		if err != nil {
			return nil, err
		}
		var e events.Event
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, it.Error()
}
