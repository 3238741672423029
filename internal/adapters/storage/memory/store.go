package memory

import (
	"context"
	"sync"

	"medical-access-ledger/internal/domain/events"
	"medical-access-ledger/internal/domain/identity"
	"medical-access-ledger/internal/domain/ledger"
	"medical-access-ledger/internal/domain/permissions"
	"medical-access-ledger/internal/domain/records"
)

// Store guarda todo el ledger en memoria.
//
// Lecturas: RLock sobre mu, solo ven estado confirmado.
// Escrituras dentro de Atomic: se acumulan en un tx y se aplican juntas bajo mu.
// appendMu se toma al primer Append de un tx y se libera después del commit,
// así las secuencias se hacen visibles en orden creciente.
type Store struct {
	mu        sync.RWMutex
	records   map[identity.Key]records.MedicalRecord
	perms     map[identity.Key]map[identity.Key]permissions.Entry
	events    []events.Event
	byPatient map[identity.Key][]int // índices en events

	appendMu sync.Mutex
}

var _ ledger.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		records:   make(map[identity.Key]records.MedicalRecord),
		perms:     make(map[identity.Key]map[identity.Key]permissions.Entry),
		byPatient: make(map[identity.Key][]int),
	}
}

func (s *Store) Records() records.Repository         { return &recordRepo{s: s} }
func (s *Store) Permissions() permissions.Repository { return &permissionRepo{s: s} }
func (s *Store) Events() events.Repository           { return &eventRepo{s: s} }

func (s *Store) Atomic(ctx context.Context, patient identity.Key, fn func(tx ledger.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t := newTx(s)
	defer t.release()

	if err := fn(t); err != nil {
		return err
	}
	s.commit(t)
	return nil
}

func (s *Store) commit(t *tx) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for owner, r := range t.records {
		s.records[owner] = r
	}
	for k, e := range t.perms {
		s.putPermissionLocked(k.patient, e)
	}
	for _, e := range t.events {
		s.appendLocked(e)
	}
}

func (s *Store) putPermissionLocked(patient identity.Key, e permissions.Entry) {
	byDoctor, ok := s.perms[patient]
	if !ok {
		byDoctor = make(map[identity.Key]permissions.Entry)
		s.perms[patient] = byDoctor
	}
	byDoctor[e.Doctor] = e
}

func (s *Store) appendLocked(e events.Event) {
	s.events = append(s.events, e)
	s.byPatient[e.Patient] = append(s.byPatient[e.Patient], len(s.events)-1)
}

func (s *Store) lastSequence() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.events))
}

type pairKey struct {
	patient identity.Key
	doctor  identity.Key
}

// tx es la vista transaccional: lee lo propio primero y después lo confirmado.
type tx struct {
	s *Store

	records map[identity.Key]records.MedicalRecord
	perms   map[pairKey]permissions.Entry
	events  []events.Event

	holdsAppend bool
}

func newTx(s *Store) *tx {
	return &tx{
		s:       s,
		records: make(map[identity.Key]records.MedicalRecord),
		perms:   make(map[pairKey]permissions.Entry),
	}
}

func (t *tx) Records() records.Repository         { return &recordRepo{s: t.s, tx: t} }
func (t *tx) Permissions() permissions.Repository { return &permissionRepo{s: t.s, tx: t} }
func (t *tx) Events() events.Repository           { return &eventRepo{s: t.s, tx: t} }

func (t *tx) reserveAppend() {
	if !t.holdsAppend {
		t.s.appendMu.Lock()
		t.holdsAppend = true
	}
}

func (t *tx) release() {
	if t.holdsAppend {
		t.s.appendMu.Unlock()
		t.holdsAppend = false
	}
}
