package leveldbstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"medical-access-ledger/internal/domain/events"
	"medical-access-ledger/internal/domain/identity"
	"medical-access-ledger/internal/domain/ledger"
	"medical-access-ledger/internal/domain/permissions"
	"medical-access-ledger/internal/domain/records"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// Layout de claves:
//
//	rec:<owner>                 registro (JSON)
//	perm:<patient>:<doctor>     entry de permiso (JSON)
//	evt:<seq %020d>             evento (JSON)
//	pidx:<patient>:<seq %020d>  índice de eventos por paciente (valor vacío)
//	meta:seq                    última sequence confirmada
const (
	prefixRecord  = "rec:"
	prefixPerm    = "perm:"
	prefixEvent   = "evt:"
	prefixPatient = "pidx:"
	keyLastSeq    = "meta:seq"
)

// Store implementa ledger.Store sobre un LevelDB embebido.
// Cada Atomic se confirma con un único leveldb.Batch sincronizado.
type Store struct {
	db *leveldb.DB

	// appendMu se toma en el primer Append de un tx y se suelta tras el Write,
	// así las sequences se confirman en orden. lastSeq solo se toca con appendMu.
	appendMu sync.Mutex
	lastSeq  uint64
}

var _ ledger.Store = (*Store)(nil)

func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", path, err)
	}

	s := &Store{db: db}
	raw, err := db.Get([]byte(keyLastSeq), nil)
	switch {
	case err == nil:
		n, perr := strconv.ParseUint(string(raw), 10, 64)
		if perr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("corrupt %s: %w", keyLastSeq, perr)
		}
		s.lastSeq = n
	case errors.Is(err, leveldb.ErrNotFound):
	default:
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
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
	return t.commit()
}

func (s *Store) write(b *leveldb.Batch) error {
	return s.db.Write(b, &opt.WriteOptions{Sync: true})
}

func recordKey(owner identity.Key) []byte {
	return []byte(prefixRecord + owner.Hex())
}

func permKey(patient, doctor identity.Key) []byte {
	return []byte(prefixPerm + patient.Hex() + ":" + doctor.Hex())
}

func permPrefix(patient identity.Key) []byte {
	return []byte(prefixPerm + patient.Hex() + ":")
}

func eventKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixEvent, seq))
}

func patientIndexKey(patient identity.Key, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d", prefixPatient, patient.Hex(), seq))
}

func patientIndexPrefix(patient identity.Key) []byte {
	return []byte(prefixPatient + patient.Hex() + ":")
}

// putEvent agrega el evento, su índice y el nuevo tope de sequence al batch.
func putEvent(b *leveldb.Batch, e events.Event) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	b.Put(eventKey(e.Sequence), raw)
	b.Put(patientIndexKey(e.Patient, e.Sequence), nil)
	b.Put([]byte(keyLastSeq), []byte(strconv.FormatUint(e.Sequence, 10)))
	return nil
}

type pairKey struct {
	patient identity.Key
	doctor  identity.Key
}

// tx acumula escrituras; las lecturas ven primero lo propio.
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

func (t *tx) commit() error {
	b := new(leveldb.Batch)

	for owner, r := range t.records {
		raw, err := json.Marshal(r)
		if err != nil {
			return err
		}
		b.Put(recordKey(owner), raw)
	}
	for k, e := range t.perms {
		raw, err := json.Marshal(e)
		if err != nil {
			return err
		}
		b.Put(permKey(k.patient, k.doctor), raw)
	}
	for _, e := range t.events {
		if err := putEvent(b, e); err != nil {
			return err
		}
	}

	if b.Len() == 0 {
		return nil
	}
	if err := t.s.write(b); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	if n := len(t.events); n > 0 {
		t.s.lastSeq = t.events[n-1].Sequence
	}
	return nil
}
