package ledger

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"medical-access-ledger/internal/domain/events"
	"medical-access-ledger/internal/domain/identity"
	"medical-access-ledger/internal/domain/permissions"
	"medical-access-ledger/internal/domain/records"
	"medical-access-ledger/internal/platform/logger"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrAccessDenied = errors.New("access denied")
)

// RecordRef identifica el registro y el evento que confirmó el cambio.
type RecordRef struct {
	Owner     identity.Key
	Sequence  uint64
	EventID   string
	UpdatedAt time.Time
}

// EventRef es la referencia durable de una mutación de permisos o de una lectura de terceros.
type EventRef struct {
	Sequence uint64
	EventID  string
	Kind     events.Kind
}

// Gateway es el único punto de entrada al ledger: autoriza al caller, serializa
// por paciente y confirma mutación + evento como una sola unidad.
type Gateway struct {
	store Store
	locks *patientLocks
	now   func() time.Time
	log   logger.Logger
}

func NewGateway(store Store, log logger.Logger) *Gateway {
	return NewGatewayWithClock(store, log, time.Now)
}

// NewGatewayWithClock fija el reloj que alimenta los timestamps lógicos.
func NewGatewayWithClock(store Store, log logger.Logger, now func() time.Time) *Gateway {
	if log == nil {
		log = logger.Nop()
	}
	if now == nil {
		now = time.Now
	}
	return &Gateway{
		store: store,
		locks: newPatientLocks(),
		now:   now,
		log:   log.With(map[string]any{"component": "ledger"}),
	}
}

// AddOrUpdateRecord crea o actualiza el registro propio del caller.
func (g *Gateway) AddOrUpdateRecord(ctx context.Context, caller identity.Key, in records.UpsertInput) (RecordRef, error) {
	if caller.IsZero() {
		return RecordRef{}, fmt.Errorf("%w: caller identity is required", ErrInvalidInput)
	}
	// Validar antes de tomar el lock; Upsert vuelve a validar dentro de la unidad.
	if err := in.Validate(); err != nil {
		return RecordRef{}, err
	}

	unlock := g.locks.Lock(caller)
	defer unlock()

	var ref RecordRef
	err := g.store.Atomic(ctx, caller, func(tx Repositories) error {
		rec, err := records.NewServiceWithClock(tx.Records(), g.now).Upsert(ctx, caller, in)
		if err != nil {
			return err
		}

		ev, err := events.NewServiceWithClock(tx.Events(), g.now).Append(ctx, events.AppendInput{
			Kind:      events.KindRecordAdded,
			Patient:   caller,
			Timestamp: rec.UpdatedAt,
		})
		if err != nil {
			return err
		}

		ref = RecordRef{
			Owner:     caller,
			Sequence:  ev.Sequence,
			EventID:   ev.ID,
			UpdatedAt: rec.UpdatedAt,
		}
		return nil
	})
	if err != nil {
		g.logFailure("add_or_update_record", caller, identity.Key{}, err)
		return RecordRef{}, err
	}

	g.log.Info("record upserted", map[string]any{
		"patient":  caller.String(),
		"sequence": ref.Sequence,
	})
	return ref, nil
}

// GrantAccess da acceso de lectura a doctor sobre el registro del caller.
func (g *Gateway) GrantAccess(ctx context.Context, caller, doctor identity.Key) (EventRef, error) {
	return g.changeAccess(ctx, caller, doctor, events.KindAccessGranted)
}

// RevokeAccess quita el acceso de doctor sobre el registro del caller.
func (g *Gateway) RevokeAccess(ctx context.Context, caller, doctor identity.Key) (EventRef, error) {
	return g.changeAccess(ctx, caller, doctor, events.KindAccessRevoked)
}

func (g *Gateway) changeAccess(ctx context.Context, caller, doctor identity.Key, kind events.Kind) (EventRef, error) {
	if caller.IsZero() {
		return EventRef{}, fmt.Errorf("%w: caller identity is required", ErrInvalidInput)
	}

	unlock := g.locks.Lock(caller)
	defer unlock()

	var ref EventRef
	err := g.store.Atomic(ctx, caller, func(tx Repositories) error {
		// Solo el dueño de un registro puede administrar accesos.
		if !records.NewServiceWithClock(tx.Records(), g.now).Exists(ctx, caller) {
			return records.ErrNotFound
		}

		perms := permissions.NewServiceWithClock(tx.Permissions(), g.now)

		var (
			entry permissions.Entry
			err   error
		)
		if kind == events.KindAccessGranted {
			entry, err = perms.Grant(ctx, caller, doctor)
		} else {
			entry, err = perms.Revoke(ctx, caller, doctor)
		}
		if err != nil {
			return err
		}

		ev, err := events.NewServiceWithClock(tx.Events(), g.now).Append(ctx, events.AppendInput{
			Kind:      kind,
			Patient:   caller,
			Doctor:    doctor,
			Timestamp: entry.GrantedAt,
		})
		if err != nil {
			return err
		}

		ref = EventRef{Sequence: ev.Sequence, EventID: ev.ID, Kind: kind}
		return nil
	})
	if err != nil {
		g.logFailure(string(kind), caller, doctor, err)
		return EventRef{}, err
	}

	g.log.Info("access changed", map[string]any{
		"kind":     string(kind),
		"patient":  caller.String(),
		"doctor":   doctor.String(),
		"sequence": ref.Sequence,
	})
	return ref, nil
}

// ReadRecord devuelve el registro de patient. El propio paciente siempre puede
// leerlo (sin evento); un tercero necesita acceso vigente y su lectura queda en el log.
// Para terceros, AccessDenied tiene precedencia sobre NotFound.
func (g *Gateway) ReadRecord(ctx context.Context, caller, patient identity.Key) (records.MedicalRecord, error) {
	rec, _, err := g.ReadRecordRef(ctx, caller, patient)
	return rec, err
}

// ReadRecordRef es ReadRecord más la referencia del RecordAccessed que dejó la
// lectura. Para el propio paciente la referencia queda vacía.
func (g *Gateway) ReadRecordRef(ctx context.Context, caller, patient identity.Key) (records.MedicalRecord, EventRef, error) {
	if caller.IsZero() || patient.IsZero() {
		return records.MedicalRecord{}, EventRef{}, fmt.Errorf("%w: caller and patient are required", ErrInvalidInput)
	}

	if caller == patient {
		rec, err := records.NewServiceWithClock(g.store.Records(), g.now).Get(ctx, patient)
		return rec, EventRef{}, err
	}

	unlock := g.locks.Lock(patient)
	defer unlock()

	var (
		rec records.MedicalRecord
		ref EventRef
	)
	err := g.store.Atomic(ctx, patient, func(tx Repositories) error {
		if !permissions.NewServiceWithClock(tx.Permissions(), g.now).Check(ctx, patient, caller) {
			return ErrAccessDenied
		}

		r, err := records.NewServiceWithClock(tx.Records(), g.now).Get(ctx, patient)
		if err != nil {
			return err
		}

		// Una lectura nunca queda antes de la última escritura del registro.
		ts := g.now()
		if ts.Before(r.UpdatedAt) {
			ts = r.UpdatedAt
		}

		ev, err := events.NewServiceWithClock(tx.Events(), g.now).Append(ctx, events.AppendInput{
			Kind:      events.KindRecordAccessed,
			Patient:   patient,
			Doctor:    caller,
			Timestamp: ts,
		})
		if err != nil {
			return err
		}

		rec = r
		ref = EventRef{Sequence: ev.Sequence, EventID: ev.ID, Kind: events.KindRecordAccessed}
		return nil
	})
	if err != nil {
		g.logFailure("read_record", patient, caller, err)
		return records.MedicalRecord{}, EventRef{}, err
	}
	return rec, ref, nil
}

// CheckAccess responde si doctor tiene acceso vigente al registro de patient.
func (g *Gateway) CheckAccess(ctx context.Context, patient, doctor identity.Key) bool {
	return permissions.NewServiceWithClock(g.store.Permissions(), g.now).Check(ctx, patient, doctor)
}

// ListDoctors devuelve los médicos autorizados, en orden de grant. Solo para el paciente.
func (g *Gateway) ListDoctors(ctx context.Context, caller, patient identity.Key) ([]identity.Key, error) {
	if err := g.requireSelf(caller, patient); err != nil {
		return nil, err
	}
	return permissions.NewServiceWithClock(g.store.Permissions(), g.now).ListAuthorizedDoctors(ctx, patient)
}

// PatientGrants devuelve todas las entries (incluye revocadas). Solo para el paciente.
func (g *Gateway) PatientGrants(ctx context.Context, caller, patient identity.Key) ([]permissions.Entry, error) {
	if err := g.requireSelf(caller, patient); err != nil {
		return nil, err
	}
	return permissions.NewServiceWithClock(g.store.Permissions(), g.now).ListEntries(ctx, patient)
}

// PatientEvents es la traza de auditoría del paciente, la más nueva primero.
func (g *Gateway) PatientEvents(ctx context.Context, caller, patient identity.Key, limit int) ([]events.Event, error) {
	if err := g.requireSelf(caller, patient); err != nil {
		return nil, err
	}
	return events.NewServiceWithClock(g.store.Events(), g.now).ListByPatient(ctx, patient, limit)
}

// RecentEvents devuelve hasta limit eventos, el más nuevo primero.
func (g *Gateway) RecentEvents(ctx context.Context, limit int) ([]events.Event, error) {
	return events.NewServiceWithClock(g.store.Events(), g.now).Recent(ctx, limit)
}

// EventRange recorre el log entre from y to (inclusive), ascendente.
func (g *Gateway) EventRange(ctx context.Context, from, to uint64) iter.Seq2[events.Event, error] {
	return events.NewServiceWithClock(g.store.Events(), g.now).Range(ctx, from, to)
}

func (g *Gateway) requireSelf(caller, patient identity.Key) error {
	if caller.IsZero() || patient.IsZero() {
		return fmt.Errorf("%w: caller and patient are required", ErrInvalidInput)
	}
	if caller != patient {
		return ErrAccessDenied
	}
	return nil
}

func (g *Gateway) logFailure(op string, patient, other identity.Key, err error) {
	fields := map[string]any{
		"op":      op,
		"patient": patient.String(),
		"error":   err.Error(),
	}
	if !other.IsZero() {
		fields["counterparty"] = other.String()
	}

	// Los rechazos de negocio son esperables; el resto es un problema de storage.
	if IsBusinessError(err) {
		g.log.Debug("ledger operation rejected", fields)
		return
	}
	g.log.Error("ledger operation failed", fields)
}

// IsBusinessError indica si err pertenece a la taxonomía del ledger
// (y no a una falla de storage).
func IsBusinessError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrAccessDenied),
		errors.Is(err, records.ErrInvalidInput),
		errors.Is(err, records.ErrNotFound),
		errors.Is(err, permissions.ErrInvalidDoctor),
		errors.Is(err, permissions.ErrAlreadyGranted),
		errors.Is(err, permissions.ErrNotGranted),
		errors.Is(err, events.ErrInvalidInput):
		return true
	default:
		return false
	}
}
