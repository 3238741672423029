package permissions

import (
	"context"
	"errors"
	"sort"
	"time"

	"medical-access-ledger/internal/domain/identity"
)

var (
	ErrNotFound       = errors.New("permission not found")
	ErrInvalidDoctor  = errors.New("invalid doctor")
	ErrAlreadyGranted = errors.New("access already granted")
	ErrNotGranted     = errors.New("access not granted")
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return NewServiceWithClock(repo, time.Now)
}

func NewServiceWithClock(repo Repository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo: repo,
		now:  now,
	}
}

// Grant pasa el par a granted. Un doble grant es error del caller, no un no-op:
// indica que el cliente tenía una vista vieja del estado.
func (s *Service) Grant(ctx context.Context, patient, doctor identity.Key) (Entry, error) {
	if doctor.IsZero() || doctor == patient {
		return Entry{}, ErrInvalidDoctor
	}

	entries, err := s.repo.ListByPatient(ctx, patient)
	if err != nil {
		return Entry{}, err
	}

	var (
		current    Entry
		found      bool
		maxOrdinal uint64
	)
	for _, e := range entries {
		if e.Ordinal > maxOrdinal {
			maxOrdinal = e.Ordinal
		}
		if e.Doctor == doctor {
			current = e
			found = true
		}
	}

	if found && current.Granted {
		return Entry{}, ErrAlreadyGranted
	}

	e := Entry{
		Patient:   patient,
		Doctor:    doctor,
		Granted:   true,
		GrantedAt: s.transitionTime(current),
		Ordinal:   maxOrdinal + 1, // al final de la lista
	}

	if err := s.repo.Save(ctx, e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Revoke pasa el par a revoked. La entry se conserva con su Ordinal viejo,
// que deja de contar porque solo las granted forman la lista.
func (s *Service) Revoke(ctx context.Context, patient, doctor identity.Key) (Entry, error) {
	current, err := s.repo.Get(ctx, patient, doctor)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Entry{}, ErrNotGranted
		}
		return Entry{}, err
	}
	if !current.Granted {
		return Entry{}, ErrNotGranted
	}

	current.Granted = false
	current.GrantedAt = s.transitionTime(current)

	if err := s.repo.Save(ctx, current); err != nil {
		return Entry{}, err
	}
	return current, nil
}

// Check nunca falla: sin entry (o con error de storage) no hay acceso.
func (s *Service) Check(ctx context.Context, patient, doctor identity.Key) bool {
	e, err := s.repo.Get(ctx, patient, doctor)
	if err != nil {
		return false
	}
	return e.Granted
}

// State expone el estado de la máquina para el par.
func (s *Service) State(ctx context.Context, patient, doctor identity.Key) (State, error) {
	e, err := s.repo.Get(ctx, patient, doctor)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return StateNoRelation, nil
		}
		return "", err
	}
	return e.State(), nil
}

// ListAuthorizedDoctors deriva la lista de médicos con acceso, en orden de grant.
// Siempre se reconstruye desde las entries; no hay otra fuente de verdad.
func (s *Service) ListAuthorizedDoctors(ctx context.Context, patient identity.Key) ([]identity.Key, error) {
	entries, err := s.ListEntries(ctx, patient)
	if err != nil {
		return nil, err
	}

	out := make([]identity.Key, 0, len(entries))
	for _, e := range entries {
		if e.Granted {
			out = append(out, e.Doctor)
		}
	}
	return out, nil
}

// ListEntries devuelve todas las entries del paciente (incluye revocadas) por Ordinal.
func (s *Service) ListEntries(ctx context.Context, patient identity.Key) ([]Entry, error) {
	entries, err := s.repo.ListByPatient(ctx, patient)
	if err != nil {
		return nil, err
	}

	// No confiamos en el orden del repo.
	out := make([]Entry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Ordinal < out[j].Ordinal
	})
	return out, nil
}

func (s *Service) transitionTime(prev Entry) time.Time {
	now := s.now()
	if now.Before(prev.GrantedAt) {
		return prev.GrantedAt
	}
	return now
}
