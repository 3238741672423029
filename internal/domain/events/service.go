package events

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math"
	"time"

	"medical-access-ledger/internal/domain/identity"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
)

const defaultPageSize = 256

type Service struct {
	repo     Repository
	now      func() time.Time
	pageSize int
}

func NewService(repo Repository) *Service {
	return NewServiceWithClock(repo, time.Now)
}

func NewServiceWithClock(repo Repository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:     repo,
		now:      now,
		pageSize: defaultPageSize,
	}
}

type AppendInput struct {
	Kind      Kind
	Patient   identity.Key
	Doctor    identity.Key // vacío para RecordAdded
	Timestamp time.Time    // opcional; default now
}

// Append agrega un evento al log. Un error acá debe abortar la unidad de trabajo
// que lo contiene: el log es la única traza de auditoría.
func (s *Service) Append(ctx context.Context, in AppendInput) (Event, error) {
	if !in.Kind.Valid() {
		return Event{}, fmt.Errorf("%w: unknown event kind %q", ErrInvalidInput, in.Kind)
	}
	if in.Patient.IsZero() {
		return Event{}, fmt.Errorf("%w: patient is required", ErrInvalidInput)
	}
	if in.Kind.RequiresDoctor() && in.Doctor.IsZero() {
		return Event{}, fmt.Errorf("%w: %s requires a doctor", ErrInvalidInput, in.Kind)
	}
	if !in.Kind.RequiresDoctor() && !in.Doctor.IsZero() {
		return Event{}, fmt.Errorf("%w: %s takes no doctor", ErrInvalidInput, in.Kind)
	}

	ts := in.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}

	e, err := s.repo.Append(ctx, Event{
		ID:        uuid.NewString(),
		Kind:      in.Kind,
		Patient:   in.Patient,
		Doctor:    in.Doctor,
		Timestamp: ts,
	})
	if err != nil {
		return Event{}, fmt.Errorf("append event: %w", err)
	}
	return e, nil
}

// Recent devuelve hasta limit eventos, el más nuevo primero. limit <= 0 => vacío.
func (s *Service) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		return []Event{}, nil
	}
	return s.repo.Recent(ctx, limit)
}

// Range recorre [from, to] en orden ascendente, paginando contra el repo.
// Cada iteración vuelve a consultar desde el principio (no consume estado compartido).
func (s *Service) Range(ctx context.Context, from, to uint64) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		next := from
		if next == 0 {
			next = 1
		}

		for next <= to {
			page, err := s.repo.Range(ctx, next, to, s.pageSize)
			if err != nil {
				yield(Event{}, err)
				return
			}
			if len(page) == 0 {
				return
			}

			for _, e := range page {
				if !yield(e, nil) {
					return
				}
			}

			last := page[len(page)-1].Sequence
			if last >= to || last == math.MaxUint64 {
				return
			}
			next = last + 1
		}
	}
}

// Collect junta hasta limit eventos de un Range (limit <= 0 => sin tope).
func Collect(seq iter.Seq2[Event, error], limit int) ([]Event, error) {
	out := make([]Event, 0)
	for e, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Service) ListByPatient(ctx context.Context, patient identity.Key, limit int) ([]Event, error) {
	if patient.IsZero() {
		return nil, fmt.Errorf("%w: patient is required", ErrInvalidInput)
	}
	if limit <= 0 {
		return []Event{}, nil
	}
	return s.repo.ListByPatient(ctx, patient, limit)
}
