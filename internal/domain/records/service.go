package records

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"medical-access-ledger/internal/domain/identity"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("record not found")
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return NewServiceWithClock(repo, time.Now)
}

// NewServiceWithClock permite compartir el reloj del gateway (y fijarlo en tests).
func NewServiceWithClock(repo Repository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo: repo,
		now:  now,
	}
}

type UpsertInput struct {
	Name           string
	Age            int
	MedicalHistory string
	DocumentRef    string
}

// Validate es la única validación de campos del registro; nadie escribe sin pasar por acá.
func (in UpsertInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.MedicalHistory) == "" {
		return fmt.Errorf("%w: medical_history is required", ErrInvalidInput)
	}
	if in.Age < MinAge || in.Age > MaxAge {
		return fmt.Errorf("%w: age must be between %d and %d", ErrInvalidInput, MinAge, MaxAge)
	}
	return nil
}

// Upsert crea el registro del owner o lo sobrescribe en el lugar.
func (s *Service) Upsert(ctx context.Context, owner identity.Key, in UpsertInput) (MedicalRecord, error) {
	if owner.IsZero() {
		return MedicalRecord{}, fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	if err := in.Validate(); err != nil {
		return MedicalRecord{}, err
	}

	now := s.now()

	current, err := s.repo.Get(ctx, owner)
	switch {
	case err == nil:
		// El timestamp lógico no retrocede aunque el reloj de pared lo haga.
		if now.Before(current.UpdatedAt) {
			now = current.UpdatedAt
		}
	case errors.Is(err, ErrNotFound):
		current = MedicalRecord{Owner: owner, CreatedAt: now}
	default:
		return MedicalRecord{}, err
	}

	r := MedicalRecord{
		Owner:          owner,
		Name:           strings.TrimSpace(in.Name),
		Age:            in.Age,
		MedicalHistory: strings.TrimSpace(in.MedicalHistory),
		DocumentRef:    strings.TrimSpace(in.DocumentRef),
		CreatedAt:      current.CreatedAt,
		UpdatedAt:      now,
	}

	if err := s.repo.Save(ctx, r); err != nil {
		return MedicalRecord{}, err
	}
	return r, nil
}

func (s *Service) Get(ctx context.Context, owner identity.Key) (MedicalRecord, error) {
	r, err := s.repo.Get(ctx, owner)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return MedicalRecord{}, ErrNotFound
		}
		return MedicalRecord{}, err
	}
	return r, nil
}

// Exists nunca falla: un error de storage se reporta como "no existe".
func (s *Service) Exists(ctx context.Context, owner identity.Key) bool {
	if owner.IsZero() {
		return false
	}
	_, err := s.repo.Get(ctx, owner)
	return err == nil
}
