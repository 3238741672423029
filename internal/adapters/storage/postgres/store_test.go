package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"medical-access-ledger/internal/domain/events"
	"medical-access-ledger/internal/domain/identity"
	"medical-access-ledger/internal/domain/ledger"
	"medical-access-ledger/internal/domain/records"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requiere una base descartable: LEDGER_TEST_DSN=postgres://...
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("LEDGER_TEST_DSN")
	if dsn == "" {
		t.Skip("LEDGER_TEST_DSN not set")
	}

	db, err := Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db))
	_, err = db.ExecContext(ctx, `TRUNCATE medical_records, permissions, ledger_events`)
	require.NoError(t, err)

	return NewStore(db)
}

func TestStore_AtomicCommitAndRollback(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	patient := identity.MustParse("0x00000000000000000000000000000000000000a1")
	now := time.Now().UTC().Truncate(time.Microsecond)

	rec := records.MedicalRecord{
		Owner:          patient,
		Name:           "Jane Doe",
		Age:            40,
		MedicalHistory: "Asthma",
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	boom := errors.New("boom")
	err := s.Atomic(ctx, patient, func(tx ledger.Repositories) error {
		require.NoError(t, tx.Records().Save(ctx, rec))
		_, err := tx.Events().Append(ctx, events.Event{ID: uuid.NewString(), Kind: events.KindRecordAdded, Patient: patient, Timestamp: now})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Records().Get(ctx, patient)
	assert.ErrorIs(t, err, records.ErrNotFound)

	err = s.Atomic(ctx, patient, func(tx ledger.Repositories) error {
		if err := tx.Records().Save(ctx, rec); err != nil {
			return err
		}
		e, err := tx.Events().Append(ctx, events.Event{ID: uuid.NewString(), Kind: events.KindRecordAdded, Patient: patient, Timestamp: now})
		if err != nil {
			return err
		}
		assert.Equal(t, uint64(1), e.Sequence)
		return nil
	})
	require.NoError(t, err)

	got, err := s.Records().Get(ctx, patient)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", got.Name)

	recent, err := s.Events().Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.False(t, recent[0].HasDoctor())
}
