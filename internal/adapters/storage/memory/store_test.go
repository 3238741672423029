package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"medical-access-ledger/internal/domain/events"
	"medical-access-ledger/internal/domain/identity"
	"medical-access-ledger/internal/domain/ledger"
	"medical-access-ledger/internal/domain/permissions"
	"medical-access-ledger/internal/domain/records"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	patient = identity.MustParse("0x00000000000000000000000000000000000000a1")
	doctor  = identity.MustParse("0x00000000000000000000000000000000000000d1")
)

func record(owner identity.Key) records.MedicalRecord {
	now := time.Date(2025, 12, 22, 10, 0, 0, 0, time.UTC)
	return records.MedicalRecord{
		Owner:          owner,
		Name:           "Jane Doe",
		Age:            40,
		MedicalHistory: "Asthma",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestStore_Atomic_CommitsAllWrites(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	err := s.Atomic(ctx, patient, func(tx ledger.Repositories) error {
		require.NoError(t, tx.Records().Save(ctx, record(patient)))
		require.NoError(t, tx.Permissions().Save(ctx, permissions.Entry{Patient: patient, Doctor: doctor, Granted: true, Ordinal: 1}))

		// Dentro del tx se leen las escrituras propias...
		_, err := tx.Records().Get(ctx, patient)
		require.NoError(t, err)

		// ...pero fuera todavía no.
		_, err = s.Records().Get(ctx, patient)
		assert.True(t, errors.Is(err, records.ErrNotFound))

		e, err := tx.Events().Append(ctx, events.Event{Kind: events.KindRecordAdded, Patient: patient})
		require.NoError(t, err)
		assert.Equal(t, uint64(1), e.Sequence)
		return nil
	})
	require.NoError(t, err)

	_, err = s.Records().Get(ctx, patient)
	require.NoError(t, err)

	e, err := s.Permissions().Get(ctx, patient, doctor)
	require.NoError(t, err)
	assert.True(t, e.Granted)

	recent, err := s.Events().Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, uint64(1), recent[0].Sequence)
}

func TestStore_Atomic_RollsBackOnError(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Atomic(ctx, patient, func(tx ledger.Repositories) error {
		_ = tx.Records().Save(ctx, record(patient))
		_, _ = tx.Events().Append(ctx, events.Event{Kind: events.KindRecordAdded, Patient: patient})
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Records().Get(ctx, patient)
	assert.True(t, errors.Is(err, records.ErrNotFound))

	recent, err := s.Events().Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, recent)

	// La secuencia reservada por el tx abortado no se consume.
	e, err := s.Events().Append(ctx, events.Event{Kind: events.KindRecordAdded, Patient: patient})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), e.Sequence)
}

func TestStore_Atomic_CanceledContext(t *testing.T) {
	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.Atomic(ctx, patient, func(tx ledger.Repositories) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestStore_ConcurrentAtomicAppends_SequencesVisibleInOrder(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	const writers = 16
	const perWriter = 25

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			p := identity.Key{}
			p[0] = byte(w + 1)
			for i := 0; i < perWriter; i++ {
				err := s.Atomic(ctx, p, func(tx ledger.Repositories) error {
					_, err := tx.Events().Append(ctx, events.Event{Kind: events.KindRecordAdded, Patient: p})
					return err
				})
				assert.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	all, err := s.Events().Range(ctx, 1, writers*perWriter, 0)
	require.NoError(t, err)
	require.Len(t, all, writers*perWriter)
	for i, e := range all {
		assert.Equal(t, uint64(i+1), e.Sequence)
	}
}

func TestEventRepo_RangeRecentAndPatient(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	other := identity.MustParse("0x00000000000000000000000000000000000000a2")

	for i := 0; i < 6; i++ {
		p := patient
		if i%2 == 1 {
			p = other
		}
		_, err := s.Events().Append(ctx, events.Event{Kind: events.KindRecordAdded, Patient: p})
		require.NoError(t, err)
	}

	got, err := s.Events().Range(ctx, 2, 4, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 3, 4}, seqs(got))

	got, err = s.Events().Range(ctx, 0, 100, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, seqs(got))

	got, err = s.Events().Range(ctx, 7, 100, 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.Events().Recent(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint64{6, 5}, seqs(got))

	got, err = s.Events().ListByPatient(ctx, patient, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint64{5, 3, 1}, seqs(got))
}

func TestPermissionRepo_ListByPatient_MergesTxAndOrdersByOrdinal(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	d2 := identity.MustParse("0x00000000000000000000000000000000000000d2")

	require.NoError(t, s.Permissions().Save(ctx, permissions.Entry{Patient: patient, Doctor: d2, Granted: true, Ordinal: 2}))

	err := s.Atomic(ctx, patient, func(tx ledger.Repositories) error {
		require.NoError(t, tx.Permissions().Save(ctx, permissions.Entry{Patient: patient, Doctor: doctor, Granted: true, Ordinal: 1}))

		list, err := tx.Permissions().ListByPatient(ctx, patient)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, doctor, list[0].Doctor)
		assert.Equal(t, d2, list[1].Doctor)
		return nil
	})
	require.NoError(t, err)

	_, err = s.Permissions().Get(ctx, patient, identity.MustParse("0x00000000000000000000000000000000000000d9"))
	assert.True(t, errors.Is(err, permissions.ErrNotFound))
}

func seqs(in []events.Event) []uint64 {
	out := make([]uint64, 0, len(in))
	for _, e := range in {
		out = append(out, e.Sequence)
	}
	return out
}
