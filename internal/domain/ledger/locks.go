package ledger

import (
	"sync"

	"medical-access-ledger/internal/domain/identity"
)

// patientLocks es un mutex por paciente. Las entradas se liberan cuando nadie las usa.
type patientLocks struct {
	mu    sync.Mutex
	locks map[identity.Key]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newPatientLocks() *patientLocks {
	return &patientLocks{locks: make(map[identity.Key]*refMutex)}
}

// Lock bloquea al paciente y devuelve la función para liberarlo.
func (p *patientLocks) Lock(patient identity.Key) func() {
	p.mu.Lock()
	m, ok := p.locks[patient]
	if !ok {
		m = &refMutex{}
		p.locks[patient] = m
	}
	m.refs++
	p.mu.Unlock()

	m.Lock()

	return func() {
		m.Unlock()

		p.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(p.locks, patient)
		}
		p.mu.Unlock()
	}
}

func (p *patientLocks) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.locks)
}
