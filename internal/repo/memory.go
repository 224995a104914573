package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/Alijeyrad/simorq_queue/pkg/lock"
)

type memoryStore struct {
	locks       lock.Locker
	lockTimeout time.Duration

	mu       sync.RWMutex
	clinics  map[string]Clinic
	entries  map[string]map[uuid.UUID]Entry
	patients map[string]Patient
}

// NewMemory returns a Store that keeps everything in process memory.
func NewMemory(lockTimeout time.Duration) Store {
	return &memoryStore{
		locks:       lock.NewLocal(),
		lockTimeout: lockTimeout,
		clinics:     make(map[string]Clinic),
		entries:     make(map[string]map[uuid.UUID]Entry),
		patients:    make(map[string]Patient),
	}
}

func (s *memoryStore) FindClinic(_ context.Context, id string) (Clinic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.clinics[id]
	if !ok {
		return Clinic{}, ErrNotFound
	}
	return c, nil
}

func (s *memoryStore) CreateClinic(_ context.Context, c Clinic) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clinics[c.ID]; ok {
		return ErrClinicExists
	}
	s.clinics[c.ID] = c
	return nil
}

func (s *memoryStore) ListClinics(_ context.Context) ([]Clinic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := lo.Values(s.clinics)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memoryStore) FindPatient(_ context.Context, refID string) (Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.patients[refID]
	if !ok {
		return Patient{}, ErrNotFound
	}
	return p, nil
}

func (s *memoryStore) SavePatient(_ context.Context, p Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.patients[p.RefID] = p
	return nil
}

func (s *memoryStore) Atomic(ctx context.Context, clinicID string, fn func(Tx) error) error {
	lctx, cancel := withLockTimeout(ctx, s.lockTimeout)
	defer cancel()

	release, err := s.locks.Acquire(lctx, clinicID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLockTimeout, err)
	}
	defer release()

	snap, err := s.Read(ctx, clinicID)
	if err != nil {
		return err
	}

	tx := newStagedTx(snap)
	if err := fn(tx); err != nil {
		return err
	}

	cs := tx.changes()
	if cs.Empty() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cs.Clinic != nil {
		s.clinics[clinicID] = *cs.Clinic
	}
	rows := s.entries[clinicID]
	if rows == nil {
		rows = make(map[uuid.UUID]Entry)
		s.entries[clinicID] = rows
	}
	for _, id := range cs.Deletes {
		delete(rows, id)
	}
	for _, e := range cs.Upserts {
		rows[e.ID] = e
	}
	return nil
}

func (s *memoryStore) Read(_ context.Context, clinicID string) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.clinics[clinicID]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return Snapshot{Clinic: c, Entries: sortEntries(lo.Values(s.entries[clinicID]))}, nil
}

func (s *memoryStore) Ping(context.Context) error { return nil }

func (s *memoryStore) Close() error { return nil }

func withLockTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
