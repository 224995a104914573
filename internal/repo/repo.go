// Package repo holds the queue data model and the stores that persist it.
//
// Every store serializes work per clinic: Atomic loads a snapshot of the
// clinic, hands a staged Tx to the caller and persists the resulting change
// set only when the callback returns nil.
package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("repo: not found")
	ErrClinicExists  = errors.New("repo: clinic already exists")
	ErrLockTimeout   = errors.New("repo: timed out waiting for clinic lock")
	ErrLockLost      = errors.New("repo: clinic lock expired before commit")
	ErrUnknownDriver = errors.New("repo: unknown store driver")
)

// IsNotFound reports whether err means the requested record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Tx is the staged, clinic-scoped view handed to Atomic callbacks. Reads
// observe earlier writes made through the same Tx.
type Tx interface {
	Clinic() Clinic
	SaveClinic(Clinic)
	// Entries returns every stored entry for the clinic ordered by position.
	Entries() []Entry
	Entry(id uuid.UUID) (Entry, bool)
	Put(Entry)
	Delete(id uuid.UUID) bool
}

type ClinicStore interface {
	FindClinic(ctx context.Context, id string) (Clinic, error)
	// CreateClinic inserts a clinic, failing with ErrClinicExists if the id is taken.
	CreateClinic(ctx context.Context, c Clinic) error
	ListClinics(ctx context.Context) ([]Clinic, error)
}

type PatientDirectory interface {
	FindPatient(ctx context.Context, refID string) (Patient, error)
	SavePatient(ctx context.Context, p Patient) error
}

type Store interface {
	ClinicStore
	PatientDirectory

	// Atomic runs fn under the clinic's exclusive lock. It returns ErrNotFound
	// when the clinic does not exist.
	Atomic(ctx context.Context, clinicID string, fn func(Tx) error) error
	// Read returns one consistent snapshot of the clinic and its entries.
	Read(ctx context.Context, clinicID string) (Snapshot, error)
	// Ping reports whether the backing storage is reachable.
	Ping(ctx context.Context) error
	Close() error
}
