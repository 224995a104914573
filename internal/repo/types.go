package repo

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the open/closed state of a clinic's queue for the day.
type SessionStatus string

const (
	SessionClosed SessionStatus = "closed"
	SessionOpen   SessionStatus = "open"
)

// EntryStatus is the lifecycle state of a single queue entry.
type EntryStatus string

const (
	StatusWaiting    EntryStatus = "waiting"
	StatusInProgress EntryStatus = "in-progress"
	StatusCompleted  EntryStatus = "completed"
	StatusNoShow     EntryStatus = "no-show"
)

// Active reports whether the entry still occupies a place in the queue.
func (s EntryStatus) Active() bool {
	return s == StatusWaiting || s == StatusInProgress
}

func (s EntryStatus) Valid() bool {
	switch s {
	case StatusWaiting, StatusInProgress, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

type QueueSettings struct {
	MaxCapacity       int  `json:"maxCapacity"`
	AvgServiceMinutes int  `json:"avgServiceMinutes"`
	AutoClose         bool `json:"autoClose"`
}

// Clinic is the clinic-for-a-day the queue belongs to, together with its
// session state.
type Clinic struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Active      bool          `json:"active"`
	Date        time.Time     `json:"date"`
	StartTime   string        `json:"startTime"`
	QueueStatus SessionStatus `json:"queueStatus"`
	Settings    QueueSettings `json:"settings"`
	OpenedAt    *time.Time    `json:"openedAt,omitempty"`
	ClosedAt    *time.Time    `json:"closedAt,omitempty"`
	UpdatedAt   time.Time     `json:"updatedAt"`
	// Revision increases by one with every committed queue change.
	Revision int64 `json:"revision"`
}

func (c Clinic) IsOpen() bool { return c.QueueStatus == SessionOpen }

// Entry is one patient's place in a clinic queue.
type Entry struct {
	ID              uuid.UUID   `json:"id"`
	PatientRefID    string      `json:"patientRefId"`
	ClinicID        string      `json:"clinicId"`
	Name            string      `json:"name"`
	Email           string      `json:"email"`
	Phone           string      `json:"phone,omitempty"`
	Notes           string      `json:"notes,omitempty"`
	Position        int         `json:"position"`
	Status          EntryStatus `json:"status"`
	JoinedAt        time.Time   `json:"joinedAt"`
	WaitTimeMinutes int         `json:"waitTimeMinutes"`
	EstimatedTime   *time.Time  `json:"estimatedTime"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// Equal reports whether two entries carry identical data.
func (e Entry) Equal(o Entry) bool {
	if e.ID != o.ID || e.PatientRefID != o.PatientRefID || e.ClinicID != o.ClinicID ||
		e.Name != o.Name || e.Email != o.Email || e.Phone != o.Phone || e.Notes != o.Notes ||
		e.Position != o.Position || e.Status != o.Status || e.WaitTimeMinutes != o.WaitTimeMinutes ||
		!e.JoinedAt.Equal(o.JoinedAt) || !e.UpdatedAt.Equal(o.UpdatedAt) {
		return false
	}
	switch {
	case e.EstimatedTime == nil && o.EstimatedTime == nil:
		return true
	case e.EstimatedTime == nil || o.EstimatedTime == nil:
		return false
	}
	return e.EstimatedTime.Equal(*o.EstimatedTime)
}

// Patient is a pre-registered patient known to the directory.
type Patient struct {
	RefID string `json:"refId"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Snapshot is a consistent view of one clinic and its stored entries.
type Snapshot struct {
	Clinic  Clinic
	Entries []Entry
}

// ChangeSet is what a committed Tx asks the backing store to persist.
type ChangeSet struct {
	Clinic  *Clinic
	Upserts []Entry
	Deletes []uuid.UUID
}

func (c ChangeSet) Empty() bool {
	return c.Clinic == nil && len(c.Upserts) == 0 && len(c.Deletes) == 0
}
