package queue

import (
	"time"

	"github.com/samber/lo"

	"github.com/Alijeyrad/simorq_queue/internal/repo"
)

// Status is a read-only snapshot of one clinic's queue.
type Status struct {
	ClinicID       string             `json:"clinicId"`
	IsActive       bool               `json:"isActive"`
	CurrentPatient *repo.Entry        `json:"currentPatient"`
	WaitingQueue   []repo.Entry       `json:"waitingQueue"`
	TotalPatients  int                `json:"totalPatients"`
	Settings       repo.QueueSettings `json:"settings"`
	Stats          Stats              `json:"stats"`
	GeneratedAt    time.Time          `json:"generatedAt"`
	// Revision orders snapshots of one clinic; a higher revision is newer.
	Revision int64 `json:"revision"`
	// Prior is the state this snapshot replaced. It is set only on published
	// snapshots so consumers can diff without keeping their own history.
	Prior *Status `json:"prior,omitempty"`
}

type Stats struct {
	Waiting               int `json:"waiting"`
	InProgress            int `json:"inProgress"`
	Completed             int `json:"completed"`
	NoShow                int `json:"noShow"`
	AvgServiceMinutes     int `json:"avgServiceMinutes"`
	EstimatedDrainMinutes int `json:"estimatedDrainMinutes"`
}

// Project derives a Status from one consistent read of a clinic. Entries
// must be ordered by position.
func Project(c repo.Clinic, entries []repo.Entry, now time.Time) *Status {
	st := &Status{
		ClinicID:      c.ID,
		IsActive:      c.IsOpen(),
		WaitingQueue:  lo.Filter(entries, func(e repo.Entry, _ int) bool { return e.Status == repo.StatusWaiting }),
		TotalPatients: len(entries),
		Settings:      c.Settings,
		GeneratedAt:   now,
		Revision:      c.Revision,
	}

	if cur, ok := lo.Find(entries, func(e repo.Entry) bool { return e.Status == repo.StatusInProgress }); ok {
		st.CurrentPatient = &cur
	}

	counts := lo.CountValuesBy(entries, func(e repo.Entry) repo.EntryStatus { return e.Status })
	st.Stats = Stats{
		Waiting:               counts[repo.StatusWaiting],
		InProgress:            counts[repo.StatusInProgress],
		Completed:             counts[repo.StatusCompleted],
		NoShow:                counts[repo.StatusNoShow],
		AvgServiceMinutes:     c.Settings.AvgServiceMinutes,
		EstimatedDrainMinutes: (counts[repo.StatusWaiting] + counts[repo.StatusInProgress]) * c.Settings.AvgServiceMinutes,
	}
	return st
}
