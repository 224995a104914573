package queue

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/Alijeyrad/simorq_queue/internal/repo"
)

// session is the working copy of one clinic's queue inside a store transaction.
// Entries are kept ordered by position; flush writes them back.
type session struct {
	tx      repo.Tx
	clinic  repo.Clinic
	entries []repo.Entry
	dirty   bool
	now     time.Time
	loc     *time.Location
}

func newSession(tx repo.Tx, now time.Time, loc *time.Location) *session {
	return &session{
		tx:      tx,
		clinic:  tx.Clinic(),
		entries: tx.Entries(),
		now:     now,
		loc:     loc,
	}
}

func (s *session) index(id uuid.UUID) int {
	return slices.IndexFunc(s.entries, func(e repo.Entry) bool { return e.ID == id })
}

func (s *session) indexByRef(ref string) int {
	return slices.IndexFunc(s.entries, func(e repo.Entry) bool { return e.PatientRefID == ref })
}

func (s *session) inProgress() int {
	return slices.IndexFunc(s.entries, func(e repo.Entry) bool { return e.Status == repo.StatusInProgress })
}

func (s *session) firstWaiting() int {
	return slices.IndexFunc(s.entries, func(e repo.Entry) bool { return e.Status == repo.StatusWaiting })
}

func (s *session) count(statuses ...repo.EntryStatus) int {
	return lo.CountBy(s.entries, func(e repo.Entry) bool { return slices.Contains(statuses, e.Status) })
}

func (s *session) activeCount() int {
	return lo.CountBy(s.entries, func(e repo.Entry) bool { return e.Status.Active() })
}

func (s *session) removeAt(i int) repo.Entry {
	e := s.entries[i]
	s.entries = slices.Delete(s.entries, i, i+1)
	s.tx.Delete(e.ID)
	return e
}

// removeWhere deletes every matching entry and returns how many were removed
// per status.
func (s *session) removeWhere(match func(repo.Entry) bool) map[repo.EntryStatus]int {
	removed := make(map[repo.EntryStatus]int)
	s.entries = slices.DeleteFunc(s.entries, func(e repo.Entry) bool {
		if !match(e) {
			return false
		}
		removed[e.Status]++
		s.tx.Delete(e.ID)
		return true
	})
	return removed
}

func (s *session) removeTerminal() map[repo.EntryStatus]int {
	return s.removeWhere(func(e repo.Entry) bool { return !e.Status.Active() })
}

// promote moves the earliest waiting entry into service. It reports false
// when nobody is waiting.
func (s *session) promote() bool {
	i := s.firstWaiting()
	if i < 0 {
		return false
	}
	s.entries[i].Status = repo.StatusInProgress
	s.entries[i].WaitTimeMinutes = 0
	s.entries[i].EstimatedTime = nil
	return true
}

// repack rewrites positions to 1..N in the current order.
func (s *session) repack() {
	for i := range s.entries {
		s.entries[i].Position = i + 1
	}
}

// recalc recomputes wait times and clock estimates for waiting entries.
func (s *session) recalc() {
	avg := s.clinic.Settings.AvgServiceMinutes
	base, hasBase := serviceStart(s.clinic, s.now, s.loc)

	for i := range s.entries {
		e := &s.entries[i]
		switch e.Status {
		case repo.StatusWaiting:
			e.WaitTimeMinutes = (e.Position - 1) * avg
			if hasBase {
				t := base.Add(time.Duration(e.WaitTimeMinutes) * time.Minute)
				e.EstimatedTime = &t
			} else {
				e.EstimatedTime = nil
			}
		default:
			e.WaitTimeMinutes = 0
			e.EstimatedTime = nil
		}
	}
}

func (s *session) open() {
	now := s.now
	s.clinic.QueueStatus = repo.SessionOpen
	s.clinic.OpenedAt = &now
	s.clinic.ClosedAt = nil
	s.dirty = true
}

func (s *session) close() {
	now := s.now
	s.clinic.QueueStatus = repo.SessionClosed
	s.clinic.ClosedAt = &now
	s.dirty = true
}

// flush writes changed entries and the clinic back to the transaction.
func (s *session) flush() {
	for i := range s.entries {
		e := s.entries[i]
		if orig, ok := s.tx.Entry(e.ID); ok && orig.Equal(e) {
			continue
		}
		e.UpdatedAt = s.now
		s.entries[i] = e
		s.tx.Put(e)
	}
	if s.dirty {
		s.clinic.UpdatedAt = s.now
		s.tx.SaveClinic(s.clinic)
		s.dirty = false
	}
}

var startTimeLayouts = []string{"15:04", "15:04:05", "3:04PM", "3:04 PM", "3:04pm", "3:04 pm"}

// serviceStart combines the clinic's scheduled date with its start time.
// A clinic without a date is assumed to run today.
func serviceStart(c repo.Clinic, now time.Time, loc *time.Location) (time.Time, bool) {
	clock, ok := parseStartTime(c.StartTime)
	if !ok {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}

	// Date is a calendar day, so its components are taken as-is.
	day := c.Date
	if day.IsZero() {
		day = now.In(loc)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), clock.Second(), 0, loc), true
}

func parseStartTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range startTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
