// Package queue implements the walk-in queue state machine for a clinic.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Alijeyrad/simorq_queue/internal/repo"
	"github.com/Alijeyrad/simorq_queue/pkg/phone"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type PatientInput struct {
	PatientRefID string
	Name         string
	Email        string
	Phone        string
	Notes        string
}

type CleanupResult struct {
	CompletedRemoved int `json:"completedRemoved"`
	NoShowRemoved    int `json:"noShowRemoved"`
}

type SettingsUpdate struct {
	MaxCapacity       *int
	AvgServiceMinutes *int
	AutoClose         *bool
	StartTime         *string
	Date              *time.Time
}

type Options struct {
	// Clock defaults to time.Now.
	Clock func() time.Time
	// Location is used to build clock-time estimates. Defaults to time.Local.
	Location *time.Location
	// PhoneRegion is the default region for phone normalization.
	PhoneRegion string
	Logger      *slog.Logger
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

type Service interface {
	StartQueue(ctx context.Context, clinicID string) (*Status, error)
	GetQueueStatus(ctx context.Context, clinicID string) (*Status, error)
	AdmitPatient(ctx context.Context, clinicID string, in PatientInput) (*Status, error)
	AdmitRegistered(ctx context.Context, clinicID string, patientRefIDs []string) (*Status, error)
	CloseQueue(ctx context.Context, clinicID string, force bool) (*Status, error)
	ProcessNext(ctx context.Context, clinicID string) (*Status, error)
	RemovePatient(ctx context.Context, clinicID string, entryID uuid.UUID) (*Status, error)
	ReorderQueue(ctx context.Context, clinicID string, orderedEntryIDs []uuid.UUID) (*Status, error)
	UpdatePatientStatus(ctx context.Context, clinicID string, entryID uuid.UUID, status repo.EntryStatus) (*Status, error)
	CleanupCompleted(ctx context.Context, clinicID string) (*CleanupResult, error)
	UpdateSettings(ctx context.Context, clinicID string, req SettingsUpdate) (*Status, error)
	RecalculateWaitTimes(ctx context.Context, clinicID string) (*Status, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type queueService struct {
	store   repo.Store
	pub     Publisher
	clock   func() time.Time
	loc     *time.Location
	region  string
	log     *slog.Logger
	tracer  trace.Tracer
	metrics *instruments
}

func New(store repo.Store, pub Publisher, opts Options) Service {
	if pub == nil {
		pub = nopPublisher{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &queueService{
		store:   store,
		pub:     pub,
		clock:   opts.Clock,
		loc:     opts.Location,
		region:  opts.PhoneRegion,
		log:     opts.Logger,
		tracer:  otel.Tracer(instrumentationName),
		metrics: newInstruments(),
	}
}

// mutate runs fn under the clinic lock, bumps the clinic revision, flushes the
// session and publishes the resulting snapshot once the change is committed.
// The published copy carries the pre-change state as Prior.
func (s *queueService) mutate(ctx context.Context, op, clinicID string, fn func(*session) error) (*Status, error) {
	ctx, span := s.tracer.Start(ctx, "queue."+op, trace.WithAttributes(attribute.String("clinic.id", clinicID)))
	defer span.End()

	var status, prior *Status
	err := s.store.Atomic(ctx, clinicID, func(tx repo.Tx) error {
		ss := newSession(tx, s.clock(), s.loc)
		if !ss.clinic.Active {
			return ErrClinicNotFound
		}
		prior = Project(ss.clinic, ss.entries, ss.now)
		if err := fn(ss); err != nil {
			return err
		}
		ss.clinic.Revision++
		ss.dirty = true
		ss.flush()
		status = Project(ss.clinic, ss.entries, ss.now)
		return nil
	})
	err = translate(err)

	s.metrics.operation(ctx, op, err)
	if err != nil {
		if KindOf(err) == KindInternal {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.log.Error("queue: operation failed", "op", op, "clinic_id", clinicID, "error", err)
		}
		return nil, err
	}

	published := *status
	published.Prior = prior
	s.publish(ctx, clinicID, &published)
	return status, nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrNotFound):
		return ErrClinicNotFound
	case errors.Is(err, repo.ErrLockTimeout):
		return fmt.Errorf("queue: clinic busy: %w", err)
	}
	return err
}

func requireOpen(ss *session) error {
	if !ss.clinic.IsOpen() {
		return ErrQueueNotOpen
	}
	return nil
}

// ---------------------------------------------------------------------------
// Session lifecycle
// ---------------------------------------------------------------------------

func (s *queueService) StartQueue(ctx context.Context, clinicID string) (*Status, error) {
	return s.mutate(ctx, "StartQueue", clinicID, func(ss *session) error {
		if ss.clinic.IsOpen() {
			return fmt.Errorf("%w: queue already open", ErrInvalidState)
		}
		// A fresh session discards everything left from earlier ones.
		ss.removeWhere(func(repo.Entry) bool { return true })
		ss.open()
		s.log.Info("queue: started", "clinic_id", clinicID)
		return nil
	})
}

func (s *queueService) CloseQueue(ctx context.Context, clinicID string, force bool) (*Status, error) {
	return s.mutate(ctx, "CloseQueue", clinicID, func(ss *session) error {
		if err := requireOpen(ss); err != nil {
			return err
		}
		if waiting := ss.count(repo.StatusWaiting); waiting > 0 && !force {
			return fmt.Errorf("%w: %d patient(s) waiting", ErrPatientsStillWaiting, waiting)
		}
		if force {
			s.forceClose(ss, clinicID)
			return nil
		}
		s.closeSession(ss)
		return nil
	})
}

// closeSession is the non-forced close: terminal entries are pruned.
func (s *queueService) closeSession(ss *session) {
	ss.removeTerminal()
	ss.repack()
	ss.recalc()
	ss.close()
}

func (s *queueService) forceClose(ss *session, clinicID string) {
	stranded := ss.activeCount()
	ss.removeWhere(func(repo.Entry) bool { return true })
	ss.close()
	if stranded > 0 {
		s.log.Warn("queue: force closed with patients still queued", "clinic_id", clinicID, "stranded", stranded)
	}
}

// ---------------------------------------------------------------------------
// Admission
// ---------------------------------------------------------------------------

func (s *queueService) AdmitPatient(ctx context.Context, clinicID string, in PatientInput) (*Status, error) {
	in.PatientRefID = strings.TrimSpace(in.PatientRefID)
	if in.PatientRefID == "" {
		return nil, fmt.Errorf("%w: patientRefId is required", ErrValidation)
	}
	in.Phone = phone.Normalize(in.Phone, s.region)

	return s.mutate(ctx, "AdmitPatient", clinicID, func(ss *session) error {
		if err := requireOpen(ss); err != nil {
			return err
		}
		return s.admit(ctx, ss, in)
	})
}

// AdmitRegistered seeds the queue from the patient directory. The batch is
// all or nothing; patients already queued are skipped.
func (s *queueService) AdmitRegistered(ctx context.Context, clinicID string, patientRefIDs []string) (*Status, error) {
	refs := lo.Uniq(lo.Compact(lo.Map(patientRefIDs, func(r string, _ int) string { return strings.TrimSpace(r) })))
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: at least one patientRefId is required", ErrValidation)
	}

	// Directory lookups happen before taking the clinic lock.
	inputs := make([]PatientInput, 0, len(refs))
	for _, ref := range refs {
		p, err := s.store.FindPatient(ctx, ref)
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown patient %s", ErrPatientNotFound, ref)
		}
		if err != nil {
			return nil, fmt.Errorf("queue: find patient %s: %w", ref, err)
		}
		inputs = append(inputs, PatientInput{
			PatientRefID: p.RefID,
			Name:         p.Name,
			Email:        p.Email,
			Phone:        phone.Normalize(p.Phone, s.region),
		})
	}

	return s.mutate(ctx, "AdmitRegistered", clinicID, func(ss *session) error {
		if err := requireOpen(ss); err != nil {
			return err
		}
		for _, in := range inputs {
			if i := ss.indexByRef(in.PatientRefID); i >= 0 && ss.entries[i].Status.Active() {
				continue
			}
			if err := s.admit(ctx, ss, in); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *queueService) admit(ctx context.Context, ss *session, in PatientInput) error {
	if i := ss.indexByRef(in.PatientRefID); i >= 0 {
		if ss.entries[i].Status.Active() {
			return fmt.Errorf("%w: %s", ErrAlreadyQueued, in.PatientRefID)
		}
		// Re-admission replaces the finished record.
		ss.removeAt(i)
		ss.repack()
	}

	if limit := ss.clinic.Settings.MaxCapacity; limit > 0 && ss.activeCount() >= limit {
		return fmt.Errorf("%w: limit %d", ErrQueueFull, limit)
	}

	status := repo.StatusWaiting
	if ss.inProgress() < 0 {
		status = repo.StatusInProgress
	}

	e := repo.Entry{
		ID:           uuid.Must(uuid.NewV7()),
		PatientRefID: in.PatientRefID,
		ClinicID:     ss.clinic.ID,
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.TrimSpace(in.Email),
		Phone:        in.Phone,
		Notes:        strings.TrimSpace(in.Notes),
		Position:     len(ss.entries) + 1,
		Status:       status,
		JoinedAt:     ss.now,
	}
	ss.entries = append(ss.entries, e)
	ss.recalc()

	s.metrics.admitted(ctx, ss.clinic.ID, ss.entries[len(ss.entries)-1].WaitTimeMinutes)
	return nil
}

// ---------------------------------------------------------------------------
// Progression
// ---------------------------------------------------------------------------

func (s *queueService) ProcessNext(ctx context.Context, clinicID string) (*Status, error) {
	return s.mutate(ctx, "ProcessNext", clinicID, func(ss *session) error {
		if err := requireOpen(ss); err != nil {
			return err
		}
		if i := ss.inProgress(); i >= 0 {
			// Served patients are removed outright so they can be re-admitted.
			ss.removeAt(i)
		}
		ss.repack()

		if !ss.promote() {
			s.closeSession(ss)
			s.log.Info("queue: auto-closed, nobody waiting", "clinic_id", clinicID)
			return nil
		}
		ss.recalc()
		return nil
	})
}

func (s *queueService) RemovePatient(ctx context.Context, clinicID string, entryID uuid.UUID) (*Status, error) {
	return s.mutate(ctx, "RemovePatient", clinicID, func(ss *session) error {
		i := ss.index(entryID)
		if i < 0 {
			return fmt.Errorf("%w: entry %s", ErrPatientNotFound, entryID)
		}
		removed := ss.removeAt(i)
		ss.repack()
		if removed.Status == repo.StatusInProgress && ss.clinic.IsOpen() {
			ss.promote()
		}
		ss.recalc()
		return nil
	})
}

func (s *queueService) ReorderQueue(ctx context.Context, clinicID string, orderedEntryIDs []uuid.UUID) (*Status, error) {
	if len(orderedEntryIDs) == 0 {
		return nil, fmt.Errorf("%w: order must not be empty", ErrValidation)
	}
	if dups := lo.FindDuplicates(orderedEntryIDs); len(dups) > 0 {
		return nil, fmt.Errorf("%w: duplicate entry %s", ErrValidation, dups[0])
	}

	return s.mutate(ctx, "ReorderQueue", clinicID, func(ss *session) error {
		if err := requireOpen(ss); err != nil {
			return err
		}

		listed := make([]repo.Entry, 0, len(ss.entries))
		for _, id := range orderedEntryIDs {
			i := ss.index(id)
			if i < 0 {
				return fmt.Errorf("%w: entry %s", ErrPatientNotFound, id)
			}
			listed = append(listed, ss.entries[i])
		}
		rest := lo.Filter(ss.entries, func(e repo.Entry, _ int) bool {
			return !lo.Contains(orderedEntryIDs, e.ID)
		})

		ss.entries = append(listed, rest...)
		ss.repack()
		ss.recalc()
		return nil
	})
}

var allowedTransitions = map[repo.EntryStatus][]repo.EntryStatus{
	repo.StatusWaiting:    {repo.StatusNoShow},
	repo.StatusInProgress: {repo.StatusCompleted, repo.StatusNoShow},
}

// UpdatePatientStatus only marks an entry; finished records stay until
// CleanupCompleted or the next close.
func (s *queueService) UpdatePatientStatus(ctx context.Context, clinicID string, entryID uuid.UUID, status repo.EntryStatus) (*Status, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	return s.mutate(ctx, "UpdatePatientStatus", clinicID, func(ss *session) error {
		if err := requireOpen(ss); err != nil {
			return err
		}
		i := ss.index(entryID)
		if i < 0 {
			return fmt.Errorf("%w: entry %s", ErrPatientNotFound, entryID)
		}

		from := ss.entries[i].Status
		if !lo.Contains(allowedTransitions[from], status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, status)
		}
		ss.entries[i].Status = status
		ss.recalc()

		if ss.clinic.Settings.AutoClose && ss.activeCount() == 0 {
			s.closeSession(ss)
			s.log.Info("queue: auto-closed after last patient finished", "clinic_id", clinicID)
		}
		return nil
	})
}

// ---------------------------------------------------------------------------
// Maintenance
// ---------------------------------------------------------------------------

func (s *queueService) CleanupCompleted(ctx context.Context, clinicID string) (*CleanupResult, error) {
	var res CleanupResult
	_, err := s.mutate(ctx, "CleanupCompleted", clinicID, func(ss *session) error {
		removed := ss.removeTerminal()
		res.CompletedRemoved = removed[repo.StatusCompleted]
		res.NoShowRemoved = removed[repo.StatusNoShow]
		ss.repack()
		ss.recalc()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res.CompletedRemoved+res.NoShowRemoved > 0 {
		s.log.Info("queue: cleaned up finished entries", "clinic_id", clinicID,
			"completed", res.CompletedRemoved, "no_show", res.NoShowRemoved)
	}
	return &res, nil
}

func (s *queueService) UpdateSettings(ctx context.Context, clinicID string, req SettingsUpdate) (*Status, error) {
	if err := validateSettings(req); err != nil {
		return nil, err
	}

	return s.mutate(ctx, "UpdateSettings", clinicID, func(ss *session) error {
		c := &ss.clinic
		if req.MaxCapacity != nil {
			c.Settings.MaxCapacity = *req.MaxCapacity
		}
		if req.AvgServiceMinutes != nil {
			c.Settings.AvgServiceMinutes = *req.AvgServiceMinutes
		}
		if req.AutoClose != nil {
			c.Settings.AutoClose = *req.AutoClose
		}
		if req.StartTime != nil {
			c.StartTime = strings.TrimSpace(*req.StartTime)
		}
		if req.Date != nil {
			c.Date = *req.Date
		}
		ss.dirty = true
		ss.recalc()
		return nil
	})
}

func validateSettings(req SettingsUpdate) error {
	switch {
	case req.MaxCapacity != nil && *req.MaxCapacity < 0:
		return fmt.Errorf("%w: maxCapacity must not be negative", ErrValidation)
	case req.AvgServiceMinutes != nil && *req.AvgServiceMinutes < 0:
		return fmt.Errorf("%w: avgServiceMinutes must not be negative", ErrValidation)
	case req.StartTime != nil && strings.TrimSpace(*req.StartTime) != "":
		if _, ok := parseStartTime(*req.StartTime); !ok {
			return fmt.Errorf("%w: startTime %q is not a clock time", ErrValidation, *req.StartTime)
		}
	}
	return nil
}

func (s *queueService) RecalculateWaitTimes(ctx context.Context, clinicID string) (*Status, error) {
	return s.mutate(ctx, "RecalculateWaitTimes", clinicID, func(ss *session) error {
		ss.repack()
		ss.recalc()
		return nil
	})
}

// ---------------------------------------------------------------------------
// Status
// ---------------------------------------------------------------------------

func (s *queueService) GetQueueStatus(ctx context.Context, clinicID string) (*Status, error) {
	ctx, span := s.tracer.Start(ctx, "queue.GetQueueStatus", trace.WithAttributes(attribute.String("clinic.id", clinicID)))
	defer span.End()

	snap, err := s.store.Read(ctx, clinicID)
	if err != nil {
		return nil, translate(err)
	}
	if !snap.Clinic.Active {
		return nil, ErrClinicNotFound
	}
	return Project(snap.Clinic, snap.Entries, s.clock()), nil
}
