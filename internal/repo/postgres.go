package repo

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/samber/lo"
)

//go:embed schema.sql
var schemaSQL string

var pg = entsql.Dialect(dialect.Postgres)

const (
	tableClinics  = "clinics"
	tableEntries  = "queue_entries"
	tablePatients = "patients"

	// lock_not_available
	pqLockNotAvailable = "55P03"
)

var clinicColumns = []string{
	"id", "name", "active", "service_date", "start_time", "queue_status",
	"max_capacity", "avg_service_minutes", "auto_close", "opened_at", "closed_at", "updated_at", "revision",
}

var entryColumns = []string{
	"id", "clinic_id", "patient_ref_id", "name", "email", "phone", "notes",
	"position", "status", "joined_at", "wait_time_minutes", "estimated_time", "updated_at",
}

// queryable is satisfied by both *sql.DB and *sql.Tx.
type queryable interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type postgresStore struct {
	db          *sql.DB
	lockTimeout time.Duration
}

// NewPostgres returns a Store on top of an open lib/pq connection pool.
// Clinic exclusion uses a transaction-scoped advisory lock.
func NewPostgres(db *sql.DB, lockTimeout time.Duration) Store {
	return &postgresStore{db: db, lockTimeout: lockTimeout}
}

// Migrate creates the queue tables if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("postgres: apply schema: %w", err)
	}
	return nil
}

func (s *postgresStore) FindClinic(ctx context.Context, id string) (Clinic, error) {
	return findClinic(ctx, s.db, id)
}

func (s *postgresStore) CreateClinic(ctx context.Context, c Clinic) error {
	q, args := pg.Insert(tableClinics).
		Columns(clinicColumns...).
		Values(clinicValues(c)...).
		OnConflict(entsql.ConflictColumns("id"), entsql.DoNothing()).
		Query()

	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("postgres: create clinic: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: create clinic: %w", err)
	}
	if n == 0 {
		return ErrClinicExists
	}
	return nil
}

func (s *postgresStore) ListClinics(ctx context.Context) ([]Clinic, error) {
	q, args := pg.Select(clinicColumns...).
		From(pg.Table(tableClinics)).
		OrderBy(entsql.Asc("id")).
		Query()

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list clinics: %w", err)
	}
	defer rows.Close()

	var out []Clinic
	for rows.Next() {
		c, err := scanClinic(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *postgresStore) FindPatient(ctx context.Context, refID string) (Patient, error) {
	q, args := pg.Select("ref_id", "name", "email", "phone").
		From(pg.Table(tablePatients)).
		Where(entsql.EQ("ref_id", refID)).
		Query()

	var p Patient
	err := s.db.QueryRowContext(ctx, q, args...).Scan(&p.RefID, &p.Name, &p.Email, &p.Phone)
	if errors.Is(err, sql.ErrNoRows) {
		return Patient{}, ErrNotFound
	}
	if err != nil {
		return Patient{}, fmt.Errorf("postgres: find patient: %w", err)
	}
	return p, nil
}

func (s *postgresStore) SavePatient(ctx context.Context, p Patient) error {
	q, args := pg.Insert(tablePatients).
		Columns("ref_id", "name", "email", "phone").
		Values(p.RefID, p.Name, p.Email, p.Phone).
		OnConflict(entsql.ConflictColumns("ref_id"), entsql.ResolveWithNewValues()).
		Query()

	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("postgres: save patient: %w", err)
	}
	return nil
}

func (s *postgresStore) Atomic(ctx context.Context, clinicID string, fn func(Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.lock(ctx, tx, clinicID); err != nil {
		return err
	}

	snap, err := readSnapshot(ctx, tx, clinicID)
	if err != nil {
		return err
	}

	staged := newStagedTx(snap)
	if err = fn(staged); err != nil {
		return err
	}

	if err = applyChanges(ctx, tx, clinicID, staged.changes()); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

func (s *postgresStore) lock(ctx context.Context, tx *sql.Tx, clinicID string) error {
	if s.lockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = %d", s.lockTimeout.Milliseconds())
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: set lock timeout: %w", err)
		}
	}

	_, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", clinicID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqLockNotAvailable {
			return fmt.Errorf("%w: %s", ErrLockTimeout, clinicID)
		}
		return fmt.Errorf("postgres: advisory lock: %w", err)
	}
	return nil
}

func (s *postgresStore) Read(ctx context.Context, clinicID string) (Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return Snapshot{}, fmt.Errorf("postgres: begin read: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	return readSnapshot(ctx, tx, clinicID)
}

func (s *postgresStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *postgresStore) Close() error { return nil }

func readSnapshot(ctx context.Context, q queryable, clinicID string) (Snapshot, error) {
	c, err := findClinic(ctx, q, clinicID)
	if err != nil {
		return Snapshot{}, err
	}

	query, args := pg.Select(entryColumns...).
		From(pg.Table(tableEntries)).
		Where(entsql.EQ("clinic_id", clinicID)).
		OrderBy(entsql.Asc("position"), entsql.Asc("joined_at")).
		Query()

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return Snapshot{}, fmt.Errorf("postgres: load entries: %w", err)
	}
	defer rows.Close()

	snap := Snapshot{Clinic: c}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return Snapshot{}, err
		}
		snap.Entries = append(snap.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("postgres: load entries: %w", err)
	}
	snap.Entries = sortEntries(snap.Entries)
	return snap, nil
}

func applyChanges(ctx context.Context, q queryable, clinicID string, cs ChangeSet) error {
	if cs.Clinic != nil {
		c := *cs.Clinic
		query, args := pg.Update(tableClinics).
			Set("name", c.Name).
			Set("active", c.Active).
			Set("service_date", nullDate(c.Date)).
			Set("start_time", c.StartTime).
			Set("queue_status", string(c.QueueStatus)).
			Set("max_capacity", c.Settings.MaxCapacity).
			Set("avg_service_minutes", c.Settings.AvgServiceMinutes).
			Set("auto_close", c.Settings.AutoClose).
			Set("opened_at", c.OpenedAt).
			Set("closed_at", c.ClosedAt).
			Set("updated_at", c.UpdatedAt).
			Set("revision", c.Revision).
			Where(entsql.EQ("id", clinicID)).
			Query()
		if _, err := q.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("postgres: update clinic: %w", err)
		}
	}

	if len(cs.Deletes) > 0 {
		ids := lo.Map(cs.Deletes, func(id uuid.UUID, _ int) any { return id.String() })
		query, args := pg.Delete(tableEntries).
			Where(entsql.And(entsql.EQ("clinic_id", clinicID), entsql.In("id", ids...))).
			Query()
		if _, err := q.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("postgres: delete entries: %w", err)
		}
	}

	if len(cs.Upserts) > 0 {
		ins := pg.Insert(tableEntries).Columns(entryColumns...)
		for _, e := range cs.Upserts {
			ins.Values(entryValues(e)...)
		}
		query, args := ins.OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()).Query()
		if _, err := q.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("postgres: upsert entries: %w", err)
		}
	}
	return nil
}

func findClinic(ctx context.Context, q queryable, id string) (Clinic, error) {
	query, args := pg.Select(clinicColumns...).
		From(pg.Table(tableClinics)).
		Where(entsql.EQ("id", id)).
		Query()

	c, err := scanClinic(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Clinic{}, ErrNotFound
	}
	return c, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanClinic(row scanner) (Clinic, error) {
	var (
		c              Clinic
		status         string
		date           sql.NullTime
		opened, closed sql.NullTime
	)
	err := row.Scan(&c.ID, &c.Name, &c.Active, &date, &c.StartTime, &status,
		&c.Settings.MaxCapacity, &c.Settings.AvgServiceMinutes, &c.Settings.AutoClose,
		&opened, &closed, &c.UpdatedAt, &c.Revision)
	if errors.Is(err, sql.ErrNoRows) {
		return Clinic{}, err
	}
	if err != nil {
		return Clinic{}, fmt.Errorf("postgres: scan clinic: %w", err)
	}
	c.QueueStatus = SessionStatus(status)
	if date.Valid {
		c.Date = date.Time
	}
	c.OpenedAt = timePtr(opened)
	c.ClosedAt = timePtr(closed)
	return c, nil
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e         Entry
		status    string
		estimated sql.NullTime
	)
	err := row.Scan(&e.ID, &e.ClinicID, &e.PatientRefID, &e.Name, &e.Email, &e.Phone, &e.Notes,
		&e.Position, &status, &e.JoinedAt, &e.WaitTimeMinutes, &estimated, &e.UpdatedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("postgres: scan entry: %w", err)
	}
	e.Status = EntryStatus(status)
	e.EstimatedTime = timePtr(estimated)
	return e, nil
}

func clinicValues(c Clinic) []any {
	return []any{
		c.ID, c.Name, c.Active, nullDate(c.Date), c.StartTime, string(c.QueueStatus),
		c.Settings.MaxCapacity, c.Settings.AvgServiceMinutes, c.Settings.AutoClose,
		c.OpenedAt, c.ClosedAt, c.UpdatedAt, c.Revision,
	}
}

func entryValues(e Entry) []any {
	return []any{
		e.ID.String(), e.ClinicID, e.PatientRefID, e.Name, e.Email, e.Phone, e.Notes,
		e.Position, string(e.Status), e.JoinedAt, e.WaitTimeMinutes, e.EstimatedTime, e.UpdatedAt,
	}
}

func nullDate(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
