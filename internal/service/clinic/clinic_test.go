package clinic

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/simorq_queue/config"
	"github.com/Alijeyrad/simorq_queue/internal/repo"
	"github.com/Alijeyrad/simorq_queue/internal/service/queue"
)

var defaults = config.QueueDefaultsConfig{
	MaxCapacity:       30,
	AvgServiceMinutes: 12,
	StartTime:         "08:00",
}

func newTestService(t *testing.T) (Service, queue.Service) {
	t.Helper()
	store := repo.NewMemory(time.Second)
	q := queue.New(store, nil, queue.Options{
		Location: time.UTC,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return New(store, q, defaults), q
}

func TestCreateClinic(t *testing.T) {
	ctx := context.Background()

	t.Run("applies defaults and derives id", func(t *testing.T) {
		svc, _ := newTestService(t)
		c, err := svc.CreateClinic(ctx, CreateClinicRequest{Name: "  North Side Clinic "})
		require.NoError(t, err)
		assert.Equal(t, "north-side-clinic", c.ID)
		assert.Equal(t, "North Side Clinic", c.Name)
		assert.True(t, c.Active)
		assert.Equal(t, repo.SessionClosed, c.QueueStatus)
		assert.Equal(t, "08:00", c.StartTime)
		assert.Equal(t, repo.QueueSettings{MaxCapacity: 30, AvgServiceMinutes: 12}, c.Settings)
	})

	t.Run("explicit id, date and settings", func(t *testing.T) {
		svc, _ := newTestService(t)
		day := time.Date(2026, 10, 20, 15, 4, 0, 0, time.UTC)
		c, err := svc.CreateClinic(ctx, CreateClinicRequest{
			ID:        "Clinic-7",
			Name:      "Seven",
			Date:      &day,
			StartTime: "10:30",
			Settings:  &repo.QueueSettings{AvgServiceMinutes: 5, AutoClose: true},
		})
		require.NoError(t, err)
		assert.Equal(t, "Clinic-7", c.ID)
		assert.Equal(t, time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC), c.Date)
		assert.Equal(t, "10:30", c.StartTime)
		assert.True(t, c.Settings.AutoClose)
	})

	t.Run("duplicate id", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.CreateClinic(ctx, CreateClinicRequest{Name: "dup"})
		require.NoError(t, err)
		_, err = svc.CreateClinic(ctx, CreateClinicRequest{Name: "dup"})
		assert.ErrorIs(t, err, ErrClinicAlreadyExists)
	})

	t.Run("validation", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.CreateClinic(ctx, CreateClinicRequest{Name: "   "})
		assert.ErrorIs(t, err, ErrNameRequired)

		_, err = svc.CreateClinic(ctx, CreateClinicRequest{Name: "x", Settings: &repo.QueueSettings{MaxCapacity: -1}})
		assert.ErrorIs(t, err, ErrInvalidSettings)

		_, err = svc.CreateClinic(ctx, CreateClinicRequest{ID: "north.side", Name: "x"})
		assert.ErrorIs(t, err, ErrInvalidID)

		_, err = svc.CreateClinic(ctx, CreateClinicRequest{ID: strings.Repeat("a", 65), Name: "x"})
		assert.ErrorIs(t, err, ErrInvalidID)
	})
}

func TestCreateClinic_MixedCaseIDDrivesQueue(t *testing.T) {
	ctx := context.Background()
	svc, q := newTestService(t)

	c, err := svc.CreateClinic(ctx, CreateClinicRequest{ID: "clinicA", Name: "Clinic A"})
	require.NoError(t, err)
	assert.Equal(t, "clinicA", c.ID)

	st, err := q.StartQueue(ctx, "clinicA")
	require.NoError(t, err)
	assert.True(t, st.IsActive)

	st, err = q.AdmitPatient(ctx, "clinicA", queue.PatientInput{PatientRefID: "p1", Name: "Sara", Email: "sara@example.com"})
	require.NoError(t, err)
	require.NotNil(t, st.CurrentPatient)
	assert.Equal(t, "clinicA", st.CurrentPatient.ClinicID)

	// ids are case-sensitive
	_, err = svc.GetClinic(ctx, "clinica")
	assert.ErrorIs(t, err, ErrClinicNotFound)
}

func TestSlugifyCapsLength(t *testing.T) {
	id := slugify(strings.Repeat("long name ", 20))
	assert.LessOrEqual(t, len(id), 64)
	assert.True(t, validID.MatchString(id))
}

func TestGetAndListClinics(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	for _, name := range []string{"c", "a", "b"} {
		_, err := svc.CreateClinic(ctx, CreateClinicRequest{Name: name})
		require.NoError(t, err)
	}
	inactive := false
	_, err := svc.UpdateClinic(ctx, "b", UpdateClinicRequest{Active: &inactive})
	require.NoError(t, err)

	got, err := svc.GetClinic(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Name)

	_, err = svc.GetClinic(ctx, "missing")
	assert.ErrorIs(t, err, ErrClinicNotFound)

	page, err := svc.ListClinics(ctx, ListClinicsRequest{Page: 1, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "a", page.Data[0].ID)
	assert.Equal(t, "b", page.Data[1].ID)

	active := true
	page, err = svc.ListClinics(ctx, ListClinicsRequest{Active: &active})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	page, err = svc.ListClinics(ctx, ListClinicsRequest{Page: 9})
	require.NoError(t, err)
	assert.Empty(t, page.Data)
}

func TestUpdateClinic(t *testing.T) {
	ctx := context.Background()
	svc, q := newTestService(t)

	_, err := svc.CreateClinic(ctx, CreateClinicRequest{ID: "c1", Name: "Old"})
	require.NoError(t, err)

	name := "New"
	c, err := svc.UpdateClinic(ctx, "c1", UpdateClinicRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "New", c.Name)

	blank := " "
	_, err = svc.UpdateClinic(ctx, "c1", UpdateClinicRequest{Name: &blank})
	assert.ErrorIs(t, err, ErrNameRequired)

	_, err = svc.UpdateClinic(ctx, "nope", UpdateClinicRequest{Name: &name})
	assert.ErrorIs(t, err, ErrClinicNotFound)

	// a deactivated clinic is invisible to the queue engine
	off := false
	_, err = svc.UpdateClinic(ctx, "c1", UpdateClinicRequest{Active: &off})
	require.NoError(t, err)
	_, err = q.StartQueue(ctx, "c1")
	assert.ErrorIs(t, err, queue.ErrClinicNotFound)
}

func TestUpdateSettings(t *testing.T) {
	ctx := context.Background()
	svc, q := newTestService(t)

	_, err := svc.CreateClinic(ctx, CreateClinicRequest{ID: "c1", Name: "One"})
	require.NoError(t, err)
	_, err = q.StartQueue(ctx, "c1")
	require.NoError(t, err)
	for _, ref := range []string{"p1", "p2", "p3"} {
		_, err = q.AdmitPatient(ctx, "c1", queue.PatientInput{PatientRefID: ref, Name: ref, Email: ref + "@example.com"})
		require.NoError(t, err)
	}

	avg := 20
	c, err := svc.UpdateSettings(ctx, "c1", queue.SettingsUpdate{AvgServiceMinutes: &avg})
	require.NoError(t, err)
	assert.Equal(t, 20, c.Settings.AvgServiceMinutes)

	st, err := q.GetQueueStatus(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, st.WaitingQueue, 2)
	assert.Equal(t, 20, st.WaitingQueue[0].WaitTimeMinutes)
	assert.Equal(t, 40, st.WaitingQueue[1].WaitTimeMinutes)

	neg := -1
	_, err = svc.UpdateSettings(ctx, "c1", queue.SettingsUpdate{MaxCapacity: &neg})
	assert.ErrorIs(t, err, queue.ErrValidation)
}
