package queue

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/simorq_queue/internal/repo"
)

func TestParseStartTime(t *testing.T) {
	tests := []struct {
		raw    string
		ok     bool
		hour   int
		minute int
	}{
		{"09:00", true, 9, 0},
		{"14:30:00", true, 14, 30},
		{"2:15PM", true, 14, 15},
		{"2:15 pm", true, 14, 15},
		{"", false, 0, 0},
		{"morning", false, 0, 0},
		{"25:00", false, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := parseStartTime(tt.raw)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.hour, got.Hour())
				assert.Equal(t, tt.minute, got.Minute())
			}
		})
	}
}

func TestServiceStart(t *testing.T) {
	tehran := time.FixedZone("IRST", 3*3600+1800)
	now := time.Date(2026, 10, 19, 5, 0, 0, 0, time.UTC)

	t.Run("scheduled date", func(t *testing.T) {
		c := repo.Clinic{Date: time.Date(2026, 10, 21, 0, 0, 0, 0, time.UTC), StartTime: "08:30"}
		got, ok := serviceStart(c, now, tehran)
		require.True(t, ok)
		assert.Equal(t, time.Date(2026, 10, 21, 8, 30, 0, 0, tehran), got)
	})

	t.Run("no date means today", func(t *testing.T) {
		c := repo.Clinic{StartTime: "08:30"}
		got, ok := serviceStart(c, now, tehran)
		require.True(t, ok)
		assert.Equal(t, time.Date(2026, 10, 19, 8, 30, 0, 0, tehran), got)
	})

	t.Run("unparseable start", func(t *testing.T) {
		_, ok := serviceStart(repo.Clinic{StartTime: "whenever"}, now, tehran)
		assert.False(t, ok)
	})
}

func TestRecalcLeavesEstimateEmptyOnBadStartTime(t *testing.T) {
	clinic := repo.Clinic{ID: "c1", StartTime: "whenever", Settings: repo.QueueSettings{AvgServiceMinutes: 5}}
	ss := &session{
		clinic: clinic,
		entries: []repo.Entry{
			{ID: uuid.New(), Position: 1, Status: repo.StatusInProgress},
			{ID: uuid.New(), Position: 2, Status: repo.StatusWaiting},
			{ID: uuid.New(), Position: 3, Status: repo.StatusWaiting},
		},
		now: time.Now(),
		loc: time.UTC,
	}
	ss.recalc()

	assert.Equal(t, 0, ss.entries[0].WaitTimeMinutes)
	assert.Equal(t, 5, ss.entries[1].WaitTimeMinutes)
	assert.Equal(t, 10, ss.entries[2].WaitTimeMinutes)
	for _, e := range ss.entries {
		assert.Nil(t, e.EstimatedTime)
	}
}

func TestProject(t *testing.T) {
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	c := repo.Clinic{ID: "c1", QueueStatus: repo.SessionOpen, Settings: repo.QueueSettings{AvgServiceMinutes: 15}}
	entries := []repo.Entry{
		{PatientRefID: "done", Position: 1, Status: repo.StatusCompleted},
		{PatientRefID: "cur", Position: 2, Status: repo.StatusInProgress},
		{PatientRefID: "w1", Position: 3, Status: repo.StatusWaiting},
		{PatientRefID: "gone", Position: 4, Status: repo.StatusNoShow},
		{PatientRefID: "w2", Position: 5, Status: repo.StatusWaiting},
	}

	st := Project(c, entries, now)
	assert.Equal(t, "c1", st.ClinicID)
	assert.True(t, st.IsActive)
	require.NotNil(t, st.CurrentPatient)
	assert.Equal(t, "cur", st.CurrentPatient.PatientRefID)
	require.Len(t, st.WaitingQueue, 2)
	assert.Equal(t, "w1", st.WaitingQueue[0].PatientRefID)
	assert.Equal(t, "w2", st.WaitingQueue[1].PatientRefID)
	assert.Equal(t, 5, st.TotalPatients)
	assert.Equal(t, Stats{
		Waiting:               2,
		InProgress:            1,
		Completed:             1,
		NoShow:                1,
		AvgServiceMinutes:     15,
		EstimatedDrainMinutes: 45,
	}, st.Stats)
	assert.Equal(t, now, st.GeneratedAt)

	empty := Project(repo.Clinic{ID: "c2"}, nil, now)
	assert.Nil(t, empty.CurrentPatient)
	assert.NotNil(t, empty.WaitingQueue)
	assert.False(t, empty.IsActive)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		kind Kind
		code string
	}{
		{ErrClinicNotFound, KindNotFound, "ClinicNotFound"},
		{ErrPatientsStillWaiting, KindConflict, "PatientsStillWaiting"},
		{ErrQueueNotOpen, KindInvalidState, "QueueNotOpen"},
		{ErrValidation, KindValidation, "Validation"},
		{assert.AnError, KindInternal, "Internal"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err))
			assert.Equal(t, tt.code, CodeOf(tt.err))
		})
	}
}
