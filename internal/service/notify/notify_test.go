package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Alijeyrad/simorq_queue/internal/repo"
	"github.com/Alijeyrad/simorq_queue/internal/service/queue"
	"github.com/Alijeyrad/simorq_queue/pkg/email"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type sentSMS struct {
	phone, template string
	params          map[string]string
}

type fakeSMS struct {
	mu   sync.Mutex
	sent []sentSMS
	err  error
}

func (f *fakeSMS) IsEnabled() bool { return true }

func (f *fakeSMS) SendTemplate(_ context.Context, phone, templateID string, params map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentSMS{phone: phone, template: templateID, params: params})
	return f.err
}

type fakeMail struct {
	mu   sync.Mutex
	sent []email.Message
}

func (f *fakeMail) IsEnabled() bool { return true }

func (f *fakeMail) Send(_ context.Context, m email.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, m)
	return nil
}

func entry(name string) repo.Entry {
	return repo.Entry{
		ID:     uuid.New(),
		Name:   name,
		Email:  name + "@example.com",
		Phone:  "+989121234567",
		Status: repo.StatusWaiting,
	}
}

func snapshot(current *repo.Entry, waiting ...repo.Entry) *queue.Status {
	total := len(waiting)
	if current != nil {
		total++
	}
	return &queue.Status{
		ClinicID:       "clinicA",
		IsActive:       true,
		CurrentPatient: current,
		WaitingQueue:   waiting,
		TotalPatients:  total,
	}
}

func newTestNotifier(ahead int) *Notifier {
	return New(nil, nil, nil, Options{
		AheadPositions: ahead,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func kinds(notices []Notice) []Kind {
	out := make([]Kind, 0, len(notices))
	for _, n := range notices {
		out = append(out, n.Kind)
	}
	return out
}

// chain links each snapshot to the one before it, the way published
// snapshots carry the state they replaced.
func chain(snaps ...*queue.Status) []*queue.Status {
	for i := 1; i < len(snaps); i++ {
		snaps[i].Prior = snaps[i-1]
	}
	return snaps
}

func TestDiff_NoPriorNoNotices(t *testing.T) {
	n := newTestNotifier(2)
	a, b := entry("a"), entry("b")

	assert.Empty(t, n.diff("clinicA", snapshot(&a, b)))
}

func TestDiff_TurnWhenCurrentChanges(t *testing.T) {
	n := newTestNotifier(0)
	a, b, c := entry("a"), entry("b"), entry("c")

	snaps := chain(snapshot(nil, a, b, c), snapshot(&a, b, c), snapshot(&a, b, c), snapshot(&b, c))

	got := n.diff("clinicA", snaps[1])
	require.Len(t, got, 1)
	assert.Equal(t, KindTurn, got[0].Kind)
	assert.Equal(t, a.ID, got[0].Entry.ID)

	// Same current patient again: nothing new.
	assert.Empty(t, n.diff("clinicA", snaps[2]))

	got = n.diff("clinicA", snaps[3])
	require.Len(t, got, 1)
	assert.Equal(t, b.ID, got[0].Entry.ID)
}

func TestDiff_SoonOnlyWhenEnteringRange(t *testing.T) {
	n := newTestNotifier(2)
	a, b, c, d := entry("a"), entry("b"), entry("c"), entry("d")

	snaps := chain(snapshot(nil), snapshot(nil, a, b, c, d), snapshot(&a, b, c, d), snapshot(&b, c, d))

	// a is next in line with nobody being seen: zero ahead, no soon notice.
	got := n.diff("clinicA", snaps[1])
	require.Len(t, got, 2)
	assert.Equal(t, []Kind{KindSoon, KindSoon}, kinds(got))
	assert.Equal(t, b.ID, got[0].Entry.ID)
	assert.Equal(t, 1, got[0].Ahead)
	assert.Equal(t, c.ID, got[1].Entry.ID)
	assert.Equal(t, 2, got[1].Ahead)

	// a is called: b and c were already near the front, d is still three back.
	got = n.diff("clinicA", snaps[2])
	assert.Equal(t, []Kind{KindTurn}, kinds(got))

	got = n.diff("clinicA", snaps[3])
	require.Len(t, got, 2)
	assert.Equal(t, KindTurn, got[0].Kind)
	assert.Equal(t, KindSoon, got[1].Kind)
	assert.Equal(t, d.ID, got[1].Entry.ID)
	assert.Equal(t, 2, got[1].Ahead)
}

func TestDiff_SoonRangeCountsCurrentPatient(t *testing.T) {
	n := newTestNotifier(1)
	a, b, c := entry("a"), entry("b"), entry("c")

	snaps := chain(snapshot(nil), snapshot(&a, b, c))
	got := n.diff("clinicA", snaps[1])

	require.Len(t, got, 2)
	assert.Equal(t, KindTurn, got[0].Kind)
	assert.Equal(t, b.ID, got[1].Entry.ID)
	assert.Equal(t, 1, got[1].Ahead)
}

func TestDiff_OutOfOrderSnapshotsDoNotRepeatTurn(t *testing.T) {
	n := newTestNotifier(0)
	a, b := entry("a"), entry("b")

	snaps := chain(snapshot(nil, a, b), snapshot(&a, b), snapshot(&b))

	// The newer change lands first, then the older one.
	later := n.diff("clinicA", snaps[2])
	earlier := n.diff("clinicA", snaps[1])

	require.Len(t, later, 1)
	assert.Equal(t, b.ID, later[0].Entry.ID)
	require.Len(t, earlier, 1)
	assert.Equal(t, a.ID, earlier[0].Entry.ID)

	// A change that keeps the same patient in the chair never yields a turn.
	assert.Empty(t, n.diff("clinicA", chain(snapshot(&b), snapshot(&b))[1]))
}

// Queue group members each receive a share of the snapshots. Together they
// must send every notice once.
func TestNotifier_QueueGroupSendsEachNoticeOnce(t *testing.T) {
	store := repo.NewMemory(time.Second)
	require.NoError(t, store.CreateClinic(context.Background(), repo.Clinic{
		ID:          "clinicA",
		Name:        "Central",
		Active:      true,
		QueueStatus: repo.SessionClosed,
		Settings:    repo.QueueSettings{AvgServiceMinutes: 10},
	}))

	members := []*Notifier{newTestNotifier(1), newTestNotifier(1)}
	var calls int
	pub := queue.PublisherFunc(func(ctx context.Context, clinicID string, st *queue.Status) error {
		m := members[calls%len(members)]
		calls++
		return m.Publish(ctx, clinicID, st)
	})
	svc := queue.New(store, pub, queue.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})

	ctx := context.Background()
	_, err := svc.StartQueue(ctx, "clinicA")
	require.NoError(t, err)
	for _, ref := range []string{"a", "b", "c"} {
		_, err := svc.AdmitPatient(ctx, "clinicA", queue.PatientInput{PatientRefID: ref, Name: ref})
		require.NoError(t, err)
	}
	for range 4 {
		_, err := svc.ProcessNext(ctx, "clinicA")
		require.NoError(t, err)
	}

	turns, soon := map[string]int{}, map[string]int{}
	for _, m := range members {
		require.NoError(t, m.Stop(ctx))
		for notice := range m.jobs {
			switch notice.Kind {
			case KindTurn:
				turns[notice.Entry.PatientRefID]++
			case KindSoon:
				soon[notice.Entry.PatientRefID]++
			}
		}
	}
	assert.Equal(t, map[string]int{"a": 1, "b": 1, "c": 1}, turns)
	assert.Equal(t, map[string]int{"b": 1, "c": 1}, soon)
}

func TestNotifier_DeliversSMSAndEmail(t *testing.T) {
	store := repo.NewMemory(time.Second)
	require.NoError(t, store.CreateClinic(context.Background(), repo.Clinic{ID: "clinicA", Name: "Central", Active: true}))

	smsFake := &fakeSMS{}
	mailFake := &fakeMail{}
	n := New(store, smsFake, mailFake, Options{
		AheadPositions: 1,
		Workers:        2,
		TurnTemplateID: "100",
		SoonTemplateID: "200",
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	n.Start()

	a, b := entry("sara"), entry("omid")
	b.Email = ""

	ctx := context.Background()
	require.NoError(t, n.Publish(ctx, "clinicA", chain(snapshot(nil), snapshot(&a, b))[1]))
	require.NoError(t, n.Stop(ctx))

	smsFake.mu.Lock()
	defer smsFake.mu.Unlock()
	require.Len(t, smsFake.sent, 2)
	byTemplate := map[string]sentSMS{}
	for _, s := range smsFake.sent {
		byTemplate[s.template] = s
	}
	assert.Equal(t, map[string]string{"name": "sara", "clinic": "Central", "ahead": "0"}, byTemplate["100"].params)
	assert.Equal(t, map[string]string{"name": "omid", "clinic": "Central", "ahead": "1"}, byTemplate["200"].params)

	mailFake.mu.Lock()
	defer mailFake.mu.Unlock()
	require.Len(t, mailFake.sent, 1)
	assert.Equal(t, "sara@example.com", mailFake.sent[0].To)
	assert.Equal(t, "It's your turn at Central", mailFake.sent[0].Subject)
}

func TestNotifier_SendFailureDoesNotStopWorkers(t *testing.T) {
	smsFake := &fakeSMS{err: errors.New("provider down")}
	n := New(nil, smsFake, nil, Options{
		TurnTemplateID: "100",
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	n.Start()

	a, b := entry("a"), entry("b")
	ctx := context.Background()
	for _, st := range chain(snapshot(nil), snapshot(&a, b), snapshot(&b)) {
		require.NoError(t, n.Publish(ctx, "clinicA", st))
	}
	require.NoError(t, n.Stop(ctx))

	smsFake.mu.Lock()
	defer smsFake.mu.Unlock()
	require.Len(t, smsFake.sent, 2)
	// Without a clinic store the id stands in for the name.
	assert.Equal(t, "clinicA", smsFake.sent[0].params["clinic"])
}

func TestNotifier_MissingTemplateSkipsSMS(t *testing.T) {
	smsFake := &fakeSMS{}
	n := New(nil, smsFake, nil, Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	n.Start()

	a := entry("a")
	ctx := context.Background()
	require.NoError(t, n.Publish(ctx, "clinicA", chain(snapshot(nil), snapshot(&a))[1]))
	require.NoError(t, n.Stop(ctx))

	assert.Empty(t, smsFake.sent)
}

func TestNotifier_FullBufferDrops(t *testing.T) {
	n := New(nil, nil, nil, Options{
		BufferSize:     1,
		AheadPositions: 5,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	// Workers are not started, so the buffer fills.

	ctx := context.Background()
	a, b, c := entry("a"), entry("b"), entry("c")
	require.NoError(t, n.Publish(ctx, "clinicA", chain(snapshot(nil), snapshot(&a, b, c))[1]))

	assert.Len(t, n.jobs, 1)
	require.NoError(t, n.Stop(ctx))
}

func TestNotifier_PublishAfterStop(t *testing.T) {
	n := newTestNotifier(0)
	n.Start()
	require.NoError(t, n.Stop(context.Background()))
	require.NoError(t, n.Stop(context.Background()))

	err := n.Publish(context.Background(), "clinicA", snapshot(nil))
	assert.ErrorIs(t, err, ErrStopped)
}

func TestFanoutFeedsNotifier(t *testing.T) {
	n := newTestNotifier(0)
	a := entry("a")
	var seen int
	pub := queue.Fanout{
		queue.PublisherFunc(func(context.Context, string, *queue.Status) error {
			seen++
			return nil
		}),
		n,
	}

	require.NoError(t, pub.Publish(context.Background(), "clinicA", chain(snapshot(nil), snapshot(&a))[1]))
	assert.Equal(t, 1, seen)
	assert.Len(t, n.jobs, 1)
	require.NoError(t, n.Stop(context.Background()))
}
