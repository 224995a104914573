// Package notify tells patients by SMS or email when their turn comes up.
//
// A Notifier consumes queue snapshots like any other publisher. Each published
// snapshot carries the state it replaced, and the notifier compares the two:
// a newly called patient gets a turn notice, and a waiting patient who moved
// within the configured distance of the front gets a soon notice. The notifier
// keeps no per-clinic state, so any member of a NATS queue group can handle any
// snapshot and the group sends each notice once. Delivery runs on background
// workers so a slow SMS or SMTP provider never holds up a queue operation.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Alijeyrad/simorq_queue/internal/repo"
	"github.com/Alijeyrad/simorq_queue/internal/service/queue"
	"github.com/Alijeyrad/simorq_queue/pkg/email"
)

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

type Kind string

const (
	KindTurn Kind = "turn"
	KindSoon Kind = "soon"
)

// Notice is one message to one patient.
type Notice struct {
	Kind     Kind
	ClinicID string
	Entry    repo.Entry
	Ahead    int
}

// SMSSender is satisfied by *sms.Client.
type SMSSender interface {
	IsEnabled() bool
	SendTemplate(ctx context.Context, phoneNumber, templateID string, params map[string]string) error
}

// EmailSender is satisfied by *email.Client.
type EmailSender interface {
	IsEnabled() bool
	Send(ctx context.Context, m email.Message) error
}

type Options struct {
	// AheadPositions enables the "soon" notice; zero disables it.
	AheadPositions int
	Workers        int
	BufferSize     int
	TurnTemplateID string
	SoonTemplateID string
	SendTimeout    time.Duration
	Logger         *slog.Logger
}

var ErrStopped = errors.New("notify: notifier stopped")

// ---------------------------------------------------------------------------
// Notifier
// ---------------------------------------------------------------------------

type Notifier struct {
	clinics repo.ClinicStore
	sms     SMSSender
	mail    EmailSender
	opts    Options
	log     *slog.Logger

	mu      sync.Mutex
	stopped bool

	jobs chan Notice
	wg   sync.WaitGroup
}

// New returns a Notifier. Either sender may be nil.
func New(clinics repo.ClinicStore, smsSender SMSSender, mailSender EmailSender, opts Options) *Notifier {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 256
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 15 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Notifier{
		clinics: clinics,
		sms:     smsSender,
		mail:    mailSender,
		opts:    opts,
		log:     opts.Logger,
		jobs:    make(chan Notice, opts.BufferSize),
	}
}

// Start launches the delivery workers.
func (n *Notifier) Start() {
	for range n.opts.Workers {
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			for notice := range n.jobs {
				n.deliver(notice)
			}
		}()
	}
}

// Stop refuses new snapshots, lets the workers drain what is queued and waits
// for them or for ctx.
func (n *Notifier) Stop(ctx context.Context) error {
	n.mu.Lock()
	if !n.stopped {
		n.stopped = true
		close(n.jobs)
	}
	n.mu.Unlock()

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Publish implements queue.Publisher. It never blocks: notices that do not
// fit in the buffer are dropped and logged.
func (n *Notifier) Publish(_ context.Context, clinicID string, st *queue.Status) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.stopped {
		return ErrStopped
	}
	for _, notice := range n.diff(clinicID, st) {
		select {
		case n.jobs <- notice:
		default:
			n.log.Warn("notify: buffer full, dropping notice",
				"clinic_id", clinicID, "entry_id", notice.Entry.ID, "kind", notice.Kind)
		}
	}
	return nil
}

// diff returns the notices implied by moving from st.Prior to st. Snapshots
// without a prior state, such as those from a reader rather than a change,
// imply nothing.
func (n *Notifier) diff(clinicID string, st *queue.Status) []Notice {
	if st.Prior == nil {
		return nil
	}

	var out []Notice
	if cur := st.CurrentPatient; cur != nil {
		if prev := st.Prior.CurrentPatient; prev == nil || prev.ID != cur.ID {
			out = append(out, Notice{Kind: KindTurn, ClinicID: clinicID, Entry: *cur})
		}
	}

	if n.opts.AheadPositions <= 0 {
		return out
	}
	before := n.inRange(st.Prior)
	offset := 0
	if st.CurrentPatient != nil {
		offset = 1
	}
	for i, e := range st.WaitingQueue {
		ahead := i + offset
		if !n.near(ahead) {
			continue
		}
		if _, told := before[e.ID]; told {
			continue
		}
		out = append(out, Notice{Kind: KindSoon, ClinicID: clinicID, Entry: e, Ahead: ahead})
	}
	return out
}

// near reports whether a patient with ahead people in front is due a soon
// notice. The patient next in line with nobody being seen is not.
func (n *Notifier) near(ahead int) bool {
	return ahead > 0 && ahead <= n.opts.AheadPositions
}

// inRange returns the waiting entries of st that were already near the front.
func (n *Notifier) inRange(st *queue.Status) map[uuid.UUID]struct{} {
	offset := 0
	if st.CurrentPatient != nil {
		offset = 1
	}
	out := make(map[uuid.UUID]struct{})
	for i, e := range st.WaitingQueue {
		if n.near(i + offset) {
			out[e.ID] = struct{}{}
		}
	}
	return out
}

func (n *Notifier) deliver(notice Notice) {
	ctx, cancel := context.WithTimeout(context.Background(), n.opts.SendTimeout)
	defer cancel()

	log := n.log.With("clinic_id", notice.ClinicID, "entry_id", notice.Entry.ID, "kind", notice.Kind)
	clinicName := n.clinicName(ctx, notice.ClinicID)

	if n.sms != nil && n.sms.IsEnabled() && notice.Entry.Phone != "" {
		templateID := n.opts.TurnTemplateID
		if notice.Kind == KindSoon {
			templateID = n.opts.SoonTemplateID
		}
		if templateID != "" {
			err := n.sms.SendTemplate(ctx, notice.Entry.Phone, templateID, map[string]string{
				"name":   notice.Entry.Name,
				"clinic": clinicName,
				"ahead":  strconv.Itoa(notice.Ahead),
			})
			if err != nil {
				log.Warn("notify: sms failed", "error", err)
			} else {
				log.Debug("notify: sms sent")
			}
		}
	}

	if n.mail != nil && n.mail.IsEnabled() && notice.Entry.Email != "" {
		data := email.TurnEmailData{
			Name:       notice.Entry.Name,
			Email:      notice.Entry.Email,
			ClinicName: clinicName,
			Ahead:      notice.Ahead,
		}
		msg := email.BuildTurnEmail(data)
		if notice.Kind == KindSoon {
			msg = email.BuildSoonEmail(data)
		}
		if err := n.mail.Send(ctx, msg); err != nil {
			log.Warn("notify: email failed", "error", err)
		} else {
			log.Debug("notify: email sent")
		}
	}
}

func (n *Notifier) clinicName(ctx context.Context, clinicID string) string {
	if n.clinics == nil {
		return clinicID
	}
	c, err := n.clinics.FindClinic(ctx, clinicID)
	if err != nil || c.Name == "" {
		return clinicID
	}
	return c.Name
}
