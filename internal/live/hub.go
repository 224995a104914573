// Package live fans queue snapshots out to connected displays.
//
// A Hub keeps per-clinic subscriber sets in process. Snapshots reach it either
// directly from the queue service or, when several instances run, through the
// NATS subject simorq.queue.updated.<clinicID>.
package live

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/Alijeyrad/simorq_queue/internal/service/queue"
)

const defaultBuffer = 16

// Message is one encoded snapshot. Revision zero means unordered.
type Message struct {
	Revision int64
	Data     []byte
}

// Subscriber is one open stream for a clinic. Send is closed when the
// subscriber is removed or the hub shuts down.
type Subscriber struct {
	ID       string
	ClinicID string
	Send     chan Message
}

// Hub tracks subscribers per clinic. All operations are safe for concurrent use.
type Hub struct {
	mu      sync.RWMutex
	clinics map[string]map[*Subscriber]struct{}
	buffer  int
	closed  bool

	// revisions holds the newest snapshot revision seen per clinic.
	revMu     sync.Mutex
	revisions map[string]int64
}

func NewHub(bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = defaultBuffer
	}
	return &Hub{
		clinics:   make(map[string]map[*Subscriber]struct{}),
		buffer:    bufferSize,
		revisions: make(map[string]int64),
	}
}

// Subscribe registers a new stream for clinicID. On a closed hub the returned
// subscriber's channel is already closed.
func (h *Hub) Subscribe(clinicID string) *Subscriber {
	s := &Subscriber{
		ID:       uuid.NewString(),
		ClinicID: clinicID,
		Send:     make(chan Message, h.buffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(s.Send)
		return s
	}
	if h.clinics[clinicID] == nil {
		h.clinics[clinicID] = make(map[*Subscriber]struct{})
	}
	h.clinics[clinicID][s] = struct{}{}
	return s
}

// Unsubscribe removes s and closes its channel. Calling it twice is harmless.
func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.clinics[s.ClinicID]
	if !ok {
		return
	}
	if _, ok := subs[s]; !ok {
		return
	}
	delete(subs, s)
	if len(subs) == 0 {
		delete(h.clinics, s.ClinicID)
	}
	close(s.Send)
}

// Broadcast hands msg to every subscriber of clinicID without blocking and
// without looking at its revision. A subscriber whose buffer is full loses
// its oldest pending snapshot, since each snapshot supersedes the previous one.
func (h *Hub) Broadcast(clinicID string, msg Message) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for s := range h.clinics[clinicID] {
		select {
		case s.Send <- msg:
			delivered++
			continue
		default:
		}

		select {
		case <-s.Send:
		default:
		}
		select {
		case s.Send <- msg:
			delivered++
		default:
		}
	}
	return delivered
}

// Deliver broadcasts payload unless a newer revision of clinicID has already
// been delivered or marked seen. Revision zero is never dropped. It reports
// whether the payload went out.
func (h *Hub) Deliver(clinicID string, revision int64, payload []byte) bool {
	h.revMu.Lock()
	defer h.revMu.Unlock()

	if revision > 0 {
		if revision < h.revisions[clinicID] {
			return false
		}
		h.revisions[clinicID] = revision
	}
	h.Broadcast(clinicID, Message{Revision: revision, Data: payload})
	return true
}

// Seen records that a snapshot at revision was handed out directly, so older
// snapshots still in flight are dropped.
func (h *Hub) Seen(clinicID string, revision int64) {
	h.revMu.Lock()
	defer h.revMu.Unlock()
	if revision > h.revisions[clinicID] {
		h.revisions[clinicID] = revision
	}
}

// Publish implements queue.Publisher. Prior is stripped; displays only need
// the current state.
func (h *Hub) Publish(_ context.Context, clinicID string, st *queue.Status) error {
	out := *st
	out.Prior = nil
	data, err := json.Marshal(&out)
	if err != nil {
		return err
	}
	h.Deliver(clinicID, st.Revision, data)
	return nil
}

// Count returns the number of open streams for clinicID.
func (h *Hub) Count(clinicID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clinics[clinicID])
}

// Close ends every open stream. Later subscriptions are closed immediately.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, subs := range h.clinics {
		for s := range subs {
			close(s.Send)
		}
		delete(h.clinics, id)
	}
}
