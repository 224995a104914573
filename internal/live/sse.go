package live

import (
	"bufio"
	"bytes"
	"fmt"
	"time"
)

// EventQueue is the SSE event name carrying a queue snapshot.
const EventQueue = "queue"

// WriteEvent writes one SSE frame and flushes it.
func WriteEvent(w *bufio.Writer, event string, data []byte) error {
	if event != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", event); err != nil {
			return err
		}
	}
	for _, line := range bytes.Split(data, []byte("\n")) {
		if _, err := fmt.Fprintf(w, "data: %s\n", line); err != nil {
			return err
		}
	}
	if _, err := w.WriteString("\n"); err != nil {
		return err
	}
	return w.Flush()
}

// WriteHeartbeat writes an SSE comment so idle proxies keep the stream open.
func WriteHeartbeat(w *bufio.Writer) error {
	if _, err := w.WriteString(": ping\n\n"); err != nil {
		return err
	}
	return w.Flush()
}

// Pump writes the initial snapshot, then every newer snapshot delivered to
// sub, with a heartbeat whenever the stream has been quiet for the given
// interval. It returns when the subscriber channel closes or a write fails.
func Pump(w *bufio.Writer, sub *Subscriber, initial Message, heartbeat time.Duration) error {
	var last int64
	if initial.Data != nil {
		if err := WriteEvent(w, EventQueue, initial.Data); err != nil {
			return err
		}
		last = initial.Revision
	}
	if heartbeat <= 0 {
		heartbeat = 20 * time.Second
	}

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-sub.Send:
			if !ok {
				return nil
			}
			if msg.Revision > 0 && msg.Revision < last {
				continue
			}
			if err := WriteEvent(w, EventQueue, msg.Data); err != nil {
				return err
			}
			last = max(last, msg.Revision)
			ticker.Reset(heartbeat)
		case <-ticker.C:
			if err := WriteHeartbeat(w); err != nil {
				return err
			}
		}
	}
}
