package handler

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/simorq_queue/internal/live"
	"github.com/Alijeyrad/simorq_queue/internal/service/queue"
)

// StreamHandler serves live queue snapshots as server-sent events.
type StreamHandler struct {
	svc       queue.Service
	hub       *live.Hub
	heartbeat time.Duration
}

func NewStreamHandler(svc queue.Service, hub *live.Hub, heartbeat time.Duration) *StreamHandler {
	return &StreamHandler{svc: svc, hub: hub, heartbeat: heartbeat}
}

// GET /api/v1/clinics/:id/queue/stream
func (h *StreamHandler) Stream(c fiber.Ctx) error {
	clinicID := c.Params("id")

	// Subscribe before reading so no change between the two is missed.
	sub := h.hub.Subscribe(clinicID)

	st, err := h.svc.GetQueueStatus(c.Context(), clinicID)
	if err != nil {
		h.hub.Unsubscribe(sub)
		return mapQueueError(c, err)
	}
	data, err := json.Marshal(st)
	if err != nil {
		h.hub.Unsubscribe(sub)
		return internalError(c, err)
	}
	h.hub.Seen(clinicID, st.Revision)
	initial := live.Message{Revision: st.Revision, Data: data}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	hub, heartbeat := h.hub, h.heartbeat

	// The writer runs after the handler returns, so it must not touch c.
	return c.SendStreamWriter(func(w *bufio.Writer) {
		defer hub.Unsubscribe(sub)
		if err := live.Pump(w, sub, initial, heartbeat); err != nil {
			slog.Debug("queue stream closed", "clinic_id", clinicID, "subscriber", sub.ID, "error", err)
		}
	})
}
