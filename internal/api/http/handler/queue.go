package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/Alijeyrad/simorq_queue/internal/repo"
	"github.com/Alijeyrad/simorq_queue/internal/service/queue"
)

type QueueHandler struct {
	svc queue.Service
}

func NewQueueHandler(svc queue.Service) *QueueHandler {
	return &QueueHandler{svc: svc}
}

// GET /api/v1/clinics/:id/queue
func (h *QueueHandler) Status(c fiber.Ctx) error {
	st, err := h.svc.GetQueueStatus(c.Context(), c.Params("id"))
	if err != nil {
		return mapQueueError(c, err)
	}
	return ok(c, st)
}

// POST /api/v1/clinics/:id/queue/start
func (h *QueueHandler) Start(c fiber.Ctx) error {
	st, err := h.svc.StartQueue(c.Context(), c.Params("id"))
	if err != nil {
		return mapQueueError(c, err)
	}
	return ok(c, st)
}

// POST /api/v1/clinics/:id/queue/close?force=true
func (h *QueueHandler) Close(c fiber.Ctx) error {
	force := false
	if raw := c.Query("force"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return badRequest(c, "force must be a boolean")
		}
		force = v
	}

	st, err := h.svc.CloseQueue(c.Context(), c.Params("id"), force)
	if err != nil {
		return mapQueueError(c, err)
	}
	return ok(c, st)
}

// POST /api/v1/clinics/:id/queue/next
func (h *QueueHandler) Next(c fiber.Ctx) error {
	st, err := h.svc.ProcessNext(c.Context(), c.Params("id"))
	if err != nil {
		return mapQueueError(c, err)
	}
	return ok(c, st)
}

// POST /api/v1/clinics/:id/queue/patients
func (h *QueueHandler) Admit(c fiber.Ctx) error {
	var body struct {
		PatientRefID string `json:"patientRefId"`
		Name         string `json:"name"`
		Email        string `json:"email"`
		Phone        string `json:"phone"`
		Notes        string `json:"notes"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	st, err := h.svc.AdmitPatient(c.Context(), c.Params("id"), queue.PatientInput{
		PatientRefID: body.PatientRefID,
		Name:         body.Name,
		Email:        body.Email,
		Phone:        body.Phone,
		Notes:        body.Notes,
	})
	if err != nil {
		return mapQueueError(c, err)
	}
	return created(c, st)
}

// POST /api/v1/clinics/:id/queue/patients/bulk
func (h *QueueHandler) AdmitRegistered(c fiber.Ctx) error {
	var body struct {
		PatientRefIDs []string `json:"patientRefIds"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	st, err := h.svc.AdmitRegistered(c.Context(), c.Params("id"), body.PatientRefIDs)
	if err != nil {
		return mapQueueError(c, err)
	}
	return created(c, st)
}

// DELETE /api/v1/clinics/:id/queue/patients/:eid
func (h *QueueHandler) Remove(c fiber.Ctx) error {
	entryID, err := uuid.Parse(c.Params("eid"))
	if err != nil {
		return badRequest(c, "invalid entry id")
	}

	st, err := h.svc.RemovePatient(c.Context(), c.Params("id"), entryID)
	if err != nil {
		return mapQueueError(c, err)
	}
	return ok(c, st)
}

// PATCH /api/v1/clinics/:id/queue/patients/:eid/status
func (h *QueueHandler) UpdateStatus(c fiber.Ctx) error {
	entryID, err := uuid.Parse(c.Params("eid"))
	if err != nil {
		return badRequest(c, "invalid entry id")
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	st, err := h.svc.UpdatePatientStatus(c.Context(), c.Params("id"), entryID, repo.EntryStatus(body.Status))
	if err != nil {
		return mapQueueError(c, err)
	}
	return ok(c, st)
}

// PUT /api/v1/clinics/:id/queue/order
func (h *QueueHandler) Reorder(c fiber.Ctx) error {
	var body struct {
		Order []uuid.UUID `json:"order"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	st, err := h.svc.ReorderQueue(c.Context(), c.Params("id"), body.Order)
	if err != nil {
		return mapQueueError(c, err)
	}
	return ok(c, st)
}

// POST /api/v1/clinics/:id/queue/cleanup
func (h *QueueHandler) Cleanup(c fiber.Ctx) error {
	res, err := h.svc.CleanupCompleted(c.Context(), c.Params("id"))
	if err != nil {
		return mapQueueError(c, err)
	}
	return ok(c, res)
}

// POST /api/v1/clinics/:id/queue/recalculate
func (h *QueueHandler) Recalculate(c fiber.Ctx) error {
	st, err := h.svc.RecalculateWaitTimes(c.Context(), c.Params("id"))
	if err != nil {
		return mapQueueError(c, err)
	}
	return ok(c, st)
}
