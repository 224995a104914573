package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/simorq_queue/internal/repo"
	"github.com/Alijeyrad/simorq_queue/internal/service/clinic"
	"github.com/Alijeyrad/simorq_queue/internal/service/queue"
)

const dateLayout = time.DateOnly

type ClinicHandler struct {
	svc clinic.Service
}

func NewClinicHandler(svc clinic.Service) *ClinicHandler {
	return &ClinicHandler{svc: svc}
}

// GET /api/v1/clinics
func (h *ClinicHandler) List(c fiber.Ctx) error {
	var q struct {
		Page    int    `query:"page"`
		PerPage int    `query:"per_page"`
		Active  string `query:"active"`
	}
	if err := c.Bind().Query(&q); err != nil || q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = 20
	}

	req := clinic.ListClinicsRequest{Page: q.Page, PerPage: q.PerPage}
	if q.Active != "" {
		active, err := strconv.ParseBool(q.Active)
		if err != nil {
			return badRequest(c, "active must be a boolean")
		}
		req.Active = &active
	}

	result, err := h.svc.ListClinics(c.Context(), req)
	if err != nil {
		return internalError(c, err)
	}

	return ok(c, fiber.Map{
		"clinics":     result.Data,
		"total":       result.Total,
		"page":        result.Page,
		"per_page":    result.PerPage,
		"total_pages": result.TotalPages,
	})
}

// GET /api/v1/clinics/:id
func (h *ClinicHandler) Get(c fiber.Ctx) error {
	cl, err := h.svc.GetClinic(c.Context(), c.Params("id"))
	if err != nil {
		return mapClinicError(c, err)
	}
	return ok(c, cl)
}

type settingsBody struct {
	MaxCapacity       *int    `json:"maxCapacity"`
	AvgServiceMinutes *int    `json:"avgServiceMinutes"`
	AutoClose         *bool   `json:"autoClose"`
	StartTime         *string `json:"startTime"`
	Date              *string `json:"date"`
}

// POST /api/v1/clinics
func (h *ClinicHandler) Create(c fiber.Ctx) error {
	var body struct {
		ID        string              `json:"id"`
		Name      string              `json:"name"`
		Date      string              `json:"date"`
		StartTime string              `json:"startTime"`
		Settings  *repo.QueueSettings `json:"settings"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.Name == "" {
		return badRequest(c, "name is required")
	}

	req := clinic.CreateClinicRequest{
		ID:        body.ID,
		Name:      body.Name,
		StartTime: body.StartTime,
		Settings:  body.Settings,
	}
	if body.Date != "" {
		d, err := time.Parse(dateLayout, body.Date)
		if err != nil {
			return badRequest(c, "date must be YYYY-MM-DD")
		}
		req.Date = &d
	}

	cl, err := h.svc.CreateClinic(c.Context(), req)
	if err != nil {
		return mapClinicError(c, err)
	}
	return created(c, cl)
}

// PATCH /api/v1/clinics/:id
func (h *ClinicHandler) Update(c fiber.Ctx) error {
	var body struct {
		Name   *string `json:"name"`
		Active *bool   `json:"active"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	cl, err := h.svc.UpdateClinic(c.Context(), c.Params("id"), clinic.UpdateClinicRequest{
		Name:   body.Name,
		Active: body.Active,
	})
	if err != nil {
		return mapClinicError(c, err)
	}
	return ok(c, cl)
}

// PATCH /api/v1/clinics/:id/settings
func (h *ClinicHandler) UpdateSettings(c fiber.Ctx) error {
	var body settingsBody
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	req := queue.SettingsUpdate{
		MaxCapacity:       body.MaxCapacity,
		AvgServiceMinutes: body.AvgServiceMinutes,
		AutoClose:         body.AutoClose,
		StartTime:         body.StartTime,
	}
	if body.Date != nil {
		d, err := time.Parse(dateLayout, *body.Date)
		if err != nil {
			return badRequest(c, "date must be YYYY-MM-DD")
		}
		req.Date = &d
	}

	cl, err := h.svc.UpdateSettings(c.Context(), c.Params("id"), req)
	if err != nil {
		return mapClinicError(c, err)
	}
	return ok(c, cl)
}

func mapClinicError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, clinic.ErrClinicNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, clinic.ErrClinicAlreadyExists):
		return conflict(c, err.Error())
	case errors.Is(err, clinic.ErrNameRequired),
		errors.Is(err, clinic.ErrInvalidID),
		errors.Is(err, clinic.ErrInvalidSettings):
		return badRequest(c, err.Error())
	default:
		return mapQueueError(c, err)
	}
}
