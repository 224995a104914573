package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/simorq_queue/internal/service/patient"
)

type PatientHandler struct {
	svc patient.Service
}

func NewPatientHandler(svc patient.Service) *PatientHandler {
	return &PatientHandler{svc: svc}
}

func mapPatientError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, patient.ErrPatientNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, patient.ErrRefIDRequired),
		errors.Is(err, patient.ErrNameRequired),
		errors.Is(err, patient.ErrInvalidEmail),
		errors.Is(err, patient.ErrInvalidPhone):
		return badRequest(c, err.Error())
	default:
		return internalError(c, err)
	}
}

// POST /api/v1/patients
func (h *PatientHandler) Register(c fiber.Ctx) error {
	var body struct {
		RefID string `json:"refId"`
		Name  string `json:"name"`
		Email string `json:"email"`
		Phone string `json:"phone"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	p, err := h.svc.RegisterPatient(c.Context(), patient.RegisterPatientRequest{
		RefID: body.RefID,
		Name:  body.Name,
		Email: body.Email,
		Phone: body.Phone,
	})
	if err != nil {
		return mapPatientError(c, err)
	}
	return created(c, p)
}

// GET /api/v1/patients/:ref
func (h *PatientHandler) Get(c fiber.Ctx) error {
	p, err := h.svc.GetPatient(c.Context(), c.Params("ref"))
	if err != nil {
		return mapPatientError(c, err)
	}
	return ok(c, p)
}
