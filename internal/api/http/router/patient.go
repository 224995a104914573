package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/simorq_queue/internal/api/http/handler"
	"github.com/Alijeyrad/simorq_queue/pkg/authorize"
)

func (r *Router) registerPatientRoutes(
	api fiber.Router,
	h *handler.PatientHandler,
	requirePerm func(authorize.Resource, authorize.Action) fiber.Handler,
) {
	patients := api.Group("/patients")

	patients.Post("/", requirePerm(authorize.ResourcePatient, authorize.ActionCreate), h.Register)
	patients.Get("/:ref", requirePerm(authorize.ResourcePatient, authorize.ActionRead), h.Get)
}
