package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/simorq_queue/internal/api/http/handler"
	"github.com/Alijeyrad/simorq_queue/pkg/authorize"
)

func (r *Router) registerClinicRoutes(
	api fiber.Router,
	h *handler.ClinicHandler,
	requirePerm func(authorize.Resource, authorize.Action) fiber.Handler,
) {
	clinics := api.Group("/clinics")

	clinics.Get("/", requirePerm(authorize.ResourceClinic, authorize.ActionRead), h.List)
	clinics.Post("/", requirePerm(authorize.ResourceClinic, authorize.ActionCreate), h.Create)
	clinics.Get("/:id", requirePerm(authorize.ResourceClinic, authorize.ActionRead), h.Get)
	clinics.Patch("/:id", requirePerm(authorize.ResourceClinic, authorize.ActionUpdate), h.Update)
	clinics.Patch("/:id/settings", requirePerm(authorize.ResourceSettings, authorize.ActionUpdate), h.UpdateSettings)
}
