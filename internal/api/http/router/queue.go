package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/simorq_queue/internal/api/http/handler"
	"github.com/Alijeyrad/simorq_queue/pkg/authorize"
)

func (r *Router) registerQueueRoutes(
	api fiber.Router,
	h *handler.QueueHandler,
	stream *handler.StreamHandler,
	requirePerm func(authorize.Resource, authorize.Action) fiber.Handler,
) {
	q := api.Group("/clinics/:id/queue")

	read := requirePerm(authorize.ResourceQueue, authorize.ActionRead)
	execute := requirePerm(authorize.ResourceQueue, authorize.ActionExecute)

	q.Get("/", read, h.Status)
	q.Get("/stream", read, stream.Stream)

	q.Post("/start", execute, h.Start)
	q.Post("/close", execute, h.Close)
	q.Post("/next", execute, h.Next)
	q.Post("/recalculate", execute, h.Recalculate)
	q.Post("/cleanup", requirePerm(authorize.ResourceQueue, authorize.ActionManage), h.Cleanup)

	q.Post("/patients", requirePerm(authorize.ResourceEntry, authorize.ActionCreate), h.Admit)
	q.Post("/patients/bulk", requirePerm(authorize.ResourceEntry, authorize.ActionCreate), h.AdmitRegistered)
	q.Delete("/patients/:eid", requirePerm(authorize.ResourceEntry, authorize.ActionDelete), h.Remove)
	q.Patch("/patients/:eid/status", requirePerm(authorize.ResourceEntry, authorize.ActionUpdate), h.UpdateStatus)
	q.Put("/order", requirePerm(authorize.ResourceEntry, authorize.ActionUpdate), h.Reorder)
}
