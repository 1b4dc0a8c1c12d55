package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/joanne1229/DressToWeather/internal/domain"
)

// TaskLister exposes the armed schedules.
type TaskLister interface {
	Tasks() []domain.ScheduledTask
}

// New builds the fiber app serving health and schedule status.
func New(tasks TaskLister) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "dresstoweather",
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})
	RegisterRoutes(app, tasks)
	return app
}

// RegisterRoutes wires the HTTP endpoints.
func RegisterRoutes(app *fiber.App, tasks TaskLister) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	v1 := app.Group("/api/v1")
	v1.Get("/schedules", func(c *fiber.Ctx) error {
		list := tasks.Tasks()
		return c.JSON(fiber.Map{
			"count":     len(list),
			"schedules": list,
		})
	})
}
