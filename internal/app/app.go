// Package app assembles the HTTP application
package app

import (
	"context"
	"errors"

	fiber "github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/celestiaorg/ec2api/internal/api/v1/middleware"
	"github.com/celestiaorg/ec2api/internal/compute"
	"github.com/celestiaorg/ec2api/internal/config"
	"github.com/celestiaorg/ec2api/internal/services"
	"github.com/celestiaorg/ec2api/internal/types"
	"github.com/celestiaorg/ec2api/pkg/api/v1/handlers"
	"github.com/celestiaorg/ec2api/pkg/api/v1/routes"
)

// NewApp builds the fiber application serving the instance API. Request contexts derive from
// ctx, so canceling it aborts in-flight EC2 calls and waits.
func NewApp(ctx context.Context, cfg *config.Config, factory compute.ClientFactory) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "ec2api",
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestContext(ctx))
	app.Use(middleware.Metrics())
	app.Use(middleware.Logger())

	instanceHandler := handlers.NewInstanceHandler(factory, services.OptionsFromConfig(cfg))
	routes.RegisterRoutes(app, instanceHandler)

	return app
}

// customErrorHandler renders errors that escape the handlers, e.g. unknown routes and panics
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	if code >= fiber.StatusInternalServerError {
		return c.Status(code).JSON(types.ErrServer(err.Error()))
	}
	return c.Status(code).JSON(types.ErrInvalidInput(err.Error()))
}
