// Package server assembles the fiber application and its route table.
package server

import (
	"time"

	"etalase/internal/handlers"
	"etalase/internal/middleware"
	"etalase/internal/services"
	"etalase/internal/storage"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options carries everything New needs to wire the routes.
type Options struct {
	AuthService         *services.AuthService
	ProductService      *services.ProductService
	NotificationService *services.NotificationService
	Images              storage.ImageStore
	// UploadsDir is served under /uploads when set. Leave it empty for the S3 backend.
	UploadsDir    string
	PublicBaseURL string
	CORSOrigin    string
	BodyLimitMB   int
}

// New creates the fiber application with middleware and every route registered.
func New(opts Options) *fiber.App {
	bodyLimit := opts.BodyLimitMB
	if bodyLimit <= 0 {
		bodyLimit = 30
	}

	app := fiber.New(fiber.Config{
		AppName:   "etalase",
		BodyLimit: bodyLimit << 20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			message := "Server error"
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				message = e.Message
			}
			return c.Status(code).JSON(fiber.Map{"message": message})
		},
	})

	app.Use(middleware.RequestLogger())
	app.Use(middleware.Recover())
	origin := opts.CORSOrigin
	if origin == "" {
		origin = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origin,
		AllowMethods: "GET,POST,PUT,DELETE",
		// fiber refuses credentials together with a wildcard origin.
		AllowCredentials: origin != "*",
	}))

	if opts.UploadsDir != "" {
		app.Static("/uploads", opts.UploadsDir, fiber.Static{
			ModifyResponse: func(c *fiber.Ctx) error {
				c.Set(fiber.HeaderCacheControl, "no-store")
				c.Set(fiber.HeaderContentSecurityPolicy, "default-src 'self'; img-src 'self' data:")
				return nil
			},
		})
	}

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Hello, world!")
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().UTC(),
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	validate := validator.New()
	api := app.Group("/api")

	authHandler := handlers.NewAuthHandler(opts.AuthService, validate)
	authHandler.RegisterRoutes(api.Group("/auth"))

	productHandler := handlers.NewProductHandler(
		opts.ProductService,
		opts.NotificationService,
		opts.Images,
		opts.PublicBaseURL,
		validate,
	)
	productHandler.RegisterRoutes(api.Group("/products", middleware.AuthRequired(opts.AuthService.Tokens())))

	return app
}
