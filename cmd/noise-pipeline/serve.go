package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"

	httpapi "github.com/quietcity/noise-data-pipeline/internal/api/http"
	"github.com/quietcity/noise-data-pipeline/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the read-only query API with scheduled daily ingestion",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		// Scheduler fires the daily run at the configured local time.
		sched := scheduler.New(a.pipe, a.cfg.SensorZone(), a.cfg.DailyRunAt)
		if err := sched.Start(); err != nil {
			return err
		}
		defer sched.Stop()

		app := fiber.New(fiber.Config{
			AppName:               "noise-data-pipeline",
			DisableStartupMessage: true,
			ReadTimeout:           10 * time.Second,
			WriteTimeout:          10 * time.Second,
			ErrorHandler: func(c *fiber.Ctx, err error) error {
				// Centralized error response
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

		app.Use(logger.New())
		app.Use(recover.New())

		app.Get("/health", func(c *fiber.Ctx) error {
			if err := a.store.Ping(c.Context()); err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "database connection error")
			}
			return c.JSON(fiber.Map{
				"status":  "ok",
				"service": "noise-data-pipeline",
			})
		})

		httpapi.RegisterRoutes(app, a.store, a.stations)

		go func() {
			if err := app.Listen(":" + a.cfg.Port); err != nil {
				log.Printf("fiber server stopped: %v", err)
			}
		}()
		log.Printf("serving on :%s, daily run at %s local", a.cfg.Port, a.cfg.DailyRunAt)

		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Printf("error during shutdown: %v", err)
		}
		return nil
	},
}
