package main

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/sellforge/sellforge/internal/pkg/cache"
	"github.com/sellforge/sellforge/internal/pkg/database"
	"github.com/sellforge/sellforge/internal/pkg/env"
	"github.com/sellforge/sellforge/internal/pkg/metrics/counter"
	"github.com/sellforge/sellforge/internal/pkg/router"
	"github.com/sellforge/sellforge/internal/pkg/storage"
)

func main() {
	app := NewApplication()

	startCounterFlusher()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "8080")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	storage.Setup()

	app := fiber.New(fiber.Config{
		BodyLimit: 1 << 20, // webhook payloads are small
	})
	app.Use(recover.New(), logger.New())
	app.Get("/metrics", monitor.New())

	// ROUTER
	router.InstallRouter(app)

	return app
}

// startCounterFlusher periodically drains buffered download counters from
// Redis into the database.
func startCounterFlusher() {
	interval := time.Duration(env.GetEnvInt("COUNTER_FLUSH_INTERVAL_SECONDS", 60)) * time.Second
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			if err := counter.FlushAll(); err != nil {
				log.Printf("counter flush failed: %v", err)
			}
		}
	}()
}
