// Command server exposes workspace persistence over HTTP, backed by
// Postgres. It is the service side of store.RemoteStore: the dashboard
// loads with GET /workspaces/:id and saves with PATCH /workspaces/:id.
package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rmurphy/mediaflow/pkg/mediaflow"
	"github.com/rmurphy/mediaflow/pkg/mediaflow/store"
)

// schemaManager is the optional DDL surface of a store backend.
type schemaManager interface {
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error
}

// newApp builds the workspace API around any WorkspaceStore. Schema
// routes are registered only when the backend manages one.
func newApp(ws mediaflow.WorkspaceStore, schema schemaManager) *fiber.App {
	app := fiber.New()

	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	if schema != nil {
		app.Post("/schema", func(c fiber.Ctx) error {
			if err := schema.CreateSchema(c.Context()); err != nil {
				return c.Status(500).JSON(fiber.Map{"error": err.Error()})
			}
			return c.JSON(fiber.Map{"message": "schema created"})
		})

		app.Delete("/schema", func(c fiber.Ctx) error {
			if err := schema.DropSchema(c.Context()); err != nil {
				return c.Status(500).JSON(fiber.Map{"error": err.Error()})
			}
			return c.JSON(fiber.Map{"message": "schema dropped"})
		})
	}

	app.Get("/workspaces/:id", func(c fiber.Ctx) error {
		doc, err := ws.Load(c.Context(), c.Params("id"))
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "workspace not found"})
		}
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(doc)
	})

	app.Patch("/workspaces/:id", func(c fiber.Ctx) error {
		var doc mediaflow.Document
		if err := c.Bind().JSON(&doc); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		if err := ws.Save(c.Context(), c.Params("id"), &doc); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"message": "saved"})
	})

	return app
}

func main() {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	pg := store.NewPGStore(pool)
	if err := pg.CreateSchema(context.Background()); err != nil {
		log.Fatalf("create schema: %v", err)
	}

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	app := newApp(pg, pg)
	log.Printf("workspace server listening on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("listen: %v", err)
	}
}
