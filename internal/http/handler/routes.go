package handler

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"leasedesk/internal/ingest"
	"leasedesk/internal/model"
	"leasedesk/internal/service"
)

// HealthCheck reports readiness: checks DB connectivity only.
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a simple liveness endpoint.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// ListDocuments lists stored documents with limit & offset.
func ListDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limitStr := c.Query("limit", "10")
		offsetStr := c.Query("offset", "0")
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := svc.List(c.UserContext(), limit, offset)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(res)
	}
}

// GetDocument returns a document by ID.
func GetDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := svc.Get(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) || errors.Is(err, sql.ErrNoRows) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(doc)
	}
}

// DownloadDocument returns a presigned URL for the document's file.
func DownloadDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		url, err := svc.DownloadURL(c.UserContext(), id, 15*time.Minute)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) || errors.Is(err, sql.ErrNoRows) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(fiber.Map{"url": url})
	}
}

// DeleteDocument removes a document by ID.
func DeleteDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			if errors.Is(err, service.ErrNotFound) || errors.Is(err, sql.ErrNoRows) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// StartIngest accepts a multipart PDF (field name: file) and opens an
// ingest session for it.
func StartIngest(svc service.IngestService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		if !strings.HasSuffix(strings.ToLower(fh.Filename), ".pdf") {
			return writeError(c, fiber.StatusBadRequest, "INVALID_FILE_TYPE", "only PDF files are accepted")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/pdf"
		}

		view, err := svc.Start(c.UserContext(), f, fh.Filename, ct, fh.Size)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.Status(fiber.StatusCreated).JSON(view)
	}
}

// GetIngestSession returns the current state of an ingest session.
func GetIngestSession(svc service.IngestService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		view, err := svc.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeIngestError(c, err)
		}
		return c.JSON(view)
	}
}

// UpdateIngestSession applies review edits to a session draft.
func UpdateIngestSession(svc service.IngestService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var upd service.SessionUpdate
		if err := c.BodyParser(&upd); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		view, err := svc.Update(c.UserContext(), c.Params("id"), upd)
		if err != nil {
			return writeIngestError(c, err)
		}
		return c.JSON(view)
	}
}

// ReplaceIngestFile swaps the uploaded file of a session and re-runs
// extraction.
func ReplaceIngestFile(svc service.IngestService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		if !strings.HasSuffix(strings.ToLower(fh.Filename), ".pdf") {
			return writeError(c, fiber.StatusBadRequest, "INVALID_FILE_TYPE", "only PDF files are accepted")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/pdf"
		}

		view, err := svc.ReplaceFile(c.UserContext(), c.Params("id"), f, fh.Filename, ct, fh.Size)
		if err != nil {
			return writeIngestError(c, err)
		}
		return c.JSON(view)
	}
}

// SubmitIngestSession validates and persists the session draft as a
// document. An incomplete draft yields 422 with the violated rule and
// the wizard step where the fix belongs.
func SubmitIngestSession(svc service.IngestService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		doc, err := svc.Submit(c.UserContext(), c.Params("id"))
		if err != nil {
			var verr *ingest.ValidationError
			if errors.As(err, &verr) {
				return writeValidationError(c, verr)
			}
			return writeIngestError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	}
}

// CancelIngestSession discards a session and its stored file.
func CancelIngestSession(svc service.IngestService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Cancel(c.UserContext(), c.Params("id")); err != nil {
			return writeIngestError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ListProperties returns the property catalog.
func ListProperties(svc service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := svc.Properties(c.UserContext())
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(fiber.Map{"data": items})
	}
}

// ListTenants returns the tenant catalog.
func ListTenants(svc service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := svc.Tenants(c.UserContext())
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(fiber.Map{"data": items})
	}
}

// ListContracts returns the contract catalog.
func ListContracts(svc service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := svc.Contracts(c.UserContext())
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(fiber.Map{"data": items})
	}
}

// ListUnits returns a property's sub-units, or all units when no
// property filter is given.
func ListUnits(svc service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := svc.Units(c.UserContext(), c.Query("property_id"))
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(fiber.Map{"data": items})
	}
}

// CreateTenant adds a tenant, the manual path when reconciliation found
// only a close alternative.
func CreateTenant(svc service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var t model.Tenant
		if err := c.BodyParser(&t); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		created, err := svc.CreateTenant(c.UserContext(), &t)
		if err != nil {
			if errors.Is(err, service.ErrNameRequired) {
				return writeError(c, fiber.StatusBadRequest, "NAME_REQUIRED", "tenant name is required")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.Status(fiber.StatusCreated).JSON(created)
	}
}

// CreateUnit adds a property sub-unit, confirming a pending-creation
// flag from an ingest draft.
func CreateUnit(svc service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var u model.PropertyUnit
		if err := c.BodyParser(&u); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		created, err := svc.CreateUnit(c.UserContext(), &u)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrPropertyIDRequired):
				return writeError(c, fiber.StatusBadRequest, "PROPERTY_ID_REQUIRED", "property id is required")
			case errors.Is(err, service.ErrUnitCodeRequired):
				return writeError(c, fiber.StatusBadRequest, "UNIT_CODE_REQUIRED", "unit code is required")
			case errors.Is(err, sql.ErrNoRows):
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "property not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.Status(fiber.StatusCreated).JSON(created)
	}
}

// ListReminders returns the dashboard reminder feed; ?active=true keeps
// only reminders still awaiting dispatch.
func ListReminders(svc service.DashboardService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var (
			items []model.Reminder
			err   error
		)
		if c.QueryBool("active") {
			items, err = svc.ActiveReminders(c.UserContext())
		} else {
			items, err = svc.Reminders(c.UserContext())
		}
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(fiber.Map{"data": items})
	}
}

// writeIngestError maps ingest service errors onto the error envelope.
func writeIngestError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return writeError(c, fiber.StatusNotFound, "SESSION_NOT_FOUND", "ingest session not found")
	case errors.Is(err, service.ErrIDRequired):
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Keep handlers minimal and free of business logic.
func RegisterRoutes(
	app *fiber.App,
	db *sql.DB,
	docSvc service.DocumentService,
	ingestSvc service.IngestService,
	catalogSvc service.CatalogService,
	dashSvc service.DashboardService,
) {
	// Serve OpenAPI spec and Swagger UI
	app.Get("/openapi.yaml", func(c *fiber.Ctx) error {
		c.Type("yaml")
		return c.SendFile("openapi.yaml")
	})
	app.Get("/docs", func(c *fiber.Ctx) error {
		html := `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: '/openapi.yaml',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      layout: 'BaseLayout'
    });
  </script>
</body>
</html>`
		return c.Type("html").SendString(html)
	})

	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	app.Get("/documents", ListDocuments(docSvc))
	app.Get("/documents/:id", GetDocument(docSvc))
	app.Get("/documents/:id/download", DownloadDocument(docSvc))
	app.Delete("/documents/:id", DeleteDocument(docSvc))

	app.Post("/ingest", StartIngest(ingestSvc))
	app.Get("/ingest/:id", GetIngestSession(ingestSvc))
	app.Patch("/ingest/:id", UpdateIngestSession(ingestSvc))
	app.Put("/ingest/:id/file", ReplaceIngestFile(ingestSvc))
	app.Post("/ingest/:id/submit", SubmitIngestSession(ingestSvc))
	app.Delete("/ingest/:id", CancelIngestSession(ingestSvc))

	app.Get("/properties", ListProperties(catalogSvc))
	app.Get("/tenants", ListTenants(catalogSvc))
	app.Post("/tenants", CreateTenant(catalogSvc))
	app.Get("/contracts", ListContracts(catalogSvc))
	app.Get("/units", ListUnits(catalogSvc))
	app.Post("/units", CreateUnit(catalogSvc))

	app.Get("/reminders", ListReminders(dashSvc))
}
