package httpapi

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/i474232898/precip-subset/internal/pipeline"
	"github.com/i474232898/precip-subset/internal/store"
)

var validate = validator.New()

// Service is what the handlers need from the pipeline.
type Service interface {
	Run(ctx context.Context) (pipeline.RunReport, error)
	Get(id uuid.UUID) (pipeline.RunReport, error)
	GetLatest() (pipeline.RunReport, error)
	GetLatestSucceeded() (pipeline.RunReport, error)
	GetRange(from, to time.Time) ([]pipeline.RunReport, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app. runTimeout
// bounds runs triggered over HTTP; zero means no deadline.
func RegisterRoutes(app *fiber.App, service Service, runTimeout time.Duration) {
	v1 := app.Group("/api/v1")

	v1.Get("/runs/latest", func(c *fiber.Ctx) error {
		report, err := service.GetLatest()
		if err != nil {
			return lookupError(err, "no runs recorded yet")
		}
		return c.JSON(report)
	})

	v1.Get("/runs/:id", func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid run id")
		}

		report, err := service.Get(id)
		if err != nil {
			return lookupError(err, "run not found")
		}
		return c.JSON(report)
	})

	v1.Get("/runs", func(c *fiber.Ctx) error {
		var req rangeQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		reports, err := service.GetRange(req.From, req.To)
		if err != nil {
			return lookupError(err, "no runs in requested range")
		}

		return c.JSON(fiber.Map{
			"from": req.From,
			"to":   req.To,
			"runs": reports,
		})
	})

	v1.Post("/runs", func(c *fiber.Ctx) error {
		ctx := context.Background()
		if runTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, runTimeout)
			defer cancel()
		}

		report, err := service.Run(ctx)
		switch {
		case errors.Is(err, pipeline.ErrRunInProgress):
			return fiber.NewError(fiber.StatusConflict, err.Error())
		case err != nil:
			return c.Status(fiber.StatusInternalServerError).JSON(report)
		}
		return c.Status(fiber.StatusCreated).JSON(report)
	})

	v1.Get("/output", func(c *fiber.Ctx) error {
		report, err := service.GetLatestSucceeded()
		if err != nil {
			return lookupError(err, "no output produced yet")
		}
		return c.Download(report.OutputPath)
	})
}

func lookupError(err error, notFound string) error {
	if errors.Is(err, store.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, notFound)
	}
	return fiber.NewError(fiber.StatusInternalServerError, "failed to read run history")
}

// rangeQuery holds query parameters for the run history endpoint.
type rangeQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (q *rangeQuery) bind(c *fiber.Ctx) error {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	q.From = from
	q.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
