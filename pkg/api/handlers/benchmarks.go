package handlers

import (
	"context"
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/inferencemax/dashboard/pkg/benchmarks"
)

// BenchmarkService answers benchmark queries.
type BenchmarkService interface {
	Handle(ctx context.Context, req benchmarks.Request) (*benchmarks.Result, error)
}

// BenchmarkHandlers serves the benchmark pipeline over HTTP.
type BenchmarkHandlers struct {
	svc BenchmarkService
}

// NewBenchmarkHandlers creates benchmark handlers backed by svc.
func NewBenchmarkHandlers(svc BenchmarkService) *BenchmarkHandlers {
	return &BenchmarkHandlers{svc: svc}
}

// GetBenchmarks handles GET /api/benchmarks?days=N&workflow=W&refresh=true.
// Failures keep the success shape's empty data and runs arrays so the UI can
// render them without special-casing.
func (h *BenchmarkHandlers) GetBenchmarks(c *fiber.Ctx) error {
	req := benchmarks.Request{
		Workflow:     c.Query("workflow"),
		ForceRefresh: c.Query("refresh") == "true",
	}
	if raw := c.Query("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(failure("Invalid days", raw))
		}
		req.Days = days
	}

	res, err := h.svc.Handle(c.UserContext(), req)
	if err != nil {
		return writeRequestError(c, err)
	}
	return c.JSON(res)
}

func writeRequestError(c *fiber.Ctx, err error) error {
	var reqErr *benchmarks.RequestError
	if !errors.As(err, &reqErr) {
		log.Printf("[API] Unexpected benchmark error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(failure("Failed to fetch benchmark data", err.Error()))
	}

	switch reqErr.Kind {
	case benchmarks.ErrKindUnauthorized:
		return c.Status(fiber.StatusUnauthorized).JSON(failure(reqErr.Message, ""))
	case benchmarks.ErrKindInvalid:
		return c.Status(fiber.StatusBadRequest).JSON(failure(reqErr.Message, reqErr.Details))
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(failure(reqErr.Message, reqErr.Details))
	}
}

func failure(message, details string) fiber.Map {
	body := fiber.Map{
		"error": message,
		"data":  []any{},
		"runs":  []any{},
	}
	if details != "" {
		body["details"] = details
	}
	return body
}
