package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/inferencemax/dashboard/pkg/workflows"
)

// WorkflowCatalog lists the queryable workflows.
type WorkflowCatalog interface {
	List() []workflows.Workflow
	Default() string
}

// WorkflowHandlers serves the workflow catalog.
type WorkflowHandlers struct {
	catalog WorkflowCatalog
}

func NewWorkflowHandlers(catalog WorkflowCatalog) *WorkflowHandlers {
	return &WorkflowHandlers{catalog: catalog}
}

// ListWorkflows handles GET /api/workflows.
func (h *WorkflowHandlers) ListWorkflows(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"workflows": h.catalog.List(),
		"default":   h.catalog.Default(),
	})
}
