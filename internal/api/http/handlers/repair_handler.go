package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/servicedesk-io/helpdesk-service/internal/api/dto"
	"github.com/servicedesk-io/helpdesk-service/internal/domain"
	"github.com/servicedesk-io/helpdesk-service/internal/service"
	apperrors "github.com/servicedesk-io/helpdesk-service/pkg/util/errorutil"
)

// RepairHandler serves the technician surface of repair tickets:
// diagnosis and work orders.
type RepairHandler struct {
	diagnoses  *service.DiagnosisService
	workOrders *service.WorkOrderService
}

// NewRepairHandler constructs handler.
func NewRepairHandler(diagnoses *service.DiagnosisService, workOrders *service.WorkOrderService) *RepairHandler {
	return &RepairHandler{diagnoses: diagnoses, workOrders: workOrders}
}

// SubmitDiagnosis POST /tickets/:id/diagnosis.
func (h *RepairHandler) SubmitDiagnosis(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.DiagnosisRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	diagnosis, err := h.diagnoses.Submit(c.Context(), servicePrincipal(principal), c.Params("id"), service.DiagnosisInput{
		ProblemCategory:      domain.ProblemCategory(strings.ToUpper(req.ProblemCategory)),
		RepairType:           domain.RepairType(strings.ToUpper(req.RepairType)),
		Description:          req.Description,
		Reason:               req.Reason,
		Notes:                req.Notes,
		AssetConditionChange: req.AssetConditionChange,
		StartWork:            req.StartWork,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": diagnosisResponse(diagnosis)})
}

// GetDiagnosis GET /tickets/:id/diagnosis.
func (h *RepairHandler) GetDiagnosis(c *fiber.Ctx) error {
	if _, err := requirePrincipal(c); err != nil {
		return err
	}
	diagnosis, err := h.diagnoses.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": diagnosisResponse(diagnosis)})
}

// CreateWorkOrder POST /tickets/:id/work-orders.
func (h *RepairHandler) CreateWorkOrder(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.WorkOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	wo, err := h.workOrders.Create(c.Context(), servicePrincipal(principal), c.Params("id"),
		domain.WorkOrderType(strings.ToUpper(req.Type)), req.Details)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": workOrderResponse(wo)})
}

// UpdateWorkOrder PATCH /tickets/:id/work-orders/:woID.
func (h *RepairHandler) UpdateWorkOrder(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.WorkOrderStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status is required", nil)
	}
	wo, err := h.workOrders.UpdateStatus(c.Context(), servicePrincipal(principal),
		c.Params("id"), c.Params("woID"), domain.WorkOrderStatus(strings.ToUpper(req.Status)))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": workOrderResponse(wo)})
}

// ListWorkOrders GET /tickets/:id/work-orders.
func (h *RepairHandler) ListWorkOrders(c *fiber.Ctx) error {
	if _, err := requirePrincipal(c); err != nil {
		return err
	}
	orders, err := h.workOrders.List(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.WorkOrderResponse, 0, len(orders))
	for i := range orders {
		items = append(items, workOrderResponse(&orders[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func workOrderResponse(wo *domain.WorkOrder) dto.WorkOrderResponse {
	return dto.WorkOrderResponse{
		ID:        wo.ID,
		TicketID:  wo.TicketID,
		Type:      string(wo.Type),
		Status:    string(wo.Status),
		Details:   wo.Details,
		CreatedAt: wo.CreatedAt,
		UpdatedAt: wo.UpdatedAt,
	}
}
