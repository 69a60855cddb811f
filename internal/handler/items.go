package handler

import (
	"net/http"

	"medident/internal/dto"
	"medident/internal/middleware"
	"medident/internal/service"

	"github.com/gin-gonic/gin"
)

type ItemsHandler struct {
	svc    service.ItemService
	audit  service.AuditService
	alerts service.AlertService
}

func NewItemsHandler(svc service.ItemService, audit service.AuditService, alerts service.AlertService) *ItemsHandler {
	return &ItemsHandler{svc: svc, audit: audit, alerts: alerts}
}

// List godoc
// @Summary List inventory items
// @Tags items
// @Produce json
// @Param category query string false "Category id or name"
// @Param search query string false "Matches name, SKU and notes"
// @Param lowStock query bool false "Only items at or below their minimum"
// @Param expiring query bool false "Only items (or lots) expiring soon"
// @Param expiringDays query int false "Expiry window in days"
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(20)
// @Param sortBy query string false "Sort column" default(name)
// @Param sortOrder query string false "asc or desc" default(asc)
// @Success 200 {object} dto.ItemListResponse
// @Security BearerAuth
// @Router /v1/items [get]
func (h *ItemsHandler) List(c *gin.Context) {
	var filter dto.ItemFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Get godoc
// @Summary Get an inventory item with its lots
// @Tags items
// @Produce json
// @Param id path string true "Item id"
// @Success 200 {object} dto.ItemResponse
// @Failure 404 {object} apierror.APIError
// @Security BearerAuth
// @Router /v1/items/{id} [get]
func (h *ItemsHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ItemsHandler) Create(c *gin.Context) {
	var req dto.CreateItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), req, middleware.CurrentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *ItemsHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Update(c.Request.Context(), id, req, middleware.CurrentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ItemsHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateQuantity godoc
// @Summary Set or adjust an item's quantity
// @Description Absolute by default; with isAdjustment the quantity is a signed delta.
// @Description Every change writes exactly one audit entry.
// @Tags items
// @Accept json
// @Produce json
// @Param id path string true "Item id"
// @Param body body dto.UpdateQuantityRequest true "Quantity change"
// @Success 200 {object} dto.QuantityUpdateResponse
// @Failure 400 {object} apierror.APIError
// @Failure 404 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError "Result would be negative"
// @Failure 503 {object} apierror.APIError "Item lock timed out"
// @Security BearerAuth
// @Router /v1/items/{id}/quantity [put]
func (h *ItemsHandler) UpdateQuantity(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateQuantityRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdateQuantity(c.Request.Context(), id, req, middleware.CurrentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AuditLogs lists the history of one item.
func (h *ItemsHandler) AuditLogs(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var filter dto.AuditLogFilter
	if !bindQuery(c, &filter) {
		return
	}
	filter.ItemID = id.String()
	resp, err := h.audit.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ── Alerts ───────────────────────────────────────────────────────────────────

type expiringQuery struct {
	Days int `form:"days" validate:"min=0,max=3650"`
}

// Alerts godoc
// @Summary Low-stock and expiring items
// @Tags items
// @Produce json
// @Param days query int false "Expiry window in days"
// @Success 200 {object} dto.AlertsResponse
// @Security BearerAuth
// @Router /v1/items/alerts [get]
func (h *ItemsHandler) Alerts(c *gin.Context) {
	var q expiringQuery
	if !bindQuery(c, &q) {
		return
	}
	resp, err := h.alerts.Alerts(c.Request.Context(), q.Days)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ItemsHandler) LowStock(c *gin.Context) {
	resp, err := h.alerts.LowStock(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ItemsHandler) Expiring(c *gin.Context) {
	var q expiringQuery
	if !bindQuery(c, &q) {
		return
	}
	resp, err := h.alerts.Expiring(c.Request.Context(), q.Days)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ── Audit log ────────────────────────────────────────────────────────────────

type AuditHandler struct{ svc service.AuditService }

func NewAuditHandler(svc service.AuditService) *AuditHandler { return &AuditHandler{svc: svc} }

// List godoc
// @Summary Quantity change history
// @Tags audit
// @Produce json
// @Param itemId query string false "Item id"
// @Param actionType query string false "manual, invoice, scan, qr, csv_import or adjustment"
// @Param userId query string false "User id"
// @Param from query string false "First day (YYYY-MM-DD)"
// @Param to query string false "Last day (YYYY-MM-DD), inclusive"
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(50)
// @Success 200 {object} dto.AuditLogListResponse
// @Security BearerAuth
// @Router /v1/audit-logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	var filter dto.AuditLogFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
