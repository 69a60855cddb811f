package handler

import (
	"net/http"

	"medident/internal/dto"
	"medident/internal/middleware"
	"medident/internal/service"

	"github.com/gin-gonic/gin"
)

type QRHandler struct{ svc service.QRService }

func NewQRHandler(svc service.QRService) *QRHandler { return &QRHandler{svc: svc} }

func (h *QRHandler) Create(c *gin.Context) {
	itemID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.CreateQRCodeRequest
	// an empty body creates a permanent item code
	if c.Request.ContentLength != 0 && !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), itemID, req, middleware.CurrentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *QRHandler) ListByItem(c *gin.Context) {
	itemID, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ListByItem(c.Request.Context(), itemID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *QRHandler) Deactivate(c *gin.Context) {
	itemID, ok := paramID(c, "id")
	if !ok {
		return
	}
	qrID, ok := paramID(c, "qrId")
	if !ok {
		return
	}
	if err := h.svc.Deactivate(c.Request.Context(), itemID, qrID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *QRHandler) Resolve(c *gin.Context) {
	resp, err := h.svc.Resolve(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Scan godoc
// @Summary Apply a scanned quantity change
// @Description Relative change recorded with action type qr; lot codes tag the lot.
// @Tags qr
// @Accept json
// @Produce json
// @Param code path string true "QR code"
// @Param body body dto.ScanQRCodeRequest true "Signed quantity"
// @Success 200 {object} dto.QuantityUpdateResponse
// @Failure 404 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Security BearerAuth
// @Router /v1/qr/{code}/scan [post]
func (h *QRHandler) Scan(c *gin.Context) {
	var req dto.ScanQRCodeRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Scan(c.Request.Context(), c.Param("code"), req, middleware.CurrentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
