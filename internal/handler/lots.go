package handler

import (
	"net/http"

	"medident/internal/dto"
	"medident/internal/middleware"
	"medident/internal/service"

	"github.com/gin-gonic/gin"
)

type LotsHandler struct{ svc service.LotService }

func NewLotsHandler(svc service.LotService) *LotsHandler { return &LotsHandler{svc: svc} }

func (h *LotsHandler) List(c *gin.Context) {
	itemID, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.List(c.Request.Context(), itemID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *LotsHandler) Create(c *gin.Context) {
	itemID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.CreateLotRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), itemID, req, middleware.CurrentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *LotsHandler) Update(c *gin.Context) {
	itemID, ok := paramID(c, "id")
	if !ok {
		return
	}
	lotID, ok := paramID(c, "lotId")
	if !ok {
		return
	}
	var req dto.UpdateLotRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Update(c.Request.Context(), itemID, lotID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *LotsHandler) Delete(c *gin.Context) {
	itemID, ok := paramID(c, "id")
	if !ok {
		return
	}
	lotID, ok := paramID(c, "lotId")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), itemID, lotID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
