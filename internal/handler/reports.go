package handler

import (
	"fmt"
	"net/http"
	"time"

	"medident/internal/service"

	"github.com/gin-gonic/gin"
)

type ReportsHandler struct{ svc service.ReportService }

func NewReportsHandler(svc service.ReportService) *ReportsHandler { return &ReportsHandler{svc: svc} }

// StockPDF godoc
// @Summary Stock report
// @Tags reports
// @Produce application/pdf
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /v1/reports/stock.pdf [get]
func (h *ReportsHandler) StockPDF(c *gin.Context) {
	pdf, err := h.svc.StockReportPDF(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	name := fmt.Sprintf("stock-report-%s.pdf", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", "inline; filename="+name)
	c.Data(http.StatusOK, "application/pdf", pdf)
}
