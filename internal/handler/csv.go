package handler

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"medident/internal/apierror"
	"medident/internal/middleware"
	"medident/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// maxImportBytes bounds an uploaded CSV.
const maxImportBytes = 5 << 20

type CSVHandler struct{ svc service.ImportService }

func NewCSVHandler(svc service.ImportService) *CSVHandler { return &CSVHandler{svc: svc} }

// Import godoc
// @Summary Import items from CSV
// @Description Multipart field "file" or a raw text/csv body.
// @Tags items
// @Accept mpfd
// @Produce json
// @Param file formData file false "CSV file"
// @Success 200 {object} dto.ImportResponse
// @Failure 400 {object} apierror.APIError
// @Security BearerAuth
// @Router /v1/items/import [post]
func (h *CSVHandler) Import(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)

	var src io.Reader
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("Missing CSV file in field \"file\""))
			return
		}
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("Could not read uploaded file"))
			return
		}
		defer f.Close()
		src = f
	} else {
		src = c.Request.Body
	}

	resp, err := h.svc.Import(c.Request.Context(), src, middleware.CurrentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CSVHandler) Export(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.svc.Export(c.Request.Context(), &buf); err != nil {
		log.Error().Err(err).Msg("csv export failed")
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=inventory-export.csv")
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
