package documents

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"marketsauce-agent/internal/shared/server/middleware"
	"marketsauce-agent/internal/shared/server/respond"
)

const maxDiagnosticSize = 2 << 20 // 2MB

// Handler wires HTTP handlers to the documents service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/generate", h.generate)
	rg.GET("/download/:id", h.download)
}

func (h *Handler) generate(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxDiagnosticSize)

	var in GenerateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body", nil)
		return
	}
	if in.JobID != "" {
		c.Set(middleware.JobIDKey, in.JobID)
	}

	doc, content, err := h.Svc.Generate(c.Request.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
		case errors.Is(err, ErrUnknownFormat):
			respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "format must be docx or md", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to generate document", nil)
		}
		return
	}

	if doc.StorageKey != "" {
		c.Header("X-Document-Id", doc.ID)
	}
	respond.Attachment(c, doc.FileName, doc.Format.ContentType(), content)
}

func (h *Handler) download(c *gin.Context) {
	doc, body, err := h.Svc.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load document", nil)
		}
		return
	}
	defer body.Close()

	respond.StreamAttachment(c, doc.FileName, doc.Format.ContentType(), body)
}
