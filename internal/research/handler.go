package research

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"marketsauce-agent/internal/shared/server/respond"
	"marketsauce-agent/internal/shared/telemetry"
)

// Handler serves the synchronous research-only report.
type Handler struct {
	Researcher Researcher
}

// NewHandler constructs a Handler.
func NewHandler(r Researcher) *Handler {
	return &Handler{Researcher: r}
}

// RegisterRoutes attaches POST "" to rg.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.run)
}

func (h *Handler) run(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body", nil)
		return
	}
	in.BusinessName = strings.TrimSpace(in.BusinessName)
	in.WebsiteURL = strings.TrimSpace(in.WebsiteURL)
	in.TargetMarket = strings.TrimSpace(in.TargetMarket)
	if in.BusinessName == "" || in.WebsiteURL == "" {
		respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "business_name and website_url are required", nil)
		return
	}

	data, err := Gather(c.Request.Context(), h.Researcher, in, QuickPlan())
	if err != nil {
		telemetry.Error("research.failed", map[string]any{"business_name": in.BusinessName, "error": err})
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}

	respond.OK(c, gin.H{
		"status":            "complete",
		"diagnostic":        BuildReport(in, data),
		"executive_summary": ExecutiveSummary(in.BusinessName),
		"inputs": gin.H{
			"business_name": in.BusinessName,
			"target_market": in.TargetMarket,
		},
	})
}
