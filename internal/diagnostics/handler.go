package diagnostics

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"marketsauce-agent/internal/shared/server/middleware"
	"marketsauce-agent/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the diagnostics service.
type Handler struct {
	Svc         *Service
	pollLimiter *pollLimiter
}

// NewHandler constructs a Handler with the default status poll limit.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc, pollLimiter: newPollLimiter(pollLimitWindow, nil)}
}

// RegisterRoutes attaches diagnostic routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/create", h.create)
	rg.GET("", h.list)
	rg.GET("/status/:id", h.status)
	rg.GET("/:id", h.get)
}

func (h *Handler) create(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "invalid request body", nil)
		return
	}
	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))

	d, err := h.Svc.Create(ctx, in)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			respond.Error(c, http.StatusUnprocessableEntity, ErrorCodeValidation, err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "failed to start diagnostic", nil)
		}
		return
	}
	c.Set(middleware.JobIDKey, d.ID)
	c.Set(middleware.StatusTransitionKey, "->"+StatusPending)

	respond.Accepted(c, gin.H{
		"job_id":  d.ID,
		"status":  d.Status,
		"message": "Diagnostic generation started",
	})
}

func (h *Handler) status(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.JobIDKey, id)
	if !h.pollLimiter.Allow(c.ClientIP(), id) {
		c.Header("Retry-After", strconv.Itoa(h.pollLimiter.RetryAfterSeconds()))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "polling too frequently", nil)
		return
	}

	d, ok := h.lookup(c, id)
	if !ok {
		return
	}
	respond.OK(c, statusBody(d))
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.JobIDKey, id)
	d, ok := h.lookup(c, id)
	if !ok {
		return
	}
	respond.OK(c, d)
}

func (h *Handler) list(c *gin.Context) {
	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	items, err := h.Svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "failed to list diagnostics", nil)
		return
	}
	resp := make([]gin.H, 0, len(items))
	for _, d := range items {
		resp = append(resp, gin.H{
			"job_id":        d.ID,
			"status":        d.Status,
			"business_name": d.Inputs.BusinessName,
			"mode":          d.Inputs.Mode,
			"created_at":    d.CreatedAt,
		})
	}
	respond.OK(c, resp)
}

func (h *Handler) lookup(c *gin.Context, id string) (Diagnostic, bool) {
	d, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "Job not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "failed to fetch diagnostic", nil)
		}
		return Diagnostic{}, false
	}
	return d, true
}

func statusBody(d Diagnostic) gin.H {
	body := gin.H{
		"job_id":        d.ID,
		"status":        d.Status,
		"current_phase": d.CurrentPhase,
		"total_phases":  d.TotalPhases,
		"phase_name":    d.PhaseName,
		"inputs":        d.Inputs,
	}
	switch d.Status {
	case StatusComplete:
		body["diagnostic"] = d.Diagnostic
		body["executive_summary"] = d.ExecutiveSummary
		if d.SystemPrompt != nil {
			body["system_prompt"] = *d.SystemPrompt
		}
		if len(d.FollowUpPrompts) > 0 {
			body["follow_up_prompts"] = d.FollowUpPrompts
		}
	case StatusError:
		body["error"] = d.ErrorMessage
		body["error_code"] = d.ErrorCode
	}
	return body
}
