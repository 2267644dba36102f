package chat

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"marketsauce-agent/internal/shared/server/middleware"
	"marketsauce-agent/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the chat service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches chat routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/session", h.createSession)
	rg.POST("/message", h.sendMessage)
	rg.GET("/session/:id", h.getSession)
	rg.DELETE("/session/:id", h.deleteSession)
}

func (h *Handler) createSession(c *gin.Context) {
	var in SessionInput
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body", nil)
			return
		}
	}
	sess, err := h.Svc.CreateSession(c.Request.Context(), in)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to create session", nil)
		return
	}
	c.Set(middleware.SessionIDKey, sess.ID)
	respond.OK(c, gin.H{"session_id": sess.ID})
}

func (h *Handler) sendMessage(c *gin.Context) {
	var in SendInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body", nil)
		return
	}
	reply, err := h.Svc.Send(c.Request.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyMessage):
			respond.Error(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "message is required", nil)
		case errors.Is(err, ErrUpstream):
			respond.Error(c, http.StatusBadGateway, "LLM_ERROR", "Chat API error", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to send message", nil)
		}
		return
	}
	c.Set(middleware.SessionIDKey, reply.SessionID)
	respond.OK(c, reply)
}

func (h *Handler) getSession(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.SessionIDKey, id)
	sess, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "Session not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to fetch session", nil)
		}
		return
	}
	respond.OK(c, sess)
}

func (h *Handler) deleteSession(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.SessionIDKey, id)
	if err := h.Svc.Delete(c.Request.Context(), id); err != nil {
		respond.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to delete session", nil)
		return
	}
	respond.OK(c, gin.H{"status": "deleted"})
}
