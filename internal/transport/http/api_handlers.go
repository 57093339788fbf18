package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/relaychat/internal/core"
	"github.com/vovakirdan/relaychat/internal/proto"
	"github.com/vovakirdan/relaychat/internal/store"
)

// APIHandlers provides HTTP handlers for REST API endpoints.
type APIHandlers struct {
	hub   *core.Hub
	store store.MessageStore
	log   *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(hub *core.Hub, st store.MessageStore, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		hub:   hub,
		store: st,
		log:   logger,
	}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatsResponse represents the stats response body.
type StatsResponse struct {
	Messages int64 `json:"messages"`
	Clients  int   `json:"clients"`
}

// Messages returns recent history, oldest first.
// GET /api/messages?limit=N
func (h *APIHandlers) Messages(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	history, err := h.hub.History(c.Request.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to load history")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, lo.Map(history, func(m core.Message, _ int) proto.Message {
		return m.Proto()
	}))
}

// Stats reports the stored message count and online clients.
// GET /api/stats
func (h *APIHandlers) Stats(c *gin.Context) {
	count, err := h.store.CountMessages(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to count messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, StatsResponse{
		Messages: count,
		Clients:  h.hub.Registry().Len(),
	})
}
