package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"socialgraph/backend/internal/models"
	"socialgraph/backend/internal/relation"
	"socialgraph/backend/internal/repository"
)

// EventsResponse is one page of the caller's notification records.
type EventsResponse struct {
	Events      []models.UserEvent `json:"events"`
	UnreadCount int64              `json:"unread_count"`
}

// MarkReadInput lists the events to mark as read.
type MarkReadInput struct {
	EventIDs []uuid.UUID `json:"event_ids" binding:"required,min=1"`
}

// MarkReadResponse reports how many of the caller's events were marked.
type MarkReadResponse struct {
	MarkedCount int64 `json:"marked_count"`
}

// GetEvents godoc
// @Summary      List notifications
// @Description  Returns the caller's notification records, newest first, with the unread total.
// @Tags         events
// @Produce      json
// @Security     BearerAuth
// @Param        limit   query     int  false  "Page size" default(10)
// @Param        offset  query     int  false  "Records to skip" default(0)
// @Success      200     {object}  EventsResponse
// @Failure      401     {object}  ErrorResponse
// @Router       /events [get]
func (h *Handler) GetEvents(c *gin.Context) {
	viewerID, ok := currentUser(c)
	if !ok {
		return
	}
	limit := queryInt(c, "limit", defaultPageSize)
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := queryInt(c, "offset", 0)

	ctx := c.Request.Context()
	events, err := h.events.ListEvents(ctx, viewerID, limit, offset)
	if err != nil {
		h.logger.Error("Failed to list events", "user_id", viewerID, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to retrieve events"})
		return
	}
	unread, err := h.events.CountUnread(ctx, viewerID)
	if err != nil {
		h.logger.Error("Failed to count unread events", "user_id", viewerID, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to retrieve events"})
		return
	}

	if events == nil {
		events = []models.UserEvent{}
	}
	c.JSON(http.StatusOK, EventsResponse{Events: events, UnreadCount: unread})
}

// MarkEventsRead godoc
// @Summary      Mark notifications read
// @Description  Marks the given notification records as read. IDs that are not the caller's are ignored.
// @Tags         events
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body MarkReadInput true "Event IDs"
// @Success      200  {object}  MarkReadResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /events/read [post]
func (h *Handler) MarkEventsRead(c *gin.Context) {
	viewerID, ok := currentUser(c)
	if !ok {
		return
	}
	var input MarkReadInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, "invalid_request", err)
		return
	}

	marked, err := h.events.MarkRead(c.Request.Context(), viewerID, input.EventIDs)
	if err != nil {
		h.logger.Error("Failed to mark events read", "user_id", viewerID, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to update events"})
		return
	}
	c.JSON(http.StatusOK, MarkReadResponse{MarkedCount: marked})
}

// DeleteEvent godoc
// @Summary      Delete notification
// @Description  Deletes one of the caller's notification records.
// @Tags         events
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Event ID"
// @Success      200  {object}  MessageResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /events/{id} [delete]
func (h *Handler) DeleteEvent(c *gin.Context) {
	viewerID, ok := currentUser(c)
	if !ok {
		return
	}
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid event ID", Code: string(relation.CodeInvalidTarget)})
		return
	}

	if err := h.events.DeleteEvent(c.Request.Context(), viewerID, eventID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Event not found", Code: string(relation.CodeNotFound)})
			return
		}
		h.logger.Error("Failed to delete event", "user_id", viewerID, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to delete event"})
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Event deleted"})
}
