package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"socialgraph/backend/internal/models"
	"socialgraph/backend/internal/relation"
)

// region --- DTOs ---

// UserTargetInput names the other user of an operation.
type UserTargetInput struct {
	UserID string `json:"user_id" binding:"required,uuid" example:"6f1c2a9e-4a58-4f8e-9a43-0c1f1f3b2d11"`
}

// FriendRequestInput is the body of POST /friends/request.
type FriendRequestInput struct {
	ReceiverID string `json:"receiver_id" binding:"required,uuid"`
}

// RequesterInput identifies an incoming friend request by its sender.
type RequesterInput struct {
	RequesterID string `json:"requester_id" binding:"required,uuid"`
}

// AcceptInput identifies the request to accept by sender or by edge ID.
type AcceptInput struct {
	RequesterID string `json:"requester_id" binding:"required_without=EdgeID,omitempty,uuid"`
	EdgeID      string `json:"edge_id" binding:"omitempty,uuid"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message" example:"Friend request sent"`
}

// EdgeResponse reports the edge an operation produced.
type EdgeResponse struct {
	Message string           `json:"message"`
	Edge    *models.UserEdge `json:"edge"`
}

// DeclineResponse reports the request status after a decline.
type DeclineResponse struct {
	Message             string                     `json:"message"`
	FriendRequestStatus models.FriendRequestStatus `json:"friend_request_status"`
}

// BlockResponse reports whether the target is blocked after the toggle.
type BlockResponse struct {
	Message string `json:"message"`
	Blocked bool   `json:"blocked"`
}

// endregion

// region --- Friendship Handlers ---

// GetFriends godoc
// @Summary      List relations
// @Description  Lists the users on the other end of the caller's edges of the given type.
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        type  query     string  false  "friends, requests, followers, outgoing, blocked or following" default(friends)
// @Success      200   {array}   relation.UserSummary
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Failure      503   {object}  ErrorResponse
// @Router       /friends [get]
func (h *Handler) GetFriends(c *gin.Context) {
	viewerID, ok := currentUser(c)
	if !ok {
		return
	}
	lt, err := relation.ParseListType(c.Query("type"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	users, err := h.relations.ListByType(c.Request.Context(), viewerID, lt)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// GetFriendCounts godoc
// @Summary      Count relations
// @Description  Returns the size of every relation list of the caller.
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  relation.Counts
// @Failure      401  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /friends/counts [get]
func (h *Handler) GetFriendCounts(c *gin.Context) {
	viewerID, ok := currentUser(c)
	if !ok {
		return
	}
	counts, err := h.relations.CountByType(c.Request.Context(), viewerID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

// Follow godoc
// @Summary      Follow a user
// @Description  Follows a user without a friend request, replacing any earlier edge toward them. Following again is a no-op.
// @Tags         friendship
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body UserTargetInput true "User to follow"
// @Success      200  {object}  MessageResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /friends/follow [post]
func (h *Handler) Follow(c *gin.Context) {
	viewerID, ok := currentUser(c)
	if !ok {
		return
	}
	var input UserTargetInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, relation.CodeInvalidTarget, err)
		return
	}

	if err := h.relations.Follow(c.Request.Context(), viewerID, uuid.MustParse(input.UserID)); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Following user"})
}

// SendRequest godoc
// @Summary      Send friend request
// @Description  Sends a friend request to another user. The sender follows the receiver until it is answered.
// @Tags         friendship
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body FriendRequestInput true "Receiver"
// @Success      201  {object}  EdgeResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "Target user not found"
// @Failure      409  {object}  ErrorResponse "Relation already exists"
// @Failure      503  {object}  ErrorResponse
// @Router       /friends/request [post]
func (h *Handler) SendRequest(c *gin.Context) {
	viewerID, ok := currentUser(c)
	if !ok {
		return
	}
	var input FriendRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, relation.CodeInvalidTarget, err)
		return
	}

	edge, err := h.relations.SendFriendRequest(c.Request.Context(), viewerID, uuid.MustParse(input.ReceiverID))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, EdgeResponse{Message: "Friend request sent", Edge: edge})
}

// AcceptRequest godoc
// @Summary      Accept friend request
// @Description  Accepts an incoming pending or declined request, identified by requester_id or edge_id.
// @Tags         friendship
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body AcceptInput true "Request to accept"
// @Success      200  {object}  EdgeResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "Request not found"
// @Failure      503  {object}  ErrorResponse
// @Router       /friends/accept [post]
func (h *Handler) AcceptRequest(c *gin.Context) {
	viewerID, ok := currentUser(c)
	if !ok {
		return
	}
	var input AcceptInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, relation.CodeInvalidTarget, err)
		return
	}

	var (
		edge *models.UserEdge
		err  error
	)
	if input.RequesterID != "" {
		edge, err = h.relations.AcceptFriendRequest(c.Request.Context(), viewerID, uuid.MustParse(input.RequesterID))
	} else {
		edge, err = h.relations.AcceptFriendRequestByEdge(c.Request.Context(), viewerID, uuid.MustParse(input.EdgeID))
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, EdgeResponse{Message: "Friend request accepted", Edge: edge})
}

// DeclineRequest godoc
// @Summary      Decline friend request
// @Description  Declines an incoming pending request. The requester keeps following the caller.
// @Tags         friendship
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body RequesterInput true "Requester"
// @Success      200  {object}  DeclineResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "Request not found"
// @Failure      503  {object}  ErrorResponse
// @Router       /friends/decline [post]
func (h *Handler) DeclineRequest(c *gin.Context) {
	viewerID, ok := currentUser(c)
	if !ok {
		return
	}
	var input RequesterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, relation.CodeInvalidTarget, err)
		return
	}

	status, err := h.relations.DeclineFriendRequest(c.Request.Context(), viewerID, uuid.MustParse(input.RequesterID))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, DeclineResponse{Message: "Friend request declined", FriendRequestStatus: status})
}

// RemoveRelation godoc
// @Summary      Remove relation
// @Description  Unfriends, unfollows, cancels a request or lifts a block, depending on the current relation.
// @Tags         friendship
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body UserTargetInput true "Other user"
// @Success      200  {object}  MessageResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "Relation not found"
// @Failure      503  {object}  ErrorResponse
// @Router       /friends/remove [post]
func (h *Handler) RemoveRelation(c *gin.Context) {
	viewerID, ok := currentUser(c)
	if !ok {
		return
	}
	var input UserTargetInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, relation.CodeInvalidTarget, err)
		return
	}

	if err := h.relations.RemoveRelationship(c.Request.Context(), viewerID, uuid.MustParse(input.UserID)); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Relation removed"})
}

// Block godoc
// @Summary      Toggle block
// @Description  Blocks a user, removing every relation with them, or lifts an existing block.
// @Tags         friendship
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body UserTargetInput true "User to block or unblock"
// @Success      200  {object}  BlockResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /friends/block [post]
func (h *Handler) Block(c *gin.Context) {
	viewerID, ok := currentUser(c)
	if !ok {
		return
	}
	var input UserTargetInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, relation.CodeInvalidTarget, err)
		return
	}

	blocked, err := h.relations.Block(c.Request.Context(), viewerID, uuid.MustParse(input.UserID))
	if err != nil {
		h.respondError(c, err)
		return
	}
	message := "User unblocked"
	if blocked {
		message = "User blocked"
	}
	c.JSON(http.StatusOK, BlockResponse{Message: message, Blocked: blocked})
}

// GetStatus godoc
// @Summary      Relation status
// @Description  Reports the caller's relation with another user. A null status means no visible relation.
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Other user ID"
// @Success      200  {object}  relation.StatusView
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /friends/status/{id} [get]
func (h *Handler) GetStatus(c *gin.Context) {
	viewerID, ok := currentUser(c)
	if !ok {
		return
	}
	otherID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid user ID", Code: string(relation.CodeInvalidTarget)})
		return
	}

	view, err := h.relations.GetStatus(c.Request.Context(), viewerID, otherID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// endregion
