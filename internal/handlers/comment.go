package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"threadline/internal/apperr"
	"threadline/internal/services"
	"threadline/internal/utils"
)

type CommentHandler struct {
	comments *services.CommentService
}

func NewCommentHandler(comments *services.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

var (
	errBadBody   = apperr.Validation("Invalid request body")
	errBadPostID = apperr.NotFound("Post not found")
)

// ListForPost GET /posts/:postId/comments
func (h *CommentHandler) ListForPost(c *gin.Context) {
	postID := utils.StringToUint(c.Param("postId"))
	if postID == 0 {
		respondError(c, errBadPostID)
		return
	}
	view, err := h.comments.ListForPost(c.Request.Context(), actorFrom(c), postID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, view)
}

// Create POST /posts/:postId/comments
func (h *CommentHandler) Create(c *gin.Context) {
	postID := utils.StringToUint(c.Param("postId"))
	if postID == 0 {
		respondError(c, errBadPostID)
		return
	}
	var in services.CreateCommentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, errBadBody)
		return
	}
	in.IPAddress = c.ClientIP()
	in.UserAgent = c.Request.UserAgent()

	comment, err := h.comments.Create(c.Request.Context(), actorFrom(c), postID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, http.StatusCreated, "Comment submitted", comment)
}

// Update PATCH /comments/:id
func (h *CommentHandler) Update(c *gin.Context) {
	var in services.UpdateCommentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, errBadBody)
		return
	}
	comment, err := h.comments.Update(c.Request.Context(), actorFrom(c), c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, comment)
}

// Delete DELETE /comments/:id
func (h *CommentHandler) Delete(c *gin.Context) {
	removed, err := h.comments.Delete(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Comment deleted", gin.H{"deleted": removed})
}
