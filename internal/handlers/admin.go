package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"threadline/internal/services"
	"threadline/internal/utils"
)

// AdminHandler serves the moderation dashboard. Role checks happen in the
// services, so a member reaching these routes gets FORBIDDEN.
type AdminHandler struct {
	comments *services.CommentService
	stats    *services.StatsService
}

func NewAdminHandler(comments *services.CommentService, stats *services.StatsService) *AdminHandler {
	return &AdminHandler{comments: comments, stats: stats}
}

// ListComments GET /comments?status=&postId=&page=&limit=
func (h *AdminHandler) ListComments(c *gin.Context) {
	page, limit := utils.Pagination(c.Query("page"), c.Query("limit"))
	result, err := h.comments.ListAll(c.Request.Context(), actorFrom(c), services.ListAllQuery{
		Status: c.Query("status"),
		PostID: utils.StringToUint(c.Query("postId")),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, result)
}

// ToggleApproval PATCH /comments/:id/approve
func (h *AdminHandler) ToggleApproval(c *gin.Context) {
	comment, err := h.comments.ToggleApproval(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, comment)
}

// MarkSpam PATCH /comments/:id/spam
func (h *AdminHandler) MarkSpam(c *gin.Context) {
	comment, err := h.comments.MarkSpam(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, comment)
}

// Stats GET /comments/stats?postId=
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.stats.Summary(c.Request.Context(), actorFrom(c), utils.StringToUint(c.Query("postId")))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, stats)
}
