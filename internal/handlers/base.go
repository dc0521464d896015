package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"threadline/internal/apperr"
	"threadline/internal/guard"
	"threadline/internal/middleware"
	"threadline/internal/services"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Status  string                `json:"status"`
	Message string                `json:"message,omitempty"`
	Data    interface{}           `json:"data,omitempty"`
	Errors  []services.FieldError `json:"errors,omitempty"`
}

func respondOK(c *gin.Context, code int, data interface{}) {
	c.JSON(code, Response{Status: "success", Data: data})
}

func respondMessage(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, Response{Status: "success", Message: message, Data: data})
}

// respondError maps err onto a status code. Internal causes are recorded on
// the gin context for the request log and never sent to the client.
func respondError(c *gin.Context, err error) {
	code := apperr.Status(err)
	resp := Response{Status: "error", Message: apperr.PublicMessage(err)}

	var verr *services.ValidationError
	if errors.As(err, &verr) {
		resp.Errors = verr.Fields
	}
	if code >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(code, resp)
}

// actorFrom turns the session user into the identity the services expect.
func actorFrom(c *gin.Context) *guard.Actor {
	return guard.ActorFromUser(middleware.CurrentUser(c), time.Now())
}
