package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"vibecheck-service/internal/apierr"
)

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func respondOK(c *gin.Context, payload gin.H) {
	if payload == nil {
		payload = gin.H{}
	}
	payload["success"] = true
	c.JSON(http.StatusOK, payload)
}

func respondError(c *gin.Context, err error) {
	apiErr := apierr.From(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(apiErr.Status, errorBody{Error: apiErr.Message, Details: apiErr.Details()})
}
