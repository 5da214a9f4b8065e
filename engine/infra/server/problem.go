package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tubechat/tubechat/engine/core"
	"github.com/tubechat/tubechat/pkg/logger"
)

// RespondProblem writes an RFC 7807 response for err and aborts the chain.
func RespondProblem(c *gin.Context, err *core.Error) {
	problem := core.ProblemFrom(err)
	log := logger.FromContext(c.Request.Context())
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	fields := []any{"status", problem.Status, "code", problem.Code, "route", route}
	if problem.Status >= http.StatusInternalServerError {
		log.Error("Request failed", append(fields, "error", err)...)
	} else {
		log.Debug("Request rejected", append(fields, "detail", problem.Detail)...)
	}
	c.Header("Content-Type", "application/problem+json")
	c.AbortWithStatusJSON(problem.Status, problem)
}

func respondBindError(c *gin.Context, err error) {
	RespondProblem(c, core.NewError(core.KindInvalidInput, "invalid request body: "+err.Error(), err))
}
