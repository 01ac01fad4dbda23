package api

import (
	"context"

	"github.com/gin-gonic/gin"

	"qanta-backend-go/internal/callable"
	"qanta-backend-go/internal/core"
)

// handle adapts an operation to gin. Every callable has the same shape: the
// verified caller and the decoded "data" member in, one result out.
func handle[Req any, Res any](op func(ctx context.Context, caller core.Caller, req Req) (Res, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req Req
		if err := callable.Bind(c, &req); err != nil {
			callable.Fail(c, err)
			return
		}
		res, err := op(c.Request.Context(), callable.CallerOf(c), req)
		callable.Respond(c, res, err)
	}
}
