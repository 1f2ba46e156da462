package middleware

import (
	"github.com/gin-gonic/gin"

	appctx "orgregistry/internal/core/context"
	"orgregistry/internal/core/security"
)

// ActorContext propagates the authenticated operator's ID into the
// request context for audit attribution.
//
// Must run AFTER Auth, which populates the user context. The service
// layer reads the actor via security.GetActorID(ctx).
func ActorContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		if uid := appctx.GetUserID(c.Request.Context()); uid != "" {
			ctx := security.WithActorID(c.Request.Context(), uid)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}
