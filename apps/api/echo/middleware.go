package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/academia/core"
)

// actorMiddleware puts the authenticated user's ID on the request context, for services & events.
func actorMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return err
		}
		req := ctx.Request()
		ctx.SetRequest(req.WithContext(core.WithActor(req.Context(), claims.Subject)))
		return next(ctx)
	}
}

// adminMiddleware lets staff through; `roles` further restricts to any of the exact roles given.
func adminMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if claims.IsAdmin && contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// isAdmin reports whether the acting user is staff, from the token claims.
func isAdmin(ctx echo.Context) bool {
	claims, err := getContextClaims(ctx)
	return err == nil && claims.IsAdmin
}

// actorID is the authenticated user's ID.
func actorID(ctx echo.Context) string {
	return core.ActorID(ctx.Request().Context())
}
