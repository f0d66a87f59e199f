package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/unbfeelings/backend/core/user"
)

const contextObjectKey = "object"

// adminMiddleware only lets staff users through. It must run after the JWT middleware.
func adminMiddleware(svc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, svc)
			if err != nil {
				return err
			}
			if usr.IsAdmin() {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// optionalJWTMiddleware authenticates the request only when it carries an Authorization header.
// A malformed or expired token is still rejected.
func optionalJWTMiddleware(config middleware.JWTConfig) echo.MiddlewareFunc {
	config.Skipper = func(ctx echo.Context) bool {
		return ctx.Request().Header.Get(echo.HeaderAuthorization) == ""
	}
	return middleware.JWTWithConfig(config)
}

// objectLoader loads the object of a detail endpoint and returns the ID of the user owning it.
type objectLoader func(ctx echo.Context, id int) (obj interface{}, ownerID int, err error)

// ownerOrAdminMiddleware loads the `:id` object into the context under contextObjectKey,
// then only lets its owner or an admin through. It must run after the JWT middleware.
func ownerOrAdminMiddleware(svc user.Service, load objectLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			id, err := pathID(ctx)
			if err != nil {
				return err
			}
			ctxUsr, err := getContextUser(ctx, svc)
			if err != nil {
				return err
			}
			obj, ownerID, err := load(ctx, id)
			if err != nil {
				return err
			}
			if ownerID != ctxUsr.ID && !ctxUsr.IsAdmin() {
				return errHttpForbidden
			}
			ctx.Set(contextObjectKey, obj)
			return next(ctx)
		}
	}
}

// pathID parses the `:id` path param; invalid IDs are not found.
func pathID(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}
