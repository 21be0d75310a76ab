package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

func managerMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsManager {
				return next(ctx)
			}
			return errHTTPForbidden
		}
	}
}

func studentMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsStudent {
				return next(ctx)
			}
			return errHTTPForbidden
		}
	}
}

// monitorOrManagerMiddleware lets offer creators through.
func monitorOrManagerMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsMonitor || claims.IsManager {
				return next(ctx)
			}
			return errHTTPForbidden
		}
	}
}

// selfOrManagerMiddleware only lets through the user identified by the `:id` path param, or a manager.
// Other users get a 404 so that IDs are not leaked.
func selfOrManagerMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if ctx.Param("id") == claims.Subject || claims.IsManager {
				return next(ctx)
			}
			return errHTTPNotFound
		}
	}
}
