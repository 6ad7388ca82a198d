package http

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/observability"
	apperrors "github.com/spec-kit/auth-service/pkg/util/errorutil"
)

// storageRetryAfter is advertised on 503 responses when the identity store
// is unreachable; it matches the store's own bootstrap retry pacing.
const storageRetryAfter = "10"

// RegisterMiddlewares attaches the global chain: request timeout, the error
// envelope, and request logging.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	if timeout > 0 {
		app.Use(requestTimeout(timeout))
	}
	app.Use(errorEnvelope(logger, metrics))
	app.Use(observability.RequestLogger(logger, metrics))
}

func requestTimeout(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// errorEnvelope recovers panics and renders every error as a JSON envelope
// carrying its taxonomy code. Store outages additionally get a Retry-After
// hint so clients back off instead of hammering a dead backend.
func errorEnvelope(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err == nil {
				return
			}

			domainErr := apperrors.ToDomainError(err)
			metrics.RecordError(c.Path(), c.Method(), domainErr.Code)

			if errors.Is(err, domain.ErrIO) {
				c.Set(fiber.HeaderRetryAfter, storageRetryAfter)
			}
			if domainErr.HTTPStatus >= 500 {
				logger.Error("request failed",
					zap.String("code", domainErr.Code),
					zap.String("path", c.Path()),
					zap.Error(domainErr))
			}

			body := fiber.Map{
				"code":    domainErr.Code,
				"message": domainErr.Message,
			}
			if len(domainErr.Details) > 0 {
				body["details"] = domainErr.Details
			}
			c.Status(domainErr.HTTPStatus)
			_ = c.JSON(fiber.Map{"error": body})
			err = nil
		}()
		return c.Next()
	}
}
