// Package middleware provides request scoped fiber middleware: context
// propagation, structured logging, tracing, metrics and rate limiting.
package middleware

import (
	"context"
	"errors"
	"time"

	"poetportal/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// ContextMiddleware copies the request id, user id and trace id from fiber
// locals into the user context so observability.Ctx can find them.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.SetUserContext(withLocals(c))
		return c.Next()
	}
}

func withLocals(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
		ctx = context.WithValue(ctx, observability.RequestIDKey, rid)
	}
	if uid, ok := c.Locals("userID").(uint); ok && uid != 0 {
		ctx = context.WithValue(ctx, observability.UserIDKey, uid)
	}
	if tid, ok := c.Locals("traceID").(string); ok && tid != "" {
		ctx = context.WithValue(ctx, observability.TraceIDKey, tid)
	}
	return ctx
}

// StructuredLogger logs one line per request after the handler chain ran.
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			} else if status < fiber.StatusBadRequest {
				status = fiber.StatusInternalServerError
			}
		}

		// auth may have run after ContextMiddleware
		logger := observability.Ctx(withLocals(c))
		event := logger.Info()
		switch {
		case status >= fiber.StatusInternalServerError:
			event = logger.Error()
		case status >= fiber.StatusBadRequest:
			event = logger.Warn()
		}
		if err != nil {
			event = event.Err(err)
		}
		event.
			Int(observability.FieldStatus, status).
			Str(observability.FieldMethod, c.Method()).
			Str(observability.FieldPath, c.Path()).
			Str(observability.FieldClientIP, c.IP()).
			Int64(observability.FieldLatency, time.Since(start).Milliseconds()).
			Str("user_agent", c.Get(fiber.HeaderUserAgent)).
			Msg("request processed")

		return err
	}
}
