package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	applogger "github.com/coffeeshop/account-service/app/logger"
)

// RequestIDTracing creates middleware that propagates the request ID through
// the context and binds it to the request-scoped logger so every downstream
// log line carries it.
func RequestIDTracing() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := middleware.GetReqID(r.Context())
			if requestID == "" {
				requestID = strconv.FormatUint(middleware.NextRequestID(), 10)
			}

			w.Header().Set("X-Request-ID", requestID)

			log := applogger.Logger.With().Str("request_id", requestID).Logger()
			ctx := log.WithContext(r.Context())
			ctx = context.WithValue(ctx, "request_id", requestID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetRequestIDFromContext retrieves the request ID from context.
func GetRequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value("request_id").(string); ok {
		return requestID
	}
	return ""
}

// GetLoggerFromContext retrieves the request-scoped logger, falling back to
// the global logger outside of a request.
func GetLoggerFromContext(ctx context.Context) zerolog.Logger {
	log := zerolog.Ctx(ctx)
	if log.GetLevel() == zerolog.Disabled {
		return applogger.Logger
	}
	return *log
}
