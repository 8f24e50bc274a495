package middleware

import (
	"github.com/ZertGraf/deploy-tracker/internal/api/handler"
	"github.com/ZertGraf/deploy-tracker/internal/pkg/logger"
	"github.com/go-chi/chi/v5/middleware"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"
)

// RequestLogger writes one record per request, at warn for 5xx and debug otherwise.
func RequestLogger(logger *logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			level := slog.LevelDebug
			if ww.Status() >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			logger.Log(r.Context(), level, "request served",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}

// NoStore disables caching and MIME sniffing on every response.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Cache-Control", "no-store")
		h.Set("X-Content-Type-Options", "nosniff")
		next.ServeHTTP(w, r)
	})
}

// Recovery answers a panicking handler with the INTERNAL error envelope.
// http.ErrAbortHandler is re-raised so net/http can drop the connection.
func Recovery(logger *logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("handler panicked",
					"request_id", middleware.GetReqID(r.Context()),
					"path", r.URL.Path,
					"panic", rec,
					"stack", string(debug.Stack()),
				)

				handler.WriteJSON(w, http.StatusInternalServerError, handler.ErrorResponse{
					Error: handler.ErrorDetail{
						Code:    handler.CodeInternal,
						Message: "internal server error",
					},
				}, logger)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
