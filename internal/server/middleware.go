package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
)

type ctxKey int

const (
	ctxKeyPlayer ctxKey = iota
	ctxKeyAdmin
)

func playerAuthMiddleware(sessions SessionStore, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := playerFromRequest(r, sessions)
			if err != nil {
				writeAuthError(w, logger, err)
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyPlayer, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func adminAuthMiddleware(sessions SessionStore, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := adminFromRequest(r, sessions)
			if err != nil {
				writeAuthError(w, logger, err)
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyAdmin, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func playerFrom(r *http.Request) authSession {
	return r.Context().Value(ctxKeyPlayer).(authSession)
}

// writeAuthError answers 401 for a missing or unknown session and the
// store-unavailable 503 when the lookup itself failed.
func writeAuthError(w http.ResponseWriter, logger *slog.Logger, err error) {
	if errors.Is(err, errNoSession) {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	writeGameError(w, logger, err)
}
