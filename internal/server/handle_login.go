package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/playperu/luckydraw/internal/luckydraw"
)

// LoginRequest is the request body for POST /api/login.
type LoginRequest struct {
	Member   string `json:"member"`
	Password string `json:"password"`
}

// LoginResponse carries the bearer token used for POST /api/draw.
type LoginResponse struct {
	Token  string              `json:"token"`
	Member string              `json:"member"`
	State  luckydraw.GameState `json:"state"`
}

func handleLogin(game *Game, creds *Credentials, sessions SessionStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.Member = strings.TrimSpace(req.Member)
		if req.Member == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "member and password are required")
			return
		}
		if !creds.Member(req.Member, req.Password) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		// Another device may have drawn for this member since the roster was
		// fetched, so decide on fresh state.
		s, err := game.State(r.Context())
		if err != nil {
			writeGameError(w, logger, err)
			return
		}
		if _, drawn := s.Result(req.Member); drawn {
			writeGameError(w, logger, luckydraw.ErrAlreadyDrawn)
			return
		}
		if limit := game.Rules().DrawCap(); limit > 0 && s.DrawCount() >= limit {
			writeGameError(w, logger, luckydraw.ErrCapReached)
			return
		}

		token, err := sessions.CreateSession(r.Context(), rolePlayer, req.Member)
		if err != nil {
			writeGameError(w, logger, err)
			return
		}

		logger.Info("member logged in", "member", req.Member)
		writeJSON(w, http.StatusOK, LoginResponse{
			Token:  token,
			Member: req.Member,
			State:  s.Public(),
		})
	}
}

func handleLogout(sessions SessionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token := bearerToken(r); token != "" {
			sessions.DeleteSession(r.Context(), token)
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
