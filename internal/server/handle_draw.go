package server

import (
	"log/slog"
	"net/http"

	"github.com/playperu/luckydraw/internal/luckydraw"
)

// DrawRequest is the request body for POST /api/draw. Member may be omitted;
// the session's member is used.
type DrawRequest struct {
	Member string `json:"member,omitempty"`
	BoxID  *int   `json:"boxId" required:"true"`
}

func handleDraw(game *Game, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := playerFrom(r)

		var req DrawRequest
		if err := readJSON(r, &req); err != nil || req.BoxID == nil {
			writeGameError(w, logger, luckydraw.ErrInvalidPayload)
			return
		}
		if req.Member != "" && req.Member != sess.Member {
			writeError(w, http.StatusForbidden, "session does not belong to this member")
			return
		}

		res, err := game.Draw(r.Context(), sess.Member, *req.BoxID)
		if err != nil {
			writeGameError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
