package server

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/playperu/luckydraw/internal/luckydraw"
)

// AdminStatsResponse is the response for GET /api/admin/stats. Log is newest
// first.
type AdminStatsResponse struct {
	Stats   luckydraw.Stats          `json:"stats"`
	Results map[string]*int64        `json:"results"`
	Log     []luckydraw.DrawLogEntry `json:"log"`
}

// ResetRequest is the request body for POST /api/admin/reset.
type ResetRequest struct {
	PIN          string `json:"pin"`
	Confirmation string `json:"confirmation"`
}

const exportFilename = "lucky-draw-results.csv"

func handleAdminStats(game *Game, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := game.State(r.Context())
		if err != nil {
			writeGameError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, AdminStatsResponse{
			Stats:   game.Rules().Stats(s),
			Results: s.MemberResults,
			Log:     luckydraw.Newest(s.DrawLogs),
		})
	}
}

func handleAdminExport(game *Game, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := game.State(r.Context())
		if err != nil {
			writeGameError(w, logger, err)
			return
		}

		var buf bytes.Buffer
		if err := luckydraw.WriteCSV(&buf, s.DrawLogs); err != nil {
			logger.Error("writing export", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+exportFilename+`"`)
		w.WriteHeader(http.StatusOK)
		w.Write(buf.Bytes())
	}
}

func handleAdminReset(game *Game, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ResetRequest
		if err := readJSON(r, &req); err != nil {
			writeGameError(w, logger, luckydraw.ErrInvalidPayload)
			return
		}

		s, err := game.Reset(r.Context(), req.PIN, req.Confirmation)
		if err != nil {
			writeGameError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}
