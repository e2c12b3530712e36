package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/playperu/luckydraw/internal/luckydraw"
)

// ConfigResponse is the response for GET /api/config.
type ConfigResponse struct {
	Members        []string         `json:"members"`
	TotalBoxes     int              `json:"totalBoxes"`
	MaxDraws       int              `json:"maxDraws"`
	Policy         luckydraw.Policy `json:"policy"`
	PollIntervalMs int64            `json:"pollIntervalMs"`
	ConfirmWord    string           `json:"confirmWord"`
}

func handleConfig(game *Game, poll time.Duration) http.HandlerFunc {
	rules := game.Rules()
	resp := ConfigResponse{
		Members:        rules.Members.Names(),
		TotalBoxes:     rules.TotalBoxes,
		MaxDraws:       rules.DrawCap(),
		Policy:         rules.Policy,
		PollIntervalMs: poll.Milliseconds(),
		ConfirmWord:    luckydraw.ConfirmWord,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleState(game *Game, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := game.State(r.Context())
		if err != nil {
			writeGameError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, s.Public())
	}
}
