package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/playperu/luckydraw/internal/luckydraw"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

var kindStatus = map[luckydraw.Kind]int{
	luckydraw.KindValidation: http.StatusBadRequest,
	luckydraw.KindConflict:   http.StatusConflict,
	luckydraw.KindForbidden:  http.StatusForbidden,
}

// writeGameError maps a Game error to its status. Anything that is not a
// domain rejection is a store failure and is reported as retryable.
func writeGameError(w http.ResponseWriter, logger *slog.Logger, err error) {
	if kind, ok := luckydraw.KindOf(err); ok {
		writeError(w, kindStatus[kind], err.Error())
		return
	}
	if !errors.Is(err, ErrUnavailable) {
		err = unavailable(err)
	}
	logger.Error("state store failed", "error", err)
	writeError(w, http.StatusServiceUnavailable, ErrUnavailable.Error())
}
