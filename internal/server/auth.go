package server

import (
	"errors"
	"net/http"
	"strings"
)

var errNoSession = errors.New("no valid session")

// playerFromRequest resolves the bearer token to a player session.
func playerFromRequest(r *http.Request, sessions SessionStore) (authSession, error) {
	auth := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(auth, "Bearer ")
	if !found || token == "" {
		return authSession{}, errNoSession
	}
	sess, err := sessions.SessionFromToken(r.Context(), token)
	if err != nil {
		return authSession{}, err
	}
	if sess.Role != rolePlayer {
		return authSession{}, errNoSession
	}
	return sess, nil
}

func bearerToken(r *http.Request) string {
	token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return token
}
