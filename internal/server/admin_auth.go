package server

import (
	"net/http"
)

const adminCookieName = "admin_session"

// adminFromRequest reads the admin_session cookie and looks up the admin session.
func adminFromRequest(r *http.Request, sessions SessionStore) (authSession, error) {
	cookie, err := r.Cookie(adminCookieName)
	if err != nil || cookie.Value == "" {
		return authSession{}, errNoSession
	}
	sess, err := sessions.SessionFromToken(r.Context(), cookie.Value)
	if err != nil {
		return authSession{}, err
	}
	if sess.Role != roleAdmin {
		return authSession{}, errNoSession
	}
	return sess, nil
}
