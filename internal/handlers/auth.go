package handlers

import (
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"
)

// sessionName is the cookie holding the engine session token.
const sessionName = "ufund-session"

// sessionToken extracts the engine session token from the request's cookie
// session. Empty when the visitor has never logged in.
func sessionToken(ss *sessions.CookieStore, r *http.Request) string {
	session, _ := ss.Get(r, sessionName)
	token, _ := session.Values["token"].(string)
	return token
}

// CSRFToken hands the UI a token for subsequent mutating requests. The CSRF
// middleware double-submits via the X-CSRF-Token header.
func CSRFToken(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"csrf_token": csrf.Token(r)})
}
