package httpadapter

import (
	"net/http"
	"time"
)

// identityCookie carries the authenticated user id. Set after the
// authority confirms a signature-based login.
const identityCookie = "uid"

const identityCookieTTL = 12 * time.Hour

func setIdentityCookie(w http.ResponseWriter, userID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     identityCookie,
		Value:    userID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(identityCookieTTL),
	})
}

func clearIdentityCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     identityCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// requireUser resolves the caller's identity or writes a 401.
func (rt *Router) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	cookie, err := r.Cookie(identityCookie)
	if err != nil || cookie.Value == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return "", false
	}
	return cookie.Value, true
}
