package handlers

import (
	"net/http"

	"github.com/google/uuid"
)

const clientIDCookieName = "client-id"

// getClientID returns a stable identifier for the client using a cookie.
// If the cookie is missing, it generates a new one and sets it.
func getClientID(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(clientIDCookieName)
	if err == nil && cookie.Value != "" {
		return cookie.Value
	}

	identifier := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     clientIDCookieName,
		Value:    identifier,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return identifier
}
