// Package session pins an anonymous browser to a stable chat identity
// via a cookie.
package session

import (
	"net/http"

	"github.com/google/uuid"
)

const cookieName = "uid"

// EnsureID returns the caller's session ID, minting and setting the
// cookie on first contact.
func EnsureID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}
