package web

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	httphandler "github.com/ericfisherdev/reviewdesk/internal/adapter/driving/http"
)

const (
	csrfFormField  = "csrf_token"
	csrfTokenBytes = 32
)

// csrfToken ensures a CSRF token cookie is set on the response and returns
// the token. If the request already carries one it is reused. The cookie is
// readable by common.js, which echoes it in the X-CSRF-Token header on API
// writes.
func (h *Handler) csrfToken(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(httphandler.CSRFCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	token := generateToken()
	http.SetCookie(w, &http.Cookie{
		Name:     httphandler.CSRFCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: false,
		SameSite: http.SameSiteStrictMode,
		Secure:   h.secureCookies,
	})
	return token
}

// validateCSRF checks that the CSRF token (from header or form field) matches
// the cookie. Returns true if the tokens match and are non-empty.
func validateCSRF(r *http.Request) bool {
	cookie, err := r.Cookie(httphandler.CSRFCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}

	// Check header first (scripts send it there), then fall back to form field.
	token := r.Header.Get(httphandler.CSRFHeader)
	if token == "" {
		token = r.FormValue(csrfFormField)
	}

	return token != "" && token == cookie.Value
}

func generateToken() string {
	b := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(b); err != nil {
		panic("csrf: failed to generate random token: " + err.Error())
	}
	return hex.EncodeToString(b)
}
