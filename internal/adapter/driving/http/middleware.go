package httphandler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ericfisherdev/reviewdesk/internal/application"
)

const (
	// SessionCookieName is the cookie carrying the session token for browser
	// requests. API clients may send the same token as a bearer token instead.
	SessionCookieName = "reviewdesk_session"

	// CSRFCookieName and CSRFHeader carry the double-submit token that
	// cookie-authenticated API writes must present.
	CSRFCookieName = "csrf_token"
	CSRFHeader     = "X-CSRF-Token"
)

// statusWriter wraps http.ResponseWriter to capture the response status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

// WriteHeader captures the status code and delegates to the embedded writer.
func (sw *statusWriter) WriteHeader(status int) {
	sw.status = status
	sw.ResponseWriter.WriteHeader(status)
}

// ApplyMiddleware wraps the handler with recovery and request logging.
func ApplyMiddleware(next http.Handler, logger *slog.Logger) http.Handler {
	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, next)
	return loggingMiddleware(logger, wrapped)
}

// loggingMiddleware logs each HTTP request with method, path, status, and duration.
func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start).Round(time.Microsecond),
		}
		if user := application.UserFromContext(r.Context()); user != nil {
			attrs = append(attrs, "user", user.Username)
		}
		logger.Info("http request", attrs...)
	})
}

// recoveryMiddleware recovers from panics in HTTP handlers, logs the error,
// and returns a 500 response.
func recoveryMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				logger.Error("panic recovered",
					"panic", v,
					"path", r.URL.Path,
				)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// SessionMiddleware resolves the session token of each request and stores
// the logged-in user in the request context. Requests without a live
// session continue anonymously, as do cookie-authenticated API writes that
// lack a matching CSRF header.
func SessionMiddleware(sessions *application.SessionService, logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, fromCookie := sessionToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		if fromCookie && isAPIWrite(r) && !hasCSRFHeader(r) {
			logger.Warn("cookie session ignored without CSRF header", "method", r.Method, "path", r.URL.Path)
			next.ServeHTTP(w, r)
			return
		}

		user, err := sessions.UserForToken(r.Context(), token)
		if err != nil {
			logger.Error("failed to resolve session", "path", r.URL.Path, "error", err)
			next.ServeHTTP(w, r)
			return
		}
		if user != nil {
			r = r.WithContext(application.WithUser(r.Context(), user))
		}

		next.ServeHTTP(w, r)
	})
}

// SessionToken returns the session token from the Authorization header or
// the session cookie, or "" when the request carries none.
func SessionToken(r *http.Request) string {
	token, _ := sessionToken(r)
	return token
}

func sessionToken(r *http.Request) (token string, fromCookie bool) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token), false
		}
	}

	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return "", false
	}
	return cookie.Value, true
}

func isAPIWrite(r *http.Request) bool {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}

func hasCSRFHeader(r *http.Request) bool {
	cookie, err := r.Cookie(CSRFCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}
	return r.Header.Get(CSRFHeader) == cookie.Value
}
