package web

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/ericfisherdev/reviewdesk/internal/adapter/driving/web/templates"
	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
)

const flashCookieName = "reviewdesk_messages"

// flashMessages collects one-time messages during a request. They are
// carried to the next page in a cookie.
type flashMessages struct {
	messages []templates.Message
}

// AddMessage implements accounts.MessageSink.
func (f *flashMessages) AddMessage(level model.MessageLevel, text string) {
	f.messages = append(f.messages, templates.Message{Level: level, Text: text})
}

// save stores pending messages for the next request. A no-op when empty.
func (f *flashMessages) save(w http.ResponseWriter, secure bool) {
	if len(f.messages) == 0 {
		return
	}

	data, err := json.Marshal(f.messages)
	if err != nil {
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	})
}

// popFlash returns the messages stored by a previous request and clears the
// cookie. Malformed cookies are dropped.
func popFlash(w http.ResponseWriter, r *http.Request) []templates.Message {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	data, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}

	var messages []templates.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil
	}
	return messages
}
