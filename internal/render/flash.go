package render

import (
	"net/http"
	"net/url"
	"strings"
)

const flashCookie = "folio_flash"

// SetFlash queues a message for the next rendered page, typically right
// before a redirect.
func SetFlash(w http.ResponseWriter, kind, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(kind + ":" + message),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// HasFlash reports whether a flash message is waiting for r.
func HasFlash(r *http.Request) bool {
	c, err := r.Cookie(flashCookie)
	return err == nil && c.Value != ""
}

// popFlash reads and clears the pending flash message.
func popFlash(w http.ResponseWriter, r *http.Request) []Flash {
	c, err := r.Cookie(flashCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Path: "/", MaxAge: -1})

	raw, err := url.QueryUnescape(c.Value)
	if err != nil {
		return nil
	}
	kind, msg, ok := strings.Cut(raw, ":")
	if !ok || msg == "" {
		return nil
	}
	return []Flash{{Type: kind, Message: msg}}
}
