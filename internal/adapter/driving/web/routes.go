package web

import (
	"io/fs"
	"net/http"
)

// RegisterRoutes registers all web GUI routes on the provided mux.
// Static assets are served from the embedded filesystem at /static/*.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	// Static assets (embedded via go:embed).
	staticFS, _ := fs.Sub(StaticFS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticFS)))

	// Page routes.
	mux.HandleFunc("GET /{$}", h.Home)
	mux.HandleFunc("GET /login/{$}", h.LoginPage)
	mux.HandleFunc("POST /login/{$}", h.Login)
	mux.HandleFunc("POST /logout/{$}", h.Logout)
	mux.HandleFunc("GET /account/preferences/{$}", h.Account)
	mux.HandleFunc("POST /account/preferences/{$}", h.SubmitAccount)

	// Review requests and search exist on the global site and on every local site.
	mux.HandleFunc("GET /r/{id}/{$}", h.ReviewRequest)
	mux.HandleFunc("GET /s/{site}/r/{id}/{$}", h.ReviewRequest)
	mux.HandleFunc("GET /search/{$}", h.Search)
	mux.HandleFunc("GET /s/{site}/search/{$}", h.Search)
}
