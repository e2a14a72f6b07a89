package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerAuthRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("POST /login", handler.Login)
	mux.HandleFunc("POST /signup", handler.Signup)
}

func registerProfileRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("PUT /v1/profiles/{userID}/personal", handler.SavePersonal)
	mux.HandleFunc("GET /v1/profiles/{userID}", handler.GetProfile)
	mux.HandleFunc("POST /v1/profiles/{userID}/complete", handler.CompleteOnboarding)
	mux.HandleFunc("GET /v1/home/{userID}", handler.Home)
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/jobs/profile-resync", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunProfileResyncJob)))
}
