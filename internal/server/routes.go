package server

import (
	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, d Deps) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Lucky Draw API", "/openapi.json", "/docs"))
	if d.Health != nil {
		r.Mount("/healthz", d.Health)
	}
	r.Get("/qr.png", handleQR(d.BaseURL))

	// Public, read-only.
	r.Get("/api/config", handleConfig(d.Game, d.PollInterval))
	r.Get("/api/state", handleState(d.Game, d.Logger))
	r.Get("/api/events", handleEvents(d.Game, d.Broker, d.Logger))
	r.Get("/api/ws", handleWS(d.Game, d.Broker, d.Logger))

	// Players.
	r.Post("/api/login", handleLogin(d.Game, d.Credentials, d.Sessions, d.Logger))
	r.Post("/api/logout", handleLogout(d.Sessions))
	r.With(playerAuthMiddleware(d.Sessions, d.Logger)).Post("/api/draw", handleDraw(d.Game, d.Logger))

	// Admin.
	r.Route("/api/admin", func(r chi.Router) {
		r.Post("/login", handleAdminLogin(d.Credentials, d.Sessions, d.Logger))
		r.Post("/logout", handleAdminLogout(d.Sessions))

		r.Group(func(r chi.Router) {
			r.Use(adminAuthMiddleware(d.Sessions, d.Logger))
			r.Get("/me", handleAdminMe())
			r.Get("/stats", handleAdminStats(d.Game, d.Logger))
			r.Get("/export.csv", handleAdminExport(d.Game, d.Logger))
			r.Post("/reset", handleAdminReset(d.Game, d.Logger))
		})
	})

	if d.Static != nil {
		r.NotFound(handleSPA(d.Static))
	}
}
