package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/mcdev12/gavel/go/internal/draft/gateway"
)

func setupServer(cfg *Config, services *Services, wsHandler *gateway.WebSocketHandler) *http.Server {
	mux := http.NewServeMux()
	handlers := NewHandlers(services)

	registerRoutes(mux, cfg, services, handlers)
	wsHandler.RegisterRoutes(mux)
	setupHealthCheck(mux)

	handler := gateway.CORSMiddleware(cfg.CORS.AllowedOrigins)(mux)

	return &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: handler,
	}
}

func registerRoutes(mux *http.ServeMux, cfg *Config, services *Services, h *Handlers) {
	mux.HandleFunc("POST /auth/token", h.IssueToken)

	authed := services.Auth.Middleware

	// League lifecycle
	mux.Handle("POST /leagues", authed(http.HandlerFunc(h.CreateLeague)))
	mux.Handle("GET /leagues/{leagueID}", authed(http.HandlerFunc(h.GetLeague)))
	mux.Handle("POST /leagues/join", authed(http.HandlerFunc(h.JoinLeague)))
	mux.Handle("PUT /leagues/{leagueID}/settings", authed(http.HandlerFunc(h.UpdateSettings)))
	mux.Handle("POST /leagues/{leagueID}/players", authed(http.HandlerFunc(h.AddPlayer)))
	mux.Handle("POST /leagues/{leagueID}/bots", authed(http.HandlerFunc(h.AddBotTeam)))
	mux.Handle("POST /leagues/{leagueID}/start", authed(http.HandlerFunc(h.StartAuction)))

	// Picks
	mux.Handle("POST /rounds/{roundID}/selections", authed(http.HandlerFunc(h.SubmitSelection)))
	mux.Handle("DELETE /rounds/{roundID}/selections/{teamID}", authed(http.HandlerFunc(h.CancelSelection)))

	// Read-only projections
	mux.Handle("GET /leagues/{leagueID}/current-round", authed(http.HandlerFunc(h.CurrentRound)))
	mux.Handle("GET /leagues/{leagueID}/teams/stats", authed(http.HandlerFunc(h.TeamStats)))
	mux.Handle("GET /leagues/{leagueID}/bots/status", authed(http.HandlerFunc(h.BotStatuses)))

	// Admin overrides
	mux.Handle("POST /admin/rounds/{roundID}/force", authed(http.HandlerFunc(h.AdminForceResolution)))
	mux.Handle("DELETE /admin/rounds/{roundID}/selections/{teamID}", authed(http.HandlerFunc(h.AdminCancelSelection)))
	mux.Handle("POST /admin/rounds/{roundID}/selections", authed(http.HandlerFunc(h.AdminSelect)))
	mux.Handle("POST /admin/rounds/{roundID}/reset", authed(http.HandlerFunc(h.AdminResetRound)))
	mux.Handle("POST /admin/leagues/{leagueID}/reset", authed(http.HandlerFunc(h.AdminResetAuction)))
	mux.Handle("POST /admin/leagues/{leagueID}/end", authed(http.HandlerFunc(h.AdminEndAuction)))
	mux.Handle("POST /admin/players/{playerID}/unassign", authed(http.HandlerFunc(h.AdminUnassignPlayer)))
	mux.Handle("GET /admin/leagues/{leagueID}/actions", authed(http.HandlerFunc(h.AdminActions)))
}

func setupHealthCheck(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Printf("Failed to write health check response: %v", err)
		}
	})
}
