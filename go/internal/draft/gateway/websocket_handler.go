package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/mcdev12/gavel/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Authenticator resolves the caller from the upgrade request.
type Authenticator interface {
	FromRequest(r *http.Request) (uuid.UUID, error)
}

// TeamsApp defines what the handler needs from the teams application
type TeamsApp interface {
	GetTeamsByLeague(ctx context.Context, leagueID uuid.UUID) ([]models.Team, error)
}

// WebSocketHandler handles WebSocket upgrade requests for auction connections
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	auth              Authenticator
	teams             TeamsApp
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(cm *ConnectionManager, auth Authenticator, teams TeamsApp) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		auth:              auth,
		teams:             teams,
	}
}

// HandleAuctionConnection upgrades a participant onto their league's event
// feed. The caller is authenticated and bound to the team they own, so the
// full-detail pick events never leak to other participants.
func (h *WebSocketHandler) HandleAuctionConnection(w http.ResponseWriter, r *http.Request) {
	leagueIDStr := r.URL.Query().Get("league_id")
	if leagueIDStr == "" {
		http.Error(w, "league_id is required", http.StatusBadRequest)
		return
	}
	leagueID, err := uuid.Parse(leagueIDStr)
	if err != nil {
		http.Error(w, "invalid league_id format", http.StatusBadRequest)
		return
	}

	userID, err := h.auth.FromRequest(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	// Resolve the user's team; admins and spectators connect without one
	// and only receive the league topic.
	teamID := uuid.Nil
	teamList, err := h.teams.GetTeamsByLeague(r.Context(), leagueID)
	if err != nil {
		http.Error(w, "failed to load league", http.StatusInternalServerError)
		return
	}
	for _, t := range teamList {
		if t.OwnerID == userID {
			teamID = t.ID
			break
		}
	}

	if err := h.connectionManager.UpgradeConnection(w, r, userID, leagueID, teamID); err != nil {
		log.Error().
			Err(err).
			Str("league_id", leagueID.String()).
			Str("user_id", userID.String()).
			Msg("failed to upgrade WebSocket connection")
		return
	}
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	total, leagues := h.connectionManager.ConnectionStats()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"total_connections": total,
		"active_leagues":    len(leagues),
		"league_counts":     leagues,
	})
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/auction", h.HandleAuctionConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}
