package main

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/mcdev12/gavel/go/internal/apperrors"
	"github.com/mcdev12/gavel/go/internal/auth"
	"github.com/mcdev12/gavel/go/internal/draft/selection"
	"github.com/mcdev12/gavel/go/internal/leagues"
	"github.com/mcdev12/gavel/go/internal/models"
)

// apiError is the participant-facing error shape: a kind plus, for admin
// surfaces, the human-readable reason. Storage details never leak here.
type apiError struct {
	Kind    string `json:"kind"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			log.Printf("Failed to write response: %v", err)
		}
	}
}

func writeError(w http.ResponseWriter, err error) {
	kind := apperrors.Kind(err)
	status := http.StatusInternalServerError
	body := apiError{Kind: kind}

	switch kind {
	case "validation":
		status = http.StatusBadRequest
	case "invalid_state":
		status = http.StatusUnprocessableEntity
	case "conflict", "insufficient_credit":
		status = http.StatusConflict
	case "not_found":
		status = http.StatusNotFound
	case "forbidden":
		status = http.StatusForbidden
	}
	if kind != "internal" && kind != "forbidden" {
		body.Message = err.Error()
	}
	if kind == "internal" {
		log.Printf("internal error: %v", err)
	}
	writeJSON(w, status, body)
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.Validationf("malformed request body")
	}
	return nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, apperrors.Validationf("invalid %s", name)
	}
	return id, nil
}

func callerID(r *http.Request) (uuid.UUID, error) {
	id, ok := auth.UserID(r.Context())
	if !ok {
		return uuid.Nil, apperrors.Forbiddenf("no authenticated user")
	}
	return id, nil
}

// Handlers binds the application graph to the HTTP surface.
type Handlers struct {
	services *Services
}

func NewHandlers(services *Services) *Handlers {
	return &Handlers{services: services}
}

// IssueToken exchanges a user ID for a signed token. There is no user store;
// identity is whatever UUID the client presents, which is enough for
// development and for trusted frontends that manage users themselves.
func (h *Handlers) IssueToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID uuid.UUID `json:"user_id"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if body.UserID == uuid.Nil {
		writeError(w, apperrors.Validationf("user_id is required"))
		return
	}

	token, err := h.services.Auth.GenerateToken(body.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// --- league lifecycle ---

func (h *Handlers) CreateLeague(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var body struct {
		Name     string                `json:"name"`
		Settings models.LeagueSettings `json:"settings"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}

	league, err := h.services.Leagues.CreateLeague(r.Context(), leagues.CreateLeagueRequest{
		ID:       uuid.New(),
		Name:     body.Name,
		AdminID:  caller,
		Settings: body.Settings,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, league)
}

func (h *Handlers) GetLeague(w http.ResponseWriter, r *http.Request) {
	leagueID, err := pathUUID(r, "leagueID")
	if err != nil {
		writeError(w, err)
		return
	}
	league, err := h.services.Leagues.GetLeague(r.Context(), leagueID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, league)
}

func (h *Handlers) JoinLeague(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var body struct {
		JoinCode string `json:"join_code"`
		TeamName string `json:"team_name"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}

	team, err := h.services.Leagues.JoinLeague(r.Context(), leagues.JoinLeagueRequest{
		JoinCode: body.JoinCode,
		UserID:   caller,
		TeamName: body.TeamName,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, team)
}

func (h *Handlers) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	leagueID, err := pathUUID(r, "leagueID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.requireAdmin(r, leagueID); err != nil {
		writeError(w, err)
		return
	}

	var settings models.LeagueSettings
	if err := decodeBody(r, &settings); err != nil {
		writeError(w, err)
		return
	}

	league, err := h.services.Leagues.UpdateLeagueSettings(r.Context(), leagueID, settings)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, league)
}

func (h *Handlers) AddPlayer(w http.ResponseWriter, r *http.Request) {
	leagueID, err := pathUUID(r, "leagueID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.requireAdmin(r, leagueID); err != nil {
		writeError(w, err)
		return
	}

	var body struct {
		FullName string          `json:"full_name"`
		Position models.Position `json:"position"`
		Price    int             `json:"price"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}

	player, err := h.services.Players.AddPlayer(r.Context(), leagueID, body.FullName, body.Position, body.Price)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, player)
}

func (h *Handlers) AddBotTeam(w http.ResponseWriter, r *http.Request) {
	leagueID, err := pathUUID(r, "leagueID")
	if err != nil {
		writeError(w, err)
		return
	}
	caller, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	league, err := h.services.Leagues.GetLeague(r.Context(), leagueID)
	if err != nil {
		writeError(w, err)
		return
	}
	if league.AdminID != caller {
		writeError(w, apperrors.Forbiddenf("only the league admin can add bot teams"))
		return
	}
	if league.Status != models.LeagueStatusSetup {
		writeError(w, apperrors.InvalidStatef("bot teams can only be added during setup"))
		return
	}

	var body struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}

	team, err := h.services.Teams.CreateTeam(r.Context(), leagueID, caller, body.Name, league.Settings.BudgetPerTeam, true)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, team)
}

func (h *Handlers) StartAuction(w http.ResponseWriter, r *http.Request) {
	leagueID, err := pathUUID(r, "leagueID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.requireAdmin(r, leagueID); err != nil {
		writeError(w, err)
		return
	}

	round, err := h.services.Engine.StartAuction(r.Context(), leagueID)
	if err != nil {
		writeError(w, err)
		return
	}
	h.services.Orchestrator.Wake()
	writeJSON(w, http.StatusOK, round)
}

// --- picks ---

func (h *Handlers) SubmitSelection(w http.ResponseWriter, r *http.Request) {
	roundID, err := pathUUID(r, "roundID")
	if err != nil {
		writeError(w, err)
		return
	}
	caller, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var body struct {
		TeamID   uuid.UUID `json:"team_id"`
		PlayerID uuid.UUID `json:"player_id"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}

	team, err := h.services.Teams.GetTeam(r.Context(), body.TeamID)
	if err != nil {
		writeError(w, err)
		return
	}
	if team.OwnerID != caller {
		writeError(w, apperrors.Forbiddenf("cannot pick for another user's team"))
		return
	}

	sel, err := h.services.Engine.Submit(r.Context(), selection.SubmitRequest{
		RoundID:  roundID,
		TeamID:   body.TeamID,
		UserID:   caller,
		PlayerID: body.PlayerID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	h.services.Orchestrator.Wake()
	writeJSON(w, http.StatusCreated, sel)
}

func (h *Handlers) CancelSelection(w http.ResponseWriter, r *http.Request) {
	roundID, err := pathUUID(r, "roundID")
	if err != nil {
		writeError(w, err)
		return
	}
	teamID, err := pathUUID(r, "teamID")
	if err != nil {
		writeError(w, err)
		return
	}
	caller, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	team, err := h.services.Teams.GetTeam(r.Context(), teamID)
	if err != nil {
		writeError(w, err)
		return
	}
	if team.OwnerID != caller {
		writeError(w, apperrors.Forbiddenf("cannot cancel another user's pick"))
		return
	}

	if err := h.services.Selections.Cancel(r.Context(), roundID, teamID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// --- read-only projections ---

func (h *Handlers) CurrentRound(w http.ResponseWriter, r *http.Request) {
	leagueID, err := pathUUID(r, "leagueID")
	if err != nil {
		writeError(w, err)
		return
	}
	view, err := h.services.Query.CurrentRound(r.Context(), leagueID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handlers) TeamStats(w http.ResponseWriter, r *http.Request) {
	leagueID, err := pathUUID(r, "leagueID")
	if err != nil {
		writeError(w, err)
		return
	}
	stats, err := h.services.Query.TeamStats(r.Context(), leagueID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handlers) BotStatuses(w http.ResponseWriter, r *http.Request) {
	leagueID, err := pathUUID(r, "leagueID")
	if err != nil {
		writeError(w, err)
		return
	}
	bots, err := h.services.Query.BotStatuses(r.Context(), leagueID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bots)
}

// --- admin overrides ---

type adminBody struct {
	Reason string `json:"reason"`
}

func (h *Handlers) AdminForceResolution(w http.ResponseWriter, r *http.Request) {
	roundID, err := pathUUID(r, "roundID")
	if err != nil {
		writeError(w, err)
		return
	}
	caller, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body adminBody
	_ = decodeBody(r, &body)

	if err := h.services.Admin.ForceResolution(r.Context(), caller, roundID, body.Reason); err != nil {
		writeError(w, err)
		return
	}
	h.services.Orchestrator.Wake()
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handlers) AdminCancelSelection(w http.ResponseWriter, r *http.Request) {
	roundID, err := pathUUID(r, "roundID")
	if err != nil {
		writeError(w, err)
		return
	}
	teamID, err := pathUUID(r, "teamID")
	if err != nil {
		writeError(w, err)
		return
	}
	caller, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body adminBody
	_ = decodeBody(r, &body)

	if err := h.services.Admin.CancelSelection(r.Context(), caller, roundID, teamID, body.Reason); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handlers) AdminSelect(w http.ResponseWriter, r *http.Request) {
	roundID, err := pathUUID(r, "roundID")
	if err != nil {
		writeError(w, err)
		return
	}
	caller, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var body struct {
		TeamID   uuid.UUID `json:"team_id"`
		PlayerID uuid.UUID `json:"player_id"`
		Reason   string    `json:"reason"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}

	sel, err := h.services.Admin.AdminSelect(r.Context(), selection.AdminSelectRequest{
		RoundID:  roundID,
		TeamID:   body.TeamID,
		PlayerID: body.PlayerID,
		AdminID:  caller,
		Reason:   body.Reason,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	h.services.Orchestrator.Wake()
	writeJSON(w, http.StatusCreated, sel)
}

func (h *Handlers) AdminResetRound(w http.ResponseWriter, r *http.Request) {
	roundID, err := pathUUID(r, "roundID")
	if err != nil {
		writeError(w, err)
		return
	}
	caller, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body adminBody
	_ = decodeBody(r, &body)

	if err := h.services.Admin.ResetRound(r.Context(), caller, roundID, body.Reason); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handlers) AdminResetAuction(w http.ResponseWriter, r *http.Request) {
	leagueID, err := pathUUID(r, "leagueID")
	if err != nil {
		writeError(w, err)
		return
	}
	caller, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body adminBody
	_ = decodeBody(r, &body)

	if err := h.services.Admin.ResetAuction(r.Context(), caller, leagueID, body.Reason); err != nil {
		writeError(w, err)
		return
	}
	h.services.Orchestrator.Wake()
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handlers) AdminEndAuction(w http.ResponseWriter, r *http.Request) {
	leagueID, err := pathUUID(r, "leagueID")
	if err != nil {
		writeError(w, err)
		return
	}
	caller, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body adminBody
	_ = decodeBody(r, &body)

	if err := h.services.Admin.EndAuction(r.Context(), caller, leagueID, body.Reason); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handlers) AdminUnassignPlayer(w http.ResponseWriter, r *http.Request) {
	playerID, err := pathUUID(r, "playerID")
	if err != nil {
		writeError(w, err)
		return
	}
	caller, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body adminBody
	_ = decodeBody(r, &body)

	if err := h.services.Admin.UnassignPlayer(r.Context(), caller, playerID, body.Reason); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handlers) AdminActions(w http.ResponseWriter, r *http.Request) {
	leagueID, err := pathUUID(r, "leagueID")
	if err != nil {
		writeError(w, err)
		return
	}
	caller, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	limit := getQueryInt(r, "limit", 50)
	offset := getQueryInt(r, "offset", 0)
	actions, err := h.services.Admin.ListActions(r.Context(), caller, leagueID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, actions)
}

func (h *Handlers) requireAdmin(r *http.Request, leagueID uuid.UUID) error {
	caller, err := callerID(r)
	if err != nil {
		return err
	}
	league, err := h.services.Leagues.GetLeague(r.Context(), leagueID)
	if err != nil {
		return err
	}
	if league.AdminID != caller {
		return apperrors.Forbiddenf("user %s is not the admin of league %s", caller, leagueID)
	}
	return nil
}

func getQueryInt(r *http.Request, name string, fallback int) int {
	if raw := r.URL.Query().Get(name); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	}
	return fallback
}
