package bot

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/mcdev12/gavel/go/internal/apperrors"
	"github.com/mcdev12/gavel/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Strategy chooses a player for a bot-controlled team in the
// round's position. Implementations must never propose a player
// priced above the team's remaining credits.
type Strategy interface {
	Propose(ctx context.Context, team *models.Team, round *models.Round, needs models.TeamNeeds, pool []models.Player) (*models.Player, error)
}

// PlayersApp is what the bot needs from the player service.
type PlayersApp interface {
	ListUnassignedByPosition(ctx context.Context, leagueID uuid.UUID, position models.Position) ([]models.Player, error)
}

// DeficitStrategy picks the cheapest affordable player in the round's
// position, weighted toward teams whose composition deficit in that
// position is largest. The pool arrives sorted by price from the
// repository, so the stable order gives a deterministic fallback.
type DeficitStrategy struct{}

func NewDeficitStrategy() *DeficitStrategy {
	return &DeficitStrategy{}
}

// Propose implements Strategy. Candidates priced above the team's
// remaining credits are never considered.
func (s *DeficitStrategy) Propose(ctx context.Context, team *models.Team, round *models.Round, needs models.TeamNeeds, pool []models.Player) (*models.Player, error) {
	if needs.Needs[round.Position] <= 0 {
		return nil, apperrors.InvalidStatef("team %s has no need in position %s", team.Name, round.Position)
	}

	affordable := make([]*models.Player, 0, len(pool))
	for i := range pool {
		p := &pool[i]
		if p.IsAssigned || p.Price > team.Credits {
			continue
		}
		affordable = append(affordable, p)
	}
	if len(affordable) == 0 {
		return nil, apperrors.NotFoundf("no affordable player in position %s for team %s", round.Position, team.Name)
	}

	// The larger the team's deficit in this position relative to the
	// rest of its roster, the more of the budget it can justify
	// spending here. With a dominant deficit reach for the best player
	// the budget allows; otherwise conserve credits with the cheapest.
	choice := affordable[0]
	if dominantDeficit(needs, round.Position) {
		choice = priciestAffordable(affordable, spendCap(team, needs))
	}

	log.Debug().
		Str("team_id", team.ID.String()).
		Str("player_id", choice.ID.String()).
		Str("position", string(round.Position)).
		Int("price", choice.Price).
		Msg("bot proposed player")

	return choice, nil
}

// dominantDeficit reports whether the round's position is the team's
// single largest outstanding need.
func dominantDeficit(needs models.TeamNeeds, position models.Position) bool {
	target := needs.Needs[position]
	for _, pos := range models.PositionOrder {
		if pos == position {
			continue
		}
		if needs.Needs[pos] >= target {
			return false
		}
	}
	return true
}

// spendCap is the most the team can pay for one slot while keeping a
// single credit in reserve for every other unfilled slot. Prices are
// at least one credit, so spending past the cap would strand a slot.
func spendCap(team *models.Team, needs models.TeamNeeds) int {
	remaining := needs.Total() - 1
	if remaining < 0 {
		remaining = 0
	}
	return team.Credits - remaining
}

// priciestAffordable returns the most expensive player at or under
// cap, falling back to the cheapest when nothing fits. Ties on price
// resolve to the lowest player ID for a stable order.
func priciestAffordable(pool []*models.Player, cap int) *models.Player {
	candidates := make([]*models.Player, 0, len(pool))
	for _, p := range pool {
		if p.Price <= cap {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return pool[0]
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Price != candidates[j].Price {
			return candidates[i].Price > candidates[j].Price
		}
		return candidates[i].ID.String() < candidates[j].ID.String()
	})
	return candidates[0]
}
