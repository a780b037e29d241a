package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/gavel/go/internal/dbconfig"
	"github.com/mcdev12/gavel/go/internal/leagues"
	"github.com/mcdev12/gavel/go/internal/models"
	"github.com/mcdev12/gavel/go/internal/teams"
)

// Creates a demo league with one human team per OWNER_IDS entry and
// BOT_COUNT bot teams, ready for seed_pool and a start call.
func main() {
	ctx := context.Background()

	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect error: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	teamRepo := teams.NewRepository(pool)
	teamsApp := teams.NewApp(teamRepo)
	leaguesApp := leagues.NewApp(leagues.NewRepository(pool), teamsApp)

	adminID := uuid.New()
	if raw := os.Getenv("ADMIN_ID"); raw != "" {
		adminID, err = uuid.Parse(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ADMIN_ID must be a UUID: %v\n", err)
			os.Exit(1)
		}
	}

	budget := envInt("BUDGET_PER_TEAM", 500)
	timeout := envInt("TIMEOUT_SECONDS", 60)
	botCount := envInt("BOT_COUNT", 2)

	league, err := leaguesApp.CreateLeague(ctx, leagues.CreateLeagueRequest{
		ID:      uuid.New(),
		Name:    getEnv("LEAGUE_NAME", "Demo League"),
		AdminID: adminID,
		Settings: models.LeagueSettings{
			BudgetPerTeam:       budget,
			TimeoutSeconds:      timeout,
			AutoSelectOnTimeout: true,
			PauseOnDisconnect:   true,
			TargetComposition: map[models.Position]int{
				models.PositionGoalkeeper: 1,
				models.PositionDefender:   4,
				models.PositionMidfielder: 4,
				models.PositionForward:    2,
			},
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "create league: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("League %s created: id=%s join_code=%s admin=%s\n",
		league.Name, league.ID, league.JoinCode, adminID)

	// Human team for the admin
	team, err := teamsApp.CreateTeam(ctx, league.ID, adminID, "Admin FC", budget, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create admin team: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Team %s created: id=%s\n", team.Name, team.ID)

	for i := 1; i <= botCount; i++ {
		bot, err := teamsApp.CreateTeam(ctx, league.ID, adminID, fmt.Sprintf("Bot %d", i), budget, true)
		if err != nil {
			fmt.Fprintf(os.Stderr, "create bot team: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Bot team %s created: id=%s\n", bot.Name, bot.ID)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envInt(key string, defaultValue int) int {
	if raw := os.Getenv(key); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	}
	return defaultValue
}
