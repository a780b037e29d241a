package main

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/gavel/go/internal/auth"
	"github.com/mcdev12/gavel/go/internal/draft/admin"
	"github.com/mcdev12/gavel/go/internal/draft/advancer"
	"github.com/mcdev12/gavel/go/internal/draft/bot"
	"github.com/mcdev12/gavel/go/internal/draft/engine"
	"github.com/mcdev12/gavel/go/internal/draft/orchestrator"
	"github.com/mcdev12/gavel/go/internal/draft/outbox"
	"github.com/mcdev12/gavel/go/internal/draft/query"
	"github.com/mcdev12/gavel/go/internal/draft/resolver"
	"github.com/mcdev12/gavel/go/internal/draft/round"
	"github.com/mcdev12/gavel/go/internal/draft/selection"
	"github.com/mcdev12/gavel/go/internal/leagues"
	"github.com/mcdev12/gavel/go/internal/player"
	"github.com/mcdev12/gavel/go/internal/teams"
)

// Services is the wired application graph.
type Services struct {
	Auth         *auth.Service
	Leagues      *leagues.App
	Teams        *teams.App
	Players      *player.App
	Rounds       *round.App
	Selections   *selection.App
	Engine       *engine.App
	Admin        *admin.App
	Query        *query.App
	Orchestrator *orchestrator.Orchestrator
}

func setupServices(pool *pgxpool.Pool, cfg *Config) *Services {
	clock := clockwork.NewRealClock()

	// Repository layer, all on the shared pgx pool.
	leagueRepo := leagues.NewRepository(pool)
	teamRepo := teams.NewRepository(pool)
	playerRepo := player.NewRepository(pool)
	roundRepo := round.NewRepository(pool)
	selectionRepo := selection.NewRepository(pool)
	outboxRepo := outbox.NewRepository(pool)
	adminRepo := admin.NewRepository(pool)

	// App layer.
	teamsApp := teams.NewApp(teamRepo)
	leaguesApp := leagues.NewApp(leagueRepo, teamsApp)
	playersApp := player.NewApp(playerRepo)
	roundsApp := round.NewApp(roundRepo)
	selectionsApp := selection.NewApp(selectionRepo, roundsApp, teamsApp, playersApp, outboxRepo)

	resolverApp := resolver.NewApp(pool, roundRepo, selectionRepo, playerRepo, teamRepo, outboxRepo)
	advancerApp := advancer.NewApp(teamsApp, playersApp, roundsApp, leaguesApp, outboxRepo, clock)
	botApp := bot.NewApp(teamsApp, selectionsApp, advancerApp, playersApp, bot.NewDeficitStrategy())

	engineApp := engine.NewApp(
		leaguesApp,
		teamsApp,
		playersApp,
		roundsApp,
		selectionsApp,
		resolverApp,
		advancerApp,
		botApp,
		outboxRepo,
		clock,
	)

	adminApp := admin.NewApp(
		adminRepo,
		pool,
		leaguesApp,
		roundsApp,
		selectionsApp,
		playersApp,
		engineApp,
		outboxRepo,
		leagueRepo,
		teamRepo,
		playerRepo,
		roundRepo,
		selectionRepo,
	)

	queryApp := query.NewApp(leaguesApp, teamsApp, roundsApp, selectionsApp, advancerApp)

	orch := orchestrator.NewOrchestrator(
		roundsApp,
		leaguesApp,
		teamsApp,
		engineApp,
		outboxRepo,
		cfg.Scheduler.BatchSize,
	)

	return &Services{
		Auth:         auth.NewService(cfg.Auth.Secret, cfg.Auth.TokenTTL),
		Leagues:      leaguesApp,
		Teams:        teamsApp,
		Players:      playersApp,
		Rounds:       roundsApp,
		Selections:   selectionsApp,
		Engine:       engineApp,
		Admin:        adminApp,
		Query:        queryApp,
		Orchestrator: orch,
	}
}
