package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/gavel/go/internal/dbconfig"
)

// PoolPlayer mirrors the JSON snapshot layout
type PoolPlayer struct {
	ID       *uuid.UUID `json:"id"`
	FullName string     `json:"full_name"`
	Position string     `json:"position"`
	Price    int        `json:"price"`
}

func main() {
	ctx := context.Background()

	leagueID, err := uuid.Parse(os.Getenv("LEAGUE_ID"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "LEAGUE_ID env var must be a league UUID: %v\n", err)
		os.Exit(1)
	}

	path := os.Getenv("POOL_FILE")
	if path == "" {
		path = "go/internal/assets/pool.json"
	}

	// 1) Load the pool snapshot
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", path, err)
		os.Exit(1)
	}
	var players []PoolPlayer
	if err := json.Unmarshal(data, &players); err != nil {
		fmt.Fprintf(os.Stderr, "unmarshal players: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect using shared dbconfig
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect error: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 3) Upsert and count
	total, inserted, skipped, errs := len(players), 0, 0, 0
	for _, p := range players {
		id := uuid.New()
		if p.ID != nil {
			id = *p.ID
		}
		tag, err := pool.Exec(ctx, `
            INSERT INTO players (
              id, league_id, full_name, position, price
            ) VALUES ($1,$2,$3,$4,$5)
            ON CONFLICT (id) DO NOTHING
        `, id, leagueID, p.FullName, p.Position, p.Price)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error inserting player %s: %v\n", p.FullName, err)
			errs++
			continue
		}
		if tag.RowsAffected() == 1 {
			inserted++
		} else {
			skipped++
		}
	}

	fmt.Printf(
		"Pool seed complete: %d total, %d inserted, %d skipped, %d errors\n",
		total, inserted, skipped, errs,
	)
}
