package gateway

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func testConnection(cm *ConnectionManager, leagueID, teamID uuid.UUID) *Connection {
	return &Connection{
		ID:          uuid.New().String(),
		UserID:      uuid.New(),
		LeagueID:    leagueID,
		TeamID:      teamID,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
	}
}

// drain consumes the connection's Send channel until it is closed, the way
// the write pump does.
func drain(conn *Connection, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range conn.Send {
		}
	}()
}

func TestBroadcastAfterDisconnectDropsMessage(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig(), nil)
	leagueID := uuid.New()

	gone := testConnection(cm, leagueID, uuid.Nil)
	live := testConnection(cm, leagueID, uuid.Nil)
	cm.registerConnection(gone)
	cm.registerConnection(live)

	cm.unregisterConnection(gone)

	// The unregistered connection's Send is closed; a broadcast holding a
	// stale snapshot must drop the message rather than panic.
	cm.handleBroadcast(BroadcastMessage{LeagueID: leagueID, Data: []byte("pick")})

	select {
	case got := <-live.Send:
		if string(got) != "pick" {
			t.Errorf("live connection received %q, want %q", got, "pick")
		}
	default:
		t.Errorf("live connection received nothing")
	}
	if _, ok := <-gone.Send; ok {
		t.Errorf("closed connection received a message")
	}
}

func TestBroadcastRacesDisconnectWithoutPanic(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig(), nil)
	leagueID := uuid.New()

	var wg sync.WaitGroup
	done := make(chan struct{})

	// Churn connections through register/unregister while broadcasts run
	// against snapshots of the league's connection set.
	wg.Add(1)
	go func() {
		defer wg.Done()
		var drainers sync.WaitGroup
		for i := 0; i < 500; i++ {
			conn := testConnection(cm, leagueID, uuid.Nil)
			drain(conn, &drainers)
			cm.registerConnection(conn)
			cm.unregisterConnection(conn)
		}
		drainers.Wait()
		close(done)
	}()

	for {
		select {
		case <-done:
			wg.Wait()
			return
		default:
			cm.handleBroadcast(BroadcastMessage{LeagueID: leagueID, Data: []byte("tick")})
		}
	}
}

func TestCloseSendIsIdempotent(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig(), nil)
	conn := testConnection(cm, uuid.New(), uuid.Nil)
	cm.registerConnection(conn)

	// Both pumps unregister on exit; the second close must be a no-op.
	cm.unregisterConnection(conn)
	cm.unregisterConnection(conn)
	conn.closeSend()

	if conn.trySend([]byte("late")) {
		t.Errorf("trySend succeeded on a closed connection")
	}
}

func TestBroadcastToTeamNarrowsTargets(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig(), nil)
	leagueID := uuid.New()
	teamID := uuid.New()

	mine := testConnection(cm, leagueID, teamID)
	other := testConnection(cm, leagueID, uuid.New())
	cm.registerConnection(mine)
	cm.registerConnection(other)

	cm.handleBroadcast(BroadcastMessage{LeagueID: leagueID, TeamID: teamID, Data: []byte("secret")})

	select {
	case got := <-mine.Send:
		if string(got) != "secret" {
			t.Errorf("team connection received %q, want %q", got, "secret")
		}
	default:
		t.Errorf("team connection received nothing")
	}
	select {
	case <-other.Send:
		t.Errorf("other team's connection received a team-scoped message")
	default:
	}
}
