// Package gateway fans auction events out to WebSocket clients and feeds
// league presence back into the timeout orchestrator.
package gateway

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// PresenceListener is notified when a league's count of distinct connected
// users changes. Satisfied by the timeout orchestrator.
type PresenceListener interface {
	OnPresenceChange(ctx context.Context, leagueID uuid.UUID, connected int) error
}

// ConnectionManager manages WebSocket connections per league.
type ConnectionManager struct {
	leagueConnections map[uuid.UUID]map[*Connection]bool
	mu                sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	presence PresenceListener

	broadcastCh chan BroadcastMessage
}

// Connection represents a WebSocket connection to one participant.
type Connection struct {
	ID       string
	UserID   uuid.UUID
	LeagueID uuid.UUID
	// TeamID gates delivery of the full-detail pick events; league-topic
	// events go to every connection regardless.
	TeamID  uuid.UUID
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	ConnectedAt time.Time
	LastPing    time.Time

	// sendMu orders queueing on Send against its close. Only closeSend
	// may close the channel, and only after marking the connection
	// closed under the lock, so a broadcast raced with a disconnect
	// drops the message instead of panicking the manager goroutine.
	sendMu sync.Mutex
	closed bool
}

// trySend queues data for the write pump. Returns false when the
// connection is already closed or its buffer is full.
func (c *Connection) trySend(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

func (c *Connection) isClosed() bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.closed
}

// closeSend closes the Send channel exactly once.
func (c *Connection) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// BroadcastMessage routes one marshalled event to a league's connections,
// optionally narrowed to one team.
type BroadcastMessage struct {
	LeagueID uuid.UUID
	TeamID   uuid.UUID // uuid.Nil broadcasts to the whole league
	Data     []byte
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig, presence PresenceListener) *ConnectionManager {
	return &ConnectionManager{
		leagueConnections: make(map[uuid.UUID]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		presence:    presence,
		broadcastCh: make(chan BroadcastMessage, 1000), // Buffer for high throughput
	}
}

// Start begins processing broadcast messages
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket and registers
// it with the league.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, userID, leagueID, teamID uuid.UUID) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		UserID:      userID,
		LeagueID:    leagueID,
		TeamID:      teamID,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("user_id", userID.String()).
		Str("league_id", leagueID.String()).
		Msg("WebSocket connection established")

	return nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	if cm.leagueConnections[conn.LeagueID] == nil {
		cm.leagueConnections[conn.LeagueID] = make(map[*Connection]bool)
	}
	cm.leagueConnections[conn.LeagueID][conn] = true
	connected := cm.distinctUsersLocked(conn.LeagueID)
	cm.mu.Unlock()

	cm.notifyPresence(conn.LeagueID, connected)
}

func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	connections, exists := cm.leagueConnections[conn.LeagueID]
	if !exists || !connections[conn] {
		cm.mu.Unlock()
		return
	}
	delete(connections, conn)
	conn.closeSend()
	if len(connections) == 0 {
		delete(cm.leagueConnections, conn.LeagueID)
	}
	connected := cm.distinctUsersLocked(conn.LeagueID)
	cm.mu.Unlock()

	log.Info().
		Str("connection_id", conn.ID).
		Str("user_id", conn.UserID.String()).
		Str("league_id", conn.LeagueID.String()).
		Msg("connection unregistered")

	cm.notifyPresence(conn.LeagueID, connected)
}

// distinctUsersLocked counts unique users, not sockets: a participant with
// two tabs open still counts once for the pause-on-disconnect rule.
func (cm *ConnectionManager) distinctUsersLocked(leagueID uuid.UUID) int {
	users := make(map[uuid.UUID]bool)
	for conn := range cm.leagueConnections[leagueID] {
		users[conn.UserID] = true
	}
	return len(users)
}

func (cm *ConnectionManager) notifyPresence(leagueID uuid.UUID, connected int) {
	if cm.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cm.presence.OnPresenceChange(ctx, leagueID, connected); err != nil {
		log.Error().Err(err).
			Str("league_id", leagueID.String()).
			Msg("presence listener failed")
	}
}

// BroadcastToLeague sends a marshalled event to every league connection.
func (cm *ConnectionManager) BroadcastToLeague(leagueID uuid.UUID, data []byte) {
	select {
	case cm.broadcastCh <- BroadcastMessage{LeagueID: leagueID, Data: data}:
	default:
		log.Warn().Str("league_id", leagueID.String()).Msg("broadcast channel full, dropping message")
	}
}

// BroadcastToTeam sends a marshalled event only to the team's connections.
func (cm *ConnectionManager) BroadcastToTeam(leagueID, teamID uuid.UUID, data []byte) {
	select {
	case cm.broadcastCh <- BroadcastMessage{LeagueID: leagueID, TeamID: teamID, Data: data}:
	default:
		log.Warn().
			Str("league_id", leagueID.String()).
			Str("team_id", teamID.String()).
			Msg("broadcast channel full, dropping team message")
	}
}

func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	cm.mu.RLock()
	connections, exists := cm.leagueConnections[message.LeagueID]
	if !exists {
		cm.mu.RUnlock()
		return
	}

	var targets []*Connection
	for conn := range connections {
		if message.TeamID != uuid.Nil && conn.TeamID != message.TeamID {
			continue
		}
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	for _, conn := range targets {
		if conn.trySend(message.Data) {
			continue
		}
		if conn.isClosed() {
			// Raced with a disconnect; the pumps already tore it down.
			continue
		}
		// Connection is slow/dead, close it
		log.Warn().
			Str("connection_id", conn.ID).
			Str("user_id", conn.UserID.String()).
			Msg("connection send buffer full, closing connection")
		cm.unregisterConnection(conn)
		conn.Conn.Close()
	}
}

// ConnectionStats summarizes the active sockets per league.
func (cm *ConnectionManager) ConnectionStats() (total int, leagues map[string]int) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	leagues = make(map[string]int, len(cm.leagueConnections))
	for leagueID, connections := range cm.leagueConnections {
		leagues[leagueID.String()] = len(connections)
		total += len(connections)
	}
	return total, leagues
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			c.LastPing = time.Now()
		}
	}
}

// readPump handles reading messages from the WebSocket connection
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		c.LastPing = time.Now()
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}
		// Clients only listen on this socket; inbound frames just refresh
		// the read deadline.
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
