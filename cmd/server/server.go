// Command server is the process entrypoint: it wires the room registry,
// game module registry, turn timer service, and WebSocket/HTTP transport
// together and runs the gin HTTP server. Grounded on
// platform/backend/cmd/server/server.go's Server{config,...}/NewServer/Run
// shape, stripped of the teacher's DB/auth/tournament/matchmaking wiring
// (see DESIGN.md's dropped-dependency ledger) and built around this
// spec's room/engine/timer/transport packages instead.
package main

import (
	"log"

	"cardroom/internal/config"
	"cardroom/internal/engine"
	"cardroom/internal/engine/dominoes"
	"cardroom/internal/engine/spades"
	"cardroom/internal/room"
	"cardroom/internal/timer"
	"cardroom/internal/transport"
)

// Server holds every long-lived dependency the process needs, exposed through
// NewServer/Run (the teacher's cmd/server.Server shape, without its Close).
type Server struct {
	cfg     *config.Config
	rooms   *room.Registry
	games   *engine.Registry
	timers  *timer.Service
	ws      *transport.Server
	httpEng interface{ Run(addr ...string) error }
}

// NewServer builds the registry graph. A room.Registry needs an
// events.Emitter and a transport.Server needs a *room.Registry to resolve
// room membership for broadcast, so the cycle is broken with
// room.Registry.SetEmitter after both sides exist (spec.md §6).
func NewServer(cfg *config.Config) *Server {
	games := engine.NewRegistry()
	games.Register(spades.NewModule())
	games.Register(dominoes.NewModule())

	timers := timer.NewServiceWithGrace(cfg.TurnTimerGrace)
	rooms := room.NewRegistry(games, nil, timers, cfg)

	origins := transport.NewAllowedOrigins(cfg.AllowedOrigins)
	ws := transport.NewServer(rooms, games, origins)
	rooms.SetEmitter(ws)

	httpEng := transport.NewHTTPEngine(cfg, rooms, games, ws)

	return &Server{cfg: cfg, rooms: rooms, games: games, timers: timers, ws: ws, httpEng: httpEng}
}

// Run starts the gin HTTP server and blocks until it exits.
func (s *Server) Run() error {
	log.Printf("SERVER: cardroom starting on port %s (env=%s)", s.cfg.Port, s.cfg.Environment)
	return s.httpEng.Run(":" + s.cfg.Port)
}
