package lobby

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/DoyleJ11/lol-champ-roulette/internal/engine"
	"github.com/DoyleJ11/lol-champ-roulette/internal/pool"
)

var ErrNoGame = errors.New("lobby has no teams yet")

type Msg interface{ isLobbyMsg() }

// Roll assigns champions against a fresh copy of the game's pool.
type Roll struct {
	Reply chan RollReply
}

func (Roll) isLobbyMsg() {}

type RollReply struct {
	Snapshot Snapshot
	Err      error
}

// SetGame swaps in new teams (and their pool). The next Roll uses them.
type SetGame struct {
	Game Game
}

func (SetGame) isLobbyMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

func (Join) isLobbyMsg() {}

type Leave struct{ ClientID string }

func (Leave) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

// Game is everything a roll needs. Pool is never consumed directly; each roll works on a clone.
type Game struct {
	Blue   engine.Roster
	Red    engine.Roster
	Pool   *pool.Pool
	Jungle engine.JungleSet
}

type Snapshot struct {
	Version    int
	Blue       engine.Roster
	Red        engine.Roster
	Assignment engine.Assignment
	Outcomes   map[engine.Team]engine.Outcome
	Events     []engine.Event
}

type View struct {
	Version    int
	NumClients int
	Game       Game
	Last       *Snapshot // nil until the first successful roll
}

type Lobby struct {
	inbox   chan Msg
	game    Game
	last    *Snapshot
	version int
	clients map[string]chan Snapshot
	rng     pool.Rand
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewLobby(parent context.Context, game Game, rng pool.Rand, log *zap.Logger) *Lobby {
	ctx, cancel := context.WithCancel(parent)
	if log == nil {
		log = zap.NewNop()
	}

	l := &Lobby{
		inbox:   make(chan Msg, 64), // Small buffer
		game:    game,
		clients: make(map[string]chan Snapshot),
		rng:     rng,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}

	go l.loop()
	return l
}

func (l *Lobby) loop() {
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				l.clients[msg.ClientID] = msg.Outbox
				if l.last != nil {
					msg.Outbox <- *l.last
				}

			case Leave:
				if ch, ok := l.clients[msg.ClientID]; ok {
					close(ch)
					delete(l.clients, msg.ClientID)
				}

			case SetGame:
				l.game = msg.Game

			case Roll:
				snap, err := l.roll()
				msg.Reply <- RollReply{Snapshot: snap, Err: err}

			case GetState:
				msg.Reply <- View{
					Version:    l.version,
					NumClients: len(l.clients),
					Game:       l.game,
					Last:       l.last,
				}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

// roll leaves version and clients untouched on failure.
func (l *Lobby) roll() (Snapshot, error) {
	if l.game.Pool == nil {
		return Snapshot{}, ErrNoGame
	}

	events, result, err := engine.Assign(l.game.Pool.Clone(), l.game.Blue, l.game.Red, l.game.Jungle, l.rng)
	if err != nil {
		l.log.Warn("roll failed", zap.Error(err))
		return Snapshot{}, err
	}

	outcomes := engine.Outcomes(events)
	for team, outcome := range outcomes {
		if outcome == engine.OutcomeUnrepairable {
			l.log.Warn("team has no jungle champion", zap.String("team", string(team)))
		}
	}

	l.version++
	snap := Snapshot{
		Version:    l.version,
		Blue:       l.game.Blue,
		Red:        l.game.Red,
		Assignment: result,
		Outcomes:   outcomes,
		Events:     events,
	}
	l.last = &snap
	l.broadcast(snap)
	l.log.Info("rolled champions", zap.Int("version", l.version))
	return snap, nil
}

func (l *Lobby) shutdown() {
	for id, ch := range l.clients {
		close(ch) // Tell client no more snapshots
		delete(l.clients, id)
	}
	l.cancel()
}

func (l *Lobby) broadcast(snap Snapshot) {
	for id, ch := range l.clients {
		select {
		case ch <- snap:
			//ok
		default:
			// Client is slow/full - drop them.
			close(ch)
			delete(l.clients, id)
		}
	}
}

// Expose the inbox so tests or WS layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Done is closed once the lobby has shut down and stopped reading its inbox.
func (l *Lobby) Done() <-chan struct{} { return l.ctx.Done() }
