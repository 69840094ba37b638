package hub

import (
	"context"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/DoyleJ11/lol-champ-roulette/internal/lobby"
	"github.com/DoyleJ11/lol-champ-roulette/internal/pool"
)

type HubMsg interface{ isHubMsg() }

// CreateLobby replies nil if the code is already taken.
type CreateLobby struct {
	Code  string
	Game  lobby.Game
	Reply chan *lobby.Lobby
}

type GetLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

type RemoveLobby struct {
	Code string
}

type ShutdownHub struct{}

func (CreateLobby) isHubMsg() {}
func (GetLobby) isHubMsg()    {}
func (RemoveLobby) isHubMsg() {}
func (ShutdownHub) isHubMsg() {}

type Hub struct {
	inbox   chan HubMsg
	lobbies map[string]*lobby.Lobby
	newRand func() pool.Rand
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

type Option func(*Hub)

// WithRand sets how each new lobby gets its random source. Tests use it for seeded lobbies.
func WithRand(newRand func() pool.Rand) Option {
	return func(h *Hub) { h.newRand = newRand }
}

func WithLogger(log *zap.Logger) Option {
	return func(h *Hub) { h.log = log }
}

func NewHub(parent context.Context, opts ...Option) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		lobbies: make(map[string]*lobby.Lobby),
		newRand: func() pool.Rand { return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) },
		log:     zap.NewNop(),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(h)
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateLobby:
				if h.lobbies[msg.Code] != nil {
					msg.Reply <- nil
					break
				}
				lb := lobby.NewLobby(h.ctx, msg.Game, h.newRand(), h.log.With(zap.String("lobby", msg.Code)))
				h.lobbies[msg.Code] = lb
				h.log.Info("lobby created", zap.String("lobby", msg.Code))
				msg.Reply <- lb

			case GetLobby:
				msg.Reply <- h.lobbies[msg.Code] // May be nil

			case RemoveLobby:
				if lb := h.lobbies[msg.Code]; lb != nil {
					lb.Inbox() <- lobby.Shutdown{}
					delete(h.lobbies, msg.Code)
				}

			case ShutdownHub:
				for _, lb := range h.lobbies {
					lb.Inbox() <- lobby.Shutdown{}
				}
				clear(h.lobbies)
				h.cancel()
			}
		}
	}
}
