package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/lol-champ-roulette/internal/engine"
	"github.com/DoyleJ11/lol-champ-roulette/internal/hub"
	"github.com/DoyleJ11/lol-champ-roulette/internal/lobby"
	"github.com/DoyleJ11/lol-champ-roulette/internal/pool"
	"github.com/DoyleJ11/lol-champ-roulette/internal/riot"
	"github.com/DoyleJ11/lol-champ-roulette/internal/roster"
	"github.com/DoyleJ11/lol-champ-roulette/internal/types"
)

var (
	errLobbyNotFound = errors.New("lobby not found")
	errNoFreeCode    = errors.New("no free lobby code")
)

// PoolBuilder turns a set of players into their candidate champions.
type PoolBuilder interface {
	Build(ctx context.Context, players engine.Roster) (*pool.Pool, error)
}

type Deps struct {
	Hub        *hub.Hub
	Builder    PoolBuilder
	Jungle     engine.JungleSet
	Pseudonyms roster.Pseudonyms
	TeamSize   int
	Log        *zap.Logger
	NewCode    func() (string, error) // defaults to GenerateCode
}

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

// CreateGame fetches both teams' champions, opens a lobby for them and rolls once.
func CreateGame(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		game, err := newGame(r, d, nil)
		if err != nil {
			writeError(w, d.Log, err)
			return
		}

		code, lb, err := createLobby(r.Context(), d, game)
		if err != nil {
			d.Log.Error("create lobby", zap.Error(err))
			http.Error(w, "failed to create lobby", http.StatusInternalServerError)
			return
		}

		snap, err := roll(r.Context(), lb)
		if err != nil {
			// nobody has the code yet, so don't keep a lobby that can't roll
			d.Hub.Inbox() <- hub.RemoveLobby{Code: code}
			writeError(w, d.Log, err)
			return
		}
		writeJSON(w, http.StatusCreated, types.RollResult(code, snap))
	}
}

// UpdateGame replaces a lobby's teams. Champions are only re-fetched when the players changed.
func UpdateGame(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		lb := findLobby(d.Hub, code)
		if lb == nil {
			writeError(w, d.Log, errLobbyNotFound)
			return
		}

		view, err := state(r.Context(), lb)
		if err != nil {
			writeError(w, d.Log, err)
			return
		}

		game, err := newGame(r, d, &view.Game)
		if err != nil {
			writeError(w, d.Log, err)
			return
		}
		if err := send(r.Context(), lb, lobby.SetGame{Game: game}); err != nil {
			writeError(w, d.Log, err)
			return
		}

		snap, err := roll(r.Context(), lb)
		if err != nil {
			writeError(w, d.Log, err)
			return
		}
		writeJSON(w, http.StatusOK, types.RollResult(code, snap))
	}
}

func Reroll(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		lb := findLobby(d.Hub, code)
		if lb == nil {
			writeError(w, d.Log, errLobbyNotFound)
			return
		}

		snap, err := roll(r.Context(), lb)
		if err != nil {
			writeError(w, d.Log, err)
			return
		}
		writeJSON(w, http.StatusOK, types.RollResult(code, snap))
	}
}

func GetGame(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		lb := findLobby(d.Hub, code)
		if lb == nil {
			writeError(w, d.Log, errLobbyNotFound)
			return
		}

		view, err := state(r.Context(), lb)
		if err != nil {
			writeError(w, d.Log, err)
			return
		}

		resp := struct {
			Code     string               `json:"code"`
			Version  int                  `json:"version"`
			Clients  int                  `json:"clients"`
			LastRoll *types.ServerMessage `json:"last_roll,omitempty"`
		}{Code: code, Version: view.Version, Clients: view.NumClients}
		if view.Last != nil {
			msg := types.RollResult(code, *view.Last)
			resp.LastRoll = &msg
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// newGame parses the request body into teams and builds their pool, reusing prev's pool if the teams match.
func newGame(r *http.Request, d Deps, prev *lobby.Game) (lobby.Game, error) {
	var req roster.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return lobby.Game{}, errors.Join(roster.ErrInvalidRoster, err)
	}

	blue, red, err := roster.Parse(req, d.Pseudonyms, d.TeamSize)
	if err != nil {
		return lobby.Game{}, err
	}

	if prev != nil && prev.Pool != nil && roster.SameTeams(blue, prev.Blue) && roster.SameTeams(red, prev.Red) {
		d.Log.Debug("teams unchanged, reusing champion pool")
		return lobby.Game{Blue: blue, Red: red, Pool: prev.Pool, Jungle: d.Jungle}, nil
	}

	p, err := d.Builder.Build(r.Context(), engine.Players(blue, red))
	if err != nil {
		return lobby.Game{}, err
	}
	return lobby.Game{Blue: blue, Red: red, Pool: p, Jungle: d.Jungle}, nil
}

// createLobby registers game under a fresh code. The hub refuses codes that are
// already taken, so a collision just means drawing another one.
func createLobby(ctx context.Context, d Deps, game lobby.Game) (string, *lobby.Lobby, error) {
	const maxAttempts = 10
	reply := make(chan *lobby.Lobby, 1)
	for range maxAttempts {
		code, err := d.NewCode()
		if err != nil {
			return "", nil, err
		}
		select {
		case d.Hub.Inbox() <- hub.CreateLobby{Code: code, Game: game, Reply: reply}:
		case <-ctx.Done():
			return "", nil, ctx.Err()
		}
		if lb := <-reply; lb != nil {
			return code, lb, nil
		}
		d.Log.Debug("collision on code, regenerating", zap.String("code", code))
	}
	return "", nil, errNoFreeCode
}

func findLobby(h *hub.Hub, code string) *lobby.Lobby {
	reply := make(chan *lobby.Lobby, 1)
	h.Inbox() <- hub.GetLobby{Code: code, Reply: reply}
	return <-reply
}

// send delivers msg unless the lobby has already shut down.
func send(ctx context.Context, lb *lobby.Lobby, msg lobby.Msg) error {
	select {
	case lb.Inbox() <- msg:
		return nil
	case <-lb.Done():
		return errLobbyNotFound
	case <-ctx.Done():
		return ctx.Err()
	}
}

func roll(ctx context.Context, lb *lobby.Lobby) (lobby.Snapshot, error) {
	reply := make(chan lobby.RollReply, 1)
	if err := send(ctx, lb, lobby.Roll{Reply: reply}); err != nil {
		return lobby.Snapshot{}, err
	}
	select {
	case res := <-reply:
		return res.Snapshot, res.Err
	case <-lb.Done():
		return lobby.Snapshot{}, errLobbyNotFound
	case <-ctx.Done():
		return lobby.Snapshot{}, ctx.Err()
	}
}

func state(ctx context.Context, lb *lobby.Lobby) (lobby.View, error) {
	reply := make(chan lobby.View, 1)
	if err := send(ctx, lb, lobby.GetState{Reply: reply}); err != nil {
		return lobby.View{}, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-lb.Done():
		return lobby.View{}, errLobbyNotFound
	case <-ctx.Done():
		return lobby.View{}, ctx.Err()
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, roster.ErrInvalidRoster), errors.Is(err, riot.ErrNotFound):
		return http.StatusBadRequest
	case errors.Is(err, errLobbyNotFound):
		return http.StatusNotFound
	case errors.Is(err, lobby.ErrNoGame):
		return http.StatusConflict
	case errors.Is(err, pool.ErrEmptyCandidateSet), errors.Is(err, pool.ErrUnknownPlayer):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err), zap.Int("status", status))
	}
	writeJSON(w, status, types.ErrorMessage(err))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
