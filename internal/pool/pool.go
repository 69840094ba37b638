package pool

import (
	"errors"
	"fmt"
	"slices"
)

var ErrUnknownPlayer = errors.New("unknown player")
var ErrEmptyCandidateSet = errors.New("no candidate champions left")

// Player is a riot id ("name#tag").
type Player string

type Champion string

// Rand is the randomness the pool and engine draw from.
// *math/rand/v2.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

// Pool maps each player to the champions they can still be given.
// A champion handed out by PickAndConsume or Consume disappears from every player's list.
type Pool struct {
	candidates map[Player][]Champion
}

func New(candidates map[Player][]Champion) *Pool {
	p := &Pool{candidates: make(map[Player][]Champion, len(candidates))}
	for player, champs := range candidates {
		p.candidates[player] = slices.Clone(champs)
	}
	return p
}

// Add appends champions to a player's list, creating the entry if needed (even with no champions).
func (p *Pool) Add(player Player, champs ...Champion) {
	if p.candidates == nil {
		p.candidates = map[Player][]Champion{}
	}
	list, ok := p.candidates[player]
	if !ok {
		list = []Champion{}
	}
	p.candidates[player] = append(list, champs...)
}

func (p *Pool) Clone() *Pool {
	return New(p.candidates)
}

// Players returns every player with an entry, sorted.
func (p *Pool) Players() []Player {
	players := make([]Player, 0, len(p.candidates))
	for player := range p.candidates {
		players = append(players, player)
	}
	slices.Sort(players)
	return players
}

func (p *Pool) ItemsFor(player Player) ([]Champion, error) {
	champs, ok := p.candidates[player]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlayer, player)
	}
	return slices.Clone(champs), nil
}

func (p *Pool) FilteredItemsFor(player Player, keep func(Champion) bool) ([]Champion, error) {
	champs, ok := p.candidates[player]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlayer, player)
	}
	out := []Champion{}
	for _, c := range champs {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

// PickAndConsume draws one of the player's champions uniformly (duplicates weigh more)
// and removes it from the whole pool.
func (p *Pool) PickAndConsume(player Player, rng Rand) (Champion, error) {
	champs, ok := p.candidates[player]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownPlayer, player)
	}
	if len(champs) == 0 {
		return "", fmt.Errorf("%w: %s", ErrEmptyCandidateSet, player)
	}

	choice := champs[rng.IntN(len(champs))]
	p.Consume(choice)
	return choice, nil
}

// Consume removes every occurrence of champ from every player.
func (p *Pool) Consume(champ Champion) {
	for player, champs := range p.candidates {
		p.candidates[player] = slices.DeleteFunc(champs, func(c Champion) bool { return c == champ })
	}
}
