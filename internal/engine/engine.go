package engine

import (
	"github.com/DoyleJ11/lol-champ-roulette/internal/pool"
)

type Team string

const (
	TeamBlue Team = "blue"
	TeamRed  Team = "red"
)

// Roster is one team's players in the order they were entered.
type Roster []pool.Player

// JungleSet holds the champions that can fill the jungle role.
type JungleSet map[pool.Champion]bool

func NewJungleSet(champs ...pool.Champion) JungleSet {
	s := make(JungleSet, len(champs))
	for _, c := range champs {
		s[c] = true
	}
	return s
}

func (s JungleSet) Contains(c pool.Champion) bool { return s[c] }

// Assignment maps every player to exactly one champion.
type Assignment map[pool.Player]pool.Champion

type Outcome string

const (
	OutcomeSatisfied    Outcome = "satisfied"
	OutcomeRepaired     Outcome = "repaired"
	OutcomeUnrepairable Outcome = "unrepairable"
)

type EventType string

const (
	EvtChampionAssigned   EventType = "ChampionAssigned"
	EvtJungleSatisfied    EventType = "JungleSatisfied"
	EvtJungleRepaired     EventType = "JungleRepaired"
	EvtJungleUnrepairable EventType = "JungleUnrepairable"
)

type Event struct {
	Type     EventType
	Team     Team
	Player   pool.Player
	Champion pool.Champion
	Replaced pool.Champion // JungleRepaired only
}

/*
	Assign runs in two passes over a pool the caller no longer needs (Clone it first to reroll later):
	1. every player, blue roster then red, draws one champion; the draw is removed from the whole pool
	2. each team without a jungle champion gets at most one player swapped to a leftover jungle champion
*/
func Assign(p *pool.Pool, blue, red Roster, jungle JungleSet, rng pool.Rand) ([]Event, Assignment, error) {
	events := []Event{}
	result := Assignment{}

	for _, side := range []struct {
		team   Team
		roster Roster
	}{{TeamBlue, blue}, {TeamRed, red}} {
		for _, player := range side.roster {
			if _, done := result[player]; done {
				continue
			}
			champ, err := p.PickAndConsume(player, rng)
			if err != nil {
				return nil, nil, err
			}
			result[player] = champ
			events = append(events, Event{Type: EvtChampionAssigned, Team: side.team, Player: player, Champion: champ})
		}
	}

	for _, side := range []struct {
		team   Team
		roster Roster
	}{{TeamBlue, blue}, {TeamRed, red}} {
		evt, err := enforceJungle(side.team, side.roster, result, p, jungle, rng)
		if err != nil {
			return nil, nil, err
		}
		events = append(events, evt)
	}

	return events, result, nil
}

// enforceJungle mutates result. Only one swap is attempted per team.
func enforceJungle(team Team, roster Roster, result Assignment, p *pool.Pool, jungle JungleSet, rng pool.Rand) (Event, error) {
	if hasJungle(roster, result, jungle) {
		return Event{Type: EvtJungleSatisfied, Team: team}, nil
	}

	for _, player := range shuffled(roster, rng) {
		options, err := p.FilteredItemsFor(player, jungle.Contains)
		if err != nil {
			return Event{}, err
		}
		if len(options) == 0 {
			continue
		}

		champ := options[rng.IntN(len(options))]
		p.Consume(champ)

		replaced := result[player]
		result[player] = champ
		return Event{Type: EvtJungleRepaired, Team: team, Player: player, Champion: champ, Replaced: replaced}, nil
	}

	return Event{Type: EvtJungleUnrepairable, Team: team}, nil
}

func hasJungle(roster Roster, result Assignment, jungle JungleSet) bool {
	for _, player := range roster {
		if jungle.Contains(result[player]) {
			return true
		}
	}
	return false
}

// Fisher-Yates, so a seeded rng gives the same order every time.
func shuffled(roster Roster, rng pool.Rand) Roster {
	out := make(Roster, len(roster))
	copy(out, roster)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
