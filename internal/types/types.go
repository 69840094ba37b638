package types

import (
	"github.com/DoyleJ11/lol-champ-roulette/internal/engine"
	"github.com/DoyleJ11/lol-champ-roulette/internal/lobby"
)

type ClientMessage struct {
	Type string `json:"type"` // "Reroll"
}

type Repair struct {
	Team     string `json:"team"`
	Player   string `json:"player"`
	Champion string `json:"champion"`
	Replaced string `json:"replaced"`
}

type ServerMessage struct {
	Type       string            `json:"type"` // "RollResult" | "Error"
	Code       string            `json:"code,omitempty"`
	Version    int               `json:"version,omitempty"`
	Blue       []string          `json:"blue,omitempty"`
	Red        []string          `json:"red,omitempty"`
	Assignment map[string]string `json:"assignment,omitempty"`
	Outcomes   map[string]string `json:"outcomes,omitempty"`
	Repairs    []Repair          `json:"repairs,omitempty"`
	Error      string            `json:"error,omitempty"`
}

func RollResult(code string, snap lobby.Snapshot) ServerMessage {
	msg := ServerMessage{
		Type:       "RollResult",
		Code:       code,
		Version:    snap.Version,
		Blue:       rosterStrings(snap.Blue),
		Red:        rosterStrings(snap.Red),
		Assignment: make(map[string]string, len(snap.Assignment)),
		Outcomes:   make(map[string]string, len(snap.Outcomes)),
	}
	for player, champ := range snap.Assignment {
		msg.Assignment[string(player)] = string(champ)
	}
	for team, outcome := range snap.Outcomes {
		msg.Outcomes[string(team)] = string(outcome)
	}
	for _, evt := range snap.Events {
		if evt.Type != engine.EvtJungleRepaired {
			continue
		}
		msg.Repairs = append(msg.Repairs, Repair{
			Team:     string(evt.Team),
			Player:   string(evt.Player),
			Champion: string(evt.Champion),
			Replaced: string(evt.Replaced),
		})
	}
	return msg
}

func ErrorMessage(err error) ServerMessage {
	return ServerMessage{Type: "Error", Error: err.Error()}
}

func rosterStrings(r engine.Roster) []string {
	out := make([]string, len(r))
	for i, p := range r {
		out[i] = string(p)
	}
	return out
}
