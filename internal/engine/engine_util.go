package engine

import "github.com/DoyleJ11/lol-champ-roulette/internal/pool"

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

// Outcomes reads the jungle result for each team out of an Assign event list.
func Outcomes(events []Event) map[Team]Outcome {
	out := map[Team]Outcome{}
	for _, event := range events {
		switch event.Type {
		case EvtJungleSatisfied:
			out[event.Team] = OutcomeSatisfied
		case EvtJungleRepaired:
			out[event.Team] = OutcomeRepaired
		case EvtJungleUnrepairable:
			out[event.Team] = OutcomeUnrepairable
		}
	}
	return out
}

// Players returns blue then red, skipping repeats.
func Players(blue, red Roster) Roster {
	seen := map[pool.Player]bool{}
	out := Roster{}
	for _, r := range []Roster{blue, red} {
		for _, p := range r {
			if seen[p] {
				continue
			}
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
