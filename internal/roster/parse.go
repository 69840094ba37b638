package roster

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
	"golang.org/x/text/cases"

	"github.com/DoyleJ11/lol-champ-roulette/internal/engine"
	"github.com/DoyleJ11/lol-champ-roulette/internal/pool"
)

var ErrInvalidRoster = errors.New("invalid roster")

// Request is the raw team input: riot ids ("name#tag") or pseudonyms.
type Request struct {
	Blue []string `json:"blue"`
	Red  []string `json:"red"`
}

// Pseudonyms resolves short aliases to riot ids, ignoring case.
type Pseudonyms map[string]string

func NewPseudonyms(aliases map[string]string) Pseudonyms {
	p := make(Pseudonyms, len(aliases))
	for alias, id := range aliases {
		p[fold(alias)] = id
	}
	return p
}

func (p Pseudonyms) Resolve(name string) string {
	if id, ok := p[fold(name)]; ok {
		return id
	}
	return name
}

func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// Parse validates both teams: exactly teamSize players each, every entry a riot id,
// nobody listed twice. All problems are reported together.
func Parse(req Request, aliases Pseudonyms, teamSize int) (engine.Roster, engine.Roster, error) {
	var errs error
	seen := map[string]engine.Team{}

	parseTeam := func(team engine.Team, entries []string) engine.Roster {
		out := engine.Roster{}
		for _, raw := range entries {
			id := strings.TrimSpace(aliases.Resolve(strings.TrimSpace(raw)))
			name, tag, ok := strings.Cut(id, "#")
			if !ok || strings.TrimSpace(name) == "" || strings.TrimSpace(tag) == "" {
				errs = multierr.Append(errs, fmt.Errorf("%s: %q is not a riot id (name#tag)", team, raw))
				continue
			}
			key := fold(id)
			if prev, dup := seen[key]; dup {
				errs = multierr.Append(errs, fmt.Errorf("%s: %s is already on %s", team, id, prev))
				continue
			}
			seen[key] = team
			out = append(out, pool.Player(id))
		}
		if len(entries) != teamSize {
			errs = multierr.Append(errs, fmt.Errorf("%s: need %d players, got %d", team, teamSize, len(entries)))
		}
		return out
	}

	blue := parseTeam(engine.TeamBlue, req.Blue)
	red := parseTeam(engine.TeamRed, req.Red)
	if errs != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidRoster, errs)
	}
	return blue, red, nil
}

// SameTeams reports whether two rosters hold the same players, ignoring order.
func SameTeams(a, b engine.Roster) bool {
	if len(a) != len(b) {
		return false
	}
	set := map[pool.Player]bool{}
	for _, p := range a {
		set[p] = true
	}
	for _, p := range b {
		if !set[p] {
			return false
		}
	}
	return true
}
