package roster

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/DoyleJ11/lol-champ-roulette/internal/engine"
	"github.com/DoyleJ11/lol-champ-roulette/internal/pool"
	"github.com/DoyleJ11/lol-champ-roulette/internal/riot"
)

func team(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = prefix + string(rune('a'+i)) + "#NA1"
	}
	return out
}

func TestParse(t *testing.T) {
	aliases := NewPseudonyms(map[string]string{"Doyle": "DoyleJ11#NA1"})

	cases := []struct {
		name    string
		req     Request
		size    int
		wantErr bool
		check   func(t *testing.T, blue, red engine.Roster)
	}{
		{
			name: "valid 5v5",
			req:  Request{Blue: team("b", 5), Red: team("r", 5)},
			size: 5,
			check: func(t *testing.T, blue, red engine.Roster) {
				assert.Len(t, blue, 5)
				assert.Equal(t, pool.Player("ra#NA1"), red[0])
			},
		},
		{
			name: "pseudonym resolved case-insensitively",
			req:  Request{Blue: []string{" doyle ", "x#NA1"}, Red: []string{"y#NA1", "z#EUW"}},
			size: 2,
			check: func(t *testing.T, blue, red engine.Roster) {
				assert.Equal(t, engine.Roster{"DoyleJ11#NA1", "x#NA1"}, blue)
			},
		},
		{
			name:    "wrong team size",
			req:     Request{Blue: team("b", 4), Red: team("r", 5)},
			size:    5,
			wantErr: true,
		},
		{
			name:    "missing tagline",
			req:     Request{Blue: []string{"nobody", "x#NA1"}, Red: []string{"y#NA1", "z#NA1"}},
			size:    2,
			wantErr: true,
		},
		{
			name:    "player on both teams",
			req:     Request{Blue: []string{"x#NA1", "y#NA1"}, Red: []string{"X#na1", "z#NA1"}},
			size:    2,
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			blue, red, err := Parse(tc.req, aliases, tc.size)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidRoster)
				return
			}
			require.NoError(t, err)
			tc.check(t, blue, red)
		})
	}
}

func TestParse_ReportsEveryProblem(t *testing.T) {
	_, _, err := Parse(Request{Blue: []string{"bad"}, Red: []string{"also bad"}}, nil, 2)
	require.ErrorIs(t, err, ErrInvalidRoster)
	assert.Contains(t, err.Error(), `"bad"`)
	assert.Contains(t, err.Error(), `"also bad"`)
	assert.Contains(t, err.Error(), "need 2 players")
}

func TestSameTeams(t *testing.T) {
	assert.True(t, SameTeams(engine.Roster{"a", "b"}, engine.Roster{"b", "a"}))
	assert.False(t, SameTeams(engine.Roster{"a", "b"}, engine.Roster{"a", "c"}))
	assert.False(t, SameTeams(engine.Roster{"a"}, engine.Roster{"a", "b"}))
}

type fakeSource struct {
	mu       sync.Mutex
	calls    int
	levels   map[string]int64
	mastery  map[string][]int
	failName string
}

func (f *fakeSource) AccountByRiotID(_ context.Context, name, tag string) (riot.Account, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if name == f.failName {
		return riot.Account{}, riot.ErrNotFound
	}
	return riot.Account{PUUID: name, GameName: name, TagLine: tag}, nil
}

func (f *fakeSource) SummonerByPUUID(_ context.Context, puuid string) (riot.Summoner, error) {
	return riot.Summoner{PUUID: puuid, SummonerLevel: f.levels[puuid]}, nil
}

func (f *fakeSource) ChampionMasteries(_ context.Context, puuid string) ([]riot.ChampionMastery, error) {
	var out []riot.ChampionMastery
	for _, id := range f.mastery[puuid] {
		out = append(out, riot.ChampionMastery{ChampionID: id})
	}
	return out, nil
}

func (f *fakeSource) ChampionRotation(context.Context) (riot.ChampionRotation, error) {
	return riot.ChampionRotation{
		FreeChampionIDs:              []int{1, 2},
		FreeChampionIDsForNewPlayers: []int{3},
		MaxNewPlayerLevel:            10,
	}, nil
}

func (f *fakeSource) ChampionNames(context.Context) (map[int]string, error) {
	return map[int]string{1: "Ashe", 2: "Garen", 3: "Annie", 64: "Lee Sin", 254: "Vi"}, nil
}

func TestBuilder_Build(t *testing.T) {
	src := &fakeSource{
		levels:  map[string]int64{"vet": 300, "new": 4},
		mastery: map[string][]int{"vet": {64, 9999}, "new": {254}},
	}
	b := NewBuilder(src, nil)

	p, err := b.Build(context.Background(), engine.Roster{"vet#NA1", "new#NA1"})
	require.NoError(t, err)

	vet, err := p.ItemsFor("vet#NA1")
	require.NoError(t, err)
	assert.Equal(t, []pool.Champion{"Lee Sin", "Ashe", "Garen"}, vet)

	rookie, err := p.ItemsFor("new#NA1")
	require.NoError(t, err)
	assert.Equal(t, []pool.Champion{"Vi", "Annie"}, rookie)
	assert.Equal(t, 2, src.calls)
}

func TestBuilder_Build_FailureAborts(t *testing.T) {
	src := &fakeSource{failName: "ghost"}
	b := NewBuilder(src, nil)

	_, err := b.Build(context.Background(), engine.Roster{"ok#NA1", "ghost#NA1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, riot.ErrNotFound))
	assert.Contains(t, err.Error(), "ghost#NA1")
}

func TestBuilder_Build_LogsCandidatesAdded(t *testing.T) {
	src := &fakeSource{
		levels:  map[string]int64{"vet": 300},
		mastery: map[string][]int{"vet": {64, 9999, 254}},
	}
	core, logs := observer.New(zapcore.DebugLevel)
	b := NewBuilder(src, zap.New(core))

	_, err := b.Build(context.Background(), engine.Roster{"vet#NA1"})
	require.NoError(t, err)

	built := logs.FilterMessage("built candidate list").All()
	require.Len(t, built, 1)
	// Lee Sin, Vi, Ashe, Garen; the unknown 9999 is skipped
	assert.EqualValues(t, 4, built[0].ContextMap()["candidates"])
	assert.Equal(t, 1, logs.FilterMessage("unknown champion id").Len())
}
