package roster

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/lol-champ-roulette/internal/engine"
	"github.com/DoyleJ11/lol-champ-roulette/internal/pool"
	"github.com/DoyleJ11/lol-champ-roulette/internal/riot"
)

// Source is the slice of the Riot API the builder needs.
type Source interface {
	AccountByRiotID(ctx context.Context, gameName, tagLine string) (riot.Account, error)
	SummonerByPUUID(ctx context.Context, puuid string) (riot.Summoner, error)
	ChampionMasteries(ctx context.Context, puuid string) ([]riot.ChampionMastery, error)
	ChampionRotation(ctx context.Context) (riot.ChampionRotation, error)
	ChampionNames(ctx context.Context) (map[int]string, error)
}

type Builder struct {
	src  Source
	log  *zap.Logger
	conc int
}

func NewBuilder(src Source, log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{src: src, log: log, conc: 10}
}

type playerData struct {
	level    int64
	mastered []int
}

// Build fetches every player's playable champions: the ones they have mastery on,
// then the free rotation for their level. Players are fetched concurrently;
// the first failure cancels the rest.
func (b *Builder) Build(ctx context.Context, players engine.Roster) (*pool.Pool, error) {
	names, err := b.src.ChampionNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("champion names: %w", err)
	}
	rotation, err := b.src.ChampionRotation(ctx)
	if err != nil {
		return nil, fmt.Errorf("champion rotation: %w", err)
	}

	data := make([]playerData, len(players))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.conc)
	for i, player := range players {
		g.Go(func() error {
			d, err := b.fetch(gctx, player)
			if err != nil {
				return fmt.Errorf("%s: %w", player, err)
			}
			data[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	p := &pool.Pool{}
	for i, player := range players {
		p.Add(player)
		ids := append(append([]int{}, data[i].mastered...), rotation.For(data[i].level)...)
		added := 0
		for _, id := range ids {
			name, ok := names[id]
			if !ok {
				b.log.Warn("unknown champion id", zap.Int("champion_id", id), zap.String("player", string(player)))
				continue
			}
			p.Add(player, pool.Champion(name))
			added++
		}
		b.log.Debug("built candidate list", zap.String("player", string(player)), zap.Int("candidates", added))
	}
	return p, nil
}

func (b *Builder) fetch(ctx context.Context, player pool.Player) (playerData, error) {
	name, tag, ok := strings.Cut(string(player), "#")
	if !ok {
		return playerData{}, fmt.Errorf("%w: %q is not a riot id", ErrInvalidRoster, player)
	}

	acc, err := b.src.AccountByRiotID(ctx, name, tag)
	if err != nil {
		return playerData{}, fmt.Errorf("account: %w", err)
	}
	summ, err := b.src.SummonerByPUUID(ctx, acc.PUUID)
	if err != nil {
		return playerData{}, fmt.Errorf("summoner: %w", err)
	}
	masteries, err := b.src.ChampionMasteries(ctx, acc.PUUID)
	if err != nil {
		return playerData{}, fmt.Errorf("mastery: %w", err)
	}

	ids := make([]int, 0, len(masteries))
	for _, m := range masteries {
		ids = append(ids, m.ChampionID)
	}
	return playerData{level: summ.SummonerLevel, mastered: ids}, nil
}
