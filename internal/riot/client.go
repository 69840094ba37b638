package riot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var ErrNotFound = errors.New("riot: not found")
var ErrRateLimited = errors.New("riot: rate limited")

type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("riot: %s returned %d", e.URL, e.StatusCode)
}

type Account struct {
	PUUID    string `json:"puuid"`
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
}

type Summoner struct {
	PUUID         string `json:"puuid"`
	SummonerLevel int64  `json:"summonerLevel"`
}

type ChampionMastery struct {
	ChampionID     int `json:"championId"`
	ChampionLevel  int `json:"championLevel"`
	ChampionPoints int `json:"championPoints"`
}

type ChampionRotation struct {
	FreeChampionIDs              []int `json:"freeChampionIds"`
	FreeChampionIDsForNewPlayers []int `json:"freeChampionIdsForNewPlayers"`
	MaxNewPlayerLevel            int   `json:"maxNewPlayerLevel"`
}

// For returns the rotation a summoner of the given level sees.
func (r ChampionRotation) For(summonerLevel int64) []int {
	if int64(r.MaxNewPlayerLevel) > summonerLevel {
		return r.FreeChampionIDsForNewPlayers
	}
	return r.FreeChampionIDs
}

type Options struct {
	APIKey      string
	RegionalURL string // account-v1
	PlatformURL string // summoner, mastery, rotation
	DDragonURL  string
	HTTPClient  *http.Client
	Logger      *zap.Logger

	// Limiter paces authenticated requests. Defaults to NewLimiter(20), a development key's budget.
	Limiter *rate.Limiter
	// MaxRetryWait caps how long a 429's Retry-After is waited out before the single retry.
	// A longer Retry-After fails straight away with ErrRateLimited.
	MaxRetryWait time.Duration
}

const (
	defaultPerSecond    = 20
	defaultMaxRetryWait = 5 * time.Second
)

// NewLimiter paces requests so that no one-second window sees more than perSecond of them.
// Half the budget is burst; the refill rate gets the rest minus a 10% margin.
func NewLimiter(perSecond int) *rate.Limiter {
	burst := max(perSecond/2, 1)
	refill := rate.Limit(max(perSecond-burst, 1)) * 0.9
	return rate.NewLimiter(refill, burst)
}

type Client struct {
	opts Options
	http    *http.Client
	log     *zap.Logger
	limiter *rate.Limiter

	mu    sync.Mutex
	names map[int]string
}

func NewClient(opts Options) *Client {
	c := &Client{opts: opts, http: opts.HTTPClient, log: opts.Logger, limiter: opts.Limiter}
	if c.limiter == nil {
		c.limiter = NewLimiter(defaultPerSecond)
	}
	if c.opts.MaxRetryWait == 0 {
		c.opts.MaxRetryWait = defaultMaxRetryWait
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c
}

func (c *Client) AccountByRiotID(ctx context.Context, gameName, tagLine string) (Account, error) {
	var acc Account
	u := fmt.Sprintf("%s/riot/account/v1/accounts/by-riot-id/%s/%s",
		c.opts.RegionalURL, url.PathEscape(gameName), url.PathEscape(tagLine))
	err := c.get(ctx, u, true, &acc)
	return acc, err
}

func (c *Client) SummonerByPUUID(ctx context.Context, puuid string) (Summoner, error) {
	var s Summoner
	u := fmt.Sprintf("%s/lol/summoner/v4/summoners/by-puuid/%s", c.opts.PlatformURL, url.PathEscape(puuid))
	err := c.get(ctx, u, true, &s)
	return s, err
}

func (c *Client) ChampionMasteries(ctx context.Context, puuid string) ([]ChampionMastery, error) {
	var ms []ChampionMastery
	u := fmt.Sprintf("%s/lol/champion-mastery/v4/champion-masteries/by-puuid/%s", c.opts.PlatformURL, url.PathEscape(puuid))
	err := c.get(ctx, u, true, &ms)
	return ms, err
}

func (c *Client) ChampionRotation(ctx context.Context) (ChampionRotation, error) {
	var r ChampionRotation
	err := c.get(ctx, c.opts.PlatformURL+"/lol/platform/v3/champion-rotations", true, &r)
	return r, err
}

// ChampionNames maps numeric champion ids to display names using the latest Data Dragon release.
// The first successful lookup is cached for the life of the client.
func (c *Client) ChampionNames(ctx context.Context) (map[int]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.names != nil {
		return c.names, nil
	}

	var versions []string
	if err := c.get(ctx, c.opts.DDragonURL+"/api/versions.json", false, &versions); err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("riot: data dragon returned no versions")
	}

	var catalog struct {
		Data map[string]struct {
			Key  string `json:"key"`
			Name string `json:"name"`
		} `json:"data"`
	}
	u := fmt.Sprintf("%s/cdn/%s/data/en_US/champion.json", c.opts.DDragonURL, url.PathEscape(versions[0]))
	if err := c.get(ctx, u, false, &catalog); err != nil {
		return nil, err
	}

	names := make(map[int]string, len(catalog.Data))
	for id, champ := range catalog.Data {
		key, err := strconv.Atoi(champ.Key)
		if err != nil {
			c.log.Warn("skipping champion with bad key", zap.String("champion", id), zap.String("key", champ.Key))
			continue
		}
		names[key] = champ.Name
	}
	c.log.Info("loaded champion names", zap.String("version", versions[0]), zap.Int("count", len(names)))
	c.names = names
	return names, nil
}

// get decodes a JSON GET into out. Authenticated calls wait on the limiter and
// get one retry after a 429 whose Retry-After fits within MaxRetryWait.
func (c *Client) get(ctx context.Context, u string, auth bool, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	if auth {
		req.Header.Set("X-Riot-Token", c.opts.APIKey)
	}
	req.Header.Set("Accept", "application/json")

	for attempt := 0; ; attempt++ {
		wait, err := c.do(req, auth, out)
		if !errors.Is(err, ErrRateLimited) || attempt > 0 || wait > c.opts.MaxRetryWait {
			return err
		}
		c.log.Debug("retrying after rate limit", zap.String("path", req.URL.Path), zap.Duration("wait", wait))
		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}
}

// do sends req once. On a 429 it also reports the server's Retry-After.
func (c *Client) do(req *http.Request, auth bool, out any) (time.Duration, error) {
	if auth {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return 0, fmt.Errorf("riot: %w", err)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("riot: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return 0, fmt.Errorf("%w: %s", ErrNotFound, req.URL.Path)
	case resp.StatusCode == http.StatusTooManyRequests:
		c.log.Warn("riot rate limit hit", zap.String("path", req.URL.Path), zap.String("retry_after", resp.Header.Get("Retry-After")))
		return retryAfter(resp.Header.Get("Retry-After")), ErrRateLimited
	case resp.StatusCode != http.StatusOK:
		return 0, &StatusError{URL: req.URL.Path, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return 0, fmt.Errorf("riot: decode %s: %w", req.URL.Path, err)
	}
	return 0, nil
}

// retryAfter reads a Retry-After header in seconds. Riot always sends seconds;
// a missing or malformed header means one second.
func retryAfter(h string) time.Duration {
	secs, err := strconv.Atoi(h)
	if err != nil || secs < 0 {
		return time.Second
	}
	return time.Duration(secs) * time.Second
}
