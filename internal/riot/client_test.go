package riot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, catalogHits *int32) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()

	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
	requireKey := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-Riot-Token") != "key" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			next(w, r)
		}
	}

	r.Get("/riot/account/v1/accounts/by-riot-id/{name}/{tag}", requireKey(func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "name") != "Faker Fan" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, Account{PUUID: "puuid-1", GameName: "Faker Fan", TagLine: chi.URLParam(r, "tag")})
	}))
	r.Get("/lol/summoner/v4/summoners/by-puuid/{puuid}", requireKey(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, Summoner{PUUID: chi.URLParam(r, "puuid"), SummonerLevel: 7})
	}))
	r.Get("/lol/champion-mastery/v4/champion-masteries/by-puuid/{puuid}", requireKey(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []ChampionMastery{{ChampionID: 64, ChampionPoints: 100}, {ChampionID: 22}})
	}))
	r.Get("/lol/platform/v3/champion-rotations", requireKey(func(w http.ResponseWriter, r *http.Request) {
		// longer than MaxRetryWait, so the client gives up without retrying
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	r.Get("/api/versions.json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []string{"14.1.1", "13.24.1"})
	})
	r.Get("/cdn/{version}/data/en_US/champion.json", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(catalogHits, 1)
		if chi.URLParam(r, "version") != "14.1.1" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"data": {
			"LeeSin": {"key": "64", "name": "Lee Sin"},
			"Ashe": {"key": "22", "name": "Ashe"},
			"Broken": {"key": "x", "name": "Broken"}
		}}`))
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(Options{
		APIKey:      "key",
		RegionalURL: srv.URL,
		PlatformURL: srv.URL,
		DDragonURL:  srv.URL,
		HTTPClient:  srv.Client(),
	})
}

func TestClient_AccountSummonerMastery(t *testing.T) {
	var hits int32
	c := newTestClient(newTestServer(t, &hits))
	ctx := context.Background()

	acc, err := c.AccountByRiotID(ctx, "Faker Fan", "NA1")
	require.NoError(t, err)
	assert.Equal(t, "puuid-1", acc.PUUID)

	s, err := c.SummonerByPUUID(ctx, acc.PUUID)
	require.NoError(t, err)
	assert.EqualValues(t, 7, s.SummonerLevel)

	ms, err := c.ChampionMasteries(ctx, acc.PUUID)
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, 64, ms[0].ChampionID)
}

func TestClient_ErrorMapping(t *testing.T) {
	var hits int32
	srv := newTestServer(t, &hits)
	c := newTestClient(srv)
	ctx := context.Background()

	_, err := c.AccountByRiotID(ctx, "nobody", "NA1")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = c.ChampionRotation(ctx)
	require.ErrorIs(t, err, ErrRateLimited)

	bad := NewClient(Options{APIKey: "wrong", PlatformURL: srv.URL, HTTPClient: srv.Client()})
	_, err = bad.SummonerByPUUID(ctx, "puuid-1")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.StatusCode)
}

func TestClient_ChampionNamesCached(t *testing.T) {
	var hits int32
	c := newTestClient(newTestServer(t, &hits))

	names, err := c.ChampionNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[int]string{64: "Lee Sin", 22: "Ashe"}, names)

	_, err = c.ChampionNames(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestClient_RateLimitRetry(t *testing.T) {
	cases := []struct {
		name       string
		responses  []string // Retry-After per 429; "ok" answers 200
		wantErr    error
		wantHits   int32
		maxElapsed time.Duration
	}{
		{name: "retries once then succeeds", responses: []string{"0", "ok"}, wantHits: 2, maxElapsed: time.Second},
		{name: "second 429 gives up", responses: []string{"0", "0", "ok"}, wantErr: ErrRateLimited, wantHits: 2, maxElapsed: time.Second},
		{name: "retry-after beyond cap is not waited", responses: []string{"30", "ok"}, wantErr: ErrRateLimited, wantHits: 1, maxElapsed: time.Second},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var hits atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := hits.Add(1)
				if resp := tc.responses[n-1]; resp != "ok" {
					w.Header().Set("Retry-After", resp)
					w.WriteHeader(http.StatusTooManyRequests)
					return
				}
				_, _ = w.Write([]byte(`{"puuid":"puuid-1","summonerLevel":30}`))
			}))
			t.Cleanup(srv.Close)

			start := time.Now()
			s, err := newTestClient(srv).SummonerByPUUID(context.Background(), "puuid-1")
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
				assert.EqualValues(t, 30, s.SummonerLevel)
			}
			assert.Equal(t, tc.wantHits, hits.Load())
			assert.Less(t, time.Since(start), tc.maxElapsed)
		})
	}
}

func TestClient_RetryWaitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := newTestClient(srv).ChampionRotation(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewLimiter_NeverExceedsOneSecondWindow(t *testing.T) {
	for _, perSecond := range []int{1, 2, 20, 100} {
		lim := NewLimiter(perSecond)
		start := time.Now()

		// when each of 5*perSecond back-to-back requests would be let through
		sends := make([]time.Time, 0, 5*perSecond)
		for range 5 * perSecond {
			r := lim.ReserveN(start, 1)
			require.True(t, r.OK())
			sends = append(sends, start.Add(r.DelayFrom(start)))
		}

		for i, from := range sends {
			n := 0
			for _, s := range sends[i:] {
				if s.Sub(from) < time.Second {
					n++
				}
			}
			assert.LessOrEqual(t, n, perSecond, "perSecond=%d window starting at request %d", perSecond, i)
		}
	}
}

func TestChampionRotation_For(t *testing.T) {
	r := ChampionRotation{
		FreeChampionIDs:              []int{1, 2},
		FreeChampionIDsForNewPlayers: []int{3},
		MaxNewPlayerLevel:            10,
	}
	assert.Equal(t, []int{3}, r.For(9))
	assert.Equal(t, []int{1, 2}, r.For(10))
}
