package config

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/DoyleJ11/lol-champ-roulette/internal/engine"
	"github.com/DoyleJ11/lol-champ-roulette/internal/pool"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	RiotAPIKey       string        `env:"RIOT_API_KEY"`
	ListenAddr       string        `env:"LISTEN_ADDR" envDefault:":8080"`
	TeamSize         int           `env:"TEAM_SIZE" envDefault:"5"`
	JungleChampsFile string        `env:"JUNGLE_CHAMPS_FILE" envDefault:"JgChamps.txt"`
	PseudonymsFile   string        `env:"PSEUDONYMS_FILE" envDefault:"pseudonym.json"`
	RiotRegionalURL  string        `env:"RIOT_REGIONAL_URL" envDefault:"https://americas.api.riotgames.com"`
	RiotPlatformURL  string        `env:"RIOT_PLATFORM_URL" envDefault:"https://na1.api.riotgames.com"`
	DDragonURL       string        `env:"DDRAGON_URL" envDefault:"https://ddragon.leagueoflegends.com"`
	RiotTimeout      time.Duration `env:"RIOT_TIMEOUT" envDefault:"10s"`
	RiotRateLimit    int           `env:"RIOT_RATE_LIMIT" envDefault:"20"` // requests per second
	LogDev           bool          `env:"LOG_DEV"`
}

// Load reads an optional .env file, then the environment.
func Load(dotenv ...string) (Config, error) {
	if err := godotenv.Load(dotenv...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var err error
	if c.RiotAPIKey == "" {
		err = multierr.Append(err, errors.New("RIOT_API_KEY is required"))
	}
	if c.TeamSize < 1 {
		err = multierr.Append(err, fmt.Errorf("TEAM_SIZE must be positive, got %d", c.TeamSize))
	}
	if c.RiotTimeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("RIOT_TIMEOUT must be positive, got %s", c.RiotTimeout))
	}
	if c.RiotRateLimit < 1 {
		err = multierr.Append(err, fmt.Errorf("RIOT_RATE_LIMIT must be positive, got %d", c.RiotRateLimit))
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// ReadJungleSet parses one champion per line. Blank lines and lines starting with # are skipped.
func ReadJungleSet(r io.Reader) (engine.JungleSet, error) {
	set := engine.JungleSet{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		set[pool.Champion(line)] = true
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return set, nil
}

func LoadJungleSet(path string) (engine.JungleSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open jungle champions: %w", err)
	}
	defer f.Close()
	return ReadJungleSet(f)
}

// ReadPseudonyms parses a flat JSON object of alias -> riot id.
func ReadPseudonyms(r io.Reader) (map[string]string, error) {
	out := map[string]string{}
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode pseudonyms: %w", err)
	}
	return out, nil
}

// LoadPseudonyms returns an empty map when the file does not exist.
func LoadPseudonyms(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open pseudonyms: %w", err)
	}
	defer f.Close()
	return ReadPseudonyms(f)
}
