// Package config loads the gameplay server configuration from an HCL file.
package config

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/saolsen/gameplay/game"
	"github.com/saolsen/gameplay/games"
	"github.com/saolsen/gameplay/internal/auth"
	"github.com/saolsen/gameplay/internal/match"
	"github.com/saolsen/gameplay/internal/store"
	"github.com/saolsen/gameplay/poker"
)

// Config represents the complete server configuration
type Config struct {
	Server ServerSettings
	Store  StoreSettings
	Poker  PokerSettings
	Auth   AuthSettings
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address     string `hcl:"address,optional"`
	Port        int    `hcl:"port,optional"`
	LogLevel    string `hcl:"log_level,optional"`
	TurnTimeout string `hcl:"turn_timeout,optional"`
	MaxTurns    int    `hcl:"max_turns,optional"`
}

// StoreSettings selects where matches are recorded.
type StoreSettings struct {
	// Backend is one of memory, file, redis or postgres.
	Backend string `hcl:"backend,optional"`
	Path    string `hcl:"path,optional"`
	URL     string `hcl:"url,optional"`
	Prefix  string `hcl:"prefix,optional"`
}

// PokerSettings are applied to every new poker match.
type PokerSettings struct {
	StartingChips int `hcl:"starting_chips,optional"`
	SmallBlind    int `hcl:"small_blind,optional"`
	BigBlind      int `hcl:"big_blind,optional"`
}

// AuthSettings protect the mutating match endpoints. With neither token nor
// url set, authentication is disabled.
type AuthSettings struct {
	Token       string `hcl:"token,optional"`
	URL         string `hcl:"url,optional"`
	AdminSecret string `hcl:"admin_secret,optional"`
	FailOpen    bool   `hcl:"fail_open,optional"`
}

// file is the on-disk shape; every block is optional.
type file struct {
	Server *ServerSettings `hcl:"server,block"`
	Store  *StoreSettings  `hcl:"store,block"`
	Poker  *PokerSettings  `hcl:"poker,block"`
	Auth   *AuthSettings   `hcl:"auth,block"`
}

const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load loads configuration from an HCL file. A missing file yields the
// defaults.
func Load(filename string) (*Config, error) {
	src, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(src, filename)
}

// Parse decodes HCL source and applies defaults. filename is used in
// diagnostics only.
func Parse(src []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var f file
	diags = gohcl.DecodeBody(hclFile.Body, nil, &f)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	var cfg Config
	if f.Server != nil {
		cfg.Server = *f.Server
	}
	if f.Store != nil {
		cfg.Store = *f.Store
	}
	if f.Poker != nil {
		cfg.Poker = *f.Poker
	}
	if f.Auth != nil {
		cfg.Auth = *f.Auth
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.TurnTimeout == "" {
		c.Server.TurnTimeout = "5s"
	}
	if c.Server.MaxTurns == 0 {
		c.Server.MaxTurns = 10_000
	}

	if c.Store.Backend == "" {
		c.Store.Backend = BackendMemory
	}
	if c.Store.Backend == BackendFile && c.Store.Path == "" {
		c.Store.Path = "matches"
	}
	if c.Store.Backend == BackendRedis && c.Store.Prefix == "" {
		c.Store.Prefix = "gameplay:"
	}

	if c.Poker.StartingChips == 0 {
		c.Poker.StartingChips = poker.DefaultStartingChips
	}
	if c.Poker.SmallBlind == 0 && c.Poker.BigBlind == 0 {
		c.Poker.SmallBlind, c.Poker.BigBlind = 1, 2
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if _, err := log.ParseLevel(c.Server.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q", c.Server.LogLevel)
	}
	if d, err := time.ParseDuration(c.Server.TurnTimeout); err != nil || d < 0 {
		return fmt.Errorf("invalid turn_timeout %q", c.Server.TurnTimeout)
	}
	if c.Server.MaxTurns < 0 {
		return fmt.Errorf("invalid max_turns: %d", c.Server.MaxTurns)
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendFile:
		if c.Store.Path == "" {
			return fmt.Errorf("store %q requires path", c.Store.Backend)
		}
	case BackendRedis, BackendPostgres:
		if c.Store.URL == "" {
			return fmt.Errorf("store %q requires url", c.Store.Backend)
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	if c.Poker.StartingChips <= 0 {
		return fmt.Errorf("invalid starting_chips: %d", c.Poker.StartingChips)
	}
	if c.Poker.SmallBlind <= 0 || c.Poker.BigBlind < c.Poker.SmallBlind {
		return fmt.Errorf("invalid blinds %d/%d", c.Poker.SmallBlind, c.Poker.BigBlind)
	}

	if c.Auth.Token != "" && c.Auth.URL != "" {
		return fmt.Errorf("auth token and url are mutually exclusive")
	}
	return nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Address, strconv.Itoa(c.Server.Port))
}

// LogLevel returns the parsed log level, defaulting to info.
func (c *Config) LogLevel() log.Level {
	lvl, err := log.ParseLevel(c.Server.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// TurnTimeout returns the parsed turn timeout. Call Validate first.
func (c *Config) TurnTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Server.TurnTimeout)
	return d
}

// Match returns the coordinator configuration.
func (c *Config) Match() match.Config {
	return match.Config{
		TurnTimeout: c.TurnTimeout(),
		MaxTurns:    c.Server.MaxTurns,
		Games: map[game.Kind]games.Game{
			game.Poker: games.Poker(
				poker.WithStartingChips(c.Poker.StartingChips),
				poker.WithBlinds(c.Poker.SmallBlind, c.Poker.BigBlind),
			),
		},
	}
}

// OpenStore opens the configured store backend.
func (c *Config) OpenStore(ctx context.Context) (store.Store, error) {
	switch c.Store.Backend {
	case BackendMemory:
		return store.NewMemory(), nil
	case BackendFile:
		return store.NewFile(c.Store.Path)
	case BackendRedis:
		return store.NewRedis(ctx, c.Store.URL, c.Store.Prefix)
	case BackendPostgres:
		return store.NewPostgres(ctx, c.Store.URL)
	default:
		return nil, fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
}

// Validator returns the token validator for the match API.
func (c *Config) Validator() auth.Validator {
	switch {
	case c.Auth.Token != "":
		return auth.NewStaticValidator(c.Auth.Token, "admin")
	case c.Auth.URL != "":
		return auth.NewHTTPValidator(c.Auth.URL, c.Auth.AdminSecret)
	default:
		return auth.NewNoopValidator()
	}
}
