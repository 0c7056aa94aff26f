// Package config loads the server configuration from HCL.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/modelarena/holdem/internal/engine"
	"github.com/modelarena/holdem/internal/game"
)

// Config is the complete server configuration.
type Config struct {
	Server    *ServerSettings    `hcl:"server,block"`
	Game      *GameSettings      `hcl:"game,block"`
	Scheduler *SchedulerSettings `hcl:"scheduler,block"`
	Models    []ModelConfig      `hcl:"model,block"`
}

// ServerSettings is the listener and infrastructure configuration.
type ServerSettings struct {
	Listen        string `hcl:"listen,optional"`
	LogLevel      string `hcl:"log_level,optional"`
	DBPath        string `hcl:"db_path,optional"`
	ModelEndpoint string `hcl:"model_endpoint,optional"`
	CreditsURL    string `hcl:"credits_url,optional"`
}

// GameSettings are the per-game parameters.
type GameSettings struct {
	BuyIn            int `hcl:"buy_in,optional"`
	SmallBlind       int `hcl:"small_blind,optional"`
	BigBlind         int `hcl:"big_blind,optional"`
	MaxHands         int `hcl:"max_hands,optional"`
	TurnTimeoutSecs  int `hcl:"turn_timeout_seconds,optional"`
	InterHandWaitSec int `hcl:"inter_hand_wait_seconds,optional"`
}

// SchedulerSettings gate autonomous game creation.
type SchedulerSettings struct {
	MaxConcurrent     int     `hcl:"max_concurrent,optional"`
	MinCreditFraction float64 `hcl:"min_credit_fraction,optional"`
	IntervalHours     int     `hcl:"interval_hours,optional"`
}

// ModelConfig seats one model in scheduled games.
type ModelConfig struct {
	Name string `hcl:"name,label"`
}

// Default returns the built-in configuration. Models must come from
// the config file; there is no sensible default roster.
func Default() *Config {
	return &Config{
		Server: &ServerSettings{
			Listen:        "localhost:8090",
			LogLevel:      "info",
			DBPath:        "holdem.db",
			ModelEndpoint: "http://localhost:8091/v1/complete",
		},
		Game: &GameSettings{
			BuyIn:            1000,
			SmallBlind:       10,
			BigBlind:         20,
			MaxHands:         100,
			TurnTimeoutSecs:  90,
			InterHandWaitSec: 2,
		},
		Scheduler: &SchedulerSettings{
			MaxConcurrent:     engine.DefaultMaxConcurrent,
			MinCreditFraction: engine.DefaultMinCreditFraction,
			IntervalHours:     2,
		},
	}
}

// Load reads the HCL file at path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %s", path, diags.Error())
	}

	var cfg Config
	if diags := gohcl.DecodeBody(file.Body, nil, &cfg); diags.HasErrors() {
		return nil, fmt.Errorf("decoding %s: %s", path, diags.Error())
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Parse decodes configuration from an in-memory HCL document.
func Parse(src []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %s", filename, diags.Error())
	}
	var cfg Config
	if diags := gohcl.DecodeBody(file.Body, nil, &cfg); diags.HasErrors() {
		return nil, fmt.Errorf("decoding %s: %s", filename, diags.Error())
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Server == nil {
		c.Server = def.Server
	}
	if c.Game == nil {
		c.Game = def.Game
	}
	if c.Scheduler == nil {
		c.Scheduler = def.Scheduler
	}
	if c.Server.Listen == "" {
		c.Server.Listen = def.Server.Listen
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = def.Server.LogLevel
	}
	if c.Server.DBPath == "" {
		c.Server.DBPath = def.Server.DBPath
	}
	if c.Server.ModelEndpoint == "" {
		c.Server.ModelEndpoint = def.Server.ModelEndpoint
	}
	if c.Game.BuyIn == 0 {
		c.Game.BuyIn = def.Game.BuyIn
	}
	if c.Game.SmallBlind == 0 {
		c.Game.SmallBlind = def.Game.SmallBlind
	}
	if c.Game.BigBlind == 0 {
		c.Game.BigBlind = def.Game.BigBlind
	}
	if c.Game.MaxHands == 0 {
		c.Game.MaxHands = def.Game.MaxHands
	}
	if c.Game.TurnTimeoutSecs == 0 {
		c.Game.TurnTimeoutSecs = def.Game.TurnTimeoutSecs
	}
	if c.Game.InterHandWaitSec == 0 {
		c.Game.InterHandWaitSec = def.Game.InterHandWaitSec
	}
	if c.Scheduler.MaxConcurrent == 0 {
		c.Scheduler.MaxConcurrent = def.Scheduler.MaxConcurrent
	}
	if c.Scheduler.MinCreditFraction == 0 {
		c.Scheduler.MinCreditFraction = def.Scheduler.MinCreditFraction
	}
	if c.Scheduler.IntervalHours == 0 {
		c.Scheduler.IntervalHours = def.Scheduler.IntervalHours
	}
}

// Validate checks the configuration is playable.
func (c *Config) Validate() error {
	if c.Game.SmallBlind <= 0 || c.Game.BigBlind <= c.Game.SmallBlind {
		return fmt.Errorf("blinds must satisfy 0 < small_blind < big_blind, got %d/%d",
			c.Game.SmallBlind, c.Game.BigBlind)
	}
	if c.Game.BuyIn < 2*c.Game.BigBlind {
		return fmt.Errorf("buy_in %d is too small for big_blind %d", c.Game.BuyIn, c.Game.BigBlind)
	}
	if c.Game.MaxHands <= 0 {
		return fmt.Errorf("max_hands must be positive")
	}
	if len(c.Models) < 2 {
		return fmt.Errorf("at least two model blocks are required, got %d", len(c.Models))
	}
	seen := make(map[string]bool, len(c.Models))
	for _, m := range c.Models {
		if m.Name == "" {
			return fmt.Errorf("model blocks need a name label")
		}
		if seen[m.Name] {
			return fmt.Errorf("duplicate model %q", m.Name)
		}
		seen[m.Name] = true
	}
	return nil
}

// Roster lists the configured model names in order.
func (c *Config) Roster() []string {
	names := make([]string, len(c.Models))
	for i, m := range c.Models {
		names[i] = m.Name
	}
	return names
}

// EngineConfig maps the file settings onto the engine.
func (c *Config) EngineConfig() engine.Config {
	return engine.Config{
		Roster: c.Roster(),
		Game: game.Config{
			BuyIn:         c.Game.BuyIn,
			SmallBlind:    c.Game.SmallBlind,
			BigBlind:      c.Game.BigBlind,
			MaxHands:      c.Game.MaxHands,
			TurnTimeout:   time.Duration(c.Game.TurnTimeoutSecs) * time.Second,
			InterHandWait: time.Duration(c.Game.InterHandWaitSec) * time.Second,
		},
		MaxConcurrent:     c.Scheduler.MaxConcurrent,
		MinCreditFraction: c.Scheduler.MinCreditFraction,
		ScheduleEvery:     time.Duration(c.Scheduler.IntervalHours) * time.Hour,
	}
}
