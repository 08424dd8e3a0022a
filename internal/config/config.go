// Package config loads and validates the crawl engine configuration.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Combat  CombatConfig  `mapstructure:"combat"`
	Arena   ArenaConfig   `mapstructure:"arena"`
	Ally    AllyConfig    `mapstructure:"ally"`
	Content ContentConfig `mapstructure:"content"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CostConfig holds the energy cost of each action kind.
type CostConfig struct {
	Move    int `mapstructure:"move"`
	Attack  int `mapstructure:"attack"`
	Cast    int `mapstructure:"cast"`
	UseItem int `mapstructure:"use_item"`
	Wait    int `mapstructure:"wait"`
}

// EngineConfig holds the turn scheduler and coordinator settings.
type EngineConfig struct {
	EnergyPerTurn     int        `mapstructure:"energy_per_turn"`
	Costs             CostConfig `mapstructure:"costs"`
	TargetMemoryTurns int        `mapstructure:"target_memory_turns"`
	MaxActionsPerTurn int        `mapstructure:"max_actions_per_turn"`
}

// CombatConfig holds the combat resolution constants.
type CombatConfig struct {
	DodgePerPoint int     `mapstructure:"dodge_per_point"`
	DodgeCap      int     `mapstructure:"dodge_cap"`
	MultiplierMin float64 `mapstructure:"multiplier_min"`
	MultiplierMax float64 `mapstructure:"multiplier_max"`
	Reduction     string  `mapstructure:"reduction"`
	// Seed makes every roll reproducible. Zero draws from crypto/rand.
	Seed uint64 `mapstructure:"seed"`
}

// ArenaConfig holds duel pacing.
type ArenaConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`
	MaxTicks     int           `mapstructure:"max_ticks"`
	EffectDelay  time.Duration `mapstructure:"effect_delay"`
}

// AllyConfig holds ally controller settings.
type AllyConfig struct {
	LeashDistance       int  `mapstructure:"leash_distance"`
	LegacyNameHeuristic bool `mapstructure:"legacy_name_heuristic"`
}

// ContentConfig locates the data directories.
type ContentConfig struct {
	BehaviorsDir string `mapstructure:"behaviors_dir"`
	SpellsDir    string `mapstructure:"spells_dir"`
	ScriptsDir   string `mapstructure:"scripts_dir"`
	NPCsDir      string `mapstructure:"npcs_dir"`
	// Watch hot-reloads behavior definitions when their files change.
	Watch bool `mapstructure:"watch"`
}

// Validate checks all configuration values for correctness.
//
// Postcondition: Returns nil if valid, or an error describing every invalid field.
func (c Config) Validate() error {
	var errs []error
	errs = append(errs, validateLogging(c.Logging)...)
	errs = append(errs, validateEngine(c.Engine)...)
	errs = append(errs, validateCombat(c.Combat)...)
	errs = append(errs, validateArena(c.Arena)...)
	errs = append(errs, validateAlly(c.Ally)...)
	errs = append(errs, validateContent(c.Content)...)
	return errors.Join(errs...)
}

func validateLogging(l LoggingConfig) []error {
	var errs []error
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level must be debug, info, warn, or error; got %q", l.Level))
	}
	switch l.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be json or console; got %q", l.Format))
	}
	return errs
}

func validateEngine(e EngineConfig) []error {
	var errs []error
	if e.EnergyPerTurn < 1 {
		errs = append(errs, fmt.Errorf("engine.energy_per_turn must be >= 1, got %d", e.EnergyPerTurn))
	}
	costs := map[string]int{
		"move":     e.Costs.Move,
		"attack":   e.Costs.Attack,
		"cast":     e.Costs.Cast,
		"use_item": e.Costs.UseItem,
		"wait":     e.Costs.Wait,
	}
	for _, name := range []string{"move", "attack", "cast", "use_item", "wait"} {
		if costs[name] < 1 {
			errs = append(errs, fmt.Errorf("engine.costs.%s must be >= 1, got %d", name, costs[name]))
		}
	}
	if e.TargetMemoryTurns < 1 {
		errs = append(errs, fmt.Errorf("engine.target_memory_turns must be >= 1, got %d", e.TargetMemoryTurns))
	}
	if e.MaxActionsPerTurn < 1 {
		errs = append(errs, fmt.Errorf("engine.max_actions_per_turn must be >= 1, got %d", e.MaxActionsPerTurn))
	}
	return errs
}

func validateCombat(c CombatConfig) []error {
	var errs []error
	if c.DodgePerPoint < 0 {
		errs = append(errs, fmt.Errorf("combat.dodge_per_point must be >= 0, got %d", c.DodgePerPoint))
	}
	if c.DodgeCap < 0 || c.DodgeCap > 100 {
		errs = append(errs, fmt.Errorf("combat.dodge_cap must be 0-100, got %d", c.DodgeCap))
	}
	if c.MultiplierMin <= 0 {
		errs = append(errs, fmt.Errorf("combat.multiplier_min must be > 0, got %g", c.MultiplierMin))
	}
	if c.MultiplierMax < c.MultiplierMin {
		errs = append(errs, fmt.Errorf("combat.multiplier_max (%g) must be >= combat.multiplier_min (%g)", c.MultiplierMax, c.MultiplierMin))
	}
	switch c.Reduction {
	case "structured", "legacy":
	default:
		errs = append(errs, fmt.Errorf("combat.reduction must be structured or legacy; got %q", c.Reduction))
	}
	return errs
}

func validateArena(a ArenaConfig) []error {
	var errs []error
	if a.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("arena.tick_interval must be > 0, got %s", a.TickInterval))
	}
	if a.MaxTicks < 1 {
		errs = append(errs, fmt.Errorf("arena.max_ticks must be >= 1, got %d", a.MaxTicks))
	}
	if a.EffectDelay < 0 {
		errs = append(errs, fmt.Errorf("arena.effect_delay must be >= 0, got %s", a.EffectDelay))
	}
	return errs
}

func validateAlly(a AllyConfig) []error {
	if a.LeashDistance < 1 {
		return []error{fmt.Errorf("ally.leash_distance must be >= 1, got %d", a.LeashDistance)}
	}
	return nil
}

func validateContent(c ContentConfig) []error {
	var errs []error
	if c.BehaviorsDir == "" {
		errs = append(errs, fmt.Errorf("content.behaviors_dir must not be empty"))
	}
	if c.SpellsDir == "" {
		errs = append(errs, fmt.Errorf("content.spells_dir must not be empty"))
	}
	if c.NPCsDir == "" {
		errs = append(errs, fmt.Errorf("content.npcs_dir must not be empty"))
	}
	return errs
}

// Load reads configuration from a YAML file at path, applies environment
// variable overrides (prefixed with CRAWL_), and validates the result.
//
// Precondition: path must point to a readable YAML file.
// Postcondition: Returns a validated Config or a non-nil error.
func Load(path string) (Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromViper(v)
}

// Default returns the validated defaults with environment overrides applied
// and no config file.
func Default() (Config, error) {
	return LoadFromViper(newViper())
}

// LoadFromViper unmarshals and validates configuration from an existing viper instance.
//
// Precondition: v must have been configured with config sources.
// Postcondition: Returns a validated Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("CRAWL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("engine.energy_per_turn", 1000)
	v.SetDefault("engine.costs.move", 1000)
	v.SetDefault("engine.costs.attack", 1000)
	v.SetDefault("engine.costs.cast", 1500)
	v.SetDefault("engine.costs.use_item", 1000)
	v.SetDefault("engine.costs.wait", 500)
	v.SetDefault("engine.target_memory_turns", 5)
	v.SetDefault("engine.max_actions_per_turn", 8)

	v.SetDefault("combat.dodge_per_point", 5)
	v.SetDefault("combat.dodge_cap", 75)
	v.SetDefault("combat.multiplier_min", 0.8)
	v.SetDefault("combat.multiplier_max", 1.2)
	v.SetDefault("combat.reduction", "structured")
	v.SetDefault("combat.seed", 0)

	v.SetDefault("arena.tick_interval", 500*time.Millisecond)
	v.SetDefault("arena.max_ticks", 200)
	v.SetDefault("arena.effect_delay", 150*time.Millisecond)

	v.SetDefault("ally.leash_distance", 3)
	v.SetDefault("ally.legacy_name_heuristic", false)

	v.SetDefault("content.behaviors_dir", "content/behaviors")
	v.SetDefault("content.spells_dir", "content/spells")
	v.SetDefault("content.scripts_dir", "content/scripts")
	v.SetDefault("content.npcs_dir", "content/npcs")
	v.SetDefault("content.watch", false)
}
