// Package config loads process configuration from flags with AUTOMATA_*
// environment variables as defaults.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MRamiBalles/CellularAutomata3D/internal/engine"
	"github.com/MRamiBalles/CellularAutomata3D/internal/platform/optimization"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "AUTOMATA_"

// Config holds everything a binary needs to start a run and serve it.
type Config struct {
	Addr   string
	DBPath string

	Width, Height, Depth int
	Reproduce            string
	Survive              string
	Dying                string
	Topology             string
	SeedMode             string
	SeedProbability      float64

	// Zero means "take a seed from the clock".
	SeedRNG int64
	StepRNG int64

	TickInterval  time.Duration
	TuningProfile string
	Preset        string
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Addr:            ":8080",
		DBPath:          "data/automata.db",
		Width:           32,
		Height:          32,
		Depth:           32,
		Reproduce:       "4",
		Survive:         "4",
		Dying:           "1-4",
		Topology:        "moore",
		SeedMode:        "global",
		SeedProbability: engine.DefaultSeedProbability,
		TickInterval:    engine.DefaultTickInterval,
		TuningProfile:   "default",
	}
}

// Bind registers the configuration flags on fs. Defaults come from
// Default, overridden by any AUTOMATA_* variable getenv returns.
// Invalid environment values are reported by the returned error
// and leave the built-in default in place.
func Bind(fs *flag.FlagSet, getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	c := Default()
	env := envReader{getenv: getenv}

	fs.StringVar(&c.Addr, "addr", env.str("ADDR", c.Addr), "HTTP listen address")
	fs.StringVar(&c.DBPath, "db", env.str("DB", c.DBPath), "SQLite database path")
	fs.IntVar(&c.Width, "width", env.integer("WIDTH", c.Width), "grid width")
	fs.IntVar(&c.Height, "height", env.integer("HEIGHT", c.Height), "grid height")
	fs.IntVar(&c.Depth, "depth", env.integer("DEPTH", c.Depth), "grid depth")
	fs.StringVar(&c.Reproduce, "reproduce", env.str("REPRODUCE", c.Reproduce), "neighbor counts that bring a dead cell to life, e.g. 3,6 or 5-8")
	fs.StringVar(&c.Survive, "survive", env.str("SURVIVE", c.Survive), "neighbor counts that keep a live cell alive")
	fs.StringVar(&c.Dying, "dying", env.str("DYING", c.Dying), "countdown lengths a dying cell draws from")
	fs.StringVar(&c.Topology, "topology", env.str("TOPOLOGY", c.Topology), "moore or vonneumann")
	fs.StringVar(&c.SeedMode, "seed-mode", env.str("SEED_MODE", c.SeedMode), "global or center")
	fs.Float64Var(&c.SeedProbability, "seed-probability", env.float("SEED_PROBABILITY", c.SeedProbability), "chance a seeded cell starts alive")
	fs.Int64Var(&c.SeedRNG, "seed-rng", env.integer64("SEED_RNG", c.SeedRNG), "seed for initial placement, 0 for clock")
	fs.Int64Var(&c.StepRNG, "step-rng", env.integer64("STEP_RNG", c.StepRNG), "seed for countdown draws, 0 for clock")
	fs.DurationVar(&c.TickInterval, "interval", env.duration("TICK_INTERVAL", c.TickInterval), "time between generations")
	fs.StringVar(&c.TuningProfile, "profile", env.str("PROFILE", c.TuningProfile), "tuning profile: default, stress or low")
	fs.StringVar(&c.Preset, "preset", env.str("PRESET", c.Preset), "start from a stored preset instead of the flags above")

	return &c, env.err()
}

// Load parses args into a validated Config.
func Load(name string, args []string, getenv func(string) string) (*Config, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	c, err := Bind(fs, getenv)
	if err != nil {
		return nil, err
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the values that can be checked without building a run.
func (c *Config) Validate() error {
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", c.TickInterval)
	}
	if _, err := optimization.Profile(c.TuningProfile); err != nil {
		return err
	}
	return nil
}

// Tuning returns the selected tuning profile.
func (c *Config) Tuning() (*optimization.Config, error) {
	return optimization.Profile(c.TuningProfile)
}

// RunRequest converts the simulation flags to an engine request.
func (c *Config) RunRequest() engine.RunRequest {
	req := engine.RunRequest{
		Width:     c.Width,
		Height:    c.Height,
		Depth:     c.Depth,
		Reproduce: c.Reproduce,
		Survive:   c.Survive,
		Dying:     c.Dying,
		Topology:  c.Topology,
		SeedMode:  c.SeedMode,
	}
	p := c.SeedProbability
	req.SeedProbability = &p
	if c.SeedRNG != 0 {
		seed := c.SeedRNG
		req.SeedRNG = &seed
	}
	if c.StepRNG != 0 {
		seed := c.StepRNG
		req.StepRNG = &seed
	}
	return req
}

// SimulationSpec parses the simulation flags into a run spec.
func (c *Config) SimulationSpec() (engine.RunSpec, error) {
	return c.RunRequest().Spec()
}

type envReader struct {
	getenv func(string) string
	errs   []string
}

func (e *envReader) lookup(key string) (string, bool) {
	v := strings.TrimSpace(e.getenv(EnvPrefix + key))
	return v, v != ""
}

func (e *envReader) fail(key, v string, err error) {
	e.errs = append(e.errs, fmt.Sprintf("%s%s=%q: %v", EnvPrefix, key, v, err))
}

func (e *envReader) str(key, def string) string {
	if v, ok := e.lookup(key); ok {
		return v
	}
	return def
}

func (e *envReader) integer(key string, def int) int {
	v, ok := e.lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return n
}

func (e *envReader) integer64(key string, def int64) int64 {
	v, ok := e.lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return n
}

func (e *envReader) float(key string, def float64) float64 {
	v, ok := e.lookup(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return f
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	v, ok := e.lookup(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return d
}

func (e *envReader) err() error {
	if len(e.errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid environment: %s", strings.Join(e.errs, "; "))
}
