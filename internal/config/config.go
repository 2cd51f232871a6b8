// Package config loads and validates the per-run configuration file
// (caprock.yml). The parser contract is deliberately thin: path in,
// structured tree out; all required-field and semantic validation is
// performed here, not by the parser.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the top-level caprock.yml configuration.
type Config struct {
	Version  string         `yaml:"version" validate:"required"`
	Run      string         `yaml:"run" validate:"required"`
	Redis    RedisConfig    `yaml:"redis"`
	Engine   EngineConfig   `yaml:"engine" validate:"required"`
	Session  SessionConfig  `yaml:"session" validate:"required"`
	Grid     GridConfig     `yaml:"grid" validate:"required"`
	Rock     RockConfig     `yaml:"rock" validate:"required"`
	Fluid    FluidConfig    `yaml:"fluid" validate:"required"`
	Wells    []WellConfig   `yaml:"wells" validate:"required,min=1,dive"`
	Phases   []PhaseConfig  `yaml:"phases" validate:"required,min=1,dive"`
	Schedule ScheduleConfig `yaml:"schedule" validate:"required"`
}

// RedisConfig locates the shared run store.
type RedisConfig struct {
	Addr string `yaml:"addr"`
}

// EngineConfig describes how to invoke the external simulation engine.
type EngineConfig struct {
	Command        []string `yaml:"command" validate:"required,min=1"`
	TimeoutMinutes int      `yaml:"timeout_minutes" validate:"gte=0"`
}

// SessionConfig is what the bootstrap stage records for every later stage.
type SessionConfig struct {
	RootPaths []string `yaml:"root_paths" validate:"required,min=1"`
	Modules   []string `yaml:"modules"`
}

// GridConfig defines the simulation grid.
type GridConfig struct {
	NX          int     `yaml:"nx" validate:"required,gt=0"`
	NY          int     `yaml:"ny" validate:"required,gt=0"`
	NZ          int     `yaml:"nz" validate:"required,gt=0"`
	DX          float64 `yaml:"dx_m" validate:"required,gt=0"`
	DY          float64 `yaml:"dy_m" validate:"required,gt=0"`
	DZ          float64 `yaml:"dz_m" validate:"required,gt=0"`
	DatumDepthM float64 `yaml:"datum_depth_m" validate:"required,gt=0"`
}

// RockConfig assigns rock properties by depth range.
type RockConfig struct {
	Layers []RockLayer `yaml:"layers" validate:"required,min=1,dive"`
}

// RockLayer is one depth interval with uniform rock properties.
type RockLayer struct {
	FromDepthM     float64 `yaml:"from_depth_m" validate:"gte=0"`
	ToDepthM       float64 `yaml:"to_depth_m" validate:"gt=0"`
	Porosity       float64 `yaml:"porosity" validate:"gt=0,lte=1"`
	PermeabilityMD float64 `yaml:"permeability_md" validate:"gt=0"`
}

// FluidConfig defines the fluid system and the initial state.
type FluidConfig struct {
	OilDensity       float64 `yaml:"oil_density_kgm3" validate:"required,gt=0"`
	WaterDensity     float64 `yaml:"water_density_kgm3" validate:"required,gt=0"`
	OilViscosityCP   float64 `yaml:"oil_viscosity_cp" validate:"required,gt=0"`
	WaterViscosityCP float64 `yaml:"water_viscosity_cp" validate:"required,gt=0"`
	InitialPressure  float64 `yaml:"initial_pressure_bar" validate:"required,gt=0"`
	InitialWaterSat  float64 `yaml:"initial_water_saturation" validate:"gte=0,lte=1"`
}

// WellConfig is one well definition. Target is in external units: m³/day for
// rate control, bar for BHP control.
type WellConfig struct {
	ID      string  `yaml:"id" validate:"required"`
	Role    string  `yaml:"role" validate:"required,oneof=producer injector"`
	I       int     `yaml:"i" validate:"required"`
	J       int     `yaml:"j" validate:"required"`
	Control string  `yaml:"control" validate:"required,oneof=rate bhp"`
	Target  float64 `yaml:"target" validate:"required,gt=0"`
	RadiusM float64 `yaml:"radius_m" validate:"required,gt=0"`
}

// PhaseConfig is one development phase definition.
type PhaseConfig struct {
	Name     string   `yaml:"name" validate:"required"`
	StartDay float64  `yaml:"start_day" validate:"gte=0"`
	EndDay   float64  `yaml:"end_day" validate:"gt=0"`
	Wells    []string `yaml:"wells" validate:"required,min=1"`
}

// ScheduleConfig is the timestep generation policy.
type ScheduleConfig struct {
	NumSteps     int     `yaml:"num_steps" validate:"required,gt=0"`
	GrowthFactor float64 `yaml:"growth_factor" validate:"required,gte=1"`
	Scope        string  `yaml:"scope" validate:"omitempty,oneof=horizon phase"`
}

var structValidator = validator.New()

// Validate performs structural validation (tags) plus the semantic checks the
// tags cannot express. Deep schedule semantics (phase partition, well
// placement) are owned by the schedule assembler; this only rejects what no
// stage could ever accept.
func (c *Config) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if err := structValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	idsSeen := make(map[string]bool, len(c.Wells))
	for _, w := range c.Wells {
		if idsSeen[w.ID] {
			return fmt.Errorf("duplicate well id %q: well ids must be unique", w.ID)
		}
		idsSeen[w.ID] = true
	}

	for _, l := range c.Rock.Layers {
		if l.ToDepthM <= l.FromDepthM {
			return fmt.Errorf("rock layer depth range [%g,%g) is empty or inverted", l.FromDepthM, l.ToDepthM)
		}
	}

	return nil
}

// RedisAddr returns the configured Redis address or the conventional default.
func (c *Config) RedisAddr() string {
	if c.Redis.Addr != "" {
		return c.Redis.Addr
	}
	return "localhost:6379"
}

// Load reads and validates caprock.yml from the specified path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}
