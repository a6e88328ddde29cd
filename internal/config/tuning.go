// Package config loads the tuning file that drives the simulation. Every
// field is optional; absent fields fall back to the defaults returned by the
// Get* accessors, which mirror config/tuning.defaults.json.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/marbles/internal/emission"
	"github.com/banshee-data/marbles/internal/physics"
	"github.com/banshee-data/marbles/internal/sim"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

const maxFileSize = 1 * 1024 * 1024

// TuningConfig is the JSON tuning schema.
type TuningConfig struct {
	// Physics
	Gravity        *float64 `json:"gravity,omitempty"`
	Friction       *float64 `json:"friction,omitempty"`
	FrictionScale  *float64 `json:"friction_scale,omitempty"`
	Drag           *float64 `json:"drag,omitempty"`
	RestingSpeed   *float64 `json:"resting_speed,omitempty"`
	DefaultTTL     *float64 `json:"default_ttl,omitempty"` // seconds
	SegmentEpsilon *float64 `json:"segment_epsilon,omitempty"`

	// Strip geometry
	LEDsPerMeter *float64 `json:"leds_per_meter,omitempty"`
	LEDCount     *int     `json:"led_count,omitempty"`
	TrackDamping *float64 `json:"track_damping,omitempty"`

	// Frame loop
	SpawnProbability *float64 `json:"spawn_probability,omitempty"`
	FrameInterval    *string  `json:"frame_interval,omitempty"` // duration string like "10ms"
	StatsInterval    *string  `json:"stats_interval,omitempty"`
	LaunchQueueSize  *int     `json:"launch_queue_size,omitempty"`

	// Emission and output
	BrightnessFloor *float64 `json:"brightness_floor,omitempty"`
	BrightnessCap   *float64 `json:"brightness_cap,omitempty"`
	WidenByRadius   *bool    `json:"widen_by_radius,omitempty"`
	BackgroundValue *float64 `json:"background_value,omitempty"`
	MaxPower        *float64 `json:"max_power,omitempty"`
	TransmitRetries *int     `json:"transmit_retries,omitempty"`
}

// EmptyTuningConfig returns a config with every field unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig reads a tuning file. The path must end in .json and the
// file must be under 1MB.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath from the working directory or
// one of its parents. It panics when the file cannot be found; use it in
// tests only.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate rejects values the simulation cannot run with.
func (c *TuningConfig) Validate() error {
	positive := []struct {
		name string
		v    *float64
	}{
		{"gravity", c.Gravity},
		{"friction_scale", c.FrictionScale},
		{"default_ttl", c.DefaultTTL},
		{"segment_epsilon", c.SegmentEpsilon},
		{"leds_per_meter", c.LEDsPerMeter},
		{"track_damping", c.TrackDamping},
	}
	for _, f := range positive {
		if f.v != nil && !(*f.v > 0 && !math.IsInf(*f.v, 0)) {
			return fmt.Errorf("%s must be positive, got %v", f.name, *f.v)
		}
	}

	nonNegative := []struct {
		name string
		v    *float64
	}{
		{"friction", c.Friction},
		{"drag", c.Drag},
		{"resting_speed", c.RestingSpeed},
	}
	for _, f := range nonNegative {
		if f.v != nil && !(*f.v >= 0 && !math.IsInf(*f.v, 0)) {
			return fmt.Errorf("%s must be non-negative, got %v", f.name, *f.v)
		}
	}

	unit := []struct {
		name string
		v    *float64
	}{
		{"spawn_probability", c.SpawnProbability},
		{"brightness_floor", c.BrightnessFloor},
		{"brightness_cap", c.BrightnessCap},
		{"background_value", c.BackgroundValue},
		{"max_power", c.MaxPower},
	}
	for _, f := range unit {
		if f.v != nil && !(*f.v >= 0 && *f.v <= 1) {
			return fmt.Errorf("%s must be between 0 and 1, got %v", f.name, *f.v)
		}
	}
	if c.SpawnProbability != nil && *c.SpawnProbability > 0.5 {
		return fmt.Errorf("spawn_probability must not exceed 0.5, got %v", *c.SpawnProbability)
	}
	if c.GetBrightnessFloor() > c.GetBrightnessCap() {
		return fmt.Errorf("brightness_floor %v exceeds brightness_cap %v", c.GetBrightnessFloor(), c.GetBrightnessCap())
	}

	if c.LEDCount != nil && *c.LEDCount < 2 {
		return fmt.Errorf("led_count must be at least 2, got %d", *c.LEDCount)
	}
	if c.LaunchQueueSize != nil && *c.LaunchQueueSize <= 0 {
		return fmt.Errorf("launch_queue_size must be positive, got %d", *c.LaunchQueueSize)
	}
	if c.TransmitRetries != nil && *c.TransmitRetries < 0 {
		return fmt.Errorf("transmit_retries must be non-negative, got %d", *c.TransmitRetries)
	}

	for _, d := range []struct {
		name string
		v    *string
	}{
		{"frame_interval", c.FrameInterval},
		{"stats_interval", c.StatsInterval},
	} {
		if d.v == nil || *d.v == "" {
			continue
		}
		parsed, err := time.ParseDuration(*d.v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", d.name, *d.v, err)
		}
		if parsed <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, *d.v)
		}
	}
	return nil
}

func getFloat(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func getInt(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func getDuration(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return def
	}
	return d
}

func (c *TuningConfig) GetGravity() float64        { return getFloat(c.Gravity, 9.81) }
func (c *TuningConfig) GetFriction() float64       { return getFloat(c.Friction, 0.01) }
func (c *TuningConfig) GetFrictionScale() float64  { return getFloat(c.FrictionScale, 1.01) }
func (c *TuningConfig) GetDrag() float64           { return getFloat(c.Drag, 0.22) }
func (c *TuningConfig) GetRestingSpeed() float64   { return getFloat(c.RestingSpeed, 0.2) }
func (c *TuningConfig) GetDefaultTTL() float64     { return getFloat(c.DefaultTTL, 2) }
func (c *TuningConfig) GetSegmentEpsilon() float64 { return getFloat(c.SegmentEpsilon, 1e-5) }
func (c *TuningConfig) GetLEDsPerMeter() float64   { return getFloat(c.LEDsPerMeter, 60) }
func (c *TuningConfig) GetLEDCount() int           { return getInt(c.LEDCount, 600) }
func (c *TuningConfig) GetTrackDamping() float64   { return getFloat(c.TrackDamping, 1.5) }

// GetSpawnProbability returns the per-frame chance of an ambient spawn at
// each end of the strip.
func (c *TuningConfig) GetSpawnProbability() float64 { return getFloat(c.SpawnProbability, 0.005) }

// GetFrameInterval returns the target frame period.
func (c *TuningConfig) GetFrameInterval() time.Duration {
	return getDuration(c.FrameInterval, 10*time.Millisecond)
}

// GetStatsInterval returns how often frame statistics are logged.
func (c *TuningConfig) GetStatsInterval() time.Duration {
	return getDuration(c.StatsInterval, 10*time.Second)
}

func (c *TuningConfig) GetLaunchQueueSize() int { return getInt(c.LaunchQueueSize, 256) }

func (c *TuningConfig) GetBrightnessFloor() float64 { return getFloat(c.BrightnessFloor, 0.1) }
func (c *TuningConfig) GetBrightnessCap() float64   { return getFloat(c.BrightnessCap, 1) }

// GetWidenByRadius reports whether marbles are drawn with three samples.
func (c *TuningConfig) GetWidenByRadius() bool {
	if c.WidenByRadius == nil {
		return true
	}
	return *c.WidenByRadius
}

func (c *TuningConfig) GetBackgroundValue() float64 { return getFloat(c.BackgroundValue, 0.2) }
func (c *TuningConfig) GetMaxPower() float64        { return getFloat(c.MaxPower, 1) }
func (c *TuningConfig) GetTransmitRetries() int     { return getInt(c.TransmitRetries, 2) }

// PhysicsParams builds the integrator parameters. The strip length is the
// LED count.
func (c *TuningConfig) PhysicsParams() physics.Params {
	return physics.Params{
		Gravity:        c.GetGravity(),
		Friction:       c.GetFriction(),
		FrictionScale:  c.GetFrictionScale(),
		Drag:           c.GetDrag(),
		RestingSpeed:   c.GetRestingSpeed(),
		DefaultTTL:     c.GetDefaultTTL(),
		SegmentEpsilon: c.GetSegmentEpsilon(),
		LEDsPerMeter:   c.GetLEDsPerMeter(),
		StripLength:    float64(c.GetLEDCount()),
	}
}

// EmissionPolicy builds the brightness policy.
func (c *TuningConfig) EmissionPolicy() emission.Policy {
	return emission.Policy{
		Floor:           c.GetBrightnessFloor(),
		Cap:             c.GetBrightnessCap(),
		FullTTL:         c.GetDefaultTTL(),
		Widen:           c.GetWidenByRadius(),
		BackgroundValue: c.GetBackgroundValue(),
	}
}

// SpawnParams builds the ambient spawn distribution.
func (c *TuningConfig) SpawnParams() sim.SpawnParams {
	p := sim.DefaultSpawnParams()
	p.Probability = c.GetSpawnProbability()
	p.TTL = c.GetDefaultTTL()
	return p
}
