// Package config loads sweep definitions for the bb84sim command line.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Version is the only config version understood by Load.
const Version = "1"

var (
	// DefaultQubits is the qubit-count axis used when a sweep names none.
	DefaultQubits = []int{1000}
	// DefaultEavesdropper is the eavesdropper axis used when a sweep names
	// none: every grid point is run both with and without an attacker.
	DefaultEavesdropper = []bool{false, true}
	// DefaultRepeats is the number of runs per grid point.
	DefaultRepeats = 10
)

// ErrInvalidConfig is returned by Validate for any configuration which cannot
// be run.
var ErrInvalidConfig = errors.New("invalid configuration")

// SweepConfig represents a sweep.yml file. Each combination of Qubits and
// Eavesdropper is one grid point, run Repeats times.
type SweepConfig struct {
	Version      string `yaml:"version"`
	Qubits       []int  `yaml:"qubits,omitempty"`
	Eavesdropper []bool `yaml:"eavesdropper,omitempty"`
	Repeats      int    `yaml:"repeats,omitempty"`
	// Seed is the base seed; repeat r of every grid point uses Seed+r.
	Seed      int64    `yaml:"seed,omitempty"`
	Workers   int      `yaml:"workers,omitempty"`
	Threshold *float64 `yaml:"threshold,omitempty"` // nil = library default
}

// Load reads, parses and validates the sweep config at path.
func Load(path string) (*SweepConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var c SweepConfig
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks c and fills in defaults for omitted fields.
func (c *SweepConfig) Validate() error {
	if c.Version != Version {
		return fmt.Errorf("%w: unsupported version: %q (expected: %q)", ErrInvalidConfig, c.Version, Version)
	}

	if len(c.Qubits) == 0 {
		c.Qubits = append([]int(nil), DefaultQubits...)
	}
	for _, n := range c.Qubits {
		if n <= 0 {
			return fmt.Errorf("%w: qubits must be positive, got %d", ErrInvalidConfig, n)
		}
	}

	if len(c.Eavesdropper) == 0 {
		c.Eavesdropper = append([]bool(nil), DefaultEavesdropper...)
	}

	if c.Repeats == 0 {
		c.Repeats = DefaultRepeats
	}
	if c.Repeats < 0 {
		return fmt.Errorf("%w: repeats must be positive, got %d", ErrInvalidConfig, c.Repeats)
	}

	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be >= 0 (0 = default), got %d", ErrInvalidConfig, c.Workers)
	}

	if t := c.Threshold; t != nil && !(*t >= 0 && *t <= 1) {
		return fmt.Errorf("%w: threshold must lie in [0, 1], got %v", ErrInvalidConfig, *t)
	}
	return nil
}

// Points returns the number of grid points described by c.
func (c *SweepConfig) Points() int {
	return len(c.Qubits) * len(c.Eavesdropper)
}
