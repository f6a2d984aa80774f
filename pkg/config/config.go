// Package config holds the compiler settings. Values come from, in
// increasing precedence: built-in defaults, an optional YAML file,
// RALPH_MIPS_* environment variables and finally command-line flags, which
// the driver applies on top of what Load returns.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/xyproto/env/v2"
	"gopkg.in/yaml.v3"

	"github.com/raymyers/ralph-mips/pkg/asm"
	"github.com/raymyers/ralph-mips/pkg/strategy"
)

// Environment variables read by ApplyEnv
const (
	EnvScheme    = "RALPH_MIPS_SCHEME"
	EnvRegisters = "RALPH_MIPS_REGISTERS"
	EnvOutput    = "RALPH_MIPS_OUTPUT"
	EnvVerbose   = "RALPH_MIPS_VERBOSE"
)

const (
	DefaultOutput    = "out.s"
	DefaultRegisters = asm.NumSaved
)

// ErrInvalidRegisters is returned for a register count outside 1..8
var ErrInvalidRegisters = strategy.ErrInvalidRegisters

// ErrNoScheme is returned when no allocation scheme was given
var ErrNoScheme = errors.New("no allocation scheme selected")

// Config is the full set of compiler settings
type Config struct {
	Scheme    string `yaml:"scheme"`
	Registers int    `yaml:"registers"`
	Output    string `yaml:"output"`
	Verbose   bool   `yaml:"verbose"`
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		Registers: DefaultRegisters,
		Output:    DefaultOutput,
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is not empty) and the environment
func Load(path string) (Config, error) {
	c := Default()
	if path != "" {
		if err := c.LoadFile(path); err != nil {
			return c, err
		}
	}
	c.ApplyEnv()
	return c, nil
}

// LoadFile overlays the settings present in a YAML file. Unknown keys are
// rejected.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays the RALPH_MIPS_* environment variables that are set
func (c *Config) ApplyEnv() {
	c.Scheme = env.Str(EnvScheme, c.Scheme)
	c.Registers = env.Int(EnvRegisters, c.Registers)
	c.Output = env.Str(EnvOutput, c.Output)
	if env.Has(EnvVerbose) {
		c.Verbose = env.Bool(EnvVerbose)
	}
}

// Validate checks that the settings describe a runnable compilation
func (c *Config) Validate() error {
	if c.Scheme == "" {
		return ErrNoScheme
	}
	if _, err := strategy.ParseScheme(c.Scheme); err != nil {
		return err
	}
	if c.Registers < 1 || c.Registers > asm.NumSaved {
		return fmt.Errorf("%w: %d (must be 1..%d)", ErrInvalidRegisters, c.Registers, asm.NumSaved)
	}
	if c.Output == "" {
		return errors.New("empty output path")
	}
	return nil
}

// SchemeValue returns the parsed allocation scheme
func (c *Config) SchemeValue() (strategy.Scheme, error) {
	return strategy.ParseScheme(c.Scheme)
}
