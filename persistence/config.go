package persistence

import (
	"fmt"

	"github.com/kbukum/persistkit/validation"
)

// Config selects the persistence unit the application opens at startup
// and declares the units available to it.
//
//	persistence:
//	  unit: orders
//	  properties:
//	    max_open_conns: "10"
//	  units:
//	    - name: orders
//	      driver: postgres
//	      dsn: host=localhost user=app dbname=orders
type Config struct {
	// Unit is the name of the unit opened at startup.
	Unit string `yaml:"unit" mapstructure:"unit" validate:"required"`
	// Properties override the selected unit's settings at construction time.
	Properties map[string]string `yaml:"properties" mapstructure:"properties"`
	Units      []Unit            `yaml:"units" mapstructure:"units" validate:"required,min=1"`
}

// ApplyDefaults is a no-op: unit defaults are applied after properties are
// overlaid so that an override such as max_open_conns=2 is not checked
// against defaults meant for a larger pool.
func (c *Config) ApplyDefaults() {}

// Validate checks that the selected unit exists and, with properties
// applied, is a valid unit.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return fmt.Errorf("persistence: %w", err)
	}
	reg, err := c.Registry()
	if err != nil {
		return fmt.Errorf("persistence: %w", err)
	}
	_, err = c.ResolveUnit(reg)
	return err
}

// Registry builds a Registry from Units.
func (c *Config) Registry() (*Registry, error) {
	return NewRegistry(c.Units...)
}

// ResolveUnit looks up the selected unit in reg, overlays Properties,
// applies defaults and validates the result.
func (c *Config) ResolveUnit(reg *Registry) (Unit, error) {
	return resolveUnit(reg, c.Unit, c.Properties)
}

func resolveUnit(reg *Registry, name string, props map[string]string) (Unit, error) {
	u, err := reg.Lookup(name)
	if err != nil {
		return Unit{}, err
	}
	u, err = u.WithProperties(props)
	if err != nil {
		return Unit{}, err
	}
	u.ApplyDefaults()
	if err := u.Validate(); err != nil {
		return Unit{}, err
	}
	return u, nil
}
