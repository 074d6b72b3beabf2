package persistence

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/kbukum/persistkit/validation"
)

// Property keys that override Unit fields. Any other key is kept in
// Unit.Properties untouched.
const (
	PropDriver             = "driver"
	PropDSN                = "dsn"
	PropMaxOpenConns       = "max_open_conns"
	PropMaxIdleConns       = "max_idle_conns"
	PropConnMaxLifetime    = "conn_max_lifetime"
	PropConnMaxIdleTime    = "conn_max_idle_time"
	PropMaxRetries         = "max_retries"
	PropRetryBackoff       = "retry_backoff"
	PropSlowQueryThreshold = "slow_query_threshold"
	PropLogLevel           = "log_level"
	PropAutoMigrate        = "auto_migrate"
)

// Unit is a named persistence unit: which data store to reach and how the
// factory for it is tuned.
type Unit struct {
	Name   string `yaml:"name" mapstructure:"name" validate:"required"`
	Driver string `yaml:"driver" mapstructure:"driver" validate:"required"`
	DSN    string `yaml:"dsn" mapstructure:"dsn" validate:"required"`

	MaxOpenConns int `yaml:"max_open_conns" mapstructure:"max_open_conns" validate:"min=1"`
	MaxIdleConns int `yaml:"max_idle_conns" mapstructure:"max_idle_conns" validate:"min=1,ltefield=MaxOpenConns"`

	// ConnMaxLifetime is the maximum time a connection may be reused (e.g. "1h").
	ConnMaxLifetime string `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	// ConnMaxIdleTime is the maximum time a connection may sit idle (e.g. "5m").
	ConnMaxIdleTime string `yaml:"conn_max_idle_time" mapstructure:"conn_max_idle_time"`

	// MaxRetries is the number of connection attempts before Open gives up.
	MaxRetries int `yaml:"max_retries" mapstructure:"max_retries" validate:"min=1"`
	// RetryBackoff is multiplied by the attempt number between attempts.
	RetryBackoff string `yaml:"retry_backoff" mapstructure:"retry_backoff"`

	SlowQueryThreshold string `yaml:"slow_query_threshold" mapstructure:"slow_query_threshold"`
	LogLevel           string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=silent error warn info"`
	AutoMigrate        bool   `yaml:"auto_migrate" mapstructure:"auto_migrate"`

	// Properties holds vendor settings with no dedicated field.
	Properties map[string]string `yaml:"properties" mapstructure:"properties"`
}

// ApplyDefaults sets defaults for zero-valued fields.
func (u *Unit) ApplyDefaults() {
	if u.MaxOpenConns <= 0 {
		u.MaxOpenConns = 25
	}
	if u.MaxIdleConns <= 0 {
		u.MaxIdleConns = min(5, u.MaxOpenConns)
	}
	if u.ConnMaxLifetime == "" {
		u.ConnMaxLifetime = "1h"
	}
	if u.ConnMaxIdleTime == "" {
		u.ConnMaxIdleTime = "5m"
	}
	if u.MaxRetries <= 0 {
		u.MaxRetries = 5
	}
	if u.RetryBackoff == "" {
		u.RetryBackoff = "1s"
	}
	if u.SlowQueryThreshold == "" {
		u.SlowQueryThreshold = "200ms"
	}
	if u.LogLevel == "" {
		u.LogLevel = "warn"
	}
}

// Validate checks required fields and that every duration parses.
func (u *Unit) Validate() error {
	if err := validation.Validate(u); err != nil {
		return fmt.Errorf("unit %q: %w", u.Name, err)
	}
	for key, val := range map[string]string{
		PropConnMaxLifetime:    u.ConnMaxLifetime,
		PropConnMaxIdleTime:    u.ConnMaxIdleTime,
		PropRetryBackoff:       u.RetryBackoff,
		PropSlowQueryThreshold: u.SlowQueryThreshold,
	} {
		if val == "" {
			continue
		}
		if _, err := time.ParseDuration(val); err != nil {
			return fmt.Errorf("unit %q: invalid %s %q: %w", u.Name, key, val, err)
		}
	}
	return nil
}

// WithProperties returns a copy of u with props applied. Known keys
// override the matching field; the rest are merged into Properties.
func (u Unit) WithProperties(props map[string]string) (Unit, error) {
	out := u
	out.Properties = maps.Clone(u.Properties)

	for rawKey, val := range props {
		key := strings.ToLower(strings.TrimSpace(rawKey))
		var err error
		switch key {
		case PropDriver:
			out.Driver = val
		case PropDSN:
			out.DSN = val
		case PropMaxOpenConns:
			out.MaxOpenConns, err = cast.ToIntE(val)
		case PropMaxIdleConns:
			out.MaxIdleConns, err = cast.ToIntE(val)
		case PropConnMaxLifetime:
			out.ConnMaxLifetime = val
		case PropConnMaxIdleTime:
			out.ConnMaxIdleTime = val
		case PropMaxRetries:
			out.MaxRetries, err = cast.ToIntE(val)
		case PropRetryBackoff:
			out.RetryBackoff = val
		case PropSlowQueryThreshold:
			out.SlowQueryThreshold = val
		case PropLogLevel:
			out.LogLevel = strings.ToLower(val)
		case PropAutoMigrate:
			out.AutoMigrate, err = cast.ToBoolE(val)
		default:
			if out.Properties == nil {
				out.Properties = make(map[string]string)
			}
			out.Properties[rawKey] = val
		}
		if err != nil {
			return Unit{}, fmt.Errorf("unit %q: property %s=%q: %w", u.Name, rawKey, val, err)
		}
	}
	return out, nil
}

// durations parses the duration fields. Call after Validate.
func (u *Unit) durations() (lifetime, idle, backoff, slow time.Duration) {
	lifetime, _ = time.ParseDuration(u.ConnMaxLifetime)
	idle, _ = time.ParseDuration(u.ConnMaxIdleTime)
	backoff, _ = time.ParseDuration(u.RetryBackoff)
	slow, _ = time.ParseDuration(u.SlowQueryThreshold)
	return
}
