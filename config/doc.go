// Package config loads service configuration with viper.
//
// LoadConfig resolves a config.yml and an optional .env file, reads the YAML
// first, then overlays environment variables carrying the service prefix:
//
//	PERSISTD_PERSISTENCE_UNIT=orders  ->  persistence.unit
//
// Application configs embed ServiceConfig to gain name, environment and
// logging settings plus the ApplyDefaults/Validate contract used by
// bootstrap.
package config
