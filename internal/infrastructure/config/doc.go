// Package config loads and validates BlueMe server configuration.
//
// Configuration comes from a YAML file with environment variable overrides
// (BLUEME_* pattern). Defaults are applied first, then file values, then
// environment. Validation rejects configurations that would start an
// insecure or broken server (missing JWT secret, invalid port, etc.).
package config
