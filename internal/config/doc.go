// Package config loads, validates, and defaults the TOML configuration for
// shortcast. Paths are expanded, secrets can be overridden from the
// environment, and a sample config can be materialized for new installs.
package config
