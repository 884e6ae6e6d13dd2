// Package config provides the configuration of the humanizer CLI and HTTP
// server: defaults, the YAML configuration file, and HUMANIZER_*
// environment overrides.
package config
