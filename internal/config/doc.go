// Package config handles YAML configuration loading with environment variable
// substitution for the platform server.
package config
