// Package config provides configuration loading and validation for the voice
// relay service. It handles YAML-based configuration with struct validation
// and environment variable expansion for credentials.
package config
