// Package config loads application settings from STUDIO_-prefixed environment
// variables and an optional YAML file, applies defaults and validates the
// result before any component is built from it.
package config
