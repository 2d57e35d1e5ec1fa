// Package config handles configuration loading and management for hitbatch.
//
// It provides functionality for:
//   - Loading configuration from .hitbatch.json (JSON5) or .hitbatch.yaml files
//   - Layering a <name>.local.<ext> file over the main one
//   - Default configuration values and validation
//   - Building the run controller configuration
package config
