// Package config loads process configuration from the environment and
// sets up logging.
package config
