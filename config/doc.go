// Package config provides configuration loading for a nodeflow host
// process: engine execution defaults, cache backend selection, history
// store connection settings, credential sealing, telemetry, and metrics.
//
// Configuration loads from a YAML file with environment variable
// overrides, in that precedence order over compiled-in defaults.
package config
