// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// The listen port also honors WEBSOCKET_PORT when the file leaves it unset.
// See configs/relay.yaml for an annotated example.
package config
