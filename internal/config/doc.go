// Package config resolves application configuration from flags, environment
// variables, and an optional config file via viper, and validates the result
// into an explicit Config value that is passed to the components that need it.
package config
