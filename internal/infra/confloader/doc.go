// Package confloader loads layered configuration with koanf.
//
// Priority (highest to lowest):
//
//  1. Overrides (command-line flags)
//  2. Environment variables (REDISWIRE_ prefix)
//  3. Configuration file (YAML)
//  4. Defaults
//
// Environment variable names map to keys by dropping the prefix, lower
// casing, and treating a double underscore as the nesting separator:
// REDISWIRE_LOG__LEVEL sets log.level and REDISWIRE_DEFAULT_PROFILE sets
// default_profile.
//
// Watcher reloads configuration when a watched file changes on disk.
package confloader
