// Package config holds the rediswire-cli configuration (~/.rediswire/cli.yaml).
//
//   - spec.go: CLIConfig and Profile, conversion to client.Options
//   - loader.go: loading through confloader (defaults, file, REDISWIRE_
//     environment) and saving with yaml.v3
//   - secret.go: Keyring, which seals profile passwords at rest
//
// Profile passwords are stored sealed ("enc:v1:..."). The key lives next
// to the config file and is created on first use with mode 0600.
package config
