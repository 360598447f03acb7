// Package config loads execkit settings.
//
// Sources, lowest precedence first: built-in defaults, a YAML file
// (execkit.yml in the working directory, ./config or the user config
// directory, or an explicit path), an optional .env.execkit file, and EXECKIT_*
// environment variables with underscores standing for nesting
// (EXECKIT_PROCESS_TIMEOUT=30s sets process.timeout).
//
//	cfg, err := config.Load(config.WithConfigFile("ci/execkit.yml"))
package config
