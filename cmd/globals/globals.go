// Package globals holds flags shared by every subcommand of both CLI
// entry points (runtime and pm).
package globals

// Globals carries flags common to all subcommands.
type Globals struct {
	Verbose    bool   `help:"Enable verbose (debug) logging" short:"v" env:"PKGRUN_VERBOSE"`
	ConfigFile string `help:"Path to the INI-style config file" env:"PKGRUN_CONFIG"`
}
