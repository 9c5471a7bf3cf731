package cli

// Config holds the global flags of a depot invocation
type Config struct {
	ConfigFile string
	Root       string
	Package    string
	Verbosity  string
	Jobs       int
	Notify     bool
	Version    string
}

// NewConfig creates a CLI configuration with defaults
func NewConfig() *Config {
	return &Config{
		Root:      ".",
		Verbosity: "info",
	}
}
