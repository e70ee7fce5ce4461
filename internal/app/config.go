package app

// Config holds the entrypoint-level settings an App is built from.
type Config struct {
	// ConfigPaths are files or directories searched for .hcl configuration.
	ConfigPaths []string

	LogFormat string
	LogLevel  string
}
