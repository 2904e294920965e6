package internal

import "io"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config  *Config
	version string
	// output receives command results and, for the MCP server, log lines.
	output io.Writer
	// watcher is the command line that runs the watcher as a child process.
	watcher []string
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithVersion sets the version reported by the MCP server.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// WithOutput sets the writer command results are printed to.
func WithOutput(w io.Writer) Option {
	return func(a *application) {
		a.output = w
	}
}

// WithWatcherCommand sets the executable and arguments that start the
// watcher in its own process. Used by RunLocal.
func WithWatcherCommand(name string, args ...string) Option {
	return func(a *application) {
		a.watcher = append([]string{name}, args...)
	}
}
