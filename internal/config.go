package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/bock/internal/index"
	"github.com/starford/bock/internal/storage"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Wiki    WikiConfig        `yaml:"wiki"`
	Index   IndexConfig       `yaml:"index"`
	Watch   WatchConfig       `yaml:"watch"`
	Refresh RefreshConfig     `yaml:"refresh"`
	Export  ExportConfig      `yaml:"export"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Wiki.Validate(); err != nil {
		return err
	}
	if err := c.Index.Validate(); err != nil {
		return err
	}
	if err := c.Watch.Validate(); err != nil {
		return err
	}
	return c.Export.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// WikiConfig locates the article root. The root must be an absolute path
// to a git working tree; that is checked when the repository is opened so
// each cause gets its own exit code.
type WikiConfig struct {
	Path     string `yaml:"path"`
	MaxDepth int    `yaml:"max_depth"`
}

// Validate validates the wiki configuration.
func (c *WikiConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.MaxDepth, validation.Required, validation.Min(1), validation.Max(32)),
	)
}

// IndexConfig holds search index settings.
type IndexConfig struct {
	Folder        string        `yaml:"folder"`
	MinTermLength int           `yaml:"min_term_length"`
	MaxResults    int           `yaml:"max_results"`
	FragmentSize  int           `yaml:"fragment_size"`
	MaxFragments  int           `yaml:"max_fragments"`
	Fuzziness     int           `yaml:"fuzziness"`
	LockTimeout   time.Duration `yaml:"lock_timeout"`
}

// Validate validates the index configuration.
func (c *IndexConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Folder, validation.Required),
		validation.Field(&c.MinTermLength, validation.Required, validation.Min(1)),
		validation.Field(&c.MaxResults, validation.Required, validation.Min(1)),
		validation.Field(&c.FragmentSize, validation.Required, validation.Min(20)),
		validation.Field(&c.MaxFragments, validation.Required, validation.Min(1)),
		validation.Field(&c.Fuzziness, validation.Min(0), validation.Max(2)),
		validation.Field(&c.LockTimeout, validation.Required),
	)
}

// Configuration returns the index configuration for the article root.
func (c *IndexConfig) Configuration(root string) *index.Configuration {
	return &index.Configuration{
		Root:          root,
		Folder:        c.Folder,
		MinTermLength: c.MinTermLength,
		MaxResults:    c.MaxResults,
		FragmentSize:  c.FragmentSize,
		MaxFragments:  c.MaxFragments,
		Fuzziness:     c.Fuzziness,
		LockTimeout:   c.LockTimeout,
	}
}

// WatchConfig controls how the watcher learns about changes.
//
// Mode is one of:
//   - "auto" (default): file notifications, polling when they are unavailable.
//   - "notify": file notifications only.
//   - "poll": a full pass every PollInterval.
type WatchConfig struct {
	Mode         string        `yaml:"mode"`
	Debounce     time.Duration `yaml:"debounce"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = index.WatchAuto
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(index.WatchAuto, index.WatchNotify, index.WatchPoll)),
		validation.Field(&c.Debounce, validation.Required),
		validation.Field(&c.PollInterval, validation.Required, validation.Min(100*time.Millisecond)),
	)
}

// RefreshConfig holds the credentials accepted by the refresh endpoint.
// Refresh is disabled when both are empty.
type RefreshConfig struct {
	Key          string `yaml:"key"`
	GitHubSecret string `yaml:"github_secret"`
}

// Enabled returns true when refresh requests can be authorised.
func (c *RefreshConfig) Enabled() bool {
	return c.Key != "" || c.GitHubSecret != ""
}

// ExportConfig holds the SQLite export destination.
type ExportConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the export configuration.
func (c *ExportConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8000,
			},
		},
		Wiki: WikiConfig{
			MaxDepth: storage.DefaultMaxDepth,
		},
		Index: IndexConfig{
			Folder:        storage.IndexFolder,
			MinTermLength: index.DefaultMinTermLength,
			MaxResults:    index.DefaultMaxResults,
			FragmentSize:  index.DefaultFragmentSize,
			MaxFragments:  index.DefaultMaxFragments,
			Fuzziness:     index.DefaultFuzziness,
			LockTimeout:   index.DefaultLockTimeout,
		},
		Watch: WatchConfig{
			Mode:         index.WatchAuto,
			Debounce:     200 * time.Millisecond,
			PollInterval: 5 * time.Second,
		},
		Export: ExportConfig{
			Path: "articles.db",
		},
	}
}
