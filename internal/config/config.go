package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/arifwn/linkguard/internal/skip"
)

// Config is the validated, immutable rendering of the option table in
// spec.md §6. Build it with WithDefault(...).With...(...).Build(), or
// load one from a JSON file with WithConfigFile.
type Config struct {
	//===============
	// Crawl scope
	//===============
	// Starting URLs or filesystem globs.
	paths []string
	// Whether discovered same-origin links are recursively crawled.
	recurse bool

	//===============
	// Skip policy
	//===============
	// Regex patterns; a URL matching any of them is marked SKIPPED.
	linksToSkip []string
	// Optional caller-supplied predicate, consulted before the regex list.
	skipPredicate skip.Predicate

	//===============
	// Politeness / fetch
	//===============
	// Maximum number of crawl worker goroutines processing URLs concurrently;
	// it does not control OS threads or CPU parallelism.
	concurrency int
	// Maximum time of a single probe attempt.
	timeout time.Duration

	//===============
	// Local server
	//===============
	// Markdown, when non-nil, forces .md -> HTML conversion on or off
	// for the Local Server Bridge; nil auto-detects per input extension.
	markdown *bool
	// Root directory for local (filesystem) mode; when empty, local mode
	// serves the current working directory ("."). It is not derived from
	// the paths.
	serverRoot string
	// Whether the local server lists directories.
	directoryListing bool
	// Local server port; 0 picks a random port in [5000, 6000).
	port int
}

type configDTO struct {
	Paths            []string `json:"paths"`
	Recurse          bool     `json:"recurse,omitempty"`
	LinksToSkip      []string `json:"linksToSkip,omitempty"`
	Concurrency      int      `json:"concurrency,omitempty"`
	Timeout          Duration `json:"timeout,omitempty"`
	Markdown         *bool    `json:"markdown,omitempty"`
	ServerRoot       string   `json:"serverRoot,omitempty"`
	DirectoryListing bool     `json:"directoryListing,omitempty"`
	Port             int      `json:"port,omitempty"`
}

// Duration lets configDTO accept either a JSON number of nanoseconds
// or a Go duration string ("10s") in the config file.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		*d = Duration(time.Duration(v))
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
	default:
		return fmt.Errorf("invalid duration value: %v", raw)
	}
	return nil
}

func newConfigFromDTO(dto configDTO) (Config, error) {
	cfg := WithDefault(dto.Paths)

	cfg.recurse = dto.Recurse
	if len(dto.LinksToSkip) > 0 {
		cfg.linksToSkip = dto.LinksToSkip
	}
	if dto.Concurrency != 0 {
		cfg.concurrency = dto.Concurrency
	}
	if dto.Timeout != 0 {
		cfg.timeout = time.Duration(dto.Timeout)
	}
	if dto.Markdown != nil {
		cfg.markdown = dto.Markdown
	}
	if dto.ServerRoot != "" {
		cfg.serverRoot = dto.ServerRoot
	}
	cfg.directoryListing = dto.DirectoryListing
	if dto.Port != 0 {
		cfg.port = dto.Port
	}

	return cfg.Build()
}

func WithConfigFile(path string) (Config, error) {
	_, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	configContent, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}
	cfgDTO := configDTO{}

	err = json.Unmarshal(configContent, &cfgDTO)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}

	return newConfigFromDTO(cfgDTO)
}

// WithDefault creates a new Config builder seeded with paths and
// default values for everything else. paths is mandatory; Build
// returns a ConfigurationError if it ends up empty.
func WithDefault(paths []string) *Config {
	return &Config{
		paths:            paths,
		recurse:          true,
		concurrency:      100,
		timeout:          10 * time.Second,
		directoryListing: false,
		port:             0,
	}
}

func (c *Config) WithPaths(paths []string) *Config {
	c.paths = paths
	return c
}

func (c *Config) WithRecurse(recurse bool) *Config {
	c.recurse = recurse
	return c
}

func (c *Config) WithLinksToSkip(patterns []string) *Config {
	c.linksToSkip = patterns
	return c
}

func (c *Config) WithSkipPredicate(predicate skip.Predicate) *Config {
	c.skipPredicate = predicate
	return c
}

func (c *Config) WithConcurrency(concurrency int) *Config {
	c.concurrency = concurrency
	return c
}

func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.timeout = timeout
	return c
}

func (c *Config) WithMarkdown(markdown *bool) *Config {
	c.markdown = markdown
	return c
}

func (c *Config) WithServerRoot(root string) *Config {
	c.serverRoot = root
	return c
}

func (c *Config) WithDirectoryListing(listing bool) *Config {
	c.directoryListing = listing
	return c
}

func (c *Config) WithPort(port int) *Config {
	c.port = port
	return c
}

// Build validates the accumulated fields and returns the finished
// Config. Validation here covers only what can be decided without
// inspecting the filesystem or network; mixed HTTP/filesystem inputs
// and zero-match globs are caught later, when paths are actually
// resolved (internal/localserver, linkguard.Check).
func (c *Config) Build() (Config, error) {
	if len(c.paths) == 0 {
		return Config{}, newConfigurationError("paths must not be empty")
	}
	return *c, nil
}

func (c Config) Paths() []string {
	paths := make([]string, len(c.paths))
	copy(paths, c.paths)
	return paths
}

func (c Config) Recurse() bool {
	return c.recurse
}

func (c Config) LinksToSkip() []string {
	patterns := make([]string, len(c.linksToSkip))
	copy(patterns, c.linksToSkip)
	return patterns
}

func (c Config) SkipPredicate() skip.Predicate {
	return c.skipPredicate
}

func (c Config) Concurrency() int {
	return c.concurrency
}

func (c Config) Timeout() time.Duration {
	return c.timeout
}

func (c Config) Markdown() *bool {
	return c.markdown
}

func (c Config) ServerRoot() string {
	return c.serverRoot
}

func (c Config) DirectoryListing() bool {
	return c.directoryListing
}

func (c Config) Port() int {
	return c.port
}
