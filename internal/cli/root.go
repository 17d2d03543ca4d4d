package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/arifwn/linkguard"
	"github.com/arifwn/linkguard/internal/build"
	"github.com/arifwn/linkguard/internal/config"
	"github.com/arifwn/linkguard/internal/events"
	"github.com/spf13/cobra"
)

var (
	cfgFile          string
	paths            []string
	recurse          bool
	concurrency      int
	timeout          time.Duration
	linksToSkip      []string
	markdownFlag     string
	serverRoot       string
	directoryListing bool
	port             int
	verbose          bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "linkguard",
	Short: "A concurrent broken-link checker for websites and local files.",
	Long: `linkguard crawls a site or a set of local files, recursively following
links that stay under the starting URL on the same host, and reports
which links resolve and which are broken.

It can check a live site over HTTP, or a folder of static/Markdown
files served from a throwaway local HTTP server.`,
	Version: build.FullVersion(),
	Run: func(cmd *cobra.Command, args []string) {
		if len(paths) == 0 {
			fmt.Fprintf(os.Stderr, "Error: --path is required. Please provide at least one URL or filesystem glob.\n")
			cmd.Usage()
			os.Exit(1)
		}

		cfg := InitConfig(paths)

		var logger *slog.Logger
		if verbose {
			logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
		}

		opts := linkguard.Options{
			Concurrency:      cfg.Concurrency(),
			Paths:            cfg.Paths(),
			Recurse:          cfg.Recurse(),
			Timeout:          cfg.Timeout(),
			LinksToSkip:      cfg.LinksToSkip(),
			Markdown:         cfg.Markdown(),
			ServerRoot:       cfg.ServerRoot(),
			DirectoryListing: cfg.DirectoryListing(),
			Port:             cfg.Port(),
			Logger:           logger,
		}

		report, err := linkguard.Check(context.Background(), opts, events.Subscriber{
			OnLink: func(e events.LinkEvent) {
				fmt.Printf("[%s] %d %s\n", e.State, e.Status, e.URL.String())
			},
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}

		fmt.Printf("\nChecked %d link(s)\n", len(report.Links))
		if !report.Passed {
			os.Exit(1)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "config file path (e.g., /home/myuser/config.json)")
	rootCmd.PersistentFlags().StringArrayVar(&paths, "path", []string{}, "one or more starting URLs or filesystem globs (can be repeated)")
	rootCmd.PersistentFlags().BoolVar(&recurse, "recurse", true, "follow same-origin links discovered while crawling")
	rootCmd.PersistentFlags().IntVar(&concurrency, "concurrency", 0, "number of concurrent probe workers (0 uses the default)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "timeout for a single probe attempt")
	rootCmd.PersistentFlags().StringArrayVar(&linksToSkip, "skip", []string{}, "regex pattern for links to mark SKIPPED (can be repeated)")
	rootCmd.PersistentFlags().StringVar(&markdownFlag, "markdown", "", "force Markdown conversion on the local server: \"true\", \"false\", or empty to auto-detect")
	rootCmd.PersistentFlags().StringVar(&serverRoot, "server-root", "", "root directory for local (filesystem) mode")
	rootCmd.PersistentFlags().BoolVar(&directoryListing, "directory-listing", false, "allow the local server to list directories")
	rootCmd.PersistentFlags().IntVar(&port, "port", 0, "local server port (0 picks a random port in [5000, 6000))")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "emit structured probe/error/summary logging to stderr")
}

// InitConfig reads in config file and flags if set.
// paths is a mandatory parameter and must contain at least one URL or glob.
func InitConfig(paths []string) config.Config {
	cfg, err := InitConfigWithError(paths)
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		os.Exit(1)
	}
	return cfg
}

// InitConfigWithError reads in config file and flags if set, returning any errors.
// paths is a mandatory parameter and must contain at least one URL or glob.
// This makes it easier to test error cases.
func InitConfigWithError(paths []string) (config.Config, error) {
	if len(paths) == 0 {
		return config.Config{}, fmt.Errorf("%w: paths cannot be empty", config.ErrInvalidConfig)
	}

	if cfgFile != "" {
		cfg, err := config.WithConfigFile(cfgFile)
		if err != nil {
			return cfg, fmt.Errorf("error initializing config from file: %w", err)
		}
		return cfg, nil
	}

	builder := config.WithDefault(paths).WithRecurse(recurse)

	if concurrency > 0 {
		builder = builder.WithConcurrency(concurrency)
	}
	if timeout > 0 {
		builder = builder.WithTimeout(timeout)
	}
	if len(linksToSkip) > 0 {
		builder = builder.WithLinksToSkip(linksToSkip)
	}
	switch markdownFlag {
	case "true":
		v := true
		builder = builder.WithMarkdown(&v)
	case "false":
		v := false
		builder = builder.WithMarkdown(&v)
	}
	if serverRoot != "" {
		builder = builder.WithServerRoot(serverRoot)
	}
	if directoryListing {
		builder = builder.WithDirectoryListing(directoryListing)
	}
	if port > 0 {
		builder = builder.WithPort(port)
	}

	return builder.Build()
}

func ResetFlags() {
	cfgFile = ""
	paths = []string{}
	recurse = true
	concurrency = 0
	timeout = 0
	linksToSkip = []string{}
	markdownFlag = ""
	serverRoot = ""
	directoryListing = false
	port = 0
	verbose = false
}

// Test helper functions to set flag values from tests.
func SetConfigFileForTest(path string) {
	cfgFile = path
}

func SetPathsForTest(p []string) {
	paths = p
}

func SetRecurseForTest(r bool) {
	recurse = r
}

func SetConcurrencyForTest(c int) {
	concurrency = c
}

func SetTimeoutForTest(t time.Duration) {
	timeout = t
}

func SetLinksToSkipForTest(patterns []string) {
	linksToSkip = patterns
}

func SetServerRootForTest(root string) {
	serverRoot = root
}

func SetDirectoryListingForTest(listing bool) {
	directoryListing = listing
}

func SetPortForTest(p int) {
	port = p
}

func SetVerboseForTest(v bool) {
	verbose = v
}
