// Package linkguard is the invoker-facing entry point (spec.md §6): it
// wires the Skip Policy, Delay Cache, Probe Client, Visit Cache, Crawl
// Coordinator, Work Queue, and optionally the Local Server Bridge into
// one run and returns a Report once the queue goes idle.
package linkguard

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/arifwn/linkguard/internal/config"
	"github.com/arifwn/linkguard/internal/crawl"
	"github.com/arifwn/linkguard/internal/delay"
	"github.com/arifwn/linkguard/internal/events"
	"github.com/arifwn/linkguard/internal/fetcher"
	"github.com/arifwn/linkguard/internal/frontier"
	"github.com/arifwn/linkguard/internal/localserver"
	"github.com/arifwn/linkguard/internal/observe"
	"github.com/arifwn/linkguard/internal/queue"
	"github.com/arifwn/linkguard/internal/skip"
	"github.com/arifwn/linkguard/pkg/fileutil"
)

// Options is the Go rendering of the option table in spec.md §6.
type Options struct {
	Concurrency      int
	Paths            []string
	Recurse          bool
	Timeout          time.Duration
	LinksToSkip      []string
	SkipPredicate    skip.Predicate
	Markdown         *bool
	ServerRoot       string
	DirectoryListing bool
	Port             int
	// Logger receives the ambient observability stream (spec.md §4.10):
	// probe attempts, classified errors and the terminal run summary.
	// Nil means no observability output.
	Logger *slog.Logger
}

// Report is the terminal outcome of one Check call.
type Report struct {
	Passed bool
	Links  []crawl.LinkResult
}

const defaultConcurrency = 100

// Check runs one crawl to completion and returns its Report. A
// *config.ConfigurationError aborts before the queue is populated
// (spec.md §6): empty paths, mixed HTTP/filesystem inputs, serverRoot
// combined with HTTP inputs, or a glob matching zero files.
func Check(ctx context.Context, opts Options, subscriber events.Subscriber) (Report, error) {
	seeds, bridge, err := resolveInputs(opts)
	if err != nil {
		return Report{}, err
	}
	if bridge != nil {
		defer func() { _ = bridge.Stop(context.Background()) }()
	}

	skipPolicy, err := skip.New(opts.LinksToSkip, opts.SkipPredicate)
	if err != nil {
		return Report{}, &config.ConfigurationError{Reason: fmt.Sprintf("linksToSkip: %s", err)}
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	sink := observe.NewNoop()
	if opts.Logger != nil {
		sink = observe.New(opts.Logger)
	}

	results := crawl.NewResultSet()
	coordinator := crawl.New(crawl.Config{
		Probe:      fetcher.New(timeout, fetcher.DefaultUserAgent),
		SkipPolicy: skipPolicy,
		Delays:     delay.New(),
		Visited:    frontier.NewVisitCache(),
		Results:    results,
		Subscriber: &subscriber,
		Sink:       sink,
		Recurse:    opts.Recurse,
	})

	// The queue's own supervisor goroutines run for the queue's
	// lifetime, not merely until idle; queueCtx bounds that lifetime to
	// this call so q.Err() below can collect their first catastrophic
	// failure, if any, without blocking forever.
	queueCtx, cancelQueue := context.WithCancel(ctx)
	defer cancelQueue()

	q := queue.New(concurrency, coordinator.Handle, nil)
	coordinator.AttachQueue(q)
	q.Run(queueCtx)

	started := time.Now()
	for _, seed := range seeds {
		coordinator.Submit(seed, true, seed, nil)
	}
	q.Wait(ctx)
	cancelQueue()
	if err := q.Err(); err != nil {
		return Report{}, err
	}

	items := results.Items()
	passed := true
	var totalOK, totalBroken, totalSkipped int
	for _, item := range items {
		switch item.State {
		case crawl.StateBroken:
			passed = false
			totalBroken++
		case crawl.StateSkipped:
			totalSkipped++
		default:
			totalOK++
		}
	}
	sink.RecordSummary(len(items), totalOK, totalBroken, totalSkipped, time.Since(started))

	return Report{Passed: passed, Links: items}, nil
}

// resolveInputs validates opts.Paths, returning either the parsed HTTP
// seed URLs or (when every path is a filesystem glob) a started Local
// Server Bridge plus the seed URLs it rewrites those globs to,
// per spec.md §4.9 and §7's ConfigurationError cases.
func resolveInputs(opts Options) ([]url.URL, *localserver.Bridge, error) {
	if len(opts.Paths) == 0 {
		return nil, nil, &config.ConfigurationError{Reason: "paths must not be empty"}
	}

	httpCount, fsCount := 0, 0
	for _, p := range opts.Paths {
		if isHTTPInput(p) {
			httpCount++
		} else {
			fsCount++
		}
	}
	if httpCount > 0 && fsCount > 0 {
		return nil, nil, &config.ConfigurationError{Reason: "mixed HTTP and filesystem inputs are not allowed"}
	}
	if opts.ServerRoot != "" && httpCount > 0 {
		return nil, nil, &config.ConfigurationError{Reason: "serverRoot cannot be combined with HTTP inputs"}
	}

	if httpCount > 0 {
		seeds := make([]url.URL, 0, len(opts.Paths))
		for _, p := range opts.Paths {
			u, err := url.Parse(p)
			if err != nil {
				return nil, nil, &config.ConfigurationError{Reason: fmt.Sprintf("invalid URL %q: %s", p, err)}
			}
			seeds = append(seeds, *u)
		}
		return seeds, nil, nil
	}

	return resolveFilesystemInputs(opts)
}

func resolveFilesystemInputs(opts Options) ([]url.URL, *localserver.Bridge, error) {
	root := opts.ServerRoot
	if root == "" {
		root = "."
	}

	relPaths, err := localserver.ResolveGlobs(root, opts.Paths)
	if err != nil {
		return nil, nil, err
	}

	markdown := opts.Markdown != nil && *opts.Markdown
	if opts.Markdown == nil {
		markdown = hasMarkdownPath(relPaths)
	}

	bridge, err := localserver.New(localserver.Options{
		Root:             root,
		Port:             opts.Port,
		DirectoryListing: opts.DirectoryListing,
		Markdown:         markdown,
	})
	if err != nil {
		return nil, nil, err
	}

	if startErr := bridge.Start(); startErr != nil {
		return nil, nil, startErr
	}

	seeds := make([]url.URL, 0, len(relPaths))
	for _, rel := range relPaths {
		u, err := url.Parse(bridge.RewriteToURL(rel))
		if err != nil {
			_ = bridge.Stop(context.Background())
			return nil, nil, &config.ConfigurationError{Reason: fmt.Sprintf("rewrite %q: %s", rel, err)}
		}
		seeds = append(seeds, *u)
	}
	return seeds, bridge, nil
}

func isHTTPInput(p string) bool {
	lower := strings.ToLower(p)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// hasMarkdownPath implements SPEC_FULL.md §4.1a's auto-detect default:
// Markdown conversion turns on only if at least one resolved local path
// ends in .md.
func hasMarkdownPath(relPaths []string) bool {
	for _, p := range relPaths {
		if strings.EqualFold(fileutil.GetFileExtension(p), "md") {
			return true
		}
	}
	return false
}
