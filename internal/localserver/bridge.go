// Package localserver implements the Local Server Bridge (spec.md
// §4.9): when a run's inputs are filesystem paths rather than HTTP
// URLs, it resolves globs against a server root, serves that root over
// a loopback-only static HTTP server, and rewrites each resolved path
// into a URL the crawl engine can probe like any other.
package localserver

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/arifwn/linkguard/internal/config"
	"github.com/arifwn/linkguard/pkg/fileutil"
	"github.com/arifwn/linkguard/pkg/hashutil"
	"github.com/gomarkdown/markdown"
	"golang.org/x/net/html"
)

const (
	minPort = 5000
	maxPort = 6000
)

// Bridge owns the static HTTP server and the Markdown conversion cache
// for one run. It is only constructed when every input is a filesystem
// path (spec.md §4.9: "Mixed HTTP and filesystem inputs are rejected
// with a configuration error").
type Bridge struct {
	root          string
	directoryList bool
	markdown      bool
	server        *http.Server
	listener      net.Listener
	port          int

	mu      sync.Mutex
	mdCache map[string][]byte
}

// Options configures a Bridge.
type Options struct {
	// Root is the directory the static server roots itself at.
	Root string
	// Port is the requested loopback port. Zero selects a random port
	// in [5000, 6000), per spec.md §4.9 step 2.
	Port int
	// DirectoryListing toggles index pages for directory requests.
	DirectoryListing bool
	// Markdown enables on-the-fly .md -> HTML conversion.
	Markdown bool
}

// New validates and constructs a Bridge. It does not start listening;
// call Start for that.
func New(opts Options) (*Bridge, error) {
	if opts.Root == "" {
		return nil, &config.ConfigurationError{Reason: "serverRoot must not be empty"}
	}
	abs, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, &config.ConfigurationError{Reason: fmt.Sprintf("resolve serverRoot: %s", err)}
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return nil, &config.ConfigurationError{Reason: fmt.Sprintf("serverRoot %q is not a directory", opts.Root)}
	}
	return &Bridge{
		root:          abs,
		directoryList: opts.DirectoryListing,
		markdown:      opts.Markdown,
		port:          opts.Port,
		mdCache:       make(map[string][]byte),
	}, nil
}

// ResolveGlobs resolves patterns against root, returning each matched
// file's path relative to root with forward slashes, per spec.md §4.9
// step 1: "Resolves globs against the server root to concrete file
// paths, then strips the server root prefix." A pattern matching zero
// files is a configuration error, not a silent no-op.
func ResolveGlobs(root string, patterns []string) ([]string, error) {
	var relPaths []string
	for _, pattern := range patterns {
		full := filepath.Join(root, pattern)
		matches, err := filepath.Glob(full)
		if err != nil {
			return nil, &config.ConfigurationError{Reason: fmt.Sprintf("invalid glob %q: %s", pattern, err)}
		}
		if len(matches) == 0 {
			return nil, &config.ConfigurationError{Reason: fmt.Sprintf("glob %q matched no files under %q", pattern, root)}
		}
		for _, m := range matches {
			rel, err := filepath.Rel(root, m)
			if err != nil {
				return nil, &config.ConfigurationError{Reason: fmt.Sprintf("relativize %q: %s", m, err)}
			}
			relPaths = append(relPaths, filepath.ToSlash(rel))
		}
	}
	return relPaths, nil
}

// Start binds the static server to 127.0.0.1 and begins serving in the
// background. It must be called once, before RewriteToURL.
func (b *Bridge) Start() error {
	port := b.port
	if port == 0 {
		p, err := randomPort()
		if err != nil {
			return err
		}
		port = p
	}
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return fmt.Errorf("listen on local server port: %w", err)
	}
	b.listener = ln
	b.port = ln.Addr().(*net.TCPAddr).Port
	b.server = &http.Server{Handler: http.HandlerFunc(b.handle)}
	go func() {
		_ = b.server.Serve(ln)
	}()
	return nil
}

// Port returns the bound port; only meaningful after Start.
func (b *Bridge) Port() int {
	return b.port
}

// RewriteToURL turns a root-relative path into the URL the running
// server answers for it, per spec.md §4.9 step 3.
func (b *Bridge) RewriteToURL(relPath string) string {
	return fmt.Sprintf("http://localhost:%d/%s", b.port, strings.TrimPrefix(relPath, "/"))
}

// Stop tears the server down; spec.md §4.9 step 4 calls for this on
// onIdle().
func (b *Bridge) Stop(ctx context.Context) error {
	if b.server == nil {
		return nil
	}
	return b.server.Shutdown(ctx)
}

func (b *Bridge) handle(w http.ResponseWriter, r *http.Request) {
	cleaned := filepath.Clean("/" + r.URL.Path)
	target := filepath.Join(b.root, cleaned)

	info, err := os.Stat(target)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if info.IsDir() {
		if !b.directoryList {
			http.Error(w, "directory listing disabled", http.StatusForbidden)
			return
		}
		b.serveDirectory(w, target, cleaned)
		return
	}

	if b.markdown && strings.EqualFold(fileutil.GetFileExtension(target), "md") {
		b.serveMarkdown(w, target)
		return
	}

	http.ServeFile(w, r, target)
}

func (b *Bridge) serveMarkdown(w http.ResponseWriter, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		http.Error(w, "read source", http.StatusInternalServerError)
		return
	}
	digest, err := hashutil.HashBytes(data, hashutil.HashAlgoBLAKE3)
	if err != nil {
		http.Error(w, "hash source", http.StatusInternalServerError)
		return
	}

	b.mu.Lock()
	rendered, ok := b.mdCache[digest]
	b.mu.Unlock()
	if !ok {
		rendered = markdown.ToHTML(data, nil, nil)
		b.mu.Lock()
		b.mdCache[digest] = rendered
		b.mu.Unlock()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(rendered)
}

func (b *Bridge) serveDirectory(w http.ResponseWriter, dir, urlPath string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		http.Error(w, "read directory", http.StatusInternalServerError)
		return
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = fmt.Fprintf(w, "<!doctype html><html><body><h1>%s</h1><ul>\n", html.EscapeString(urlPath))
	for _, name := range names {
		href := strings.TrimSuffix(urlPath, "/") + "/" + name
		_, _ = fmt.Fprintf(w, "<li><a href=\"%s\">%s</a></li>\n", html.EscapeString(href), html.EscapeString(name))
	}
	_, _ = fmt.Fprint(w, "</ul></body></html>")
}

func randomPort() (int, error) {
	span := big.NewInt(int64(maxPort - minPort))
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return 0, fmt.Errorf("pick random local server port: %w", err)
	}
	return minPort + int(n.Int64()), nil
}
