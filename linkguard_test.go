package linkguard_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/arifwn/linkguard"
	"github.com/arifwn/linkguard/internal/config"
	"github.com/arifwn/linkguard/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckRejectsEmptyPaths(t *testing.T) {
	_, err := linkguard.Check(context.Background(), linkguard.Options{}, events.Subscriber{})
	require.Error(t, err)
	var cfgErr *config.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestCheckRejectsMixedHTTPAndFilesystemPaths(t *testing.T) {
	_, err := linkguard.Check(context.Background(), linkguard.Options{
		Paths: []string{"https://example.com", "./docs/*.md"},
	}, events.Subscriber{})
	require.Error(t, err)
	var cfgErr *config.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestCheckRejectsServerRootWithHTTPPaths(t *testing.T) {
	_, err := linkguard.Check(context.Background(), linkguard.Options{
		Paths:      []string{"https://example.com"},
		ServerRoot: t.TempDir(),
	}, events.Subscriber{})
	require.Error(t, err)
	var cfgErr *config.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestCheckRejectsGlobMatchingNoFiles(t *testing.T) {
	_, err := linkguard.Check(context.Background(), linkguard.Options{
		Paths:      []string{"nothing-*.html"},
		ServerRoot: t.TempDir(),
	}, events.Subscriber{})
	require.Error(t, err)
	var cfgErr *config.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestCheckHTTPModeOneOKPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`<html>ok</html>`))
	}))
	defer server.Close()

	var seen []events.LinkEvent
	report, err := linkguard.Check(context.Background(), linkguard.Options{
		Paths: []string{server.URL},
	}, events.Subscriber{
		OnLink: func(e events.LinkEvent) { seen = append(seen, e) },
	})

	require.NoError(t, err)
	assert.True(t, report.Passed)
	require.Len(t, report.Links, 1)
	assert.Equal(t, 200, report.Links[0].Status)
	require.Len(t, seen, 1, "OnLink must fire once per result")
}

func TestCheckHTTPModeBrokenLinkFailsReport(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`<html><a href="/missing">x</a></html>`))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	report, err := linkguard.Check(context.Background(), linkguard.Options{
		Paths:   []string{server.URL + "/"},
		Recurse: true,
	}, events.Subscriber{})

	require.NoError(t, err)
	assert.False(t, report.Passed)
	require.Len(t, report.Links, 2)
}

// TestCheckLocalServerModeServesMarkdownAutomatically covers the Local
// Server Bridge end to end: a glob resolved against ServerRoot starts
// a throwaway static server, and Markdown is auto-detected on because
// one of the resolved paths ends in .md.
func TestCheckLocalServerModeServesMarkdownAutomatically(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.md"), []byte("# Hello\n\n[broken](/nope)\n"), 0o644))

	report, err := linkguard.Check(context.Background(), linkguard.Options{
		Paths:      []string{"*.md"},
		ServerRoot: dir,
		Recurse:    true,
		Timeout:    5 * time.Second,
	}, events.Subscriber{})

	require.NoError(t, err)
	assert.False(t, report.Passed)

	var foundIndex, foundMissing bool
	for _, link := range report.Links {
		switch link.URL.Path {
		case "/index.md":
			foundIndex = true
			assert.Equal(t, 200, link.Status)
		case "/nope":
			foundMissing = true
			assert.Equal(t, 404, link.Status)
		}
	}
	assert.True(t, foundIndex, "seed markdown file should have been probed")
	assert.True(t, foundMissing, "the broken relative link inside the markdown should have been discovered")
}

func TestCheckLocalServerModeMarkdownDefaultsOffWithoutMDPaths(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte(`<html>ok</html>`), 0o644))

	report, err := linkguard.Check(context.Background(), linkguard.Options{
		Paths:      []string{"*.html"},
		ServerRoot: dir,
	}, events.Subscriber{})

	require.NoError(t, err)
	assert.True(t, report.Passed)
	require.Len(t, report.Links, 1)
}
