package config

import (
	"errors"
	"fmt"

	"github.com/arifwn/linkguard/pkg/failure"
)

var ErrFileDoesNotExist = errors.New("config file does not exist")
var ErrReadConfigFail = errors.New("failed to read config file")
var ErrConfigParsingFail = errors.New("failed to parse config file")
var ErrInvalidConfig = errors.New("Invalid config file")

// ConfigurationError is raised before a run starts, never mid-crawl
// (spec.md §7): empty paths, mixed HTTP/filesystem inputs, serverRoot
// combined with HTTP inputs, a glob matching zero files. It is always
// fatal — there is no recoverable variant — so Severity always reports
// SeverityFatal.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

func (e *ConfigurationError) Severity() failure.Severity {
	return failure.SeverityFatal
}

var _ failure.ClassifiedError = (*ConfigurationError)(nil)

func newConfigurationError(reason string) *ConfigurationError {
	return &ConfigurationError{Reason: reason}
}
