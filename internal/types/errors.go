package types

import "fmt"

// ConfigError reports invalid or contradictory configuration, such as a
// directory exclude pattern that would exclude the traversal root. It is
// fatal and aborts the run before traversal.
type ConfigError struct {
	Message string
}

// Error implements the error interface.
func (configError *ConfigError) Error() string {
	return "invalid configuration: " + configError.Message
}

// NewConfigError constructs a ConfigError from a format string.
func NewConfigError(format string, arguments ...any) *ConfigError {
	return &ConfigError{Message: fmt.Sprintf(format, arguments...)}
}

// InvalidPathError reports a path that escapes the declared root when a
// root-relative path is required.
type InvalidPathError struct {
	Path string
	Root string
}

// Error implements the error interface.
func (invalidPathError *InvalidPathError) Error() string {
	return fmt.Sprintf("path %q escapes root %q", invalidPathError.Path, invalidPathError.Root)
}

// PathResolutionError reports an explicit extra file that does not exist.
// It is recoverable: the run continues with the remaining files.
type PathResolutionError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (resolutionError *PathResolutionError) Error() string {
	if resolutionError.Err != nil {
		return fmt.Sprintf("resolving %q: %v", resolutionError.Path, resolutionError.Err)
	}
	return fmt.Sprintf("resolving %q: file does not exist", resolutionError.Path)
}

// Unwrap returns the underlying cause.
func (resolutionError *PathResolutionError) Unwrap() error {
	return resolutionError.Err
}

// ReadError reports a file that could not be read during content collection.
// It is recoverable: the renderer emits a placeholder block for the file.
type ReadError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (readError *ReadError) Error() string {
	return fmt.Sprintf("reading %q: %v", readError.Path, readError.Err)
}

// Unwrap returns the underlying cause.
func (readError *ReadError) Unwrap() error {
	return readError.Err
}
