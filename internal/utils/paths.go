// Package utils contains general helper functions used across the export tool.
package utils

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/frontierkodiak/repoexport/internal/types"
)

const pathSegmentSeparator = "/"

// NormalizePath canonicalizes a user-supplied path into forward-slash form
// with no trailing separator and with "." and ".." segments resolved.
// The function is idempotent: normalizing an already-normalized path returns
// it unchanged.
func NormalizePath(rawPath string) string {
	slashPath := strings.ReplaceAll(rawPath, "\\", pathSegmentSeparator)
	cleanedPath := path.Clean(slashPath)
	if cleanedPath == "/" {
		return cleanedPath
	}
	return strings.TrimSuffix(cleanedPath, pathSegmentSeparator)
}

// RelativeToRoot returns the root-relative slash form of candidatePath.
// The root must be an absolute native path. Relative candidates are resolved
// against the root. An InvalidPathError is returned when the candidate
// escapes the root via traversal or is an absolute path outside the root;
// callers that intend to reference external locations must resolve those
// through the external file resolver instead.
func RelativeToRoot(rootPath string, candidatePath string) (string, error) {
	normalizedCandidate := NormalizePath(candidatePath)
	cleanRoot := filepath.ToSlash(filepath.Clean(rootPath))

	if path.IsAbs(normalizedCandidate) || looksLikeWindowsAbsolute(candidatePath) {
		if normalizedCandidate == cleanRoot {
			return ".", nil
		}
		if strings.HasPrefix(normalizedCandidate, cleanRoot+pathSegmentSeparator) {
			return strings.TrimPrefix(normalizedCandidate, cleanRoot+pathSegmentSeparator), nil
		}
		return "", &types.InvalidPathError{Path: candidatePath, Root: rootPath}
	}

	resolvedPath := path.Join(cleanRoot, normalizedCandidate)
	if resolvedPath == cleanRoot {
		return ".", nil
	}
	if !strings.HasPrefix(resolvedPath, cleanRoot+pathSegmentSeparator) {
		return "", &types.InvalidPathError{Path: candidatePath, Root: rootPath}
	}
	return strings.TrimPrefix(resolvedPath, cleanRoot+pathSegmentSeparator), nil
}

// looksLikeWindowsAbsolute reports whether the raw path carries a drive
// letter prefix such as "C:\" which path.IsAbs does not recognize.
func looksLikeWindowsAbsolute(rawPath string) bool {
	if len(rawPath) < 3 {
		return false
	}
	driveLetter := rawPath[0]
	isLetter := (driveLetter >= 'a' && driveLetter <= 'z') || (driveLetter >= 'A' && driveLetter <= 'Z')
	return isLetter && rawPath[1] == ':' && (rawPath[2] == '\\' || rawPath[2] == '/')
}

// RelativePathOrSelf calculates the slash-form relative path from root to
// fullPath. It returns the cleaned fullPath if relative calculation fails and
// "." if fullPath and root resolve to the same directory.
func RelativePathOrSelf(fullPath string, rootPath string) string {
	cleanPath := filepath.Clean(fullPath)
	absoluteRoot, absoluteError := filepath.Abs(rootPath)
	if absoluteError != nil {
		return filepath.ToSlash(cleanPath)
	}
	cleanAbsoluteRoot := filepath.Clean(absoluteRoot)
	if cleanPath == cleanAbsoluteRoot {
		return "."
	}
	relativePath, relativeError := filepath.Rel(cleanAbsoluteRoot, cleanPath)
	if relativeError != nil {
		return filepath.ToSlash(cleanPath)
	}
	return filepath.ToSlash(relativePath)
}

// DeduplicatePatterns removes duplicate patterns from a slice while
// preserving order. The first occurrence of each unique pattern is kept.
func DeduplicatePatterns(patterns []string) []string {
	encounteredPatterns := make(map[string]struct{})
	result := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if _, exists := encounteredPatterns[pattern]; !exists {
			encounteredPatterns[pattern] = struct{}{}
			result = append(result, pattern)
		}
	}
	return result
}
