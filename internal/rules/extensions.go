package rules

import (
	"sort"
	"strings"
)

// ExtensionFilter is the tagged replacement for the legacy "list or the
// string all" extensions field: either every extension is allowed, or only a
// specific normalized set is.
type ExtensionFilter struct {
	allowAll bool
	allowed  map[string]struct{}
}

// AllExtensions returns a filter that admits every file extension.
func AllExtensions() ExtensionFilter {
	return ExtensionFilter{allowAll: true}
}

// SpecificExtensions returns a filter admitting only the listed extensions.
// Accepted forms are "py", ".py", and "*.py"; values are normalized to a
// lower-case dotted form and empty entries are skipped.
func SpecificExtensions(extensions []string) ExtensionFilter {
	allowed := make(map[string]struct{}, len(extensions))
	for _, extension := range extensions {
		normalizedExtension := NormalizeExtension(extension)
		if normalizedExtension == "" {
			continue
		}
		allowed[normalizedExtension] = struct{}{}
	}
	return ExtensionFilter{allowed: allowed}
}

// AllowsAll reports whether the filter admits every extension.
func (filter ExtensionFilter) AllowsAll() bool {
	return filter.allowAll
}

// Allows reports whether the dotted extension passes the filter. Files
// without an extension only pass an allow-all filter.
func (filter ExtensionFilter) Allows(extension string) bool {
	if filter.allowAll {
		return true
	}
	_, isAllowed := filter.allowed[strings.ToLower(extension)]
	return isAllowed
}

// Allowed returns the sorted normalized extension set, or nil for an
// allow-all filter.
func (filter ExtensionFilter) Allowed() []string {
	if filter.allowAll {
		return nil
	}
	allowed := make([]string, 0, len(filter.allowed))
	for extension := range filter.allowed {
		allowed = append(allowed, extension)
	}
	sort.Strings(allowed)
	return allowed
}

// NormalizeExtension converts "py", ".py", or "*.py" into ".py".
func NormalizeExtension(extension string) string {
	trimmedExtension := strings.TrimSpace(extension)
	trimmedExtension = strings.TrimPrefix(trimmedExtension, "*.")
	trimmedExtension = strings.TrimLeft(trimmedExtension, ".")
	trimmedExtension = strings.ToLower(trimmedExtension)
	if trimmedExtension == "" {
		return ""
	}
	return "." + trimmedExtension
}
