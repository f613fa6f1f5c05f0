// Package rules compiles export configuration into one precedence-ordered
// decision pipeline. The tree channel and the content channel both consult
// the same pipeline, so a path excluded for one reason is excluded for all
// purposes unless a higher-precedence stage re-includes it.
package rules

import (
	"path"
	"strings"

	"github.com/frontierkodiak/repoexport/internal/types"
	"github.com/frontierkodiak/repoexport/internal/utils"
)

// Verdict is the include or exclude decision for a path under one channel.
type Verdict int

const (
	// VerdictInclude keeps the path.
	VerdictInclude Verdict = iota
	// VerdictExclude drops the path.
	VerdictExclude
)

// Stage identifies which pipeline stage produced a decision. Stages are
// listed highest precedence first; the first stage producing a non-default
// decision wins.
type Stage int

const (
	// StageDefault applies when no earlier stage fired.
	StageDefault Stage = iota
	// StageAlwaysExclude is the non-overridable hard denylist.
	StageAlwaysExclude
	// StageExtraFile force-includes user-named files, overriding every stage
	// below but never StageAlwaysExclude.
	StageExtraFile
	// StagePatternExclude covers directory and file exclude patterns.
	StagePatternExclude
	// StageScope excludes paths outside every designated traversal scope.
	StageScope
	// StageExtension gates files through the extension allowlist.
	StageExtension
)

// Decision is the outcome of one pipeline evaluation.
type Decision struct {
	Verdict Verdict
	Stage   Stage
}

// Options carries the resolved configuration the pipeline is compiled from.
// All path-like entries are expected in root-relative form; they are
// normalized again during compilation so callers may pass either separator
// convention.
type Options struct {
	AlwaysExclude  []string
	ExtraFiles     []string
	ExcludeDirs    []string
	ExcludeFiles   []string
	Scopes         []string
	TreeScopes     []string
	Extensions     ExtensionFilter
	ExhaustiveTree bool
}

// RuleSet answers the two channel questions for any candidate path through a
// single total-ordered precedence chain. A RuleSet is immutable once built.
type RuleSet struct {
	alwaysExclude  []string
	extraFiles     map[string]struct{}
	excludeDirs    []string
	excludeFiles   []string
	scopes         []string
	treeScopes     []string
	extensions     ExtensionFilter
	exhaustiveTree bool
}

// New compiles the options into a RuleSet. A directory exclude pattern that
// matches the traversal root itself yields a ConfigError: the root cannot be
// excluded.
func New(options Options) (*RuleSet, error) {
	ruleSet := &RuleSet{
		alwaysExclude:  normalizePatterns(options.AlwaysExclude),
		extraFiles:     make(map[string]struct{}, len(options.ExtraFiles)),
		excludeDirs:    trimDirectorySuffixes(normalizePatterns(options.ExcludeDirs)),
		excludeFiles:   normalizePatterns(options.ExcludeFiles),
		scopes:         normalizeScopes(options.Scopes),
		treeScopes:     normalizeScopes(options.TreeScopes),
		extensions:     options.Extensions,
		exhaustiveTree: options.ExhaustiveTree,
	}

	for _, excludePattern := range ruleSet.excludeDirs {
		if excludePattern == "." || excludePattern == "" || excludePattern == "/" {
			return nil, types.NewConfigError("exclude_dirs pattern %q matches the traversal root", excludePattern)
		}
	}

	for _, extraFilePath := range options.ExtraFiles {
		normalizedExtraPath := utils.NormalizePath(extraFilePath)
		if normalizedExtraPath == "." || normalizedExtraPath == "" {
			continue
		}
		ruleSet.extraFiles[normalizedExtraPath] = struct{}{}
	}

	return ruleSet, nil
}

// Decide runs the full precedence chain for one path and returns the final
// content-channel verdict together with the stage that produced it. Running
// Decide twice on the same RuleSet always yields identical decisions.
func (ruleSet *RuleSet) Decide(relativePath string, isDirectory bool) Decision {
	normalizedPath := utils.NormalizePath(relativePath)
	if normalizedPath == "." || normalizedPath == "" {
		return Decision{Verdict: VerdictInclude, Stage: StageDefault}
	}

	if ruleSet.matchesAlwaysExclude(normalizedPath) {
		return Decision{Verdict: VerdictExclude, Stage: StageAlwaysExclude}
	}

	if !isDirectory {
		if _, isExtraFile := ruleSet.extraFiles[normalizedPath]; isExtraFile {
			return Decision{Verdict: VerdictInclude, Stage: StageExtraFile}
		}
	}

	if ruleSet.matchesPatternExclude(normalizedPath, isDirectory) {
		return Decision{Verdict: VerdictExclude, Stage: StagePatternExclude}
	}

	if len(ruleSet.scopes) > 0 && !withinScopes(normalizedPath, isDirectory, ruleSet.scopes) {
		return Decision{Verdict: VerdictExclude, Stage: StageScope}
	}

	if !isDirectory && !ruleSet.extensions.AllowsAll() {
		if !ruleSet.extensions.Allows(path.Ext(normalizedPath)) {
			return Decision{Verdict: VerdictExclude, Stage: StageExtension}
		}
	}

	return Decision{Verdict: VerdictInclude, Stage: StageDefault}
}

// ContentIncluded reports whether the path belongs in the content dump.
func (ruleSet *RuleSet) ContentIncluded(relativePath string, isDirectory bool) bool {
	return ruleSet.Decide(relativePath, isDirectory).Verdict == VerdictInclude
}

// TreeVisible reports whether the path is rendered in the tree section. The
// verdict comes from the identical pipeline; the optional tree display scope
// only narrows already-included paths and can never re-include anything the
// pipeline excluded. With ExhaustiveTree set, the tree shows the full
// structure and only the hard denylist still applies.
func (ruleSet *RuleSet) TreeVisible(relativePath string, isDirectory bool) bool {
	decision := ruleSet.Decide(relativePath, isDirectory)
	if ruleSet.exhaustiveTree {
		return decision.Stage != StageAlwaysExclude
	}
	if decision.Verdict == VerdictExclude {
		return false
	}
	if len(ruleSet.treeScopes) == 0 {
		return true
	}
	normalizedPath := utils.NormalizePath(relativePath)
	if normalizedPath == "." || normalizedPath == "" {
		return true
	}
	return withinScopes(normalizedPath, isDirectory, ruleSet.treeScopes)
}

// WithoutScopes returns a copy of the rule set with scope membership and tree
// scope narrowing disabled. Extra directory traversal uses it: scopes are
// root-relative designations that have no meaning outside the root, while the
// denylist, pattern excludes, and the extension filter still apply.
func (ruleSet *RuleSet) WithoutScopes() *RuleSet {
	scopelessRuleSet := *ruleSet
	scopelessRuleSet.scopes = nil
	scopelessRuleSet.treeScopes = nil
	return &scopelessRuleSet
}

// AlwaysExcluded reports whether the path matches the hard denylist alone.
// The external file resolver uses this to veto force-included paths that can
// never be exported.
func (ruleSet *RuleSet) AlwaysExcluded(relativePath string) bool {
	return ruleSet.matchesAlwaysExclude(utils.NormalizePath(relativePath))
}

// matchesAlwaysExclude evaluates the hard denylist. Pattern forms:
// a trailing slash marks a directory pattern that also covers every
// descendant; globs match the basename; plain names match the basename or
// the exact relative path.
func (ruleSet *RuleSet) matchesAlwaysExclude(normalizedPath string) bool {
	return matchesPatternList(normalizedPath, ruleSet.alwaysExclude)
}

// matchesPatternExclude evaluates exclude_dirs against directories (and the
// ancestors of files) and exclude_files against file paths.
func (ruleSet *RuleSet) matchesPatternExclude(normalizedPath string, isDirectory bool) bool {
	directoryPath := normalizedPath
	if !isDirectory {
		directoryPath = path.Dir(normalizedPath)
	}
	if directoryPath != "." && directoryMatchesExcludes(directoryPath, ruleSet.excludeDirs) {
		return true
	}
	if isDirectory {
		return false
	}
	return fileMatchesExcludes(normalizedPath, ruleSet.excludeFiles)
}

// directoryMatchesExcludes reports whether the directory path, or any of its
// ancestor segments, matches a directory exclude pattern. Patterns containing
// a separator match by relative-path prefix; bare names match any segment.
func directoryMatchesExcludes(directoryPath string, excludePatterns []string) bool {
	pathSegments := strings.Split(directoryPath, "/")
	for _, excludePattern := range excludePatterns {
		if strings.Contains(excludePattern, "/") {
			if directoryPath == excludePattern || strings.HasPrefix(directoryPath, excludePattern+"/") {
				return true
			}
			continue
		}
		for _, segment := range pathSegments {
			if matched, matchError := path.Match(excludePattern, segment); matchError == nil && matched {
				return true
			}
		}
	}
	return false
}

// fileMatchesExcludes reports whether a file path matches a file exclude
// pattern by exact relative path, by basename, or by path suffix.
func fileMatchesExcludes(filePath string, excludePatterns []string) bool {
	baseName := path.Base(filePath)
	for _, excludePattern := range excludePatterns {
		if filePath == excludePattern || strings.HasSuffix(filePath, "/"+excludePattern) {
			return true
		}
		if matched, matchError := path.Match(excludePattern, baseName); matchError == nil && matched {
			return true
		}
	}
	return false
}

// matchesPatternList applies always-exclude pattern semantics to a path.
func matchesPatternList(normalizedPath string, patterns []string) bool {
	pathSegments := strings.Split(normalizedPath, "/")
	baseName := pathSegments[len(pathSegments)-1]
	for _, pattern := range patterns {
		if strings.HasSuffix(pattern, "/") {
			trimmedPattern := strings.TrimSuffix(pattern, "/")
			if strings.Contains(trimmedPattern, "/") {
				if normalizedPath == trimmedPattern || strings.HasPrefix(normalizedPath, trimmedPattern+"/") {
					return true
				}
				continue
			}
			for _, segment := range pathSegments {
				if segment == trimmedPattern {
					return true
				}
			}
			continue
		}
		if matched, matchError := path.Match(pattern, baseName); matchError == nil && matched {
			return true
		}
		if normalizedPath == pattern {
			return true
		}
	}
	return false
}

// withinScopes reports scope membership. Directories count as in scope when
// they sit inside a scope or are an ancestor of one, since ancestors must be
// traversed to reach the scope; files must sit inside a scope.
func withinScopes(normalizedPath string, isDirectory bool, scopes []string) bool {
	for _, scope := range scopes {
		if scope == "." {
			return true
		}
		if normalizedPath == scope || strings.HasPrefix(normalizedPath, scope+"/") {
			return true
		}
		if isDirectory && strings.HasPrefix(scope, normalizedPath+"/") {
			return true
		}
	}
	return false
}

// normalizePatterns slash-normalizes patterns while preserving a trailing
// separator, which is significant for directory patterns.
func normalizePatterns(patterns []string) []string {
	normalized := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		trimmedPattern := strings.TrimSpace(pattern)
		if trimmedPattern == "" {
			continue
		}
		slashPattern := strings.ReplaceAll(trimmedPattern, "\\", "/")
		normalized = append(normalized, slashPattern)
	}
	return utils.DeduplicatePatterns(normalized)
}

// trimDirectorySuffixes drops the optional trailing separator from directory
// exclude patterns; "dev" and "dev/" describe the same directory.
func trimDirectorySuffixes(patterns []string) []string {
	trimmed := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if pattern != "/" {
			pattern = strings.TrimSuffix(pattern, "/")
		}
		trimmed = append(trimmed, pattern)
	}
	return trimmed
}

// normalizeScopes canonicalizes scope entries to clean relative slash paths.
func normalizeScopes(scopes []string) []string {
	normalized := make([]string, 0, len(scopes))
	for _, scope := range scopes {
		trimmedScope := strings.TrimSpace(scope)
		if trimmedScope == "" {
			continue
		}
		normalized = append(normalized, utils.NormalizePath(trimmedScope))
	}
	return utils.DeduplicatePatterns(normalized)
}
