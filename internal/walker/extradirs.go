package walker

import (
	"os"
	"path/filepath"

	"github.com/frontierkodiak/repoexport/internal/rules"
	"github.com/frontierkodiak/repoexport/internal/tokenizer"
	"github.com/frontierkodiak/repoexport/internal/types"
	"github.com/frontierkodiak/repoexport/internal/utils"
)

// TraverseExtraDirectories walks each extra directory outside the root with
// its own traversal, producing one external tree per directory and routing
// its files to the external entries, labeled by absolute slash path. The
// pipeline applies without scope membership: scopes are root-relative and do
// not reach outside the root, while the denylist, pattern excludes, and the
// extension filter still do. A missing or non-directory path is a warning,
// never a fatal error.
func TraverseExtraDirectories(exportResult *types.ExportResult, extraDirectoryPaths []string, ruleSet *rules.RuleSet, maxDepth int, tokenCounter tokenizer.Counter, keepEmptyDirectories bool) {
	scopelessRuleSet := ruleSet.WithoutScopes()
	for _, extraDirectoryPath := range extraDirectoryPaths {
		traverseOneExtraDirectory(exportResult, extraDirectoryPath, scopelessRuleSet, maxDepth, tokenCounter, keepEmptyDirectories)
	}
}

// traverseOneExtraDirectory runs a nested traversal rooted at one extra
// directory and merges its outcome into the main result.
func traverseOneExtraDirectory(exportResult *types.ExportResult, extraDirectoryPath string, scopelessRuleSet *rules.RuleSet, maxDepth int, tokenCounter tokenizer.Counter, keepEmptyDirectories bool) {
	absolutePath, absoluteError := filepath.Abs(filepath.FromSlash(utils.NormalizePath(extraDirectoryPath)))
	if absoluteError != nil {
		resolutionError := &types.PathResolutionError{Path: extraDirectoryPath, Err: absoluteError}
		exportResult.AddWarning(types.WarningKindPathResolution, extraDirectoryPath, resolutionError.Error())
		return
	}
	directoryInfo, statError := os.Stat(absolutePath)
	if statError != nil || !directoryInfo.IsDir() {
		resolutionError := &types.PathResolutionError{Path: extraDirectoryPath, Err: statError}
		exportResult.AddWarning(types.WarningKindPathResolution, extraDirectoryPath, resolutionError.Error())
		return
	}

	directoryWalker := New(absolutePath, scopelessRuleSet, maxDepth, tokenCounter, keepEmptyDirectories)
	directoryResult, runError := directoryWalker.Run()
	if runError != nil {
		exportResult.AddWarning(types.WarningKindRead, extraDirectoryPath, runError.Error())
		return
	}

	rootLabel := filepath.ToSlash(directoryResult.RootPath)
	for _, fileEntry := range directoryResult.Files {
		fileEntry.DisplayPath = rootLabel + "/" + fileEntry.DisplayPath
		exportResult.ExternalFiles = append(exportResult.ExternalFiles, fileEntry)
	}
	exportResult.Warnings = append(exportResult.Warnings, directoryResult.Warnings...)
	exportResult.TotalFiles += directoryResult.TotalFiles
	exportResult.TotalLines += directoryResult.TotalLines
	exportResult.TotalTokens += directoryResult.TotalTokens
	exportResult.ExternalTrees = append(exportResult.ExternalTrees, types.ExternalTree{
		RootPath: directoryResult.RootPath,
		RootName: directoryResult.RootName,
		Root:     directoryResult.Root,
	})
}
