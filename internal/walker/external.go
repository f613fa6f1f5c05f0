package walker

import (
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/frontierkodiak/repoexport/internal/notebook"
	"github.com/frontierkodiak/repoexport/internal/rules"
	"github.com/frontierkodiak/repoexport/internal/tokenizer"
	"github.com/frontierkodiak/repoexport/internal/types"
	"github.com/frontierkodiak/repoexport/internal/utils"
)

// ResolveExtraFiles merges user-specified extra paths into the result after
// the traversal. Paths under the root are labeled by their root-relative form
// and run through the full pipeline, so a hard-denylisted path stays excluded
// no matter how explicitly it was named. Paths outside the root are labeled
// by their absolute slash form and only the hard denylist applies. A
// nonexistent path is a warning, never a fatal error.
func ResolveExtraFiles(exportResult *types.ExportResult, extraFilePaths []string, ruleSet *rules.RuleSet, tokenCounter tokenizer.Counter, collectedFilePaths map[string]struct{}) {
	for _, extraFilePath := range extraFilePaths {
		resolveOneExtraFile(exportResult, extraFilePath, ruleSet, tokenCounter, collectedFilePaths)
	}
	sort.Slice(exportResult.ExternalFiles, func(leftIndex, rightIndex int) bool {
		return exportResult.ExternalFiles[leftIndex].DisplayPath < exportResult.ExternalFiles[rightIndex].DisplayPath
	})
}

// resolveOneExtraFile resolves a single extra path and appends its entry.
func resolveOneExtraFile(exportResult *types.ExportResult, extraFilePath string, ruleSet *rules.RuleSet, tokenCounter tokenizer.Counter, collectedFilePaths map[string]struct{}) {
	relativePath, relativeError := utils.RelativeToRoot(exportResult.RootPath, extraFilePath)
	isExternal := relativeError != nil

	var absolutePath string
	var displayPath string
	if isExternal {
		normalizedExternal := utils.NormalizePath(extraFilePath)
		absolutePath = filepath.FromSlash(normalizedExternal)
		displayPath = normalizedExternal
		if ruleSet.AlwaysExcluded(path.Base(displayPath)) {
			return
		}
	} else {
		absolutePath = filepath.Join(exportResult.RootPath, filepath.FromSlash(relativePath))
		displayPath = relativePath
		if decision := ruleSet.Decide(relativePath, false); decision.Verdict == rules.VerdictExclude {
			return
		}
		if _, alreadyCollected := collectedFilePaths[displayPath]; alreadyCollected {
			return
		}
	}

	fileInfo, statError := os.Stat(absolutePath)
	if statError != nil || fileInfo.IsDir() {
		resolutionError := &types.PathResolutionError{Path: extraFilePath, Err: statError}
		exportResult.AddWarning(types.WarningKindPathResolution, extraFilePath, resolutionError.Error())
		return
	}

	fileBytes, readError := os.ReadFile(absolutePath)
	if readError != nil {
		typedReadError := &types.ReadError{Path: displayPath, Err: readError}
		exportResult.AddWarning(types.WarningKindRead, displayPath, typedReadError.Error())
		appendExtraEntry(exportResult, types.FileEntry{
			DisplayPath:      displayPath,
			ReadErrorMessage: readError.Error(),
		}, isExternal, collectedFilePaths, 0, 0)
		return
	}

	if utils.IsBinary(fileBytes) {
		exportResult.AddWarning(types.WarningKindBinarySkipped, displayPath, "binary content skipped")
		return
	}

	fileContent := string(fileBytes)
	convertedNotebook := false
	if strings.EqualFold(path.Ext(displayPath), notebookExtension) {
		markdownContent, conversionError := notebook.ToMarkdown(fileBytes)
		if conversionError != nil {
			exportResult.AddWarning(types.WarningKindNotebook, displayPath, conversionError.Error())
		} else {
			fileContent = markdownContent
			convertedNotebook = true
		}
	}

	lineCount := countLines(fileContent)
	tokenCount := 0
	if tokenCounter != nil {
		countResult, countError := tokenizer.CountBytes(tokenCounter, []byte(fileContent))
		if countError == nil && countResult.Counted {
			tokenCount = countResult.Tokens
		}
	}

	appendExtraEntry(exportResult, types.FileEntry{
		DisplayPath:       displayPath,
		Content:           fileContent,
		ConvertedNotebook: convertedNotebook,
	}, isExternal, collectedFilePaths, lineCount, tokenCount)
}

// appendExtraEntry routes the entry to the in-root or external list and
// updates run totals. Placeholder entries for unreadable files do not count
// as exported files.
func appendExtraEntry(exportResult *types.ExportResult, entry types.FileEntry, isExternal bool, collectedFilePaths map[string]struct{}, lineCount int, tokenCount int) {
	if isExternal {
		exportResult.ExternalFiles = append(exportResult.ExternalFiles, entry)
	} else {
		exportResult.Files = append(exportResult.Files, entry)
		collectedFilePaths[entry.DisplayPath] = struct{}{}
	}
	if entry.ReadErrorMessage == "" {
		exportResult.TotalFiles++
	}
	exportResult.TotalLines += lineCount
	exportResult.TotalTokens += tokenCount
}
