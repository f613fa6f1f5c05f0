// Package walker performs the single export traversal: one bottom-up-safe
// pass over the source tree that consults the rule pipeline at every node and
// produces the ExportResult consumed by the renderer.
package walker

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/frontierkodiak/repoexport/internal/notebook"
	"github.com/frontierkodiak/repoexport/internal/rules"
	"github.com/frontierkodiak/repoexport/internal/tokenizer"
	"github.com/frontierkodiak/repoexport/internal/types"
	"github.com/frontierkodiak/repoexport/internal/utils"
)

// notebookExtension identifies Jupyter notebooks needing markdown conversion.
const notebookExtension = ".ipynb"

// unlimitedDepth disables the traversal depth limit.
const unlimitedDepth = -1

// Walker traverses one root under a compiled rule pipeline. The ExportResult
// accumulator is owned exclusively by the walker during traversal and handed
// off to the renderer afterwards.
type Walker struct {
	rootPath           string
	ruleSet            *rules.RuleSet
	maxDepth           int
	tokenCounter       tokenizer.Counter
	keepEmptyDirs      bool
	collectedFilePaths map[string]struct{}
	exportResult       *types.ExportResult
}

// New constructs a walker for the absolute root path. tokenCounter may be nil
// to disable token annotation; keepEmptyDirectories retains directories with
// no exported descendants in the tree (the exhaustive tree mode).
func New(rootPath string, ruleSet *rules.RuleSet, maxDepth int, tokenCounter tokenizer.Counter, keepEmptyDirectories bool) *Walker {
	return &Walker{
		rootPath:           filepath.Clean(rootPath),
		ruleSet:            ruleSet,
		maxDepth:           maxDepth,
		tokenCounter:       tokenCounter,
		keepEmptyDirs:      keepEmptyDirectories,
		collectedFilePaths: make(map[string]struct{}),
	}
}

// Run performs the traversal and returns the completed ExportResult.
// Children are visited in lexicographic order, excluded directories are
// pruned without descending, and symlinks are never followed. Directory
// aggregate counts are computed bottom-up after traversal, summing only
// content-included descendants.
func (exportWalker *Walker) Run() (*types.ExportResult, error) {
	rootInfo, rootStatError := os.Stat(exportWalker.rootPath)
	if rootStatError != nil {
		return nil, fmt.Errorf("stat root %s: %w", exportWalker.rootPath, rootStatError)
	}
	if !rootInfo.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", exportWalker.rootPath)
	}

	rootNode := &types.ExportNode{
		RelativePath: ".",
		Name:         filepath.Base(exportWalker.rootPath),
		Type:         types.NodeTypeDirectory,
		Visible:      true,
		Included:     true,
	}
	exportWalker.exportResult = &types.ExportResult{
		RootPath: exportWalker.rootPath,
		RootName: rootNode.Name,
		Root:     rootNode,
	}

	exportWalker.walkDirectory(exportWalker.rootPath, ".", 0, rootNode)
	aggregateNode(rootNode, exportWalker.keepEmptyDirs)

	return exportWalker.exportResult, nil
}

// CollectedFilePaths exposes the display paths gathered so far, letting the
// external resolver avoid duplicating files the traversal already captured.
func (exportWalker *Walker) CollectedFilePaths() map[string]struct{} {
	return exportWalker.collectedFilePaths
}

// walkDirectory processes one directory level. Errors reading a directory
// are recorded as warnings so sibling subtrees still complete.
func (exportWalker *Walker) walkDirectory(absoluteDirectory string, relativeDirectory string, depth int, parentNode *types.ExportNode) {
	directoryEntries, readDirectoryError := os.ReadDir(absoluteDirectory)
	if readDirectoryError != nil {
		exportWalker.exportResult.AddWarning(types.WarningKindRead, relativeDirectory, readDirectoryError.Error())
		return
	}

	for _, directoryEntry := range directoryEntries {
		if directoryEntry.Type()&fs.ModeSymlink != 0 {
			continue
		}
		childRelativePath := joinRelative(relativeDirectory, directoryEntry.Name())
		childAbsolutePath := filepath.Join(absoluteDirectory, directoryEntry.Name())

		if directoryEntry.IsDir() {
			exportWalker.visitDirectory(childAbsolutePath, childRelativePath, depth, directoryEntry.Name(), parentNode)
			continue
		}
		exportWalker.visitFile(childAbsolutePath, childRelativePath, directoryEntry, parentNode)
	}
}

// visitDirectory applies the pipeline to a directory and descends unless the
// directory is pruned or the depth limit is reached.
func (exportWalker *Walker) visitDirectory(absolutePath string, relativePath string, parentDepth int, name string, parentNode *types.ExportNode) {
	contentIncluded := exportWalker.ruleSet.ContentIncluded(relativePath, true)
	treeVisible := exportWalker.ruleSet.TreeVisible(relativePath, true)
	if !contentIncluded && !treeVisible {
		return
	}

	directoryNode := &types.ExportNode{
		RelativePath: relativePath,
		Name:         name,
		Type:         types.NodeTypeDirectory,
		Visible:      treeVisible,
		Included:     contentIncluded,
	}
	parentNode.Children = append(parentNode.Children, directoryNode)

	childDepth := parentDepth + 1
	if exportWalker.maxDepth != unlimitedDepth && childDepth >= exportWalker.maxDepth {
		return
	}
	exportWalker.walkDirectory(absolutePath, relativePath, childDepth, directoryNode)
}

// visitFile applies the pipeline to a file, reading its content exactly once
// when the content channel includes it.
func (exportWalker *Walker) visitFile(absolutePath string, relativePath string, directoryEntry fs.DirEntry, parentNode *types.ExportNode) {
	contentIncluded := exportWalker.ruleSet.ContentIncluded(relativePath, false)
	treeVisible := exportWalker.ruleSet.TreeVisible(relativePath, false)
	if !contentIncluded && !treeVisible {
		return
	}

	fileNode := &types.ExportNode{
		RelativePath: relativePath,
		Name:         directoryEntry.Name(),
		Type:         types.NodeTypeFile,
		Visible:      treeVisible,
		Included:     contentIncluded,
	}
	if entryInfo, infoError := directoryEntry.Info(); infoError == nil {
		fileNode.SizeBytes = entryInfo.Size()
	}
	parentNode.Children = append(parentNode.Children, fileNode)

	if !contentIncluded {
		return
	}
	exportWalker.collectFileContent(absolutePath, relativePath, fileNode)
}

// collectFileContent reads one included file, converts notebooks, records
// line and token counts, and appends the content entry. Unreadable files
// yield a placeholder entry; binary files stay in the tree but are skipped
// for content with a recorded warning.
func (exportWalker *Walker) collectFileContent(absolutePath string, relativePath string, fileNode *types.ExportNode) {
	fileBytes, readError := os.ReadFile(absolutePath)
	if readError != nil {
		typedReadError := &types.ReadError{Path: relativePath, Err: readError}
		exportWalker.exportResult.AddWarning(types.WarningKindRead, relativePath, typedReadError.Error())
		exportWalker.appendEntry(types.FileEntry{
			DisplayPath:      relativePath,
			ReadErrorMessage: readError.Error(),
		}, 0, 0)
		return
	}

	if utils.IsBinary(fileBytes) {
		fileNode.Type = types.NodeTypeBinary
		fileNode.Included = false
		fileNode.SizeBytes = int64(len(fileBytes))
		exportWalker.exportResult.AddWarning(types.WarningKindBinarySkipped, relativePath, "binary content skipped")
		return
	}

	fileContent := string(fileBytes)
	convertedNotebook := false
	if strings.EqualFold(path.Ext(relativePath), notebookExtension) {
		markdownContent, conversionError := notebook.ToMarkdown(fileBytes)
		if conversionError != nil {
			exportWalker.exportResult.AddWarning(types.WarningKindNotebook, relativePath, conversionError.Error())
		} else {
			fileContent = markdownContent
			convertedNotebook = true
		}
	}

	lineCount := countLines(fileContent)
	tokenCount := 0
	if exportWalker.tokenCounter != nil {
		countResult, countError := tokenizer.CountBytes(exportWalker.tokenCounter, []byte(fileContent))
		if countError != nil {
			exportWalker.exportResult.AddWarning(types.WarningKindRead, relativePath, countError.Error())
		} else if countResult.Counted {
			tokenCount = countResult.Tokens
		}
	}

	fileNode.Lines = lineCount
	fileNode.Tokens = tokenCount
	fileNode.SizeBytes = int64(len(fileBytes))

	exportWalker.appendEntry(types.FileEntry{
		DisplayPath:       relativePath,
		Content:           fileContent,
		ConvertedNotebook: convertedNotebook,
	}, lineCount, tokenCount)
}

// appendEntry records one content entry and updates run totals. Placeholder
// entries for unreadable files do not count as exported files.
func (exportWalker *Walker) appendEntry(entry types.FileEntry, lineCount int, tokenCount int) {
	exportWalker.exportResult.Files = append(exportWalker.exportResult.Files, entry)
	exportWalker.collectedFilePaths[entry.DisplayPath] = struct{}{}
	if entry.ReadErrorMessage == "" {
		exportWalker.exportResult.TotalFiles++
	}
	exportWalker.exportResult.TotalLines += lineCount
	exportWalker.exportResult.TotalTokens += tokenCount
}

// aggregateNode computes directory aggregates bottom-up over content-included
// descendants only, and prunes directories that contributed nothing to either
// output channel unless empty directories are kept.
func aggregateNode(node *types.ExportNode, keepEmptyDirectories bool) (lineSum int, tokenSum int, byteSum int64) {
	if node.Type != types.NodeTypeDirectory {
		if node.Included {
			return node.Lines, node.Tokens, node.SizeBytes
		}
		return 0, 0, 0
	}

	survivingChildren := node.Children[:0]
	for _, childNode := range node.Children {
		childLines, childTokens, childBytes := aggregateNode(childNode, keepEmptyDirectories)
		lineSum += childLines
		tokenSum += childTokens
		byteSum += childBytes
		if childNode.Type == types.NodeTypeDirectory && len(childNode.Children) == 0 && !keepEmptyDirectories {
			continue
		}
		survivingChildren = append(survivingChildren, childNode)
	}
	node.Children = survivingChildren
	node.Lines = lineSum
	node.Tokens = tokenSum
	node.SizeBytes = byteSum
	return lineSum, tokenSum, byteSum
}

// joinRelative extends a slash-form relative path by one segment.
func joinRelative(relativeDirectory string, name string) string {
	if relativeDirectory == "." || relativeDirectory == "" {
		return name
	}
	return relativeDirectory + "/" + name
}

// countLines matches the historical convention: a file has one more line
// than it has newline characters.
func countLines(content string) int {
	return strings.Count(content, "\n") + 1
}
