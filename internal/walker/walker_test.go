package walker_test

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/frontierkodiak/repoexport/internal/render"
	"github.com/frontierkodiak/repoexport/internal/rules"
	"github.com/frontierkodiak/repoexport/internal/types"
	"github.com/frontierkodiak/repoexport/internal/walker"
)

// wordCounter is a deterministic stand-in tokenizer counting whitespace
// separated words, so tests never depend on downloaded vocabularies.
type wordCounter struct{}

// Name identifies the fake tokenizer.
func (wordCounter) Name() string { return "word-counter" }

// CountString counts whitespace-separated words.
func (wordCounter) CountString(input string) (int, error) {
	return len(strings.Fields(input)), nil
}

// writeTestFile creates a file with the specified content, failing the test on error.
func writeTestFile(testingHandle *testing.T, filePath string, content string) {
	testingHandle.Helper()
	if makeDirError := os.MkdirAll(filepath.Dir(filePath), 0o755); makeDirError != nil {
		testingHandle.Fatalf("failed to create directory for %s: %v", filePath, makeDirError)
	}
	if writeError := os.WriteFile(filePath, []byte(content), 0o644); writeError != nil {
		testingHandle.Fatalf("failed to write %s: %v", filePath, writeError)
	}
}

// newRuleSet compiles options, failing the test on a configuration error.
func newRuleSet(testingHandle *testing.T, options rules.Options) *rules.RuleSet {
	testingHandle.Helper()
	ruleSet, ruleError := rules.New(options)
	if ruleError != nil {
		testingHandle.Fatalf("rules.New failed: %v", ruleError)
	}
	return ruleSet
}

// buildFixtureTree creates the standard source tree used by traversal tests.
func buildFixtureTree(testingHandle *testing.T) string {
	testingHandle.Helper()
	rootDirectory := testingHandle.TempDir()
	writeTestFile(testingHandle, filepath.Join(rootDirectory, "README.md"), "readme line one\nline two\n")
	writeTestFile(testingHandle, filepath.Join(rootDirectory, "src", "main.py"), "print('hello')\n")
	writeTestFile(testingHandle, filepath.Join(rootDirectory, "src", "util.py"), "def helper():\n    pass\n")
	writeTestFile(testingHandle, filepath.Join(rootDirectory, ".git", "config"), "[core]\n")
	writeTestFile(testingHandle, filepath.Join(rootDirectory, "assets", "blob.bin"), "head\x00tail")
	if makeDirError := os.MkdirAll(filepath.Join(rootDirectory, "empty"), 0o755); makeDirError != nil {
		testingHandle.Fatalf("failed to create empty directory: %v", makeDirError)
	}
	return rootDirectory
}

// collectedPaths returns the display paths of the collected content entries.
func collectedPaths(fileEntries []types.FileEntry) []string {
	displayPaths := make([]string, 0, len(fileEntries))
	for _, fileEntry := range fileEntries {
		displayPaths = append(displayPaths, fileEntry.DisplayPath)
	}
	return displayPaths
}

// TestRunCollectsExpectedFiles verifies the traversal order, denylist
// pruning, binary handling, empty-directory pruning, and aggregate counts.
func TestRunCollectsExpectedFiles(testingHandle *testing.T) {
	rootDirectory := buildFixtureTree(testingHandle)
	ruleSet := newRuleSet(testingHandle, rules.Options{
		AlwaysExclude: []string{".git/"},
		Extensions:    rules.AllExtensions(),
	})

	exportWalker := walker.New(rootDirectory, ruleSet, -1, wordCounter{}, false)
	exportResult, runError := exportWalker.Run()
	if runError != nil {
		testingHandle.Fatalf("Run failed: %v", runError)
	}

	expectedPaths := []string{"README.md", "src/main.py", "src/util.py"}
	if !reflect.DeepEqual(collectedPaths(exportResult.Files), expectedPaths) {
		testingHandle.Fatalf("collected files = %v, want %v", collectedPaths(exportResult.Files), expectedPaths)
	}
	if exportResult.TotalFiles != 3 {
		testingHandle.Fatalf("total files = %d, want 3", exportResult.TotalFiles)
	}

	childNames := make([]string, 0, len(exportResult.Root.Children))
	for _, childNode := range exportResult.Root.Children {
		childNames = append(childNames, childNode.Name)
	}
	expectedChildren := []string{"README.md", "assets", "src"}
	if !reflect.DeepEqual(childNames, expectedChildren) {
		testingHandle.Fatalf("root children = %v, want %v", childNames, expectedChildren)
	}

	var binaryNode *types.ExportNode
	for _, childNode := range exportResult.Root.Children {
		if childNode.Name == "assets" {
			binaryNode = childNode.Children[0]
		}
	}
	if binaryNode == nil || binaryNode.Type != types.NodeTypeBinary {
		testingHandle.Fatalf("expected a binary node under assets, got %+v", binaryNode)
	}
	if binaryNode.Included {
		testingHandle.Fatal("binary node must not be content-included")
	}

	warningCounts := exportResult.WarningCountsByKind()
	if warningCounts[types.WarningKindBinarySkipped] != 1 {
		testingHandle.Fatalf("binary skip warnings = %d, want 1", warningCounts[types.WarningKindBinarySkipped])
	}

	// README.md has 2 newline-terminated lines plus the final implicit one;
	// main.py and util.py follow the same counting convention.
	expectedLines := 3 + 2 + 3
	if exportResult.Root.Lines != expectedLines || exportResult.TotalLines != expectedLines {
		testingHandle.Fatalf("aggregated lines = %d (total %d), want %d",
			exportResult.Root.Lines, exportResult.TotalLines, expectedLines)
	}
	if exportResult.TotalTokens == 0 || exportResult.Root.Tokens != exportResult.TotalTokens {
		testingHandle.Fatalf("aggregated tokens = %d, total %d", exportResult.Root.Tokens, exportResult.TotalTokens)
	}
}

// TestRunDoesNotFollowSymlinks verifies symlinked files and directories are
// ignored entirely.
func TestRunDoesNotFollowSymlinks(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	outsideDirectory := testingHandle.TempDir()
	writeTestFile(testingHandle, filepath.Join(rootDirectory, "real.txt"), "real\n")
	writeTestFile(testingHandle, filepath.Join(outsideDirectory, "target.txt"), "target\n")
	if symlinkError := os.Symlink(filepath.Join(outsideDirectory, "target.txt"), filepath.Join(rootDirectory, "link.txt")); symlinkError != nil {
		testingHandle.Skipf("symlinks unavailable: %v", symlinkError)
	}
	if symlinkError := os.Symlink(outsideDirectory, filepath.Join(rootDirectory, "linkdir")); symlinkError != nil {
		testingHandle.Skipf("symlinks unavailable: %v", symlinkError)
	}

	ruleSet := newRuleSet(testingHandle, rules.Options{Extensions: rules.AllExtensions()})
	exportResult, runError := walker.New(rootDirectory, ruleSet, -1, nil, false).Run()
	if runError != nil {
		testingHandle.Fatalf("Run failed: %v", runError)
	}

	if !reflect.DeepEqual(collectedPaths(exportResult.Files), []string{"real.txt"}) {
		testingHandle.Fatalf("collected files = %v, want only real.txt", collectedPaths(exportResult.Files))
	}
}

// TestRunDepthLimit verifies the traversal stops descending at the configured
// depth while still listing the directories at the boundary.
func TestRunDepthLimit(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	writeTestFile(testingHandle, filepath.Join(rootDirectory, "top.txt"), "top\n")
	writeTestFile(testingHandle, filepath.Join(rootDirectory, "nested", "inner.txt"), "inner\n")

	ruleSet := newRuleSet(testingHandle, rules.Options{Extensions: rules.AllExtensions()})
	exportResult, runError := walker.New(rootDirectory, ruleSet, 1, nil, true).Run()
	if runError != nil {
		testingHandle.Fatalf("Run failed: %v", runError)
	}

	if !reflect.DeepEqual(collectedPaths(exportResult.Files), []string{"top.txt"}) {
		testingHandle.Fatalf("collected files = %v, want only top.txt", collectedPaths(exportResult.Files))
	}
	foundNested := false
	for _, childNode := range exportResult.Root.Children {
		if childNode.Name == "nested" {
			foundNested = true
			if len(childNode.Children) != 0 {
				testingHandle.Fatal("depth-limited directory must not list descendants")
			}
		}
	}
	if !foundNested {
		testingHandle.Fatal("directory at the depth boundary must still appear")
	}
}

// TestRunExhaustiveTreeShowsFilteredFiles verifies exhaustive mode keeps
// filtered paths visible without widening the content dump.
func TestRunExhaustiveTreeShowsFilteredFiles(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	writeTestFile(testingHandle, filepath.Join(rootDirectory, "kept.py"), "kept\n")
	writeTestFile(testingHandle, filepath.Join(rootDirectory, "ignored.md"), "ignored\n")

	ruleSet := newRuleSet(testingHandle, rules.Options{
		Extensions:     rules.SpecificExtensions([]string{".py"}),
		ExhaustiveTree: true,
	})
	exportResult, runError := walker.New(rootDirectory, ruleSet, -1, nil, true).Run()
	if runError != nil {
		testingHandle.Fatalf("Run failed: %v", runError)
	}

	if !reflect.DeepEqual(collectedPaths(exportResult.Files), []string{"kept.py"}) {
		testingHandle.Fatalf("collected files = %v, want only kept.py", collectedPaths(exportResult.Files))
	}
	visibleNames := make([]string, 0, len(exportResult.Root.Children))
	for _, childNode := range exportResult.Root.Children {
		if childNode.Visible {
			visibleNames = append(visibleNames, childNode.Name)
		}
	}
	expectedVisible := []string{"ignored.md", "kept.py"}
	if !reflect.DeepEqual(visibleNames, expectedVisible) {
		testingHandle.Fatalf("visible children = %v, want %v", visibleNames, expectedVisible)
	}
}

// TestRunConvertsNotebooks verifies notebook files are exported as markdown.
func TestRunConvertsNotebooks(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	notebookJSON := `{"cells": [{"cell_type": "code", "source": ["x = 1\n"]}], "metadata": {"language_info": {"name": "python"}}}`
	writeTestFile(testingHandle, filepath.Join(rootDirectory, "analysis.ipynb"), notebookJSON)

	ruleSet := newRuleSet(testingHandle, rules.Options{Extensions: rules.AllExtensions()})
	exportResult, runError := walker.New(rootDirectory, ruleSet, -1, nil, false).Run()
	if runError != nil {
		testingHandle.Fatalf("Run failed: %v", runError)
	}

	if len(exportResult.Files) != 1 {
		testingHandle.Fatalf("collected files = %v, want one notebook", collectedPaths(exportResult.Files))
	}
	notebookEntry := exportResult.Files[0]
	if !notebookEntry.ConvertedNotebook {
		testingHandle.Fatal("notebook entry must be marked as converted")
	}
	if !strings.Contains(notebookEntry.Content, "```python\nx = 1\n```") {
		testingHandle.Fatalf("notebook content missing fenced code block:\n%s", notebookEntry.Content)
	}
}

// TestResolveExtraFiles verifies external inclusion, in-root recovery of
// pruned paths, denylist vetoes, duplicate suppression, and missing-path
// warnings.
func TestResolveExtraFiles(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	externalDirectory := testingHandle.TempDir()
	writeTestFile(testingHandle, filepath.Join(rootDirectory, "kept.txt"), "kept\n")
	writeTestFile(testingHandle, filepath.Join(rootDirectory, "dev", "prompts.txt"), "prompt\n")
	writeTestFile(testingHandle, filepath.Join(rootDirectory, "dev", "cache.pyc"), "bytecode\n")
	externalFilePath := filepath.Join(externalDirectory, "shared.md")
	writeTestFile(testingHandle, externalFilePath, "shared note\n")

	ruleSet := newRuleSet(testingHandle, rules.Options{
		AlwaysExclude: []string{"*.pyc"},
		ExtraFiles:    []string{"dev/prompts.txt"},
		ExcludeDirs:   []string{"dev"},
		Extensions:    rules.AllExtensions(),
	})
	exportWalker := walker.New(rootDirectory, ruleSet, -1, nil, false)
	exportResult, runError := exportWalker.Run()
	if runError != nil {
		testingHandle.Fatalf("Run failed: %v", runError)
	}

	extraFilePaths := []string{
		"dev/prompts.txt",
		"dev/cache.pyc",
		"kept.txt",
		externalFilePath,
		filepath.Join(externalDirectory, "missing.md"),
	}
	walker.ResolveExtraFiles(exportResult, extraFilePaths, ruleSet, nil, exportWalker.CollectedFilePaths())

	expectedInRoot := []string{"kept.txt", "dev/prompts.txt"}
	if !reflect.DeepEqual(collectedPaths(exportResult.Files), expectedInRoot) {
		testingHandle.Fatalf("in-root files = %v, want %v", collectedPaths(exportResult.Files), expectedInRoot)
	}

	if len(exportResult.ExternalFiles) != 1 {
		testingHandle.Fatalf("external files = %v, want one entry", collectedPaths(exportResult.ExternalFiles))
	}
	externalEntry := exportResult.ExternalFiles[0]
	if !strings.HasSuffix(externalEntry.DisplayPath, "shared.md") || !strings.HasPrefix(externalEntry.DisplayPath, "/") {
		testingHandle.Fatalf("external display path = %q, want absolute slash path", externalEntry.DisplayPath)
	}

	warningCounts := exportResult.WarningCountsByKind()
	if warningCounts[types.WarningKindPathResolution] != 1 {
		testingHandle.Fatalf("path resolution warnings = %d, want 1", warningCounts[types.WarningKindPathResolution])
	}
}

// TestExportPipelineProducesIdenticalArtifacts verifies the complete export
// pipeline is idempotent: walking an unchanged tree twice under the same
// configuration, resolving the same extra directories and files, and
// rendering yields byte-identical artifacts.
func TestExportPipelineProducesIdenticalArtifacts(testingHandle *testing.T) {
	rootDirectory := testingHandle.TempDir()
	externalDirectory := testingHandle.TempDir()
	extraDirectory := testingHandle.TempDir()
	writeTestFile(testingHandle, filepath.Join(rootDirectory, "src", "main.py"), "print('hello')\n")
	writeTestFile(testingHandle, filepath.Join(rootDirectory, "dev", "prompts.txt"), "prompt\n")
	writeTestFile(testingHandle, filepath.Join(rootDirectory, "dev", "cache.pyc"), "bytecode\n")
	externalFilePath := filepath.Join(externalDirectory, "shared.md")
	writeTestFile(testingHandle, externalFilePath, "shared note\n")
	writeTestFile(testingHandle, filepath.Join(extraDirectory, "extra.py"), "extra = True\n")

	runFullExport := func() string {
		ruleSet := newRuleSet(testingHandle, rules.Options{
			AlwaysExclude: []string{"*.pyc"},
			ExtraFiles:    []string{"dev/prompts.txt"},
			ExcludeDirs:   []string{"dev"},
			Scopes:        []string{"src"},
			Extensions:    rules.AllExtensions(),
		})
		exportWalker := walker.New(rootDirectory, ruleSet, -1, nil, false)
		exportResult, runError := exportWalker.Run()
		if runError != nil {
			testingHandle.Fatalf("Run failed: %v", runError)
		}
		walker.TraverseExtraDirectories(exportResult, []string{extraDirectory}, ruleSet, -1, nil, false)
		walker.ResolveExtraFiles(exportResult, []string{"dev/prompts.txt", externalFilePath}, ruleSet, nil, exportWalker.CollectedFilePaths())
		return render.Artifact(exportResult, render.Options{})
	}

	firstArtifact := runFullExport()
	secondArtifact := runFullExport()
	if firstArtifact != secondArtifact {
		testingHandle.Fatal("two exports of an unchanged tree must produce byte-identical artifacts")
	}

	if !strings.Contains(firstArtifact, `<file path="dev/prompts.txt">`) {
		testingHandle.Fatal("explicitly named file under an excluded directory must be exported")
	}
	if strings.Contains(firstArtifact, "cache.pyc") {
		testingHandle.Fatal("denylisted file must never appear in the artifact")
	}
	if !strings.Contains(firstArtifact, `<file path="`+filepath.ToSlash(filepath.Clean(externalDirectory))+`/shared.md">`) {
		testingHandle.Fatal("external extra file must be labeled by its absolute slash path")
	}
	if !strings.Contains(firstArtifact, `<dirtree root="`+filepath.Clean(extraDirectory)+`">`) {
		testingHandle.Fatal("extra directory must render its own tree section")
	}
}

// TestRunUnreadableFileNotCountedAsExported verifies an unreadable file
// yields a placeholder entry and a warning without inflating the exported
// file total.
func TestRunUnreadableFileNotCountedAsExported(testingHandle *testing.T) {
	if os.Geteuid() == 0 {
		testingHandle.Skip("file permissions are not enforced for root")
	}
	rootDirectory := testingHandle.TempDir()
	writeTestFile(testingHandle, filepath.Join(rootDirectory, "readable.txt"), "readable\n")
	lockedFilePath := filepath.Join(rootDirectory, "locked.txt")
	writeTestFile(testingHandle, lockedFilePath, "locked\n")
	if chmodError := os.Chmod(lockedFilePath, 0o000); chmodError != nil {
		testingHandle.Fatalf("failed to lock file: %v", chmodError)
	}
	defer os.Chmod(lockedFilePath, 0o644)

	ruleSet := newRuleSet(testingHandle, rules.Options{Extensions: rules.AllExtensions()})
	exportResult, runError := walker.New(rootDirectory, ruleSet, -1, nil, false).Run()
	if runError != nil {
		testingHandle.Fatalf("Run failed: %v", runError)
	}

	if exportResult.TotalFiles != 1 {
		testingHandle.Fatalf("total files = %d, want only the readable file counted", exportResult.TotalFiles)
	}
	expectedPaths := []string{"locked.txt", "readable.txt"}
	if !reflect.DeepEqual(collectedPaths(exportResult.Files), expectedPaths) {
		testingHandle.Fatalf("collected entries = %v, want %v", collectedPaths(exportResult.Files), expectedPaths)
	}
	if exportResult.Files[0].ReadErrorMessage == "" {
		testingHandle.Fatal("unreadable file must carry its read error message")
	}
	if exportResult.WarningCountsByKind()[types.WarningKindRead] != 1 {
		testingHandle.Fatal("unreadable file must record a read warning")
	}
}
