// Package types defines every cross-package data structure used by repoexport.
package types

const (
	// NodeTypeFile identifies a text file node.
	NodeTypeFile = "file"
	// NodeTypeDirectory identifies a directory node.
	NodeTypeDirectory = "directory"
	// NodeTypeBinary identifies a file whose content is binary and therefore
	// excluded from the content dump while remaining visible in the tree.
	NodeTypeBinary = "binary"
)

// WarningKind classifies recoverable problems collected during an export run.
type WarningKind string

const (
	// WarningKindPathResolution marks an explicit extra file that could not be resolved.
	WarningKindPathResolution WarningKind = "path_resolution"
	// WarningKindRead marks a file that could not be read or decoded.
	WarningKindRead WarningKind = "read"
	// WarningKindBinarySkipped marks a binary file skipped for content inclusion.
	WarningKindBinarySkipped WarningKind = "binary_skipped"
	// WarningKindNotebook marks a notebook that could not be converted to markdown.
	WarningKindNotebook WarningKind = "notebook"
)

// Warning records one recoverable problem encountered during a run.
type Warning struct {
	Kind    WarningKind
	Path    string
	Message string
}

// ExportNode is one node of the directory tree produced by the walker.
// Line, token, and byte counts on directories are recursive sums over
// content-included descendants only.
type ExportNode struct {
	RelativePath string
	Name         string
	Type         string
	Lines        int
	Tokens       int
	SizeBytes    int64
	Visible      bool
	Included     bool
	Children     []*ExportNode
}

// FileEntry pairs an included file's display path with its collected content.
type FileEntry struct {
	DisplayPath       string
	Content           string
	ConvertedNotebook bool
	ReadErrorMessage  string
}

// ExternalTree is the traversal result for one extra directory outside the
// root. Each one renders as its own tree section; its files join the external
// file entries.
type ExternalTree struct {
	RootPath string
	RootName string
	Root     *ExportNode
}

// ExportResult is the complete outcome of one traversal. It is built once by
// the walker, handed to the renderer, and discarded after rendering.
type ExportResult struct {
	RootPath      string
	RootName      string
	Root          *ExportNode
	ExternalTrees []ExternalTree
	Files         []FileEntry
	ExternalFiles []FileEntry
	Warnings      []Warning
	TotalFiles    int
	TotalLines    int
	TotalTokens   int
}

// AddWarning appends a recoverable problem to the result.
func (result *ExportResult) AddWarning(kind WarningKind, path string, message string) {
	result.Warnings = append(result.Warnings, Warning{Kind: kind, Path: path, Message: message})
}

// WarningCountsByKind returns the number of collected warnings per kind.
func (result *ExportResult) WarningCountsByKind() map[WarningKind]int {
	counts := make(map[WarningKind]int)
	for _, warning := range result.Warnings {
		counts[warning.Kind]++
	}
	return counts
}
