// Package render turns an ExportResult into the final text artifact: a tree
// section followed by a content section, each file block wrapped in a
// greppable path-identifying marker.
package render

import (
	"sort"
	"strings"

	"github.com/frontierkodiak/repoexport/internal/types"
	"github.com/frontierkodiak/repoexport/internal/utils"
)

const (
	artifactOpenTag  = "<codebase_context>"
	artifactCloseTag = "</codebase_context>"

	treeBranchConnector = "|-- "
	treeLastConnector   = "\\-- "
	treeBranchPadding   = "|   "
	treeLastPadding     = "    "

	contentIndentUnit = "  "
)

// Options controls presentation concerns of the artifact.
type Options struct {
	// TokensEnabled switches tree annotations to the lines/tokens pair.
	TokensEnabled bool
	// ConfigDump, when non-empty, embeds the serialized configuration.
	ConfigDump string
	// ConfigSource labels the embedded configuration block.
	ConfigSource string
}

// Artifact renders the complete export document. Rendering is deterministic:
// the same ExportResult and Options always produce byte-identical output.
func Artifact(exportResult *types.ExportResult, options Options) string {
	var documentBuilder strings.Builder
	documentBuilder.WriteString(artifactOpenTag + "\n")

	if options.ConfigDump != "" {
		sourceLabel := options.ConfigSource
		if sourceLabel == "" {
			sourceLabel = "dynamic-config"
		}
		documentBuilder.WriteString("  <config source=" + quoteAttribute(sourceLabel) + ">\n")
		documentBuilder.WriteString(options.ConfigDump + "\n")
		documentBuilder.WriteString("  </config>\n")
	}

	documentBuilder.WriteString("  <dirtree root=" + quoteAttribute(exportResult.RootPath) + ">\n")
	documentBuilder.WriteString(renderTree(exportResult.RootName, exportResult.Root, options.TokensEnabled))
	documentBuilder.WriteString("  </dirtree>\n")

	for _, externalTree := range exportResult.ExternalTrees {
		documentBuilder.WriteString("  <dirtree root=" + quoteAttribute(externalTree.RootPath) + ">\n")
		documentBuilder.WriteString(renderTree(externalTree.RootName, externalTree.Root, options.TokensEnabled))
		documentBuilder.WriteString("  </dirtree>\n")
	}

	documentBuilder.WriteString("  <files>\n")
	documentBuilder.WriteString(renderFileBlocks(exportResult.Files))
	if len(exportResult.ExternalFiles) > 0 {
		documentBuilder.WriteString("    <external_files>\n")
		for _, externalEntry := range exportResult.ExternalFiles {
			documentBuilder.WriteString(renderFileBlock(externalEntry, 3))
		}
		documentBuilder.WriteString("    </external_files>\n")
	}
	documentBuilder.WriteString("  </files>\n")
	documentBuilder.WriteString(artifactCloseTag + "\n")
	return documentBuilder.String()
}

// renderTree produces the ASCII tree for one traversal root. The first
// annotated node spells out the unit labels; every later annotation in the
// same tree abbreviates to the bare numbers. This keeps the historical
// compact format.
func renderTree(rootName string, rootNode *types.ExportNode, tokensEnabled bool) string {
	var treeBuilder strings.Builder
	unitsSpelled := false
	treeBuilder.WriteString(rootName + annotateNode(rootNode, tokensEnabled, &unitsSpelled) + "\n")
	renderTreeChildren(&treeBuilder, rootNode, "", tokensEnabled, &unitsSpelled)
	return treeBuilder.String()
}

// renderTreeChildren walks visible children in walker order, which is already
// lexicographic.
func renderTreeChildren(treeBuilder *strings.Builder, parentNode *types.ExportNode, prefix string, tokensEnabled bool, unitsSpelled *bool) {
	visibleChildren := make([]*types.ExportNode, 0, len(parentNode.Children))
	for _, childNode := range parentNode.Children {
		if childNode.Visible {
			visibleChildren = append(visibleChildren, childNode)
		}
	}
	for childIndex, childNode := range visibleChildren {
		isLastChild := childIndex == len(visibleChildren)-1
		connector := treeBranchConnector
		childPadding := treeBranchPadding
		if isLastChild {
			connector = treeLastConnector
			childPadding = treeLastPadding
		}
		treeBuilder.WriteString(prefix + connector + childNode.Name + annotateNode(childNode, tokensEnabled, unitsSpelled) + "\n")
		if childNode.Type == types.NodeTypeDirectory {
			renderTreeChildren(treeBuilder, childNode, prefix+childPadding, tokensEnabled, unitsSpelled)
		}
	}
}

// annotateNode formats the size annotation for one node: line counts for text
// files and directories (directories carry included-descendant sums), byte
// counts for binary files.
func annotateNode(node *types.ExportNode, tokensEnabled bool, unitsSpelled *bool) string {
	if node.Type == types.NodeTypeBinary {
		return " (" + utils.FormatFileSize(node.SizeBytes) + ")"
	}
	if node.Type == types.NodeTypeFile && !node.Included {
		return ""
	}
	lineText := utils.FormatCount(node.Lines)
	if !tokensEnabled {
		if !*unitsSpelled {
			*unitsSpelled = true
			return " (" + lineText + " lines)"
		}
		return " (" + lineText + ")"
	}
	tokenText := utils.FormatCount(node.Tokens)
	if !*unitsSpelled {
		*unitsSpelled = true
		return " (" + lineText + " lines/" + tokenText + " tokens)"
	}
	return " (" + lineText + "/" + tokenText + ")"
}

// renderFileBlocks emits the nested content section: files grouped by their
// directory hierarchy with <dir> wrappers, ordered lexicographically at each
// level.
func renderFileBlocks(fileEntries []types.FileEntry) string {
	var contentBuilder strings.Builder
	renderFileGroup(&contentBuilder, "", fileEntries, 2)
	return contentBuilder.String()
}

// renderFileGroup recursively partitions entries under pathPrefix into files
// at the current level and nested subdirectories.
func renderFileGroup(contentBuilder *strings.Builder, pathPrefix string, fileEntries []types.FileEntry, indentLevel int) {
	currentLevelEntries := make([]types.FileEntry, 0, len(fileEntries))
	subdirectoryEntries := make(map[string][]types.FileEntry)

	for _, fileEntry := range fileEntries {
		remainderPath := fileEntry.DisplayPath
		if pathPrefix != "" {
			remainderPath = strings.TrimPrefix(fileEntry.DisplayPath, pathPrefix+"/")
		}
		if separatorIndex := strings.IndexByte(remainderPath, '/'); separatorIndex >= 0 {
			subdirectoryName := remainderPath[:separatorIndex]
			subdirectoryKey := subdirectoryName
			if pathPrefix != "" {
				subdirectoryKey = pathPrefix + "/" + subdirectoryName
			}
			subdirectoryEntries[subdirectoryKey] = append(subdirectoryEntries[subdirectoryKey], fileEntry)
			continue
		}
		currentLevelEntries = append(currentLevelEntries, fileEntry)
	}

	sort.Slice(currentLevelEntries, func(leftIndex, rightIndex int) bool {
		return currentLevelEntries[leftIndex].DisplayPath < currentLevelEntries[rightIndex].DisplayPath
	})
	for _, fileEntry := range currentLevelEntries {
		contentBuilder.WriteString(renderFileBlock(fileEntry, indentLevel))
	}

	subdirectoryKeys := make([]string, 0, len(subdirectoryEntries))
	for subdirectoryKey := range subdirectoryEntries {
		subdirectoryKeys = append(subdirectoryKeys, subdirectoryKey)
	}
	sort.Strings(subdirectoryKeys)
	for _, subdirectoryKey := range subdirectoryKeys {
		indent := strings.Repeat(contentIndentUnit, indentLevel)
		contentBuilder.WriteString(indent + "<dir path=" + quoteAttribute(subdirectoryKey) + ">\n")
		renderFileGroup(contentBuilder, subdirectoryKey, subdirectoryEntries[subdirectoryKey], indentLevel+1)
		contentBuilder.WriteString(indent + "</dir>\n")
	}
}

// renderFileBlock emits one marker-delimited file block. Unreadable files
// yield a placeholder noting the error so one bad file never aborts the run.
func renderFileBlock(fileEntry types.FileEntry, indentLevel int) string {
	indent := strings.Repeat(contentIndentUnit, indentLevel)
	var attributes strings.Builder
	attributes.WriteString(" path=" + quoteAttribute(fileEntry.DisplayPath))
	if fileEntry.ConvertedNotebook {
		attributes.WriteString(` converted_from_ipynb="true"`)
	}
	if fileEntry.ReadErrorMessage != "" {
		attributes.WriteString(" error=" + quoteAttribute(fileEntry.ReadErrorMessage))
		return indent + "<file" + attributes.String() + ">\n" +
			"(unreadable: " + fileEntry.ReadErrorMessage + ")\n" +
			indent + "</file>\n"
	}
	return indent + "<file" + attributes.String() + ">\n" +
		fileEntry.Content + "\n" +
		indent + "</file>\n"
}

// attributeEscaper escapes attribute values only; file content is embedded raw
// so the markers stay trivially greppable.
var attributeEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

// quoteAttribute returns the escaped, double-quoted attribute form of value.
func quoteAttribute(value string) string {
	return `"` + attributeEscaper.Replace(value) + `"`
}
