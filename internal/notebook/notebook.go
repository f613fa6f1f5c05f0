// Package notebook converts Jupyter notebook documents into plain markdown
// with all cell outputs cleared, so the renderer only ever sees text.
package notebook

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	cellTypeMarkdown = "markdown"
	cellTypeCode     = "code"
	cellTypeRaw      = "raw"

	defaultCodeLanguage = "python"
)

// notebookDocument models the subset of the nbformat v4 schema needed for
// conversion. Outputs are intentionally not decoded: clearing them is the
// point of the conversion.
type notebookDocument struct {
	Cells    []notebookCell   `json:"cells"`
	Metadata notebookMetadata `json:"metadata"`
}

type notebookCell struct {
	CellType string          `json:"cell_type"`
	Source   json.RawMessage `json:"source"`
}

type notebookMetadata struct {
	Kernelspec struct {
		Language string `json:"language"`
	} `json:"kernelspec"`
	LanguageInfo struct {
		Name string `json:"name"`
	} `json:"language_info"`
}

// ToMarkdown converts raw notebook JSON into a markdown document: markdown
// and raw cells pass through verbatim, code cells become fenced blocks tagged
// with the notebook's language.
func ToMarkdown(notebookJSON []byte) (string, error) {
	var document notebookDocument
	if decodeError := json.Unmarshal(notebookJSON, &document); decodeError != nil {
		return "", fmt.Errorf("decoding notebook: %w", decodeError)
	}

	codeLanguage := document.Metadata.LanguageInfo.Name
	if codeLanguage == "" {
		codeLanguage = document.Metadata.Kernelspec.Language
	}
	if codeLanguage == "" {
		codeLanguage = defaultCodeLanguage
	}

	var sections []string
	for cellIndex, cell := range document.Cells {
		cellSource, sourceError := decodeCellSource(cell.Source)
		if sourceError != nil {
			return "", fmt.Errorf("decoding cell %d source: %w", cellIndex, sourceError)
		}
		switch cell.CellType {
		case cellTypeMarkdown, cellTypeRaw:
			sections = append(sections, cellSource)
		case cellTypeCode:
			sections = append(sections, "```"+codeLanguage+"\n"+strings.TrimRight(cellSource, "\n")+"\n```")
		default:
			// Unknown cell types carry no renderable content.
		}
	}
	return strings.Join(sections, "\n\n") + "\n", nil
}

// decodeCellSource accepts both legal source encodings: a single string or a
// list of line strings.
func decodeCellSource(rawSource json.RawMessage) (string, error) {
	if len(rawSource) == 0 {
		return "", nil
	}
	var sourceString string
	if stringError := json.Unmarshal(rawSource, &sourceString); stringError == nil {
		return sourceString, nil
	}
	var sourceLines []string
	if linesError := json.Unmarshal(rawSource, &sourceLines); linesError != nil {
		return "", linesError
	}
	return strings.Join(sourceLines, ""), nil
}
