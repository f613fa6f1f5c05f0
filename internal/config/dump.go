package config

import (
	"encoding/json"
	"fmt"
)

// dumpDocument mirrors Config for the embedded artifact dump. Extensions is
// flattened back to the document form: the "all" sentinel or the explicit
// list.
type dumpDocument struct {
	Root           string             `json:"root"`
	Output         string             `json:"output"`
	Scopes         []string           `json:"scopes"`
	TreeScopes     []string           `json:"tree_scopes"`
	ExtraFiles     []string           `json:"extra_files"`
	ExtraDirs      []string           `json:"extra_dirs"`
	Extensions     any                `json:"extensions"`
	ExcludeDirs    []string           `json:"exclude_dirs"`
	ExcludeFiles   []string           `json:"exclude_files"`
	AlwaysExclude  []string           `json:"always_exclude"`
	MaxDepth       int                `json:"max_depth"`
	ExhaustiveTree bool               `json:"exhaustive_tree"`
	Tokens         TokenConfiguration `json:"tokens"`
	Clipboard      bool               `json:"clipboard"`
}

// DumpDocument serializes the resolved configuration for embedding into the
// artifact, so a reader of the export can reconstruct how it was produced.
func (exportConfig *Config) DumpDocument() (string, error) {
	var extensionsValue any
	if exportConfig.Extensions.AllowsAll() {
		extensionsValue = extensionsAllSentinel
	} else {
		extensionsValue = exportConfig.Extensions.Allowed()
	}

	serialized, marshalError := json.MarshalIndent(dumpDocument{
		Root:           exportConfig.Root,
		Output:         exportConfig.Output,
		Scopes:         exportConfig.Scopes,
		TreeScopes:     exportConfig.TreeScopes,
		ExtraFiles:     exportConfig.ExtraFiles,
		ExtraDirs:      exportConfig.ExtraDirs,
		Extensions:     extensionsValue,
		ExcludeDirs:    exportConfig.ExcludeDirs,
		ExcludeFiles:   exportConfig.ExcludeFiles,
		AlwaysExclude:  exportConfig.AlwaysExclude,
		MaxDepth:       exportConfig.MaxDepth,
		ExhaustiveTree: exportConfig.ExhaustiveTree,
		Tokens:         exportConfig.Tokens,
		Clipboard:      exportConfig.Clipboard,
	}, "", "  ")
	if marshalError != nil {
		return "", fmt.Errorf("serializing configuration dump: %w", marshalError)
	}
	return string(serialized), nil
}
