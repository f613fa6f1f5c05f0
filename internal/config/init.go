package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigFileName is the document written by the init command.
const DefaultConfigFileName = "repoexport.yaml"

const defaultConfigurationTemplate = `root: .
output: repo_export.txt
scopes: []
tree_scopes: []
extra_files: []
extra_dirs: []
extensions: all
exclude_dirs: []
exclude_files: []
always_exclude: []
max_depth: -1
exhaustive_tree: false
tokens:
  enabled: false
  model: gpt-4o
clipboard: false
`

// InitializeConfiguration writes a starter configuration document into the
// working directory and returns its path. An existing document is preserved
// unless force is set.
func InitializeConfiguration(workingDirectory string, force bool) (string, error) {
	if workingDirectory == "" {
		currentDirectory, workingDirectoryError := os.Getwd()
		if workingDirectoryError != nil {
			return "", fmt.Errorf("determine working directory for configuration: %w", workingDirectoryError)
		}
		workingDirectory = currentDirectory
	}
	destinationPath := filepath.Join(workingDirectory, DefaultConfigFileName)

	if _, statError := os.Stat(destinationPath); statError == nil {
		if !force {
			return "", fmt.Errorf("configuration file already exists at %s", destinationPath)
		}
	} else if !os.IsNotExist(statError) {
		return "", fmt.Errorf("inspect configuration path %s: %w", destinationPath, statError)
	}

	if writeError := os.WriteFile(destinationPath, []byte(defaultConfigurationTemplate), 0o600); writeError != nil {
		return "", fmt.Errorf("write configuration to %s: %w", destinationPath, writeError)
	}
	return destinationPath, nil
}
