// Package config loads and validates the export configuration document.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/frontierkodiak/repoexport/internal/rules"
	"github.com/frontierkodiak/repoexport/internal/types"
	"github.com/frontierkodiak/repoexport/internal/utils"
)

// extensionsAllSentinel is the document value admitting every extension.
const extensionsAllSentinel = "all"

// defaultOutputSuffix names the artifact when the document omits "output".
const defaultOutputSuffix = "_export.txt"

// builtinAlwaysExclude is the hard denylist applied before any user rule.
// Entries here can never be re-included, not even by extra_files.
var builtinAlwaysExclude = []string{
	".git/",
	"__pycache__/",
	".venv/",
	".vscode/",
	"node_modules/",
	"build/",
	"dist/",
	".pytest_cache/",
	".mypy_cache/",
	".DS_Store",
	".coverage",
	"*.pyc",
	"*.swp",
	"*.swo",
	"uv.lock",
	"LICENSE",
}

// TokenConfiguration controls token counting for tree annotations.
type TokenConfiguration struct {
	Enabled bool   `mapstructure:"enabled"`
	Model   string `mapstructure:"model"`
}

// Config is the immutable user intent for one export run. It is loaded once
// and never mutated during the run.
type Config struct {
	Root           string
	Output         string
	Scopes         []string
	TreeScopes     []string
	ExtraFiles     []string
	ExtraDirs      []string
	Extensions     rules.ExtensionFilter
	ExcludeDirs    []string
	ExcludeFiles   []string
	AlwaysExclude  []string
	MaxDepth       int
	ExhaustiveTree bool
	DumpConfig     bool
	Tokens         TokenConfiguration
	Clipboard      bool
}

// rawConfiguration mirrors the document shape before validation. Extensions
// stays untyped because the field legally holds either a list or the "all"
// sentinel string.
type rawConfiguration struct {
	Root           string             `mapstructure:"root"`
	Output         string             `mapstructure:"output"`
	Scopes         []string           `mapstructure:"scopes"`
	TreeScopes     []string           `mapstructure:"tree_scopes"`
	ExtraFiles     []string           `mapstructure:"extra_files"`
	ExtraDirs      []string           `mapstructure:"extra_dirs"`
	Extensions     any                `mapstructure:"extensions"`
	ExcludeDirs    []string           `mapstructure:"exclude_dirs"`
	ExcludeFiles   []string           `mapstructure:"exclude_files"`
	AlwaysExclude  []string           `mapstructure:"always_exclude"`
	MaxDepth       int                `mapstructure:"max_depth"`
	ExhaustiveTree bool               `mapstructure:"exhaustive_tree"`
	DumpConfig     bool               `mapstructure:"dump_config"`
	Tokens         TokenConfiguration `mapstructure:"tokens"`
	Clipboard      bool               `mapstructure:"clipboard"`
}

// Load reads the configuration document at configFilePath (JSON or YAML,
// selected by file extension) and returns the validated Config.
func Load(configFilePath string) (*Config, error) {
	viperInstance := viper.New()
	viperInstance.SetConfigFile(configFilePath)
	viperInstance.SetDefault("max_depth", -1)
	if readError := viperInstance.ReadInConfig(); readError != nil {
		return nil, fmt.Errorf("reading configuration %s: %w", configFilePath, readError)
	}

	var rawDocument rawConfiguration
	if unmarshalError := viperInstance.Unmarshal(&rawDocument); unmarshalError != nil {
		return nil, fmt.Errorf("parsing configuration %s: %w", configFilePath, unmarshalError)
	}

	return buildConfig(rawDocument)
}

// Default synthesizes the configuration used when the user supplies a bare
// directory instead of a document: traverse the whole root, admit every
// extension, keep only the built-in denylist.
func Default(rootPath string) (*Config, error) {
	return buildConfig(rawConfiguration{
		Root:     rootPath,
		MaxDepth: -1,
	})
}

// buildConfig validates a raw document and produces the immutable Config.
func buildConfig(rawDocument rawConfiguration) (*Config, error) {
	if strings.TrimSpace(rawDocument.Root) == "" {
		return nil, types.NewConfigError("root is required")
	}

	absoluteRoot, absoluteError := filepath.Abs(filepath.FromSlash(utils.NormalizePath(rawDocument.Root)))
	if absoluteError != nil {
		return nil, types.NewConfigError("cannot resolve root %q: %v", rawDocument.Root, absoluteError)
	}
	rootInfo, rootStatError := os.Stat(absoluteRoot)
	if rootStatError != nil {
		return nil, types.NewConfigError("root %q is not accessible: %v", rawDocument.Root, rootStatError)
	}
	if !rootInfo.IsDir() {
		return nil, types.NewConfigError("root %q is not a directory", rawDocument.Root)
	}

	extensionFilter, extensionError := parseExtensions(rawDocument.Extensions)
	if extensionError != nil {
		return nil, extensionError
	}

	outputName := strings.TrimSpace(rawDocument.Output)
	if outputName == "" {
		outputName = filepath.Base(absoluteRoot) + defaultOutputSuffix
	}

	alwaysExclude := make([]string, 0, len(builtinAlwaysExclude)+len(rawDocument.AlwaysExclude)+1)
	alwaysExclude = append(alwaysExclude, builtinAlwaysExclude...)
	alwaysExclude = append(alwaysExclude, rawDocument.AlwaysExclude...)
	// The artifact must never export itself.
	alwaysExclude = append(alwaysExclude, filepath.Base(outputName))

	loadedConfig := &Config{
		Root:           absoluteRoot,
		Output:         outputName,
		Scopes:         rawDocument.Scopes,
		TreeScopes:     rawDocument.TreeScopes,
		ExtraFiles:     rawDocument.ExtraFiles,
		ExtraDirs:      rawDocument.ExtraDirs,
		Extensions:     extensionFilter,
		ExcludeDirs:    rawDocument.ExcludeDirs,
		ExcludeFiles:   rawDocument.ExcludeFiles,
		AlwaysExclude:  utils.DeduplicatePatterns(alwaysExclude),
		MaxDepth:       rawDocument.MaxDepth,
		ExhaustiveTree: rawDocument.ExhaustiveTree,
		DumpConfig:     rawDocument.DumpConfig,
		Tokens:         rawDocument.Tokens,
		Clipboard:      rawDocument.Clipboard,
	}
	return loadedConfig, nil
}

// parseExtensions converts the untyped extensions field into the tagged
// ExtensionFilter variant. An absent field admits everything.
func parseExtensions(rawValue any) (rules.ExtensionFilter, error) {
	switch typedValue := rawValue.(type) {
	case nil:
		return rules.AllExtensions(), nil
	case string:
		if strings.EqualFold(strings.TrimSpace(typedValue), extensionsAllSentinel) {
			return rules.AllExtensions(), nil
		}
		return rules.SpecificExtensions([]string{typedValue}), nil
	case []string:
		return specificOrAll(typedValue)
	case []any:
		stringValues := make([]string, 0, len(typedValue))
		for _, element := range typedValue {
			stringElement, isString := element.(string)
			if !isString {
				return rules.ExtensionFilter{}, types.NewConfigError("extensions entries must be strings, got %T", element)
			}
			stringValues = append(stringValues, stringElement)
		}
		return specificOrAll(stringValues)
	default:
		return rules.ExtensionFilter{}, types.NewConfigError("extensions must be a list or the string %q, got %T", extensionsAllSentinel, rawValue)
	}
}

// specificOrAll maps a list containing the sentinel to the allow-all variant.
func specificOrAll(extensionValues []string) (rules.ExtensionFilter, error) {
	for _, extensionValue := range extensionValues {
		if strings.EqualFold(strings.TrimSpace(extensionValue), extensionsAllSentinel) {
			return rules.AllExtensions(), nil
		}
	}
	return rules.SpecificExtensions(extensionValues), nil
}

// RuleOptions compiles the configuration into pipeline options. Extra files
// that resolve under the root participate in the pipeline's explicit
// inclusion stage; entries outside the root belong to the external resolver.
func (exportConfig *Config) RuleOptions() rules.Options {
	inRootExtraFiles, _ := exportConfig.SplitExtraFiles()
	return rules.Options{
		AlwaysExclude:  exportConfig.AlwaysExclude,
		ExtraFiles:     inRootExtraFiles,
		ExcludeDirs:    exportConfig.ExcludeDirs,
		ExcludeFiles:   exportConfig.ExcludeFiles,
		Scopes:         exportConfig.Scopes,
		TreeScopes:     exportConfig.TreeScopes,
		Extensions:     exportConfig.Extensions,
		ExhaustiveTree: exportConfig.ExhaustiveTree,
	}
}

// SplitExtraFiles partitions extra_files into root-relative paths and
// external absolute paths.
func (exportConfig *Config) SplitExtraFiles() (inRoot []string, external []string) {
	for _, extraFilePath := range exportConfig.ExtraFiles {
		relativePath, relativeError := utils.RelativeToRoot(exportConfig.Root, extraFilePath)
		if relativeError != nil {
			external = append(external, extraFilePath)
			continue
		}
		inRoot = append(inRoot, relativePath)
	}
	return inRoot, external
}

// OutputPath resolves the artifact destination: absolute output paths are
// honored as-is, relative ones land next to the root.
func (exportConfig *Config) OutputPath() string {
	nativeOutput := filepath.FromSlash(utils.NormalizePath(exportConfig.Output))
	if filepath.IsAbs(nativeOutput) {
		return nativeOutput
	}
	return filepath.Join(exportConfig.Root, nativeOutput)
}
