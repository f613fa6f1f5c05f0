// Package cli provides the command line interface.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/frontierkodiak/repoexport/internal/config"
	"github.com/frontierkodiak/repoexport/internal/render"
	"github.com/frontierkodiak/repoexport/internal/rules"
	"github.com/frontierkodiak/repoexport/internal/services/clipboard"
	"github.com/frontierkodiak/repoexport/internal/tokenizer"
	"github.com/frontierkodiak/repoexport/internal/types"
	"github.com/frontierkodiak/repoexport/internal/utils"
	"github.com/frontierkodiak/repoexport/internal/walker"
)

const (
	outputFlagName     = "output"
	copyFlagName       = "copy"
	tokensFlagName     = "tokens"
	modelFlagName      = "model"
	dumpConfigFlagName = "dump-config"
	forceFlagName      = "force"
	versionFlagName    = "version"
	versionTemplate    = "repoexport version: %s\n"

	defaultExportTarget  = "."
	rootUse              = "repoexport"
	rootShortDescription = "repoexport command line interface"
	rootLongDescription  = `repoexport flattens a repository into a single annotated text artifact.
It renders a directory tree with line and token counts followed by the content
of every included file, driven by a JSON or YAML configuration document.
Use --version to print the application version.`
	versionFlagDescription = "display application version"

	exportUse              = "export [config-file|directory]"
	exportShortDescription = "export a repository to a text artifact"
	exportLongDescription  = `Export a repository into one annotated text file.
The argument is either a configuration document (JSON or YAML) or a directory;
a bare directory is exported with the default settings. Without an argument the
current directory is exported.`
	exportUsageExample = `  # Export the current directory with defaults
  repoexport export

  # Export under a configuration document
  repoexport export repoexport.yaml

  # Export a directory and copy the artifact to the clipboard
  repoexport export ./service --copy`

	initUse              = "init"
	initShortDescription = "write a starter configuration document"
	initLongDescription  = `Write a commented starter configuration document into the current
directory. An existing document is preserved unless --force is given.`

	outputFlagDescription     = "artifact destination path"
	copyFlagDescription       = "copy the artifact to the system clipboard"
	tokensFlagDescription     = "annotate the tree with token counts"
	modelFlagDescription      = "tokenizer model for token counting"
	dumpConfigFlagDescription = "embed the resolved configuration into the artifact"
	forceFlagDescription      = "overwrite an existing configuration document"
	defaultTokenizerModel     = "gpt-4o"

	configSourceDynamic = "dynamic-config"

	warningSummaryFormat         = "%d %s warning(s)\n"
	warningTokenizerUnavailable  = "Warning: tokenizer unavailable, token counts disabled: %v\n"
	exportSummaryFormat          = "exported %d files (%d lines/%d tokens) to %s"
	exportTargetMissingFormat    = "export target %q does not exist: %w"
	clipboardCopyFailedFormat    = "copying artifact to clipboard: %w"
	artifactWriteFailedFormat    = "writing artifact to %s: %w"
	initializedConfigurationText = "wrote configuration to %s\n"
)

// Execute runs the repoexport application.
func Execute() error {
	rootCommand := createRootCommand()
	return rootCommand.Execute()
}

// createRootCommand builds the root Cobra command.
func createRootCommand() *cobra.Command {
	var showVersion bool

	rootCommand := &cobra.Command{
		Use:          rootUse,
		Short:        rootShortDescription,
		Long:         rootLongDescription,
		SilenceUsage: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
		PersistentPreRun: func(command *cobra.Command, arguments []string) {
			if showVersion {
				fmt.Printf(versionTemplate, utils.GetApplicationVersion())
				os.Exit(0)
			}
		},
	}
	rootCommand.PersistentFlags().BoolVar(&showVersion, versionFlagName, false, versionFlagDescription)
	rootCommand.AddCommand(
		createExportCommand(),
		createInitCommand(),
	)
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

// exportOptions stores flag overrides applied on top of the loaded document.
type exportOptions struct {
	outputPath      string
	copyToClipboard bool
	tokensEnabled   bool
	tokenizerModel  string
	dumpConfig      bool
}

// createExportCommand returns the export subcommand.
func createExportCommand() *cobra.Command {
	var options exportOptions

	exportCommand := &cobra.Command{
		Use:     exportUse,
		Short:   exportShortDescription,
		Long:    exportLongDescription,
		Example: exportUsageExample,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			exportTarget := defaultExportTarget
			if len(arguments) == 1 {
				exportTarget = arguments[0]
			}
			exportConfig, configSource, configError := resolveConfiguration(exportTarget)
			if configError != nil {
				return configError
			}
			applyFlagOverrides(exportConfig, command, options)
			return runExport(exportConfig, configSource)
		},
	}
	exportCommand.Flags().StringVar(&options.outputPath, outputFlagName, "", outputFlagDescription)
	exportCommand.Flags().BoolVar(&options.copyToClipboard, copyFlagName, false, copyFlagDescription)
	exportCommand.Flags().BoolVar(&options.tokensEnabled, tokensFlagName, false, tokensFlagDescription)
	exportCommand.Flags().StringVar(&options.tokenizerModel, modelFlagName, defaultTokenizerModel, modelFlagDescription)
	exportCommand.Flags().BoolVar(&options.dumpConfig, dumpConfigFlagName, false, dumpConfigFlagDescription)
	return exportCommand
}

// createInitCommand returns the init subcommand.
func createInitCommand() *cobra.Command {
	var forceOverwrite bool

	initCommand := &cobra.Command{
		Use:   initUse,
		Short: initShortDescription,
		Long:  initLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			writtenPath, initializeError := config.InitializeConfiguration("", forceOverwrite)
			if initializeError != nil {
				return initializeError
			}
			fmt.Printf(initializedConfigurationText, writtenPath)
			return nil
		},
	}
	initCommand.Flags().BoolVar(&forceOverwrite, forceFlagName, false, forceFlagDescription)
	return initCommand
}

// resolveConfiguration interprets the export argument: a directory yields the
// default configuration, anything else is loaded as a configuration document.
// The returned source labels the embedded dump.
func resolveConfiguration(exportTarget string) (*config.Config, string, error) {
	targetInfo, statError := os.Stat(exportTarget)
	if statError != nil {
		return nil, "", fmt.Errorf(exportTargetMissingFormat, exportTarget, statError)
	}
	if targetInfo.IsDir() {
		defaultConfig, defaultError := config.Default(exportTarget)
		return defaultConfig, configSourceDynamic, defaultError
	}
	loadedConfig, loadError := config.Load(exportTarget)
	return loadedConfig, exportTarget, loadError
}

// applyFlagOverrides lets flags set on the command line win over the document.
func applyFlagOverrides(exportConfig *config.Config, command *cobra.Command, options exportOptions) {
	if command.Flags().Changed(outputFlagName) {
		exportConfig.Output = options.outputPath
		// The overridden artifact name must join the denylist so the export
		// never captures itself.
		exportConfig.AlwaysExclude = append(exportConfig.AlwaysExclude, filepath.Base(options.outputPath))
	}
	if command.Flags().Changed(copyFlagName) {
		exportConfig.Clipboard = options.copyToClipboard
	}
	if command.Flags().Changed(tokensFlagName) {
		exportConfig.Tokens.Enabled = options.tokensEnabled
	}
	if command.Flags().Changed(modelFlagName) {
		exportConfig.Tokens.Model = options.tokenizerModel
	}
	if command.Flags().Changed(dumpConfigFlagName) {
		exportConfig.DumpConfig = options.dumpConfig
	}
}

// runExport drives one complete export: compile the pipeline, traverse,
// resolve extra files, render, and deliver the artifact.
func runExport(exportConfig *config.Config, configSource string) error {
	loggerInstance, loggerError := utils.NewApplicationLogger()
	if loggerError != nil {
		return fmt.Errorf(utils.LoggerInitializationFailedMessageFormat, loggerError)
	}
	defer loggerInstance.Sync()

	ruleSet, ruleError := rules.New(exportConfig.RuleOptions())
	if ruleError != nil {
		return ruleError
	}

	var tokenCounter tokenizer.Counter
	if exportConfig.Tokens.Enabled {
		counter, counterError := tokenizer.NewCounter(exportConfig.Tokens.Model)
		if counterError != nil {
			fmt.Fprintf(os.Stderr, warningTokenizerUnavailable, counterError)
		} else {
			tokenCounter = counter
		}
	}

	exportWalker := walker.New(exportConfig.Root, ruleSet, exportConfig.MaxDepth, tokenCounter, exportConfig.ExhaustiveTree)
	exportResult, walkError := exportWalker.Run()
	if walkError != nil {
		return walkError
	}
	walker.TraverseExtraDirectories(exportResult, exportConfig.ExtraDirs, ruleSet, exportConfig.MaxDepth, tokenCounter, exportConfig.ExhaustiveTree)
	walker.ResolveExtraFiles(exportResult, exportConfig.ExtraFiles, ruleSet, tokenCounter, exportWalker.CollectedFilePaths())

	renderOptions := render.Options{TokensEnabled: tokenCounter != nil}
	if exportConfig.DumpConfig {
		configDump, dumpError := exportConfig.DumpDocument()
		if dumpError != nil {
			return dumpError
		}
		renderOptions.ConfigDump = configDump
		renderOptions.ConfigSource = configSource
	}
	artifactText := render.Artifact(exportResult, renderOptions)

	outputPath := exportConfig.OutputPath()
	if writeError := os.WriteFile(outputPath, []byte(artifactText), 0o644); writeError != nil {
		return fmt.Errorf(artifactWriteFailedFormat, outputPath, writeError)
	}

	if exportConfig.Clipboard {
		if copyError := clipboard.NewService().Copy(artifactText); copyError != nil {
			return fmt.Errorf(clipboardCopyFailedFormat, copyError)
		}
	}

	reportWarnings(exportResult)
	loggerInstance.Info(fmt.Sprintf(exportSummaryFormat,
		exportResult.TotalFiles, exportResult.TotalLines, exportResult.TotalTokens, outputPath))
	return nil
}

// reportWarnings summarizes accumulated warnings by kind on stderr, with the
// individual messages listed beneath each kind.
func reportWarnings(exportResult *types.ExportResult) {
	warningCounts := exportResult.WarningCountsByKind()
	if len(warningCounts) == 0 {
		return
	}
	warningKinds := make([]string, 0, len(warningCounts))
	for warningKind := range warningCounts {
		warningKinds = append(warningKinds, string(warningKind))
	}
	sort.Strings(warningKinds)
	for _, warningKind := range warningKinds {
		fmt.Fprintf(os.Stderr, warningSummaryFormat, warningCounts[types.WarningKind(warningKind)], warningKind)
		for _, warning := range exportResult.Warnings {
			if string(warning.Kind) == warningKind {
				fmt.Fprintf(os.Stderr, "  %s: %s\n", warning.Path, warning.Message)
			}
		}
	}
}
