package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sh1Nome/extract-streams-web/infrastructure/config"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
)

// Prompter interface for interactive prompts (allows mocking in tests)
type Prompter interface {
	Input(message string, defaultValue string) (string, error)
	Confirm(message string, defaultValue bool) (bool, error)
}

// SurveyPrompter implements Prompter using the survey library
type SurveyPrompter struct{}

func (p *SurveyPrompter) Input(message string, defaultValue string) (string, error) {
	result := ""
	prompt := &survey.Input{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return "", err
	}
	return result, nil
}

func (p *SurveyPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	result := defaultValue
	prompt := &survey.Confirm{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return false, err
	}
	return result, nil
}

// DefaultPrompter is the prompter used in production
var DefaultPrompter Prompter = &SurveyPrompter{}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create configuration file interactively",
	Long: `Prompts for configuration values and creates config.yaml.

This command guides you through the server address, the ffmpeg and ffprobe
binaries, encoding settings and logging. Anything left out keeps its default
and can still be overridden with EXTRACT_* environment variables.`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		path = config.DefaultPath
	}
	return RunSetupWithPrompter(DefaultPrompter, path, DefaultOutput)
}

// RunSetupWithPrompter runs the setup with a given prompter (for testing)
func RunSetupWithPrompter(prompter Prompter, configPath string, output OutputWriter) error {
	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		overwrite, err := prompter.Confirm("config.yaml already exists. Overwrite?", false)
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if !overwrite {
			fmt.Fprintln(output, "Setup cancelled.")
			return nil
		}
	}

	fmt.Fprintln(output, "Welcome to extract-streams-web setup!")
	fmt.Fprintln(output)

	cfg := config.Default()

	if err := promptServer(prompter, cfg); err != nil {
		return err
	}
	if err := promptFFmpeg(prompter, cfg); err != nil {
		return err
	}
	if err := promptAudio(prompter, cfg); err != nil {
		return err
	}
	if err := promptLogging(prompter, cfg); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := config.Save(cfg, configPath); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintln(output)
	fmt.Fprintf(output, "Configuration saved to %s\n", configPath)
	return nil
}

func promptServer(prompter Prompter, cfg *config.Config) error {
	addr, err := prompter.Input("Address for the HTTP server to listen on?", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if addr = strings.TrimSpace(addr); addr != "" {
		cfg.Server.Addr = addr
	}

	tempDir, err := prompter.Input("Directory for temporary files? (empty for system default)", cfg.Workspace.TempDir)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.Workspace.TempDir = strings.TrimSpace(tempDir)
	return nil
}

func promptFFmpeg(prompter Prompter, cfg *config.Config) error {
	binary, err := prompter.Input("Path to ffmpeg?", cfg.FFmpeg.Binary)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if binary = strings.TrimSpace(binary); binary != "" {
		cfg.FFmpeg.Binary = binary
	}

	probe, err := prompter.Input("Path to ffprobe?", cfg.FFmpeg.ProbeBinary)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if probe = strings.TrimSpace(probe); probe != "" {
		cfg.FFmpeg.ProbeBinary = probe
	}

	concurrent, err := prompter.Input("How many tracks may be encoded at once per request?", strconv.Itoa(cfg.FFmpeg.MaxConcurrent))
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if concurrent = strings.TrimSpace(concurrent); concurrent != "" {
		n, err := strconv.Atoi(concurrent)
		if err != nil || n < 1 {
			return fmt.Errorf("concurrency must be a positive number, got %q", concurrent)
		}
		cfg.FFmpeg.MaxConcurrent = n
	}
	return nil
}

func promptAudio(prompter Prompter, cfg *config.Config) error {
	bitrate, err := prompter.Input("Audio bitrate for AAC encoding?", cfg.Audio.Bitrate)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if bitrate = strings.TrimSpace(bitrate); bitrate != "" {
		cfg.Audio.Bitrate = bitrate
	}
	return nil
}

func promptLogging(prompter Prompter, cfg *config.Config) error {
	level, err := prompter.Input("Log level (debug, info, warn, error)?", cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if level = strings.TrimSpace(level); level != "" {
		cfg.Log.Level = strings.ToLower(level)
	}

	asJSON, err := prompter.Confirm("Write logs as JSON?", false)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if asJSON {
		cfg.Log.Format = "json"
	}
	return nil
}
