//go:build integration

package steps

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sh1Nome/extract-streams-web/cmd"
	"github.com/sh1Nome/extract-streams-web/infrastructure/config"

	"github.com/cucumber/godog"
)

type configContext struct {
	configPath string
	cfg        *config.Config
	loadErr    error
	cmdErr     error
	output     *bytes.Buffer
	setEnv     []string
	tempDir    string
}

// SharedConfigContext is reset before each scenario via Before hook
var SharedConfigContext *configContext

func getConfigContext() *configContext {
	return SharedConfigContext
}

func InitializeConfigScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		SharedConfigContext = &configContext{output: &bytes.Buffer{}}
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if cc := getConfigContext(); cc != nil {
			for _, key := range cc.setEnv {
				os.Unsetenv(key)
			}
			if cc.tempDir != "" {
				os.RemoveAll(cc.tempDir)
			}
		}
		SharedConfigContext = nil
		return c, nil
	})

	ctx.Step(`^a configuration file exists at "([^"]*)"$`, aConfigurationFileExistsAt)
	ctx.Step(`^a writable copy of the configuration file$`, aWritableCopyOfTheConfigurationFile)
	ctx.Step(`^no configuration file exists at "([^"]*)"$`, noConfigurationFileExistsAt)
	ctx.Step(`^the environment variable "([^"]*)" is "([^"]*)"$`, theEnvironmentVariableIs)
	ctx.Step(`^I load the configuration$`, iLoadTheConfiguration)
	ctx.Step(`^I load the configuration or its defaults$`, iLoadTheConfigurationOrItsDefaults)
	ctx.Step(`^I attempt to load the configuration$`, iAttemptToLoadTheConfiguration)
	ctx.Step(`^the config value "([^"]*)" should be "([^"]*)"$`, theConfigValueShouldBe)
	ctx.Step(`^I should receive an error about missing configuration$`, iShouldReceiveAnErrorAboutMissingConfiguration)
	ctx.Step(`^I run config set "([^"]*)" to "([^"]*)"$`, iRunConfigSetTo)
	ctx.Step(`^I run config get "([^"]*)"$`, iRunConfigGet)
	ctx.Step(`^I run config list$`, iRunConfigList)
	ctx.Step(`^the command output should contain "([^"]*)"$`, theCommandOutputShouldContain)
	ctx.Step(`^the command should fail mentioning "([^"]*)"$`, theCommandShouldFailMentioning)
}

func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find project root (no go.mod found)")
		}
		dir = parent
	}
}

func aConfigurationFileExistsAt(path string) error {
	c := getConfigContext()
	root, err := findProjectRoot()
	if err != nil {
		return err
	}
	c.configPath = filepath.Join(root, path)

	if _, err := os.Stat(c.configPath); err != nil {
		return fmt.Errorf("expected config file at %s but it does not exist: %w", c.configPath, err)
	}
	return nil
}

func aWritableCopyOfTheConfigurationFile() error {
	c := getConfigContext()
	data, err := os.ReadFile(c.configPath)
	if err != nil {
		return err
	}
	dir, err := os.MkdirTemp("", "config-test-*")
	if err != nil {
		return err
	}
	c.tempDir = dir
	c.configPath = filepath.Join(dir, "config.yaml")
	return os.WriteFile(c.configPath, data, 0644)
}

func noConfigurationFileExistsAt(path string) error {
	c := getConfigContext()
	root, err := findProjectRoot()
	if err != nil {
		return err
	}
	c.configPath = filepath.Join(root, path)
	return nil
}

func theEnvironmentVariableIs(key, value string) error {
	c := getConfigContext()
	c.setEnv = append(c.setEnv, key)
	return os.Setenv(key, value)
}

func iLoadTheConfiguration() error {
	c := getConfigContext()
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("unexpected error loading config: %w", err)
	}
	c.cfg = cfg
	return nil
}

func iLoadTheConfigurationOrItsDefaults() error {
	c := getConfigContext()
	cfg, err := config.LoadOrDefault(c.configPath)
	if err != nil {
		return fmt.Errorf("unexpected error loading config: %w", err)
	}
	c.cfg = cfg
	return nil
}

func iAttemptToLoadTheConfiguration() error {
	c := getConfigContext()
	c.cfg, c.loadErr = config.Load(c.configPath)
	return nil
}

func theConfigValueShouldBe(key, expected string) error {
	c := getConfigContext()
	if c.cfg == nil {
		return fmt.Errorf("config was not loaded")
	}
	value, err := config.NewConfigManager(c.cfg, c.configPath).Get(key)
	if err != nil {
		return err
	}
	if value != expected {
		return fmt.Errorf("expected %s %q, got %q", key, expected, value)
	}
	return nil
}

func iShouldReceiveAnErrorAboutMissingConfiguration() error {
	if getConfigContext().loadErr == nil {
		return fmt.Errorf("expected an error but got none")
	}
	return nil
}

func iRunConfigSetTo(key, value string) error {
	c := getConfigContext()
	if c.cfg == nil {
		return fmt.Errorf("config was not loaded")
	}
	c.cmdErr = cmd.RunConfigSetWithDependencies(c.cfg, c.configPath, key, value, c.output)
	return nil
}

func iRunConfigGet(key string) error {
	c := getConfigContext()
	c.cmdErr = cmd.RunConfigGetWithDependencies(c.cfg, c.configPath, key, c.output)
	return nil
}

func iRunConfigList() error {
	c := getConfigContext()
	c.cmdErr = cmd.RunConfigListWithDependencies(c.cfg, c.configPath, c.output)
	return nil
}

func theCommandOutputShouldContain(text string) error {
	c := getConfigContext()
	if c.cmdErr != nil {
		return fmt.Errorf("command failed: %w", c.cmdErr)
	}
	if !strings.Contains(c.output.String(), text) {
		return fmt.Errorf("expected output to contain %q, got:\n%s", text, c.output.String())
	}
	return nil
}

func theCommandShouldFailMentioning(text string) error {
	c := getConfigContext()
	if c.cmdErr == nil {
		return fmt.Errorf("expected the command to fail")
	}
	if !strings.Contains(c.cmdErr.Error(), text) {
		return fmt.Errorf("expected error mentioning %q, got %v", text, c.cmdErr)
	}
	return nil
}
