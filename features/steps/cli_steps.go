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
	"github.com/sh1Nome/extract-streams-web/domain/audio"
	"github.com/sh1Nome/extract-streams-web/infrastructure/filesystem"

	"github.com/cucumber/godog"
)

type cliContext struct {
	tempDir string
	output  *bytes.Buffer
	err     error
}

// SharedCLIContext is reset before each scenario via Before hook
var SharedCLIContext *cliContext

func getCLIContext() *cliContext {
	return SharedCLIContext
}

func InitializeCLIScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "cli-test-*")
		if err != nil {
			return c, err
		}
		SharedCLIContext = &cliContext{tempDir: tempDir, output: &bytes.Buffer{}}
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if cl := getCLIContext(); cl != nil && cl.tempDir != "" {
			os.RemoveAll(cl.tempDir)
		}
		SharedCLIContext = nil
		return c, nil
	})

	ctx.Step(`^a local video file "([^"]*)"$`, aLocalVideoFile)
	ctx.Step(`^I run the extract command on "([^"]*)"$`, iRunTheExtractCommandOn)
	ctx.Step(`^I run the tracks command on "([^"]*)"$`, iRunTheTracksCommandOn)
	ctx.Step(`^the archive "([^"]*)" should be written with (\d+) entries$`, theArchiveShouldBeWrittenWithEntries)
	ctx.Step(`^the CLI output should contain "([^"]*)"$`, theCLIOutputShouldContain)
	ctx.Step(`^the CLI command should fail mentioning "([^"]*)"$`, theCLICommandShouldFailMentioning)
}

func (c *cliContext) inputPath(name string) string {
	return filepath.Join(c.tempDir, name)
}

func aLocalVideoFile(name string) error {
	c := getCLIContext()
	return os.WriteFile(c.inputPath(name), getPipelineContext().content, 0644)
}

func iRunTheExtractCommandOn(name string) error {
	c := getCLIContext()
	c.err = cmd.RunExtractWithDependencies(
		context.Background(),
		getPipelineContext().newPipelineService(),
		nil,
		filesystem.NewChecker(),
		c.inputPath(name),
		filepath.Join(c.tempDir, "out"),
		"",
		c.output,
	)
	return nil
}

func iRunTheTracksCommandOn(name string) error {
	c := getCLIContext()
	c.err = cmd.RunTracksWithDependencies(
		context.Background(),
		getPipelineContext().source,
		filesystem.NewChecker(),
		audio.DefaultEncoding,
		c.inputPath(name),
		c.output,
	)
	return nil
}

func theArchiveShouldBeWrittenWithEntries(name string, count int) error {
	c := getCLIContext()
	if c.err != nil {
		return fmt.Errorf("command failed: %w", c.err)
	}
	data, err := os.ReadFile(filepath.Join(c.tempDir, "out", name))
	if err != nil {
		return fmt.Errorf("archive not written: %w", err)
	}
	_, names, err := readArchive(data)
	if err != nil {
		return err
	}
	if len(names) != count {
		return fmt.Errorf("expected %d entries, got %v", count, names)
	}
	return nil
}

func theCLIOutputShouldContain(text string) error {
	c := getCLIContext()
	if c.err != nil {
		return fmt.Errorf("command failed: %w", c.err)
	}
	if !strings.Contains(c.output.String(), text) {
		return fmt.Errorf("expected output to contain %q, got:\n%s", text, c.output.String())
	}
	return nil
}

func theCLICommandShouldFailMentioning(text string) error {
	c := getCLIContext()
	if c.err == nil {
		return fmt.Errorf("expected the command to fail")
	}
	if !strings.Contains(c.err.Error(), text) {
		return fmt.Errorf("expected error mentioning %q, got %v", text, c.err)
	}
	return nil
}
