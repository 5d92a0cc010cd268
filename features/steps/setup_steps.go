//go:build integration

package steps

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"marketing-export/cmd"
	"marketing-export/infrastructure/config"

	"github.com/cucumber/godog"
)

type setupContext struct {
	tempDir         string
	configPath      string
	setupCancelled  bool
	originalContent string
	output          *bytes.Buffer
	err             error
}

var SharedSetupContext = &setupContext{}

// MockPrompter implements cmd.Prompter for testing. Each prompt kind
// answers from its own queue in order.
type MockPrompter struct {
	inputResponses    []string
	passwordResponses []string
	selectResponses   []string
	confirmResponses  []bool
}

func (m *MockPrompter) Input(message string, defaultValue string) (string, error) {
	if len(m.inputResponses) == 0 {
		return defaultValue, nil
	}
	response := m.inputResponses[0]
	m.inputResponses = m.inputResponses[1:]
	return response, nil
}

func (m *MockPrompter) Password(message string) (string, error) {
	if len(m.passwordResponses) == 0 {
		return "", nil
	}
	response := m.passwordResponses[0]
	m.passwordResponses = m.passwordResponses[1:]
	return response, nil
}

func (m *MockPrompter) Select(message string, options []string, defaultValue string) (string, error) {
	if len(m.selectResponses) == 0 {
		return defaultValue, nil
	}
	response := m.selectResponses[0]
	m.selectResponses = m.selectResponses[1:]
	for _, opt := range options {
		if opt == response {
			return response, nil
		}
	}
	return "", fmt.Errorf("%q is not one of %v for: %s", response, options, message)
}

func (m *MockPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	if len(m.confirmResponses) == 0 {
		return defaultValue, nil
	}
	response := m.confirmResponses[0]
	m.confirmResponses = m.confirmResponses[1:]
	return response, nil
}

func InitializeSetupScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "setup-test-*")
		if err != nil {
			return c, err
		}
		SharedSetupContext = &setupContext{
			tempDir:    tempDir,
			configPath: filepath.Join(tempDir, "config", "config.yaml"),
			output:     &bytes.Buffer{},
		}
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if SharedSetupContext.tempDir != "" {
			os.RemoveAll(SharedSetupContext.tempDir)
		}
		return c, nil
	})

	ctx.Step(`^no config file exists for setup$`, func() error {
		return SharedSetupContext.noConfigFileExistsForSetup()
	})
	ctx.Step(`^a config file already exists for setup$`, func() error {
		return SharedSetupContext.aConfigFileAlreadyExistsForSetup()
	})
	ctx.Step(`^I run the setup command with inputs:$`, func(table *godog.Table) error {
		return SharedSetupContext.iRunTheSetupCommandWithInputs(table)
	})
	ctx.Step(`^I run the setup command with confirmation "([^"]*)"$`, func(confirmation string) error {
		return SharedSetupContext.iRunTheSetupCommandWithConfirmation(confirmation)
	})
	ctx.Step(`^a config file should exist$`, func() error {
		return SharedSetupContext.aConfigFileShouldExist()
	})
	ctx.Step(`^the config should have strategy "([^"]*)"$`, func(expected string) error {
		return SharedSetupContext.theConfigShouldHave("strategy", expected, func(c *config.Config) string { return c.Google.Strategy })
	})
	ctx.Step(`^the config should have shared drive "([^"]*)"$`, func(expected string) error {
		return SharedSetupContext.theConfigShouldHave("shared drive", expected, func(c *config.Config) string { return c.Drive.SharedDrive })
	})
	ctx.Step(`^the config should have default tone "([^"]*)"$`, func(expected string) error {
		return SharedSetupContext.theConfigShouldHave("default tone", expected, func(c *config.Config) string { return c.LLM.DefaultTone })
	})
	ctx.Step(`^the setup should be cancelled$`, func() error {
		return SharedSetupContext.theSetupShouldBeCancelled()
	})
	ctx.Step(`^the existing config should be unchanged$`, func() error {
		return SharedSetupContext.theExistingConfigShouldBeUnchanged()
	})
}

func (s *setupContext) noConfigFileExistsForSetup() error {
	return os.MkdirAll(filepath.Dir(s.configPath), 0755)
}

func (s *setupContext) aConfigFileAlreadyExistsForSetup() error {
	if err := os.MkdirAll(filepath.Dir(s.configPath), 0755); err != nil {
		return err
	}

	content := `google:
  strategy: installed_app
  credentials_file: "original-creds.json"
drive:
  folder_name: "Original_Folder"
llm:
  model: "original-model"
`
	s.originalContent = content
	return os.WriteFile(s.configPath, []byte(content), 0600)
}

func (s *setupContext) iRunTheSetupCommandWithInputs(table *godog.Table) error {
	prompter := parseInputTable(table)

	s.err = cmd.RunSetupWithPrompter(prompter, s.configPath, s.output)
	if s.err != nil {
		return fmt.Errorf("setup command failed: %w", s.err)
	}
	return nil
}

func (s *setupContext) iRunTheSetupCommandWithConfirmation(confirmation string) error {
	confirm := strings.ToLower(confirmation) == "y"
	prompter := &MockPrompter{confirmResponses: []bool{confirm}}

	s.err = cmd.RunSetupWithPrompter(prompter, s.configPath, s.output)
	if !confirm && strings.Contains(s.output.String(), "Setup cancelled.") {
		s.setupCancelled = true
	}
	return nil
}

// parseInputTable routes each row to the queue of the prompt kind that asks it
func parseInputTable(table *godog.Table) *MockPrompter {
	m := &MockPrompter{}

	for i, row := range table.Rows {
		if i == 0 {
			continue // Skip header row
		}
		prompt := strings.ToLower(row.Cells[0].Value)
		value := row.Cells[1].Value

		switch {
		case prompt == "strategy", prompt == "tone":
			m.selectResponses = append(m.selectResponses, value)
		case prompt == "api key":
			m.passwordResponses = append(m.passwordResponses, value)
		case prompt == "create folder", strings.HasPrefix(prompt, "add"):
			m.confirmResponses = append(m.confirmResponses, strings.ToLower(value) == "y")
		default:
			m.inputResponses = append(m.inputResponses, value)
		}
	}

	return m
}

func (s *setupContext) aConfigFileShouldExist() error {
	if _, err := os.Stat(s.configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file does not exist at %s", s.configPath)
	}
	return nil
}

func (s *setupContext) theConfigShouldHave(field, expected string, get func(*config.Config) string) error {
	cfg, err := config.Load(s.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if got := get(cfg); got != expected {
		return fmt.Errorf("expected %s %q, got %q", field, expected, got)
	}
	return nil
}

func (s *setupContext) theSetupShouldBeCancelled() error {
	if !s.setupCancelled {
		return fmt.Errorf("expected setup to be cancelled, output:\n%s", s.output.String())
	}
	return nil
}

func (s *setupContext) theExistingConfigShouldBeUnchanged() error {
	content, err := os.ReadFile(s.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if string(content) != s.originalContent {
		return fmt.Errorf("config content was changed")
	}
	return nil
}
