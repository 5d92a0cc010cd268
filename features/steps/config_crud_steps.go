//go:build integration

package steps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"marketing-export/cmd"
	"marketing-export/infrastructure/config"

	"github.com/cucumber/godog"
)

type configCrudContext struct {
	tempDir    string
	configPath string
	config     *config.Config
}

var SharedConfigCrudContext = &configCrudContext{}

func InitializeConfigCrudScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "config-crud-test-*")
		if err != nil {
			return c, err
		}
		SharedConfigCrudContext = &configCrudContext{
			tempDir:    tempDir,
			configPath: filepath.Join(tempDir, "config.yaml"),
		}
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if SharedConfigCrudContext.tempDir != "" {
			os.RemoveAll(SharedConfigCrudContext.tempDir)
		}
		return c, nil
	})

	// The context is replaced before every scenario, so steps look it up at call time
	c := func() *configCrudContext { return SharedConfigCrudContext }

	// Background
	ctx.Step(`^a config file exists with initial data$`, func() error { return c().aConfigFileExistsWithInitialData() })

	// Target steps
	ctx.Step(`^I run config add target with key "([^"]*)" and folder "([^"]*)"$`, func(key, folder string) error {
		return c().iRunConfigAddTarget(key, folder)
	})
	ctx.Step(`^target "([^"]*)" exists with folder "([^"]*)"$`, func(key, folder string) error {
		return c().targetExistsWithFolder(key, folder)
	})
	ctx.Step(`^I run config list targets$`, func() error { return c().iRunConfigList("targets") })
	ctx.Step(`^I run config update target "([^"]*)" with shared drive "([^"]*)"$`, func(key, drive string) error {
		return c().iRunConfigUpdate("target", key, cmd.EntryFlags{SharedDrive: drive})
	})
	ctx.Step(`^I run config remove target "([^"]*)"$`, func(key string) error { return c().iRunConfigRemove("target", key) })
	ctx.Step(`^the config should contain target "([^"]*)" with folder "([^"]*)"$`, func(key, folder string) error {
		return c().theConfigShouldContainTarget(key, func(t config.TargetConfig) (string, string) { return "folder", t.FolderName }, folder)
	})
	ctx.Step(`^the config should contain target "([^"]*)" in shared drive "([^"]*)"$`, func(key, drive string) error {
		return c().theConfigShouldContainTarget(key, func(t config.TargetConfig) (string, string) { return "shared drive", t.SharedDrive }, drive)
	})
	ctx.Step(`^the config should not contain target "([^"]*)"$`, func(key string) error { return c().theConfigShouldNotContainTarget(key) })

	// Collaborator steps
	ctx.Step(`^I run config add collaborator with key "([^"]*)" name "([^"]*)" email "([^"]*)" and role "([^"]*)"$`, func(key, name, email, role string) error {
		return c().iRunConfigAddCollaborator(key, name, email, role)
	})
	ctx.Step(`^collaborator "([^"]*)" exists with email "([^"]*)"$`, func(key, email string) error {
		return c().collaboratorExistsWithEmail(key, email)
	})
	ctx.Step(`^I run config update collaborator "([^"]*)" with role "([^"]*)"$`, func(key, role string) error {
		return c().iRunConfigUpdate("collaborator", key, cmd.EntryFlags{Role: role})
	})
	ctx.Step(`^I run config remove collaborator "([^"]*)"$`, func(key string) error { return c().iRunConfigRemove("collaborator", key) })
	ctx.Step(`^the config should contain collaborator "([^"]*)" with email "([^"]*)" and role "([^"]*)"$`, func(key, email, role string) error {
		return c().theConfigShouldContainCollaborator(key, email, role)
	})
}

func (c *configCrudContext) loadConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.config = cfg
	return nil
}

func (c *configCrudContext) record(err error) {
	shared.err = err
}

// --- Background ---

func (c *configCrudContext) aConfigFileExistsWithInitialData() error {
	c.config = config.Default()
	c.config.Google.Strategy = "service_account"
	c.config.Google.ServiceAccountFile = "service_account.json"
	return config.Save(c.config, c.configPath)
}

// --- Target steps ---

func (c *configCrudContext) iRunConfigAddTarget(key, folder string) error {
	if err := c.loadConfig(); err != nil {
		return err
	}
	shared.output.Reset()
	c.record(cmd.RunConfigAddWithDependencies(c.config, c.configPath, "target", cmd.EntryFlags{Key: key, Folder: folder}, shared.output))
	return nil
}

func (c *configCrudContext) targetExistsWithFolder(key, folder string) error {
	if err := c.loadConfig(); err != nil {
		return err
	}
	return config.NewConfigManager(c.config, c.configPath).AddTarget(key, config.TargetConfig{FolderName: folder})
}

func (c *configCrudContext) theConfigShouldContainTarget(key string, field func(config.TargetConfig) (string, string), expected string) error {
	if err := c.loadConfig(); err != nil {
		return err
	}
	t, ok := c.config.Targets[key]
	if !ok {
		return fmt.Errorf("target %q not found", key)
	}
	name, got := field(t)
	if got != expected {
		return fmt.Errorf("expected target %q %s %q, got %q", key, name, expected, got)
	}
	return nil
}

func (c *configCrudContext) theConfigShouldNotContainTarget(key string) error {
	if err := c.loadConfig(); err != nil {
		return err
	}
	if _, ok := c.config.Targets[key]; ok {
		return fmt.Errorf("target %q should not exist", key)
	}
	return nil
}

// --- Collaborator steps ---

func (c *configCrudContext) iRunConfigAddCollaborator(key, name, email, role string) error {
	if err := c.loadConfig(); err != nil {
		return err
	}
	shared.output.Reset()
	flags := cmd.EntryFlags{Key: key, Name: name, Email: email, Role: role}
	c.record(cmd.RunConfigAddWithDependencies(c.config, c.configPath, "collaborator", flags, shared.output))
	return nil
}

func (c *configCrudContext) collaboratorExistsWithEmail(key, email string) error {
	if err := c.loadConfig(); err != nil {
		return err
	}
	return config.NewConfigManager(c.config, c.configPath).AddCollaborator(key, key, email, "")
}

func (c *configCrudContext) theConfigShouldContainCollaborator(key, email, role string) error {
	if err := c.loadConfig(); err != nil {
		return err
	}
	cc, ok := c.config.Collaborators[key]
	if !ok {
		return fmt.Errorf("collaborator %q not found", key)
	}
	if cc.Address != email {
		return fmt.Errorf("expected collaborator %q email %q, got %q", key, email, cc.Address)
	}
	if cc.Role != role {
		return fmt.Errorf("expected collaborator %q role %q, got %q", key, role, cc.Role)
	}
	return nil
}

// --- Shared commands ---

func (c *configCrudContext) iRunConfigList(entityType string) error {
	if err := c.loadConfig(); err != nil {
		return err
	}
	shared.output.Reset()
	c.record(cmd.RunConfigListWithDependencies(c.config, c.configPath, entityType, shared.output))
	return nil
}

func (c *configCrudContext) iRunConfigUpdate(entityType, key string, flags cmd.EntryFlags) error {
	if err := c.loadConfig(); err != nil {
		return err
	}
	shared.output.Reset()
	c.record(cmd.RunConfigUpdateWithDependencies(c.config, c.configPath, entityType, key, flags, shared.output))
	return nil
}

func (c *configCrudContext) iRunConfigRemove(entityType, key string) error {
	if err := c.loadConfig(); err != nil {
		return err
	}
	shared.output.Reset()
	c.record(cmd.RunConfigRemoveWithDependencies(c.config, c.configPath, entityType, key, shared.output))
	return nil
}
