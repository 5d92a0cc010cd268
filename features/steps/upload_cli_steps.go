//go:build integration

package steps

import (
	"context"

	"marketing-export/cmd"
	appdist "marketing-export/application/distribution"
	"marketing-export/domain/credential"
	"marketing-export/domain/distribution"
	"marketing-export/infrastructure/config"
	"marketing-export/infrastructure/retry"

	"github.com/cucumber/godog"
)

type uploadCLIContext struct {
	config *config.Config
}

var SharedUploadCLIContext = &uploadCLIContext{}

func InitializeUploadCLIScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		cfg := config.Default()
		cfg.Targets = make(map[string]config.TargetConfig)
		cfg.Collaborators = make(map[string]config.CollaboratorConfig)
		SharedUploadCLIContext = &uploadCLIContext{config: cfg}
		return c, nil
	})

	ctx.Step(`^the config has target "([^"]*)" for folder "([^"]*)" in shared drive "([^"]*)"$`, func(key, folder, drive string) error {
		return SharedUploadCLIContext.theConfigHasTarget(key, folder, drive)
	})
	ctx.Step(`^the config has collaborator "([^"]*)" with email "([^"]*)" and role "([^"]*)"$`, func(key, email, role string) error {
		return SharedUploadCLIContext.theConfigHasCollaborator(key, email, role)
	})
	ctx.Step(`^I run upload with content "([^"]*)" to target "([^"]*)" sharing with "([^"]*)"$`, func(text, target, share string) error {
		return SharedUploadCLIContext.iRunUploadToTarget(text, target, share)
	})
	ctx.Step(`^I run upload with content "([^"]*)" to folder "([^"]*)"$`, func(text, folder string) error {
		return SharedUploadCLIContext.iRunUploadToFolder(text, folder)
	})
	ctx.Step(`^I run folders resolve "([^"]*)"$`, func(name string) error {
		return SharedUploadCLIContext.iRunFolders(name, false)
	})
	ctx.Step(`^I run folders create "([^"]*)"$`, func(name string) error {
		return SharedUploadCLIContext.iRunFolders(name, true)
	})
}

func serviceAccount() *credential.Credential {
	return &credential.Credential{
		Strategy:          credential.ServiceAccount,
		Subject:           "exporter@proj.iam.gserviceaccount.com",
		ServiceAccountKey: []byte(`{"type":"service_account"}`),
	}
}

func (u *uploadCLIContext) theConfigHasTarget(key, folder, drive string) error {
	u.config.Targets[key] = config.TargetConfig{FolderName: folder, SharedDrive: drive}
	return nil
}

func (u *uploadCLIContext) theConfigHasCollaborator(key, email, role string) error {
	u.config.Collaborators[key] = config.CollaboratorConfig{Name: key, Address: email, Role: role}
	return nil
}

func (u *uploadCLIContext) iRunUploadToTarget(text, targetKey, share string) error {
	lookup := config.NewCollaboratorLookup(u.config)
	target, err := lookup.LookupTarget(targetKey)
	if err != nil {
		return err
	}
	grants, err := lookup.LookupGrants([]string{share})
	if err != nil {
		return err
	}

	input := cmd.UploadInput{
		Content:  []byte(text),
		FileName: u.config.Drive.FileName,
		Target: appdist.TargetSpec{
			FolderName: target.FolderName,
			Scope:      distribution.Scope{SharedDrive: target.SharedDrive},
		},
		ShareWith: grants,
	}
	return u.run(input)
}

func (u *uploadCLIContext) iRunUploadToFolder(text, folder string) error {
	input := cmd.UploadInput{
		Content:  []byte(text),
		FileName: u.config.Drive.FileName,
		Target:   appdist.TargetSpec{FolderName: folder},
	}
	return u.run(input)
}

func (u *uploadCLIContext) run(input cmd.UploadInput) error {
	shared.output.Reset()
	shared.err = cmd.RunUploadWithDependencies(context.Background(), shared.drive, serviceAccount(), retry.None, input, shared.output)
	return nil
}

func (u *uploadCLIContext) iRunFolders(name string, create bool) error {
	shared.output.Reset()
	shared.err = cmd.RunFoldersWithDependencies(context.Background(), shared.drive, serviceAccount(), retry.None, name, distribution.Scope{}, create, shared.output)
	return nil
}
