//go:build integration

package steps

import (
	"context"
	"fmt"
	"strings"
	"time"

	"marketing-export/application/generation"
	appsession "marketing-export/application/session"
	"marketing-export/domain/content"
	"marketing-export/domain/credential"
	"marketing-export/domain/distribution"
	"marketing-export/domain/session"
	"marketing-export/infrastructure/auth"
	"marketing-export/infrastructure/retry"

	"github.com/cucumber/godog"
)

// stubProvider answers every completion with a fixed text
type stubProvider struct {
	answer string
	calls  int
}

func (p *stubProvider) Complete(ctx context.Context, req content.CompletionRequest) (*content.CompletionResponse, error) {
	p.calls++
	return &content.CompletionResponse{Text: p.answer, Model: req.Model}, nil
}

// stubAuth signs every session in with a fixed service-account credential
type stubAuth struct {
	cred *credential.Credential
}

func (a *stubAuth) Acquire(ctx context.Context, strategy credential.Strategy, cfg auth.Config) (*credential.Credential, error) {
	if a.cred == nil {
		return nil, credential.ErrAuthorizationRequired
	}
	return a.cred, nil
}

func (a *stubAuth) AuthCodeURL(cfg auth.Config, state string) (string, error) {
	return "", credential.ErrAuthorizationRequired
}

func (a *stubAuth) Exchange(ctx context.Context, cfg auth.Config, code string) (*credential.Credential, error) {
	return nil, credential.ErrAuthorizationRequired
}

type exportContext struct {
	provider   *stubProvider
	auth       *stubAuth
	allowRoot  bool
	controller *appsession.Controller
	sess       *session.Session
	uploadErr  error
}

var SharedExportContext = &exportContext{}

func InitializeExportScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		SharedExportContext = &exportContext{
			provider: &stubProvider{},
			auth:     &stubAuth{},
		}
		return c, nil
	})

	ctx.Step(`^the content provider answers "([^"]*)"$`, func(answer string) error {
		return SharedExportContext.theContentProviderAnswers(answer)
	})
	ctx.Step(`^I am signed in with a service account "([^"]*)"$`, func(email string) error {
		return SharedExportContext.iAmSignedInWithAServiceAccount(email)
	})
	ctx.Step(`^root uploads are allowed$`, func() error {
		SharedExportContext.allowRoot = true
		return nil
	})
	ctx.Step(`^I generate copy for product "([^"]*)" and audience "([^"]*)" in a "([^"]*)" tone$`, func(product, audience, tone string) error {
		return SharedExportContext.iGenerateCopy(product, audience, tone)
	})
	ctx.Step(`^I edit the copy to "([^"]*)"$`, func(text string) error {
		return SharedExportContext.iEditTheCopy(text)
	})
	ctx.Step(`^I upload the copy as "([^"]*)"$`, func(name string) error {
		return SharedExportContext.upload(appsession.UploadOptions{FileName: name})
	})
	ctx.Step(`^I upload the copy to folder "([^"]*)"$`, func(folder string) error {
		return SharedExportContext.upload(appsession.UploadOptions{FolderName: folder})
	})
	ctx.Step(`^I upload the copy to folder "([^"]*)" in shared drive "([^"]*)"$`, func(folder, drive string) error {
		return SharedExportContext.upload(appsession.UploadOptions{FolderName: folder, SharedDrive: drive})
	})
	ctx.Step(`^I upload the copy to the drive root$`, func() error {
		return SharedExportContext.upload(appsession.UploadOptions{ToRoot: true})
	})
	ctx.Step(`^the upload should succeed$`, func() error {
		return SharedExportContext.theUploadShouldSucceed()
	})
	ctx.Step(`^the upload should fail$`, func() error {
		return SharedExportContext.theUploadShouldFail()
	})
	ctx.Step(`^the folder "([^"]*)" should contain "([^"]*)" with the generated copy$`, func(folder, file string) error {
		return theFolderShouldContain(folder, file, strings.TrimSpace(SharedExportContext.provider.answer))
	})
	ctx.Step(`^the message should contain "([^"]*)"$`, func(expected string) error {
		return SharedExportContext.theMessageShouldContain(expected)
	})
	ctx.Step(`^the session state should be "([^"]*)"$`, func(state string) error {
		return SharedExportContext.theSessionStateShouldBe(state)
	})
	ctx.Step(`^the content provider should not have been called$`, func() error {
		if n := SharedExportContext.provider.calls; n != 0 {
			return fmt.Errorf("expected no provider calls, got %d", n)
		}
		return nil
	})
}

func (e *exportContext) theContentProviderAnswers(answer string) error {
	e.provider.answer = answer
	return nil
}

func (e *exportContext) iAmSignedInWithAServiceAccount(email string) error {
	e.auth.cred = &credential.Credential{
		Strategy:          credential.ServiceAccount,
		Subject:           email,
		ServiceAccountKey: []byte(`{"type":"service_account"}`),
	}
	return nil
}

// ensureSession builds the controller on first use so fixture steps can
// still change its configuration
func (e *exportContext) ensureSession() error {
	if e.controller != nil {
		return nil
	}

	generator := generation.NewService(e.provider, generation.Config{
		Model: "test-model",
		Retry: retry.None,
	}, nil)

	connect := appsession.DriveConnectorFunc(func(ctx context.Context, cred *credential.Credential) (distribution.DriveClient, error) {
		return shared.drive, nil
	})

	e.controller = appsession.NewController(e.auth, generator, connect, appsession.Config{
		Strategy:        credential.ServiceAccount,
		FolderName:      "Drive_Connect",
		FileName:        "marketing_copy.txt",
		AllowRootUpload: e.allowRoot,
		Retry:           retry.None,
	})
	e.sess = e.controller.NewSession(time.Now())

	if e.auth.cred == nil {
		return nil
	}
	_, err := e.controller.SignIn(context.Background(), e.sess)
	return err
}

func (e *exportContext) iGenerateCopy(product, audience, tone string) error {
	if err := e.ensureSession(); err != nil {
		return err
	}
	t, err := content.ParseTone(tone, content.ToneProfessional)
	if err != nil {
		return err
	}
	// Failures are reported through the session message
	_, _ = e.controller.Generate(context.Background(), e.sess, content.Parameters{
		Product:  product,
		Audience: audience,
		Tone:     t,
	})
	return nil
}

func (e *exportContext) iEditTheCopy(text string) error {
	if err := e.ensureSession(); err != nil {
		return err
	}
	return e.controller.Edit(e.sess, text)
}

func (e *exportContext) upload(opts appsession.UploadOptions) error {
	if err := e.ensureSession(); err != nil {
		return err
	}
	_, e.uploadErr = e.controller.Upload(context.Background(), e.sess, opts)
	return nil
}

func (e *exportContext) theUploadShouldSucceed() error {
	if e.uploadErr != nil {
		return fmt.Errorf("expected upload to succeed but got: %v (message %q)", e.uploadErr, e.sess.Message)
	}
	if e.sess.IsError {
		return fmt.Errorf("expected a success message, got %q", e.sess.Message)
	}
	return nil
}

func (e *exportContext) theUploadShouldFail() error {
	if e.uploadErr == nil {
		return fmt.Errorf("expected upload to fail but it succeeded")
	}
	if !e.sess.IsError {
		return fmt.Errorf("expected an error message, got %q", e.sess.Message)
	}
	return nil
}

func (e *exportContext) theMessageShouldContain(expected string) error {
	if e.sess == nil {
		return fmt.Errorf("no session")
	}
	if !strings.Contains(e.sess.Message, expected) {
		return fmt.Errorf("expected message to contain %q but got %q", expected, e.sess.Message)
	}
	return nil
}

func (e *exportContext) theSessionStateShouldBe(state string) error {
	if got := e.sess.State.String(); got != state {
		return fmt.Errorf("expected session state %q, got %q", state, got)
	}
	return nil
}
