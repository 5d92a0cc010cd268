package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"marketing-export/application/generation"
	appsession "marketing-export/application/session"
	"marketing-export/domain/credential"
	"marketing-export/domain/distribution"
	"marketing-export/infrastructure/auth"
	"marketing-export/infrastructure/config"
	"marketing-export/infrastructure/drive"
	"marketing-export/infrastructure/groq"
)

// newAuthStore creates the credential store. Installed-app consent runs a
// local callback server and prints the consent URL to out.
func newAuthStore(cfg *config.Config, out io.Writer, logger *slog.Logger) *auth.Store {
	return auth.NewStore(
		auth.WithConsent(auth.NewLocalServerConsent(cfg.Google.CallbackPort, out)),
		auth.WithLogger(logger),
	)
}

// newDriveConnector returns a connector that builds a Drive client for a credential
func newDriveConnector(store *auth.Store, cfg *config.Config, logger *slog.Logger) appsession.DriveConnectorFunc {
	authCfg := cfg.AuthConfig()
	return func(ctx context.Context, cred *credential.Credential) (distribution.DriveClient, error) {
		httpClient, err := store.HTTPClient(ctx, cred, authCfg)
		if err != nil {
			return nil, err
		}
		if cfg.Drive.Timeout > 0 {
			httpClient.Timeout = cfg.Drive.Timeout
		}

		opts := []drive.ClientOption{drive.WithLogger(logger)}
		if cfg.Drive.ChunkSize > 0 {
			opts = append(opts, drive.WithChunkSize(cfg.Drive.ChunkSize))
		}
		client, err := drive.NewClient(ctx, httpClient, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create Google Drive client: %w", err)
		}
		return client, nil
	}
}

// connectDrive acquires a credential with the configured strategy and
// returns a Drive client authorized by it
func connectDrive(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger) (distribution.DriveClient, *credential.Credential, error) {
	strategy, err := cfg.Strategy()
	if err != nil {
		return nil, nil, err
	}
	if strategy == credential.WebOAuth {
		return nil, nil, fmt.Errorf("the web_oauth strategy only works with 'marketing-export serve'")
	}

	store := newAuthStore(cfg, out, logger)
	cred, err := store.Acquire(ctx, strategy, cfg.AuthConfig())
	if err != nil {
		return nil, nil, err
	}
	client, err := newDriveConnector(store, cfg, logger).Connect(ctx, cred)
	if err != nil {
		return nil, nil, err
	}
	return client, cred, nil
}

// newGenerationService creates the content generation service backed by Groq
func newGenerationService(cfg *config.Config, logger *slog.Logger) (*generation.Service, error) {
	client, err := groq.NewClient(cfg.LLM.APIKey,
		groq.WithBaseURL(cfg.LLM.BaseURL),
		groq.WithTimeout(cfg.LLM.Timeout),
		groq.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	return generation.NewService(client, generation.Config{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Retry:       cfg.RetryPolicy(),
	}, logger), nil
}

// controllerConfig maps configuration onto the session controller's settings
func controllerConfig(cfg *config.Config) (appsession.Config, error) {
	strategy, err := cfg.Strategy()
	if err != nil {
		return appsession.Config{}, err
	}
	return appsession.Config{
		Strategy:        strategy,
		Auth:            cfg.AuthConfig(),
		FolderName:      cfg.Drive.FolderName,
		FolderID:        cfg.Drive.FolderID,
		FileName:        cfg.Drive.FileName,
		SharedDrive:     cfg.Drive.SharedDrive,
		AllDrives:       cfg.Drive.AllDrives,
		CreateFolder:    cfg.Drive.CreateFolder,
		AllowRootUpload: cfg.Drive.AllowRootUpload,
		Retry:           cfg.RetryPolicy(),
	}, nil
}
