package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"marketing-export/domain/credential"
	"marketing-export/infrastructure/auth"

	"github.com/spf13/cobra"
)

// CredentialStore is the subset of the credential store the auth commands use
type CredentialStore interface {
	Acquire(ctx context.Context, strategy credential.Strategy, cfg auth.Config) (*credential.Credential, error)
	Cached(strategy credential.Strategy, cfg auth.Config) (*credential.Credential, error)
	Clear(strategy credential.Strategy, cfg auth.Config) error
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Google Drive authorization",
	Long: `Sign in to Google Drive, sign out, or show the current identity.

For the installed_app strategy, login opens the consent page in a browser and
stores the token in google.token_file. For service_account, login only checks
the key and shows the address folders must be shared with.

Examples:
  marketing-export auth login
  marketing-export auth status
  marketing-export auth logout`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authorize access to Google Drive",
	RunE:  runAuthLogin,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored token",
	RunE:  runAuthLogout,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored credential",
	RunE:  runAuthStatus,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
}

func authDependencies() (credential.Strategy, auth.Config, *auth.Store, error) {
	cfg, err := requireConfig(false)
	if err != nil {
		return 0, auth.Config{}, nil, err
	}
	strategy, err := cfg.Strategy()
	if err != nil {
		return 0, auth.Config{}, nil, err
	}
	return strategy, cfg.AuthConfig(), newAuthStore(cfg, os.Stderr, logger), nil
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	strategy, authCfg, store, err := authDependencies()
	if err != nil {
		return err
	}
	return RunAuthLoginWithDependencies(cmd.Context(), store, strategy, authCfg, os.Stdout)
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	strategy, authCfg, store, err := authDependencies()
	if err != nil {
		return err
	}
	return RunAuthLogoutWithDependencies(store, strategy, authCfg, os.Stdout)
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	strategy, authCfg, store, err := authDependencies()
	if err != nil {
		return err
	}
	return RunAuthStatusWithDependencies(store, strategy, authCfg, time.Now(), os.Stdout)
}

// RunAuthLoginWithDependencies runs the login command with injected dependencies
func RunAuthLoginWithDependencies(ctx context.Context, store CredentialStore, strategy credential.Strategy, authCfg auth.Config, out OutputWriter) error {
	if strategy == credential.WebOAuth {
		return fmt.Errorf("web_oauth sign-in happens in the browser; run 'marketing-export serve'")
	}

	cred, err := store.Acquire(ctx, strategy, authCfg)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	fmt.Fprintf(out, "Signed in with %s.\n", strategy)
	if cred.Subject != "" {
		fmt.Fprintf(out, "  Identity: %s\n", cred.Subject)
		fmt.Fprintf(out, "  Share target folders with this address as an editor.\n")
	}
	if strategy == credential.InstalledApp {
		fmt.Fprintf(out, "  Token saved to: %s\n", authCfg.TokenFile)
	}
	return nil
}

// RunAuthLogoutWithDependencies runs the logout command with injected dependencies
func RunAuthLogoutWithDependencies(store CredentialStore, strategy credential.Strategy, authCfg auth.Config, out OutputWriter) error {
	if err := store.Clear(strategy, authCfg); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	if strategy == credential.InstalledApp {
		fmt.Fprintf(out, "Removed token %s\n", authCfg.TokenFile)
		return nil
	}
	fmt.Fprintf(out, "Nothing stored for %s.\n", strategy)
	return nil
}

// RunAuthStatusWithDependencies runs the status command with injected dependencies
func RunAuthStatusWithDependencies(store CredentialStore, strategy credential.Strategy, authCfg auth.Config, now time.Time, out OutputWriter) error {
	fmt.Fprintf(out, "Strategy: %s\n", strategy)

	cred, err := store.Cached(strategy, authCfg)
	if errors.Is(err, credential.ErrAuthorizationRequired) {
		fmt.Fprintf(out, "Status: not signed in\n")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Identity: %s\n", cred.Identity())
	switch {
	case cred.Expiry.IsZero():
		fmt.Fprintf(out, "Status: signed in\n")
	case cred.Expired(now) && cred.CanRefresh():
		fmt.Fprintf(out, "Status: access token expired, will refresh on next use\n")
	case cred.Expired(now):
		fmt.Fprintf(out, "Status: expired, run 'marketing-export auth login'\n")
	default:
		fmt.Fprintf(out, "Status: signed in until %s\n", cred.Expiry.Format(time.RFC3339))
	}
	return nil
}
