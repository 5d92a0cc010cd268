package cmd

import (
	"fmt"
	"os"
	"strconv"

	"marketing-export/domain/content"
	"marketing-export/domain/credential"
	"marketing-export/infrastructure/config"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
)

// Prompter interface for interactive prompts (allows mocking in tests)
type Prompter interface {
	Input(message string, defaultValue string) (string, error)
	Password(message string) (string, error)
	Select(message string, options []string, defaultValue string) (string, error)
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

func (p *SurveyPrompter) Password(message string) (string, error) {
	result := ""
	if err := survey.AskOne(&survey.Password{Message: message}, &result); err != nil {
		return "", err
	}
	return result, nil
}

func (p *SurveyPrompter) Select(message string, options []string, defaultValue string) (string, error) {
	result := ""
	prompt := &survey.Select{
		Message: message,
		Options: options,
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

This command guides you through choosing how to sign in to Google Drive,
where copy is uploaded, and which LLM model writes it. The Groq API key may
be left blank and supplied through GROQ_API_KEY instead.`,
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
	return RunSetupWithPrompter(DefaultPrompter, path, os.Stdout)
}

// RunSetupWithPrompter runs the setup with a given prompter (for testing)
func RunSetupWithPrompter(prompter Prompter, configPath string, out OutputWriter) error {
	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		overwrite, err := prompter.Confirm("config.yaml already exists. Overwrite?", false)
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if !overwrite {
			fmt.Fprintln(out, "Setup cancelled.")
			return nil
		}
	}

	fmt.Fprintln(out, "Welcome to marketing-export setup!")
	fmt.Fprintln(out)

	cfg := config.Default()

	if err := promptGoogle(prompter, cfg); err != nil {
		return err
	}

	if err := promptDrive(prompter, cfg); err != nil {
		return err
	}

	if err := promptLLM(prompter, cfg); err != nil {
		return err
	}

	// Save configuration
	if err := config.Save(cfg, configPath); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Configuration saved to %s\n", configPath)
	if cfg.LLM.APIKey == "" {
		fmt.Fprintf(out, "Set %s before generating copy.\n", config.EnvGroqAPIKey)
	}
	return nil
}

func promptGoogle(prompter Prompter, cfg *config.Config) error {
	strategies := []string{
		credential.InstalledApp.String(),
		credential.ServiceAccount.String(),
		credential.WebOAuth.String(),
	}
	strategy, err := prompter.Select("How should the app sign in to Google Drive?", strategies, credential.InstalledApp.String())
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	parsed, err := credential.ParseStrategy(strategy)
	if err != nil {
		return err
	}
	cfg.Google.Strategy = parsed.String()

	switch parsed {
	case credential.ServiceAccount:
		key, err := prompter.Input("Path to the service account key file?", "config/service_account.json")
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if key == "" {
			return fmt.Errorf("service account key file is required")
		}
		cfg.Google.ServiceAccountFile = key

	case credential.InstalledApp, credential.WebOAuth:
		credentials, err := prompter.Input("Path to Google OAuth client credentials file?", "config/credentials.json")
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if credentials == "" {
			credentials = "config/credentials.json"
		}
		cfg.Google.CredentialsFile = credentials

		if parsed == credential.InstalledApp {
			port, err := prompter.Input("Local port for the sign-in callback?", strconv.Itoa(cfg.Google.CallbackPort))
			if err != nil {
				return fmt.Errorf("prompt cancelled")
			}
			if port != "" {
				n, err := strconv.Atoi(port)
				if err != nil || n <= 0 || n > 65535 {
					return fmt.Errorf("invalid port %q", port)
				}
				cfg.Google.CallbackPort = n
			}
		} else {
			redirect, err := prompter.Input("OAuth redirect URL registered for this server?", "http://localhost:8080/oauth2/callback")
			if err != nil {
				return fmt.Errorf("prompt cancelled")
			}
			if redirect == "" {
				return fmt.Errorf("redirect URL is required")
			}
			cfg.Google.RedirectURL = redirect
		}
	}

	return nil
}

func promptDrive(prompter Prompter, cfg *config.Config) error {
	folder, err := prompter.Input("Drive folder to upload into?", config.DefaultFolderName)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if folder == "" {
		folder = config.DefaultFolderName
	}
	cfg.Drive.FolderName = folder

	shared, err := prompter.Input("Shared drive containing the folder (blank for My Drive)?", "")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.Drive.SharedDrive = shared

	fileName, err := prompter.Input("Default file name?", config.DefaultFileName)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if fileName == "" {
		fileName = config.DefaultFileName
	}
	cfg.Drive.FileName = fileName

	create, err := prompter.Confirm("Create the folder if it does not exist?", false)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.Drive.CreateFolder = create

	return nil
}

func promptLLM(prompter Prompter, cfg *config.Config) error {
	key, err := prompter.Password("Groq API key (blank to use " + config.EnvGroqAPIKey + ")?")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.LLM.APIKey = key

	model, err := prompter.Input("Model?", config.DefaultModel)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if model != "" {
		cfg.LLM.Model = model
	}

	tones := make([]string, len(content.Tones))
	for i, t := range content.Tones {
		tones[i] = string(t)
	}
	tone, err := prompter.Select("Default tone?", tones, string(content.ToneProfessional))
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.LLM.DefaultTone = tone

	return nil
}
