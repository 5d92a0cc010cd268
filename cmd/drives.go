package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	appdist "marketing-export/application/distribution"
	appsession "marketing-export/application/session"
	"marketing-export/domain/credential"
	"marketing-export/domain/distribution"
	"marketing-export/infrastructure/retry"

	"github.com/spf13/cobra"
)

var drivesCmd = &cobra.Command{
	Use:   "drives",
	Short: "Inspect shared drives",
}

var drivesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the shared drives the signed-in identity can see",
	RunE:  runDrivesList,
}

var (
	foldersSharedDrive string
	foldersAllDrives   bool
)

var foldersCmd = &cobra.Command{
	Use:   "folders",
	Short: "Look up or create upload folders",
	Long: `Resolve a folder name to its Drive ID, or create it.

Examples:
  marketing-export folders resolve Drive_Connect
  marketing-export folders resolve Drive_Connect --shared-drive Marketing
  marketing-export folders create Launch --shared-drive Marketing`,
}

var foldersResolveCmd = &cobra.Command{
	Use:   "resolve <name>",
	Short: "Show the folder ID a name resolves to",
	Args:  cobra.ExactArgs(1),
	RunE:  runFoldersResolve,
}

var foldersCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a folder unless one with the name exists",
	Args:  cobra.ExactArgs(1),
	RunE:  runFoldersCreate,
}

func init() {
	rootCmd.AddCommand(drivesCmd)
	drivesCmd.AddCommand(drivesListCmd)

	rootCmd.AddCommand(foldersCmd)
	foldersCmd.AddCommand(foldersResolveCmd)
	foldersCmd.AddCommand(foldersCreateCmd)
	foldersCmd.PersistentFlags().StringVar(&foldersSharedDrive, "shared-drive", "", "Shared drive to search (defaults to drive.shared_drive)")
	foldersCmd.PersistentFlags().BoolVar(&foldersAllDrives, "all-drives", false, "Search every drive the identity can see")
}

func runDrivesList(cmd *cobra.Command, args []string) error {
	cfg, err := requireConfig(false)
	if err != nil {
		return err
	}
	client, _, err := connectDrive(cmd.Context(), cfg, os.Stderr, logger)
	if err != nil {
		return fmt.Errorf("%s: %w", appsession.UserMessage(err), err)
	}
	return RunDrivesListWithDependencies(cmd.Context(), client, os.Stdout)
}

// RunDrivesListWithDependencies runs the drives list command with injected dependencies
func RunDrivesListWithDependencies(ctx context.Context, client distribution.DriveClient, out OutputWriter) error {
	drives, err := client.ListSharedDrives(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to list shared drives: %w", err)
	}
	if len(drives) == 0 {
		fmt.Fprintln(out, "No shared drives visible to this identity.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME")
	for _, d := range drives {
		fmt.Fprintf(w, "%s\t%s\n", d.ID, d.Name)
	}
	return w.Flush()
}

func runFoldersResolve(cmd *cobra.Command, args []string) error {
	return runFolders(cmd, args[0], false)
}

func runFoldersCreate(cmd *cobra.Command, args []string) error {
	return runFolders(cmd, args[0], true)
}

func runFolders(cmd *cobra.Command, name string, create bool) error {
	cfg, err := requireConfig(false)
	if err != nil {
		return err
	}
	client, cred, err := connectDrive(cmd.Context(), cfg, os.Stderr, logger)
	if err != nil {
		return fmt.Errorf("%s: %w", appsession.UserMessage(err), err)
	}

	scope := distribution.Scope{
		SharedDrive: pick(foldersSharedDrive, cfg.Drive.SharedDrive),
		AllDrives:   foldersAllDrives || cfg.Drive.AllDrives,
	}
	return RunFoldersWithDependencies(cmd.Context(), client, cred, cfg.RetryPolicy(), name, scope, create, os.Stdout)
}

// RunFoldersWithDependencies runs folders resolve or create with injected dependencies
func RunFoldersWithDependencies(
	ctx context.Context,
	client distribution.DriveClient,
	cred *credential.Credential,
	policy retry.Policy,
	name string,
	scope distribution.Scope,
	create bool,
	out OutputWriter,
) error {
	locator := appdist.NewLocator(client, policy, logger)
	target, err := locator.Locate(ctx, appdist.TargetSpec{FolderName: name, Scope: scope, Create: create})
	if err != nil {
		return fmt.Errorf("%s: %w", appsession.Describe(err, cred), err)
	}

	fmt.Fprintf(out, "Folder %q in %s\n", target.DisplayName, scope)
	fmt.Fprintf(out, "  ID: %s\n", target.ResolvedID)
	if target.ParentDriveID != "" {
		fmt.Fprintf(out, "  Shared drive ID: %s\n", target.ParentDriveID)
	}
	return nil
}
