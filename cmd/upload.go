package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	appdist "marketing-export/application/distribution"
	appsession "marketing-export/application/session"
	"marketing-export/domain/credential"
	"marketing-export/domain/distribution"
	"marketing-export/infrastructure/config"
	"marketing-export/infrastructure/retry"

	"github.com/spf13/cobra"
)

var (
	uploadFile        string
	uploadName        string
	uploadFolder      string
	uploadFolderID    string
	uploadSharedDrive string
	uploadTarget      string
	uploadToRoot      bool
	uploadReplace     bool
	uploadCreate      bool
	uploadShare       []string
)

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload marketing copy to Google Drive",
	Long: `Upload a text file to a Google Drive folder.

The folder is looked up by exact name in My Drive, or in a shared drive when
--shared-drive (or drive.shared_drive) is set. Nothing is uploaded when the
folder cannot be found unless --create-folder is given.

Use --target to pick a named target from the config, and --share to share the
uploaded file with configured collaborators or email addresses.

Example:
  marketing-export upload --file copy.txt
  marketing-export upload --file copy.txt --folder Drive_Connect --shared-drive Marketing
  marketing-export upload --file - --name launch.txt --target launch --share priya`,
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	uploadCmd.Flags().StringVar(&uploadFile, "file", "", "Path to the text to upload, or - for stdin (required)")
	uploadCmd.Flags().StringVar(&uploadName, "name", "", "File name in Drive (defaults to drive.file_name)")
	uploadCmd.Flags().StringVar(&uploadFolder, "folder", "", "Folder name (defaults to drive.folder_name)")
	uploadCmd.Flags().StringVar(&uploadFolderID, "folder-id", "", "Folder ID, skips the name lookup")
	uploadCmd.Flags().StringVar(&uploadSharedDrive, "shared-drive", "", "Shared drive to search (defaults to drive.shared_drive)")
	uploadCmd.Flags().StringVar(&uploadTarget, "target", "", "Named target from the config")
	uploadCmd.Flags().BoolVar(&uploadToRoot, "root", false, "Upload without a parent folder (requires drive.allow_root_upload)")
	uploadCmd.Flags().BoolVar(&uploadReplace, "replace", false, "Replace a file with the same name in the folder")
	uploadCmd.Flags().BoolVar(&uploadCreate, "create-folder", false, "Create the folder when it does not exist")
	uploadCmd.Flags().StringSliceVar(&uploadShare, "share", nil, "Collaborator keys, names or email addresses to share with")
	uploadCmd.MarkFlagRequired("file")
}

// UploadInput holds the resolved choices for one upload
type UploadInput struct {
	Content         []byte
	FileName        string
	Target          appdist.TargetSpec
	ToRoot          bool
	AllowRoot       bool
	ReplaceExisting bool
	ShareWith       []distribution.Grant
}

func runUpload(cmd *cobra.Command, args []string) error {
	cfg, err := requireConfig(false)
	if err != nil {
		return err
	}

	data, err := readInput(uploadFile, cmd.InOrStdin())
	if err != nil {
		return err
	}

	input, err := buildUploadInput(cfg, data)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	client, cred, err := connectDrive(ctx, cfg, os.Stderr, logger)
	if err != nil {
		return fmt.Errorf("%s: %w", appsession.UserMessage(err), err)
	}

	return RunUploadWithDependencies(ctx, client, cred, cfg.RetryPolicy(), input, os.Stdout)
}

// buildUploadInput merges flags, the named target and config defaults
func buildUploadInput(cfg *config.Config, data []byte) (UploadInput, error) {
	target := config.TargetConfig{}
	if uploadTarget != "" {
		tc, err := config.NewCollaboratorLookup(cfg).LookupTarget(uploadTarget)
		if err != nil {
			return UploadInput{}, fmt.Errorf("%w\nAdd it with: %s", err, config.SuggestAddTargetCommand(uploadTarget))
		}
		target = tc
	}

	grants, err := config.NewCollaboratorLookup(cfg).LookupGrants(uploadShare)
	if err != nil {
		return UploadInput{}, err
	}

	spec := appdist.TargetSpec{
		FolderName: pick(uploadFolder, target.FolderName, cfg.Drive.FolderName),
		FolderID:   pick(uploadFolderID, target.FolderID),
		Scope: distribution.Scope{
			SharedDrive: pick(uploadSharedDrive, target.SharedDrive, cfg.Drive.SharedDrive),
			AllDrives:   cfg.Drive.AllDrives,
		},
		Create: uploadCreate || cfg.Drive.CreateFolder,
	}
	// The configured folder ID belongs to the configured folder name
	if spec.FolderID == "" && uploadFolder == "" && target.FolderName == "" {
		spec.FolderID = cfg.Drive.FolderID
	}

	return UploadInput{
		Content:         data,
		FileName:        pick(uploadName, target.FileName, cfg.Drive.FileName),
		Target:          spec,
		ToRoot:          uploadToRoot,
		AllowRoot:       cfg.Drive.AllowRootUpload,
		ReplaceExisting: uploadReplace,
		ShareWith:       grants,
	}, nil
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// RunUploadWithDependencies runs the upload command with injected dependencies (for testing)
func RunUploadWithDependencies(
	ctx context.Context,
	driveClient distribution.DriveClient,
	cred *credential.Credential,
	policy retry.Policy,
	input UploadInput,
	output OutputWriter,
) error {
	req := distribution.UploadRequest{
		FileName:        input.FileName,
		Content:         input.Content,
		MimeType:        distribution.MimeTypeText,
		AllowRoot:       input.AllowRoot,
		ReplaceExisting: input.ReplaceExisting,
		ShareWith:       input.ShareWith,
	}

	if input.ToRoot {
		fmt.Fprintf(output, "Uploading %s to the root of the signed-in identity's drive...\n", input.FileName)
	} else {
		fmt.Fprintf(output, "Looking up folder %s in %s...\n", describeSpec(input.Target), input.Target.Scope)
		target, err := appdist.NewLocator(driveClient, policy, logger).Locate(ctx, input.Target)
		if err != nil {
			return fmt.Errorf("%s: %w", appsession.Describe(err, cred), err)
		}
		fmt.Fprintf(output, "  Found folder ID: %s\n", target.ResolvedID)
		fmt.Fprintf(output, "Uploading %s...\n", input.FileName)
		req.Parent = target
	}

	service := appdist.NewUploadService(driveClient, policy, output, logger)
	result, err := service.Upload(ctx, req)
	if err != nil {
		return fmt.Errorf("%s: %w", appsession.Describe(err, cred), err)
	}

	fmt.Fprintf(output, "Upload complete!\n")
	fmt.Fprintf(output, "  File ID: %s\n", result.FileID)
	fmt.Fprintf(output, "  Name: %s\n", filepath.Base(result.FileName))
	fmt.Fprintf(output, "  Size: %d bytes\n", result.Size)
	if result.WebViewLink != "" {
		fmt.Fprintf(output, "  Link: %s\n", result.WebViewLink)
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(output, "  Warning: %s\n", w)
	}
	return nil
}

func describeSpec(spec appdist.TargetSpec) string {
	if spec.FolderID != "" {
		return fmt.Sprintf("id %s", spec.FolderID)
	}
	return fmt.Sprintf("%q", spec.FolderName)
}

// pick returns the first non-empty value
func pick(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
