package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"marketing-export/infrastructure/config"

	"github.com/spf13/cobra"
)

// DefaultOutput is the default output writer for config commands
var DefaultOutput OutputWriter = os.Stdout

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration entries",
	Long: `Manage named upload targets and share collaborators in the configuration file.

Examples:
  marketing-export config list targets
  marketing-export config add target --key launch --folder "Launch Assets" --shared-drive Marketing
  marketing-export config add collaborator --key priya --name "Priya Raman" --email "priya@example.com" --role writer
  marketing-export config remove collaborator priya`,
}

func init() {
	rootCmd.AddCommand(configCmd)

	// Add subcommands
	configCmd.AddCommand(configAddCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configRemoveCmd)
	configCmd.AddCommand(configUpdateCmd)
}

// EntryFlags holds the values accepted by config add and update
type EntryFlags struct {
	Key         string
	Name        string
	Email       string
	Role        string
	Folder      string
	FolderID    string
	SharedDrive string
	FileName    string
}

func (f EntryFlags) target() config.TargetConfig {
	return config.TargetConfig{
		FolderName:  f.Folder,
		FolderID:    f.FolderID,
		SharedDrive: f.SharedDrive,
		FileName:    f.FileName,
	}
}

func addEntryFlags(cmd *cobra.Command, f *EntryFlags) {
	cmd.Flags().StringVar(&f.Name, "name", "", "Display name (collaborator)")
	cmd.Flags().StringVar(&f.Email, "email", "", "Email address (collaborator)")
	cmd.Flags().StringVar(&f.Role, "role", "", "reader, commenter or writer (collaborator, default reader)")
	cmd.Flags().StringVar(&f.Folder, "folder", "", "Folder name (target)")
	cmd.Flags().StringVar(&f.FolderID, "folder-id", "", "Folder ID (target)")
	cmd.Flags().StringVar(&f.SharedDrive, "shared-drive", "", "Shared drive name (target)")
	cmd.Flags().StringVar(&f.FileName, "file-name", "", "File name (target)")
}

func loadedConfig() (*config.Config, error) {
	cfg := GetConfig()
	if cfg == nil || cfgErr != nil {
		return nil, fmt.Errorf("config file could not be loaded. Run 'marketing-export setup' first")
	}
	return cfg, nil
}

// --- ADD command ---

var addFlags EntryFlags

var configAddCmd = &cobra.Command{
	Use:   "add [target|collaborator]",
	Short: "Add a new config entry",
	Long: `Add a new upload target or collaborator to the configuration.

Examples:
  marketing-export config add target --key launch --folder "Launch Assets"
  marketing-export config add target --key archive --folder-id 1AbCdEf --file-name archive.txt
  marketing-export config add collaborator --key priya --name "Priya Raman" --email "priya@example.com"`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigAdd,
}

func init() {
	configAddCmd.Flags().StringVar(&addFlags.Key, "key", "", "Unique key for the entry (required)")
	addEntryFlags(configAddCmd, &addFlags)
	configAddCmd.MarkFlagRequired("key")
}

func runConfigAdd(cmd *cobra.Command, args []string) error {
	cfg, err := loadedConfig()
	if err != nil {
		return err
	}
	return RunConfigAddWithDependencies(cfg, cfgFile, args[0], addFlags, DefaultOutput)
}

// RunConfigAddWithDependencies runs the add command with injected dependencies
func RunConfigAddWithDependencies(cfg *config.Config, configPath, entityType string, f EntryFlags, out OutputWriter) error {
	mgr := config.NewConfigManager(cfg, configPath)

	switch entityType {
	case "target":
		if err := mgr.AddTarget(f.Key, f.target()); err != nil {
			return err
		}
		t, _ := mgr.GetTarget(f.Key)
		fmt.Fprintf(out, "Added target %q: %s\n", t.Key, describeTarget(t))

	case "collaborator":
		if f.Email == "" {
			return fmt.Errorf("--email is required for collaborators")
		}
		if err := mgr.AddCollaborator(f.Key, f.Name, f.Email, f.Role); err != nil {
			return err
		}
		c, _ := mgr.GetCollaborator(f.Key)
		fmt.Fprintf(out, "Added collaborator %q: %s <%s> (%s)\n", c.Key, c.Name, c.Address, c.Role)

	default:
		return fmt.Errorf("unknown entity type %q. Use target or collaborator", entityType)
	}

	return nil
}

// --- LIST command ---

var configListCmd = &cobra.Command{
	Use:   "list [targets|collaborators]",
	Short: "List config entries",
	Long: `List all upload targets or collaborators.

Examples:
  marketing-export config list targets
  marketing-export config list collaborators`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigList,
}

func runConfigList(cmd *cobra.Command, args []string) error {
	cfg, err := loadedConfig()
	if err != nil {
		return err
	}
	return RunConfigListWithDependencies(cfg, cfgFile, args[0], DefaultOutput)
}

// RunConfigListWithDependencies runs the list command with injected dependencies
func RunConfigListWithDependencies(cfg *config.Config, configPath, entityType string, out OutputWriter) error {
	mgr := config.NewConfigManager(cfg, configPath)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	switch entityType {
	case "targets":
		targets := mgr.ListTargets()
		if len(targets) == 0 {
			fmt.Fprintln(out, "No targets configured.")
			return nil
		}
		fmt.Fprintln(w, "KEY\tFOLDER\tSHARED DRIVE\tFILE")
		for _, t := range targets {
			folder := t.FolderName
			if folder == "" {
				folder = "id:" + t.FolderID
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.Key, folder, orDash(t.SharedDrive), orDash(t.FileName))
		}

	case "collaborators":
		collaborators := mgr.ListCollaborators()
		if len(collaborators) == 0 {
			fmt.Fprintln(out, "No collaborators configured.")
			return nil
		}
		fmt.Fprintln(w, "KEY\tNAME\tEMAIL\tROLE")
		for _, c := range collaborators {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.Key, c.Name, c.Address, c.Role)
		}

	default:
		return fmt.Errorf("unknown entity type %q. Use targets or collaborators", entityType)
	}

	return w.Flush()
}

// --- REMOVE command ---

var configRemoveCmd = &cobra.Command{
	Use:   "remove [target|collaborator] <key>",
	Short: "Remove a config entry",
	Long: `Remove an upload target or collaborator from the configuration.

Examples:
  marketing-export config remove target launch
  marketing-export config remove collaborator priya`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigRemove,
}

func runConfigRemove(cmd *cobra.Command, args []string) error {
	cfg, err := loadedConfig()
	if err != nil {
		return err
	}
	return RunConfigRemoveWithDependencies(cfg, cfgFile, args[0], args[1], DefaultOutput)
}

// RunConfigRemoveWithDependencies runs the remove command with injected dependencies
func RunConfigRemoveWithDependencies(cfg *config.Config, configPath, entityType, key string, out OutputWriter) error {
	mgr := config.NewConfigManager(cfg, configPath)

	switch entityType {
	case "target":
		if err := mgr.RemoveTarget(key); err != nil {
			return err
		}
		fmt.Fprintf(out, "Removed target %q\n", key)

	case "collaborator":
		if err := mgr.RemoveCollaborator(key); err != nil {
			return err
		}
		fmt.Fprintf(out, "Removed collaborator %q\n", key)

	default:
		return fmt.Errorf("unknown entity type %q. Use target or collaborator", entityType)
	}

	return nil
}

// --- UPDATE command ---

var updateFlags EntryFlags

var configUpdateCmd = &cobra.Command{
	Use:   "update [target|collaborator] <key>",
	Short: "Update a config entry",
	Long: `Update an existing upload target or collaborator. Only the given flags change.

Examples:
  marketing-export config update target launch --shared-drive "Marketing EU"
  marketing-export config update collaborator priya --role writer`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigUpdate,
}

func init() {
	addEntryFlags(configUpdateCmd, &updateFlags)
}

func runConfigUpdate(cmd *cobra.Command, args []string) error {
	cfg, err := loadedConfig()
	if err != nil {
		return err
	}
	return RunConfigUpdateWithDependencies(cfg, cfgFile, args[0], args[1], updateFlags, DefaultOutput)
}

// RunConfigUpdateWithDependencies runs the update command with injected dependencies
func RunConfigUpdateWithDependencies(cfg *config.Config, configPath, entityType, key string, f EntryFlags, out OutputWriter) error {
	mgr := config.NewConfigManager(cfg, configPath)

	switch entityType {
	case "target":
		if f.target() == (config.TargetConfig{}) {
			return fmt.Errorf("at least one of --folder, --folder-id, --shared-drive or --file-name is required")
		}
		if err := mgr.UpdateTarget(key, f.target()); err != nil {
			return err
		}
		fmt.Fprintf(out, "Updated target %q\n", key)

	case "collaborator":
		if f.Name == "" && f.Email == "" && f.Role == "" {
			return fmt.Errorf("at least one of --name, --email or --role is required")
		}
		if err := mgr.UpdateCollaborator(key, f.Name, f.Email, f.Role); err != nil {
			return err
		}
		fmt.Fprintf(out, "Updated collaborator %q\n", key)

	default:
		return fmt.Errorf("unknown entity type %q. Use target or collaborator", entityType)
	}

	return nil
}

func describeTarget(t config.Target) string {
	desc := t.FolderName
	if desc == "" {
		desc = "folder id " + t.FolderID
	}
	if t.SharedDrive != "" {
		desc += fmt.Sprintf(" in shared drive %q", t.SharedDrive)
	}
	if t.FileName != "" {
		desc += " as " + t.FileName
	}
	return desc
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
