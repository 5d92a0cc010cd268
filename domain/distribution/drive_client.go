package distribution

import (
	"context"
	"io"
	"time"
)

// FolderMimeType is the MIME type Drive uses for folders
const FolderMimeType = "application/vnd.google-apps.folder"

// MimeTypeText is the MIME type of exported copy
const MimeTypeText = "text/plain"

// DriveClient defines the Google Drive operations the exporter consumes.
// This is a port that can be implemented by different infrastructure adapters.
type DriveClient interface {
	// FindFolders lists non-trashed folders whose name equals query.Name
	FindFolders(ctx context.Context, query FolderQuery) ([]FileInfo, error)

	// CreateFolder creates a folder, inside driveID when it is non-empty
	CreateFolder(ctx context.Context, name, driveID string) (*FileInfo, error)

	// GetFolder returns a folder by ID or nil when it does not exist
	GetFolder(ctx context.Context, folderID string) (*FileInfo, error)

	// ListSharedDrives lists shared drives, filtered by exact name when name is non-empty
	ListSharedDrives(ctx context.Context, name string) ([]SharedDrive, error)

	// FindFileByName finds a non-trashed file in a folder, nil when absent
	FindFileByName(ctx context.Context, folderID, fileName string) (*FileInfo, error)

	// UploadFile streams content into a new file. parentID may be empty.
	UploadFile(ctx context.Context, req FileUpload) (*UploadResult, error)

	// DownloadFile opens the content of a file
	DownloadFile(ctx context.Context, fileID string) (io.ReadCloser, error)

	// DeletePermanently deletes a file permanently (bypasses trash)
	DeletePermanently(ctx context.Context, fileID string) error

	// CreatePermission grants a role on a file to an email address
	CreatePermission(ctx context.Context, fileID string, grant Grant) error

	// GetStorageQuota returns the storage quota of the authorizing identity
	GetStorageQuota(ctx context.Context) (*StorageInfo, error)
}

// FolderQuery describes a folder lookup.
// Shared drive contents are only visible when DriveID or AllDrives is set.
type FolderQuery struct {
	Name      string
	DriveID   string // Restrict to one shared drive
	AllDrives bool   // Search My Drive and every shared drive
}

// FileInfo represents metadata about a file in Google Drive
type FileInfo struct {
	ID          string
	Name        string
	MimeType    string
	DriveID     string // Shared drive the file lives in, empty for My Drive
	Size        int64
	CreatedTime time.Time
}

// SharedDrive is a collectively owned storage scope
type SharedDrive struct {
	ID   string
	Name string
}

// FileUpload is the adapter-level request to create a file with content
type FileUpload struct {
	Name     string
	ParentID string
	MimeType string
	Content  io.Reader
	Size     int64
}

// Role is a Drive permission role
type Role string

// Permission roles that may be granted on an uploaded file
const (
	RoleReader    Role = "reader"
	RoleCommenter Role = "commenter"
	RoleWriter    Role = "writer"
)

// Grant gives Role on a file to EmailAddress
type Grant struct {
	EmailAddress string
	Role         Role
}
