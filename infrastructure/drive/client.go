package drive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"marketing-export/domain/distribution"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

const fileFields = "id, name, mimeType, size, createdTime, driveId"

// Client implements distribution.DriveClient using Google Drive API
type Client struct {
	driveService DriveService
	chunkSize    int
	logger       *slog.Logger
}

// ClientOption is a functional option for configuring Client
type ClientOption func(*Client)

// WithDriveService sets a custom drive service (for testing)
func WithDriveService(svc DriveService) ClientOption {
	return func(c *Client) {
		c.driveService = svc
	}
}

// WithChunkSize sets the resumable upload chunk size in bytes
func WithChunkSize(size int) ClientOption {
	return func(c *Client) {
		c.chunkSize = size
	}
}

// WithLogger sets the logger used for request diagnostics
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new Google Drive client.
// If no drive service option is provided, a real service authorized by
// httpClient is created.
func NewClient(ctx context.Context, httpClient *http.Client, opts ...ClientOption) (*Client, error) {
	c := &Client{
		chunkSize: googleapi.DefaultUploadChunkSize,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}

	// If no custom drive service was provided, create a real one
	if c.driveService == nil {
		if httpClient == nil {
			return nil, fmt.Errorf("an authorized HTTP client is required")
		}
		svc, err := NewGoogleDriveService(ctx, httpClient)
		if err != nil {
			return nil, err
		}
		c.driveService = svc
	}

	return c, nil
}

// FindFolders implements distribution.DriveClient
func (c *Client) FindFolders(ctx context.Context, q distribution.FolderQuery) ([]distribution.FileInfo, error) {
	query := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false",
		escapeQuery(q.Name), distribution.FolderMimeType)

	files, err := c.driveService.ListFiles(ctx, ListOptions{
		Query:     query,
		Fields:    fileFields,
		DriveID:   q.DriveID,
		AllDrives: q.AllDrives,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", classifyError(err))
	}

	c.logger.Debug("folder lookup",
		slog.String("name", q.Name),
		slog.String("drive_id", q.DriveID),
		slog.Bool("all_drives", q.AllDrives),
		slog.Int("matches", len(files)),
	)

	result := make([]distribution.FileInfo, 0, len(files))
	for _, f := range files {
		result = append(result, toFileInfo(f))
	}
	return result, nil
}

// CreateFolder implements distribution.DriveClient
func (c *Client) CreateFolder(ctx context.Context, name, driveID string) (*distribution.FileInfo, error) {
	folder := &drive.File{
		Name:     name,
		MimeType: distribution.FolderMimeType,
	}
	if driveID != "" {
		// A shared drive's ID doubles as the ID of its root folder
		folder.Parents = []string{driveID}
	}

	created, err := c.driveService.CreateFile(ctx, folder, nil, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to create folder %q: %w", name, classifyError(err))
	}

	c.logger.Info("created folder", slog.String("name", name), slog.String("id", created.Id))
	info := toFileInfo(created)
	return &info, nil
}

// GetFolder implements distribution.DriveClient
func (c *Client) GetFolder(ctx context.Context, folderID string) (*distribution.FileInfo, error) {
	f, err := c.driveService.GetFile(ctx, folderID, fileFields+", trashed")
	if err != nil {
		classified := classifyError(err)
		if errors.Is(classified, distribution.ErrTargetNotFound) {
			return nil, nil // Not found is not an error
		}
		return nil, fmt.Errorf("failed to get folder: %w", classified)
	}
	if f.Trashed || f.MimeType != distribution.FolderMimeType {
		return nil, nil
	}
	info := toFileInfo(f)
	return &info, nil
}

// ListSharedDrives implements distribution.DriveClient
func (c *Client) ListSharedDrives(ctx context.Context, name string) ([]distribution.SharedDrive, error) {
	query := ""
	if name != "" {
		query = fmt.Sprintf("name = '%s'", escapeQuery(name))
	}

	drives, err := c.driveService.ListDrives(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list shared drives: %w", classifyError(err))
	}

	result := make([]distribution.SharedDrive, 0, len(drives))
	for _, d := range drives {
		result = append(result, distribution.SharedDrive{ID: d.Id, Name: d.Name})
	}
	return result, nil
}

// FindFileByName implements distribution.DriveClient
func (c *Client) FindFileByName(ctx context.Context, folderID, fileName string) (*distribution.FileInfo, error) {
	query := fmt.Sprintf("name = '%s' and '%s' in parents and trashed = false",
		escapeQuery(fileName), escapeQuery(folderID))

	files, err := c.driveService.ListFiles(ctx, ListOptions{
		Query:     query,
		Fields:    fileFields,
		AllDrives: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find file: %w", classifyError(err))
	}

	for _, f := range files {
		if f.Name == fileName {
			info := toFileInfo(f)
			return &info, nil
		}
	}
	return nil, nil // Not found is not an error
}

// UploadFile implements distribution.DriveClient
func (c *Client) UploadFile(ctx context.Context, req distribution.FileUpload) (*distribution.UploadResult, error) {
	file := &drive.File{
		Name:     req.Name,
		MimeType: req.MimeType,
	}
	if req.ParentID != "" {
		file.Parents = []string{req.ParentID}
	}

	media, size, err := readerAt(req.Content, req.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload content: %w", err)
	}

	start := time.Now()
	created, err := c.driveService.CreateFile(ctx, file, media, size, c.chunkSize)
	if err != nil {
		return nil, classifyError(err)
	}

	c.logger.Info("uploaded file",
		slog.String("name", created.Name),
		slog.String("id", created.Id),
		slog.String("parent", req.ParentID),
		slog.Int64("bytes", size),
		slog.Duration("elapsed", time.Since(start)),
	)

	if created.Size != 0 {
		size = created.Size
	}
	return &distribution.UploadResult{
		FileID:      created.Id,
		FileName:    created.Name,
		WebViewLink: created.WebViewLink,
		Size:        size,
	}, nil
}

// DownloadFile implements distribution.DriveClient
func (c *Client) DownloadFile(ctx context.Context, fileID string) (io.ReadCloser, error) {
	body, err := c.driveService.DownloadFile(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", classifyError(err))
	}
	return body, nil
}

// DeletePermanently implements distribution.DriveClient
func (c *Client) DeletePermanently(ctx context.Context, fileID string) error {
	if err := c.driveService.DeleteFile(ctx, fileID); err != nil {
		return fmt.Errorf("failed to delete file: %w", classifyError(err))
	}
	return nil
}

// CreatePermission implements distribution.DriveClient
func (c *Client) CreatePermission(ctx context.Context, fileID string, grant distribution.Grant) error {
	permission := &drive.Permission{
		Type:         "user",
		Role:         string(grant.Role),
		EmailAddress: grant.EmailAddress,
	}
	if err := c.driveService.CreatePermission(ctx, fileID, permission); err != nil {
		return fmt.Errorf("failed to share with %s: %w", grant.EmailAddress, classifyError(err))
	}
	return nil
}

// GetStorageQuota implements distribution.DriveClient
func (c *Client) GetStorageQuota(ctx context.Context) (*distribution.StorageInfo, error) {
	about, err := c.driveService.GetAbout(ctx, "storageQuota")
	if err != nil {
		return nil, fmt.Errorf("failed to get storage quota: %w", classifyError(err))
	}
	if about.StorageQuota == nil {
		return &distribution.StorageInfo{Unlimited: true}, nil
	}

	quota := about.StorageQuota
	// Drive omits the limit for accounts without one
	if quota.Limit == 0 {
		return &distribution.StorageInfo{UsedBytes: quota.Usage, Unlimited: true}, nil
	}

	available := quota.Limit - quota.Usage
	if available < 0 {
		available = 0
	}
	return &distribution.StorageInfo{
		TotalBytes:     quota.Limit,
		UsedBytes:      quota.Usage,
		AvailableBytes: available,
	}, nil
}

// readerAt returns random access to r and its length; resumable sessions
// re-read a chunk after a failed attempt
func readerAt(r io.Reader, size int64) (io.ReaderAt, int64, error) {
	if r == nil {
		return nil, 0, nil
	}
	if ra, ok := r.(io.ReaderAt); ok && size > 0 {
		return ra, size, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, err
	}
	return bytes.NewReader(data), int64(len(data)), nil
}

// escapeQuery escapes a value for use inside a single-quoted Drive query string
func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

func toFileInfo(f *drive.File) distribution.FileInfo {
	return distribution.FileInfo{
		ID:          f.Id,
		Name:        f.Name,
		MimeType:    f.MimeType,
		DriveID:     f.DriveId,
		Size:        f.Size,
		CreatedTime: parseTime(f.CreatedTime),
	}
}

// parseTime parses a Google Drive timestamp string
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Ensure Client implements distribution.DriveClient
var _ distribution.DriveClient = (*Client)(nil)
