package drive

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// ListOptions describes a files.list call.
// DriveID and AllDrives turn on the all-drives flags without which
// shared drive contents are silently omitted from results.
type ListOptions struct {
	Query     string
	Fields    string
	DriveID   string
	AllDrives bool
}

// DriveService defines the interface for Google Drive API operations
// This allows mocking the Google Drive API in tests
type DriveService interface {
	ListFiles(ctx context.Context, opts ListOptions) ([]*drive.File, error)
	GetFile(ctx context.Context, fileID string, fields string) (*drive.File, error)
	CreateFile(ctx context.Context, file *drive.File, media io.ReaderAt, size int64, chunkSize int) (*drive.File, error)
	DownloadFile(ctx context.Context, fileID string) (io.ReadCloser, error)
	DeleteFile(ctx context.Context, fileID string) error
	CreatePermission(ctx context.Context, fileID string, permission *drive.Permission) error
	ListDrives(ctx context.Context, query string) ([]*drive.Drive, error)
	GetAbout(ctx context.Context, fields string) (*drive.About, error)
}

// GoogleDriveService is the production implementation using the Google Drive API
type GoogleDriveService struct {
	service *drive.Service
}

// NewGoogleDriveService creates a Drive service that authorizes through httpClient.
// Extra options are applied after the client, e.g. to override the endpoint.
func NewGoogleDriveService(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*GoogleDriveService, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	srv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create drive service: %w", err)
	}
	return &GoogleDriveService{service: srv}, nil
}

// ListFiles lists every page of files matching the options
func (s *GoogleDriveService) ListFiles(ctx context.Context, opts ListOptions) ([]*drive.File, error) {
	call := s.service.Files.List().
		Q(opts.Query).
		Fields(googleapi.Field("nextPageToken, files(" + opts.Fields + ")")).
		PageSize(100)

	switch {
	case opts.DriveID != "":
		call = call.Corpora("drive").DriveId(opts.DriveID).
			IncludeItemsFromAllDrives(true).
			SupportsAllDrives(true)
	case opts.AllDrives:
		call = call.Corpora("allDrives").
			IncludeItemsFromAllDrives(true).
			SupportsAllDrives(true)
	}

	var files []*drive.File
	err := call.Pages(ctx, func(page *drive.FileList) error {
		files = append(files, page.Files...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// GetFile returns file metadata
func (s *GoogleDriveService) GetFile(ctx context.Context, fileID string, fields string) (*drive.File, error) {
	return s.service.Files.Get(fileID).
		SupportsAllDrives(true).
		Fields(googleapi.Field(fields)).
		Context(ctx).
		Do()
}

// CreateFile creates a file. Media of size bytes is always sent with the
// resumable protocol: payloads larger than chunkSize go up in chunks, smaller
// ones in a single resumable session rather than a multipart request.
func (s *GoogleDriveService) CreateFile(ctx context.Context, file *drive.File, media io.ReaderAt, size int64, chunkSize int) (*drive.File, error) {
	call := s.service.Files.Create(file).
		SupportsAllDrives(true).
		Fields("id, name, mimeType, size, webViewLink, parents, driveId").
		Context(ctx)
	if media != nil {
		if chunkSize > 0 && size > roundChunkSize(chunkSize) {
			call = call.Media(io.NewSectionReader(media, 0, size),
				googleapi.ContentType(file.MimeType), googleapi.ChunkSize(chunkSize))
		} else {
			// Media picks multipart whenever the payload fits in one chunk.
			call = call.ResumableMedia(ctx, media, size, file.MimeType)
		}
	}
	return call.Do()
}

// roundChunkSize applies the rounding googleapi.ChunkSize performs
func roundChunkSize(n int) int64 {
	size := int64(n)
	if rem := size % googleapi.MinUploadChunkSize; rem != 0 {
		size += googleapi.MinUploadChunkSize - rem
	}
	return size
}

// DownloadFile opens the media of a file
func (s *GoogleDriveService) DownloadFile(ctx context.Context, fileID string) (io.ReadCloser, error) {
	resp, err := s.service.Files.Get(fileID).
		SupportsAllDrives(true).
		Context(ctx).
		Download()
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// DeleteFile permanently deletes a file
func (s *GoogleDriveService) DeleteFile(ctx context.Context, fileID string) error {
	return s.service.Files.Delete(fileID).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
}

// CreatePermission adds a permission to a file without emailing the grantee
func (s *GoogleDriveService) CreatePermission(ctx context.Context, fileID string, permission *drive.Permission) error {
	_, err := s.service.Permissions.Create(fileID, permission).
		SupportsAllDrives(true).
		SendNotificationEmail(false).
		Context(ctx).
		Do()
	return err
}

// ListDrives lists every page of shared drives matching query
func (s *GoogleDriveService) ListDrives(ctx context.Context, query string) ([]*drive.Drive, error) {
	call := s.service.Drives.List().
		Fields("nextPageToken, drives(id, name)").
		PageSize(100)
	if query != "" {
		call = call.Q(query)
	}

	var drives []*drive.Drive
	err := call.Pages(ctx, func(page *drive.DriveList) error {
		drives = append(drives, page.Drives...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return drives, nil
}

// GetAbout returns account information
func (s *GoogleDriveService) GetAbout(ctx context.Context, fields string) (*drive.About, error) {
	return s.service.About.Get().
		Fields(googleapi.Field(fields)).
		Context(ctx).
		Do()
}
