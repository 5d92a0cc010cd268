package distribution

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"marketing-export/domain/distribution"
)

// mockDriveClient is an in-memory Drive for testing
type mockDriveClient struct {
	folders []distribution.FileInfo
	drives  []distribution.SharedDrive
	files   map[string][]byte
	storage *distribution.StorageInfo

	findErrs   []error // returned by successive FindFolders calls
	uploadErrs []error // returned by successive UploadFile calls
	shareErr   error
	quotaErr   error
	quotaErrs  []error // returned by successive GetStorageQuota calls before quotaErr

	findCalls    []distribution.FolderQuery
	uploads      []distribution.FileUpload
	uploadBodies [][]byte
	created      []string
	deleted      []string
	grants       []distribution.Grant
	quotaCalls   int
}

func newMockDriveClient() *mockDriveClient {
	return &mockDriveClient{files: make(map[string][]byte)}
}

func (m *mockDriveClient) FindFolders(ctx context.Context, q distribution.FolderQuery) ([]distribution.FileInfo, error) {
	i := len(m.findCalls)
	m.findCalls = append(m.findCalls, q)
	if i < len(m.findErrs) && m.findErrs[i] != nil {
		return nil, m.findErrs[i]
	}
	var result []distribution.FileInfo
	for _, f := range m.folders {
		// Drive name matching is case-insensitive
		if !strings.EqualFold(f.Name, q.Name) {
			continue
		}
		if q.DriveID != "" && f.DriveID != q.DriveID {
			continue
		}
		if q.DriveID == "" && !q.AllDrives && f.DriveID != "" {
			continue
		}
		result = append(result, f)
	}
	return result, nil
}

func (m *mockDriveClient) CreateFolder(ctx context.Context, name, driveID string) (*distribution.FileInfo, error) {
	f := distribution.FileInfo{
		ID:       fmt.Sprintf("new-folder-%d", len(m.created)+1),
		Name:     name,
		MimeType: distribution.FolderMimeType,
		DriveID:  driveID,
	}
	m.created = append(m.created, name)
	m.folders = append(m.folders, f)
	return &f, nil
}

func (m *mockDriveClient) GetFolder(ctx context.Context, folderID string) (*distribution.FileInfo, error) {
	for _, f := range m.folders {
		if f.ID == folderID {
			return &f, nil
		}
	}
	return nil, nil
}

func (m *mockDriveClient) ListSharedDrives(ctx context.Context, name string) ([]distribution.SharedDrive, error) {
	var result []distribution.SharedDrive
	for _, d := range m.drives {
		if name == "" || strings.EqualFold(d.Name, name) {
			result = append(result, d)
		}
	}
	return result, nil
}

func (m *mockDriveClient) FindFileByName(ctx context.Context, folderID, fileName string) (*distribution.FileInfo, error) {
	for i, u := range m.uploads {
		if u.ParentID == folderID && u.Name == fileName {
			id := fmt.Sprintf("file-%d", i+1)
			if _, ok := m.files[id]; ok {
				return &distribution.FileInfo{ID: id, Name: u.Name, Size: int64(len(m.files[id]))}, nil
			}
		}
	}
	return nil, nil
}

func (m *mockDriveClient) UploadFile(ctx context.Context, req distribution.FileUpload) (*distribution.UploadResult, error) {
	i := len(m.uploads)
	body, err := io.ReadAll(req.Content)
	if err != nil {
		return nil, err
	}
	m.uploads = append(m.uploads, req)
	m.uploadBodies = append(m.uploadBodies, body)
	if i < len(m.uploadErrs) && m.uploadErrs[i] != nil {
		return nil, m.uploadErrs[i]
	}

	id := fmt.Sprintf("file-%d", i+1)
	m.files[id] = body
	return &distribution.UploadResult{
		FileID:      id,
		FileName:    req.Name,
		WebViewLink: "https://drive.google.com/file/d/" + id + "/view",
		Size:        int64(len(body)),
	}, nil
}

func (m *mockDriveClient) DownloadFile(ctx context.Context, fileID string) (io.ReadCloser, error) {
	body, ok := m.files[fileID]
	if !ok {
		return nil, &distribution.APIError{StatusCode: 404, Message: "not found", Err: distribution.ErrTargetNotFound}
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

func (m *mockDriveClient) DeletePermanently(ctx context.Context, fileID string) error {
	m.deleted = append(m.deleted, fileID)
	delete(m.files, fileID)
	return nil
}

func (m *mockDriveClient) CreatePermission(ctx context.Context, fileID string, grant distribution.Grant) error {
	if m.shareErr != nil {
		return m.shareErr
	}
	m.grants = append(m.grants, grant)
	return nil
}

func (m *mockDriveClient) GetStorageQuota(ctx context.Context) (*distribution.StorageInfo, error) {
	i := m.quotaCalls
	m.quotaCalls++
	if i < len(m.quotaErrs) && m.quotaErrs[i] != nil {
		return nil, m.quotaErrs[i]
	}
	if m.quotaErr != nil {
		return nil, m.quotaErr
	}
	if m.storage == nil {
		return &distribution.StorageInfo{Unlimited: true}, nil
	}
	return m.storage, nil
}

var _ distribution.DriveClient = (*mockDriveClient)(nil)
