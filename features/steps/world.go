//go:build integration

package steps

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"marketing-export/domain/distribution"

	"github.com/cucumber/godog"
)

// fakeDrive is an in-memory Drive shared by the export and CLI scenarios
type fakeDrive struct {
	mu          sync.Mutex
	folders     []distribution.FileInfo
	drives      []distribution.SharedDrive
	files       map[string]*fakeFile
	quota       distribution.StorageInfo
	permissions map[string][]distribution.Grant
	uploads     int
	nextID      int
}

type fakeFile struct {
	info     distribution.FileInfo
	parentID string
	content  []byte
}

func newFakeDrive() *fakeDrive {
	return &fakeDrive{
		files:       make(map[string]*fakeFile),
		quota:       distribution.StorageInfo{Unlimited: true},
		permissions: make(map[string][]distribution.Grant),
		nextID:      1,
	}
}

func (d *fakeDrive) id(prefix string) string {
	id := fmt.Sprintf("%s-%d", prefix, d.nextID)
	d.nextID++
	return id
}

func (d *fakeDrive) sharedDriveID(name string) string {
	for _, sd := range d.drives {
		if sd.Name == name {
			return sd.ID
		}
	}
	sd := distribution.SharedDrive{ID: d.id("drive"), Name: name}
	d.drives = append(d.drives, sd)
	return sd.ID
}

func (d *fakeDrive) addFolder(name, driveID string) distribution.FileInfo {
	f := distribution.FileInfo{
		ID:       d.id("folder"),
		Name:     name,
		MimeType: distribution.FolderMimeType,
		DriveID:  driveID,
	}
	d.folders = append(d.folders, f)
	return f
}

func (d *fakeDrive) FindFolders(ctx context.Context, q distribution.FolderQuery) ([]distribution.FileInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var result []distribution.FileInfo
	for _, f := range d.folders {
		if f.Name != q.Name {
			continue
		}
		switch {
		case q.DriveID != "":
			if f.DriveID != q.DriveID {
				continue
			}
		case !q.AllDrives:
			if f.DriveID != "" {
				continue
			}
		}
		result = append(result, f)
	}
	return result, nil
}

func (d *fakeDrive) CreateFolder(ctx context.Context, name, driveID string) (*distribution.FileInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f := d.addFolder(name, driveID)
	return &f, nil
}

func (d *fakeDrive) GetFolder(ctx context.Context, folderID string) (*distribution.FileInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, f := range d.folders {
		if f.ID == folderID {
			f := f
			return &f, nil
		}
	}
	return nil, nil
}

func (d *fakeDrive) ListSharedDrives(ctx context.Context, name string) ([]distribution.SharedDrive, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var result []distribution.SharedDrive
	for _, sd := range d.drives {
		if name == "" || sd.Name == name {
			result = append(result, sd)
		}
	}
	return result, nil
}

func (d *fakeDrive) FindFileByName(ctx context.Context, folderID, fileName string) (*distribution.FileInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, f := range d.files {
		if f.parentID == folderID && f.info.Name == fileName {
			info := f.info
			return &info, nil
		}
	}
	return nil, nil
}

func (d *fakeDrive) UploadFile(ctx context.Context, req distribution.FileUpload) (*distribution.UploadResult, error) {
	data, err := io.ReadAll(req.Content)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.id("file")
	d.files[id] = &fakeFile{
		info:     distribution.FileInfo{ID: id, Name: req.Name, MimeType: req.MimeType, Size: int64(len(data))},
		parentID: req.ParentID,
		content:  data,
	}
	d.uploads++
	return &distribution.UploadResult{
		FileID:      id,
		FileName:    req.Name,
		WebViewLink: "https://drive.google.com/file/d/" + id + "/view",
		Size:        int64(len(data)),
	}, nil
}

func (d *fakeDrive) DownloadFile(ctx context.Context, fileID string) (io.ReadCloser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f, ok := d.files[fileID]
	if !ok {
		return nil, &distribution.APIError{StatusCode: 404, Message: "File not found", Err: distribution.ErrTargetNotFound}
	}
	return io.NopCloser(bytes.NewReader(f.content)), nil
}

func (d *fakeDrive) DeletePermanently(ctx context.Context, fileID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.files, fileID)
	return nil
}

func (d *fakeDrive) CreatePermission(ctx context.Context, fileID string, grant distribution.Grant) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.permissions[fileID] = append(d.permissions[fileID], grant)
	return nil
}

func (d *fakeDrive) GetStorageQuota(ctx context.Context) (*distribution.StorageInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	q := d.quota
	return &q, nil
}

// world holds the state shared across step files within one scenario
type world struct {
	drive  *fakeDrive
	output *bytes.Buffer
	err    error
}

var shared = &world{}

// InitializeCommonScenario registers the Drive and command result steps
func InitializeCommonScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		shared = &world{
			drive:  newFakeDrive(),
			output: &bytes.Buffer{},
		}
		return c, nil
	})

	// Drive fixtures
	ctx.Step(`^a folder "([^"]*)" exists in My Drive$`, aFolderExistsInMyDrive)
	ctx.Step(`^a folder "([^"]*)" exists in shared drive "([^"]*)"$`, aFolderExistsInSharedDrive)
	ctx.Step(`^the identity has no storage quota$`, theIdentityHasNoStorageQuota)
	ctx.Step(`^the folder "([^"]*)" should contain "([^"]*)" with "([^"]*)"$`, theFolderShouldContain)
	ctx.Step(`^no file should have been uploaded$`, noFileShouldHaveBeenUploaded)
	ctx.Step(`^a folder "([^"]*)" should exist$`, aFolderShouldExist)

	// Command results
	ctx.Step(`^the command should succeed$`, theCommandShouldSucceed)
	ctx.Step(`^the command should fail with "([^"]*)"$`, theCommandShouldFailWith)
	ctx.Step(`^the output should contain "([^"]*)"$`, theOutputShouldContain)
}

func aFolderExistsInMyDrive(name string) error {
	shared.drive.addFolder(name, "")
	return nil
}

func aFolderExistsInSharedDrive(name, driveName string) error {
	shared.drive.addFolder(name, shared.drive.sharedDriveID(driveName))
	return nil
}

func theIdentityHasNoStorageQuota() error {
	shared.drive.quota = distribution.StorageInfo{}
	return nil
}

func theFolderShouldContain(folderName, fileName, content string) error {
	d := shared.drive
	for _, folder := range d.folders {
		if folder.Name != folderName {
			continue
		}
		for _, f := range d.files {
			if f.parentID == folder.ID && f.info.Name == fileName {
				if string(f.content) != content {
					return fmt.Errorf("file %q contains %q, want %q", fileName, f.content, content)
				}
				return nil
			}
		}
	}
	return fmt.Errorf("file %q not found in folder %q", fileName, folderName)
}

func noFileShouldHaveBeenUploaded() error {
	if shared.drive.uploads != 0 {
		return fmt.Errorf("expected no uploads, got %d", shared.drive.uploads)
	}
	return nil
}

func aFolderShouldExist(name string) error {
	for _, f := range shared.drive.folders {
		if f.Name == name {
			return nil
		}
	}
	return fmt.Errorf("folder %q does not exist", name)
}

func theCommandShouldSucceed() error {
	if shared.err != nil {
		return fmt.Errorf("expected command to succeed but got error: %v", shared.err)
	}
	return nil
}

func theCommandShouldFailWith(expected string) error {
	if shared.err == nil {
		return fmt.Errorf("expected command to fail with %q but it succeeded", expected)
	}
	if !strings.Contains(shared.err.Error(), expected) {
		return fmt.Errorf("expected error to contain %q but got: %v", expected, shared.err)
	}
	return nil
}

func theOutputShouldContain(expected string) error {
	output := shared.output.String()
	if !strings.Contains(output, expected) {
		return fmt.Errorf("expected output to contain %q but got:\n%s", expected, output)
	}
	return nil
}
