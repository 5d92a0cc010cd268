package distribution

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"marketing-export/domain/distribution"
	"marketing-export/infrastructure/retry"
)

// TargetSpec describes where content should be exported.
// FolderID takes precedence over FolderName.
type TargetSpec struct {
	FolderName string
	FolderID   string
	Scope      distribution.Scope
	Create     bool // Create the folder when it does not exist
}

// Locator resolves folder names to Drive IDs.
// Nothing is cached; each call queries Drive.
type Locator struct {
	driveClient distribution.DriveClient
	policy      retry.Policy
	logger      *slog.Logger
}

// NewLocator creates a new locator
func NewLocator(client distribution.DriveClient, policy retry.Policy, logger *slog.Logger) *Locator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Locator{
		driveClient: client,
		policy:      policy,
		logger:      logger,
	}
}

// Resolve finds the folder named exactly name within scope.
// Returns nil, nil when no folder matches. When several match, the
// earliest created wins so repeated calls agree.
func (l *Locator) Resolve(ctx context.Context, name string, scope distribution.Scope) (*distribution.UploadTarget, error) {
	target, _, err := l.resolve(ctx, name, scope)
	return target, err
}

// ResolveOrCreate resolves name, creating the folder (inside the scope's
// shared drive when one is named) if it does not exist
func (l *Locator) ResolveOrCreate(ctx context.Context, name string, scope distribution.Scope) (*distribution.UploadTarget, error) {
	target, driveID, err := l.resolve(ctx, name, scope)
	if err != nil || target != nil {
		return target, err
	}

	var created *distribution.FileInfo
	err = l.withRetry(ctx, "create folder", func(ctx context.Context) error {
		f, err := l.driveClient.CreateFolder(ctx, name, driveID)
		created = f
		return err
	})
	if err != nil {
		return nil, &distribution.LocatorError{Name: name, Scope: scope, Err: err}
	}

	l.logger.Info("created missing folder", slog.String("name", name), slog.String("scope", scope.String()))
	return &distribution.UploadTarget{
		DisplayName:   name,
		ResolvedID:    created.ID,
		ParentDriveID: driveID,
	}, nil
}

// ResolveByID checks that id names an existing folder.
// Returns nil, nil when it does not.
func (l *Locator) ResolveByID(ctx context.Context, id string) (*distribution.UploadTarget, error) {
	var folder *distribution.FileInfo
	err := l.withRetry(ctx, "get folder", func(ctx context.Context) error {
		f, err := l.driveClient.GetFolder(ctx, id)
		folder = f
		return err
	})
	if err != nil {
		return nil, &distribution.LocatorError{Name: id, Err: err}
	}
	if folder == nil {
		return nil, nil
	}
	return &distribution.UploadTarget{
		DisplayName:   folder.Name,
		ResolvedID:    folder.ID,
		ParentDriveID: folder.DriveID,
	}, nil
}

// Locate resolves a TargetSpec. A folder that cannot be found is reported
// as a LocatorError wrapping distribution.ErrNotFound.
func (l *Locator) Locate(ctx context.Context, spec TargetSpec) (*distribution.UploadTarget, error) {
	var (
		target *distribution.UploadTarget
		err    error
		name   = spec.FolderName
	)

	switch {
	case spec.FolderID != "":
		name = spec.FolderID
		target, err = l.ResolveByID(ctx, spec.FolderID)
	case spec.Create:
		target, err = l.ResolveOrCreate(ctx, spec.FolderName, spec.Scope)
	default:
		target, err = l.Resolve(ctx, spec.FolderName, spec.Scope)
	}
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, &distribution.LocatorError{Name: name, Scope: spec.Scope, Err: distribution.ErrNotFound}
	}
	return target, nil
}

// resolve returns the matching folder and the shared drive ID the scope named
func (l *Locator) resolve(ctx context.Context, name string, scope distribution.Scope) (*distribution.UploadTarget, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, "", &distribution.LocatorError{Scope: scope, Err: fmt.Errorf("%w: folder name is empty", distribution.ErrBadRequest)}
	}

	query := distribution.FolderQuery{Name: name, AllDrives: scope.AllDrives}
	if scope.SharedDrive != "" {
		driveID, err := l.sharedDriveID(ctx, scope.SharedDrive)
		if err != nil {
			return nil, "", &distribution.LocatorError{Name: name, Scope: scope, Err: err}
		}
		query.DriveID = driveID
		query.AllDrives = false
	}

	var folders []distribution.FileInfo
	err := l.withRetry(ctx, "find folders", func(ctx context.Context) error {
		f, err := l.driveClient.FindFolders(ctx, query)
		folders = f
		return err
	})
	if err != nil {
		return nil, query.DriveID, &distribution.LocatorError{Name: name, Scope: scope, Err: err}
	}

	matches := exactMatches(folders, name)
	l.logger.Debug("resolved folder",
		slog.String("name", name),
		slog.String("scope", scope.String()),
		slog.Int("candidates", len(folders)),
		slog.Int("matches", len(matches)),
	)
	if len(matches) == 0 {
		return nil, query.DriveID, nil
	}
	if len(matches) > 1 {
		l.logger.Warn("several folders share a name, using the oldest",
			slog.String("name", name),
			slog.String("id", matches[0].ID),
			slog.Int("count", len(matches)),
		)
	}

	chosen := matches[0]
	parentDrive := chosen.DriveID
	if parentDrive == "" {
		parentDrive = query.DriveID
	}
	return &distribution.UploadTarget{
		DisplayName:   name,
		ResolvedID:    chosen.ID,
		ParentDriveID: parentDrive,
	}, query.DriveID, nil
}

// sharedDriveID resolves a shared drive display name to its ID
func (l *Locator) sharedDriveID(ctx context.Context, name string) (string, error) {
	var drives []distribution.SharedDrive
	err := l.withRetry(ctx, "list shared drives", func(ctx context.Context) error {
		d, err := l.driveClient.ListSharedDrives(ctx, name)
		drives = d
		return err
	})
	if err != nil {
		return "", err
	}

	var ids []string
	for _, d := range drives {
		if d.Name == name {
			ids = append(ids, d.ID)
		}
	}
	if len(ids) == 0 {
		return "", fmt.Errorf("%w: shared drive %q is not visible to this identity", distribution.ErrNotFound, name)
	}
	sort.Strings(ids)
	return ids[0], nil
}

func (l *Locator) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return retry.Do(ctx, l.policy, l.logger, op, distribution.IsTransient, fn)
}

// exactMatches keeps folders whose name equals name exactly, oldest first
func exactMatches(folders []distribution.FileInfo, name string) []distribution.FileInfo {
	var matches []distribution.FileInfo
	for _, f := range folders {
		if f.Name == name {
			matches = append(matches, f)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if !matches[i].CreatedTime.Equal(matches[j].CreatedTime) {
			return matches[i].CreatedTime.Before(matches[j].CreatedTime)
		}
		return matches[i].ID < matches[j].ID
	})
	return matches
}
