package distribution

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"marketing-export/domain/distribution"
	"marketing-export/infrastructure/retry"
)

// UploadService exports content to Google Drive
type UploadService struct {
	driveClient distribution.DriveClient
	policy      retry.Policy
	output      io.Writer
	logger      *slog.Logger
}

// NewUploadService creates a new upload service
func NewUploadService(client distribution.DriveClient, policy retry.Policy, output io.Writer, logger *slog.Logger) *UploadService {
	if output == nil {
		output = io.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadService{
		driveClient: client,
		policy:      policy,
		output:      output,
		logger:      logger,
	}
}

// Upload writes req.Content as a new file. Every failure is an
// *distribution.UploadError wrapping the classified cause.
func (s *UploadService) Upload(ctx context.Context, req distribution.UploadRequest) (*distribution.UploadResult, error) {
	if err := req.Validate(); err != nil {
		return nil, &distribution.UploadError{FileName: req.FileName, Err: err}
	}
	if req.MimeType == "" {
		req.MimeType = distribution.MimeTypeText
	}

	size := int64(len(req.Content))
	parentID := ""
	if req.Parent != nil {
		parentID = req.Parent.ResolvedID
	} else if err := s.checkQuota(ctx, size); err != nil {
		return nil, &distribution.UploadError{FileName: req.FileName, Err: err}
	}

	if req.ReplaceExisting && parentID != "" {
		if err := s.removeExisting(ctx, parentID, req.FileName); err != nil {
			return nil, &distribution.UploadError{FileName: req.FileName, Err: err}
		}
	}

	// files.create is not idempotent, so it is not retried here. Failed
	// chunks are retried inside the resumable session.
	result, err := s.driveClient.UploadFile(ctx, distribution.FileUpload{
		Name:     req.FileName,
		ParentID: parentID,
		MimeType: req.MimeType,
		Content:  bytes.NewReader(req.Content),
		Size:     size,
	})
	if err != nil {
		return nil, &distribution.UploadError{FileName: req.FileName, Err: err}
	}

	for _, grant := range req.ShareWith {
		if err := s.driveClient.CreatePermission(ctx, result.FileID, grant); err != nil {
			s.logger.Warn("sharing failed",
				slog.String("file_id", result.FileID),
				slog.String("email", grant.EmailAddress),
				slog.String("error", err.Error()),
			)
			result.Warnings = append(result.Warnings, fmt.Sprintf("could not share with %s: %v", grant.EmailAddress, err))
			continue
		}
		fmt.Fprintf(s.output, "      Shared with %s (%s)\n", grant.EmailAddress, grant.Role)
	}

	return result, nil
}

// Fetch downloads a file's content
func (s *UploadService) Fetch(ctx context.Context, fileID string) ([]byte, error) {
	var data []byte
	err := retry.Do(ctx, s.policy, s.logger, "fetch", distribution.IsTransient, func(ctx context.Context) error {
		body, err := s.driveClient.DownloadFile(ctx, fileID)
		if err != nil {
			return err
		}
		defer body.Close()

		data, err = io.ReadAll(body)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", fileID, err)
	}
	return data, nil
}

// checkQuota fails early when a parentless upload cannot fit in the
// identity's own storage
func (s *UploadService) checkQuota(ctx context.Context, size int64) error {
	var storage *distribution.StorageInfo
	err := retry.Do(ctx, s.policy, s.logger, "storage quota", distribution.IsTransient, func(ctx context.Context) error {
		info, err := s.driveClient.GetStorageQuota(ctx)
		storage = info
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to check storage: %w", err)
	}
	if !storage.HasSpaceFor(size) {
		return fmt.Errorf("%w: need %d bytes but only %d available", distribution.ErrQuotaExceeded, size, storage.AvailableBytes)
	}
	return nil
}

// removeExisting permanently deletes a same-named file in the parent folder
func (s *UploadService) removeExisting(ctx context.Context, parentID, fileName string) error {
	existing, err := s.driveClient.FindFileByName(ctx, parentID, fileName)
	if err != nil {
		return fmt.Errorf("failed to check for existing file: %w", err)
	}
	if existing == nil {
		return nil
	}

	fmt.Fprintf(s.output, "      Replacing existing %s (%d bytes)\n", existing.Name, existing.Size)
	if err := s.driveClient.DeletePermanently(ctx, existing.ID); err != nil {
		return fmt.Errorf("failed to delete existing file %s: %w", existing.Name, err)
	}
	return nil
}
