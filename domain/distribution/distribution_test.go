package distribution

import (
	"errors"
	"fmt"
	"testing"
)

func TestUploadRequest_Validate(t *testing.T) {
	target := &UploadTarget{DisplayName: "Drive_Connect", ResolvedID: "folder-1"}

	tests := []struct {
		name    string
		req     UploadRequest
		wantErr error
	}{
		{
			name:    "valid with parent",
			req:     UploadRequest{Parent: target, FileName: "marketing_copy.txt"},
			wantErr: nil,
		},
		{
			name:    "blank file name",
			req:     UploadRequest{Parent: target, FileName: "  "},
			wantErr: ErrInvalidFileName,
		},
		{
			name:    "file name with path",
			req:     UploadRequest{Parent: target, FileName: "a/b.txt"},
			wantErr: ErrInvalidFileName,
		},
		{
			name:    "parentless without opt-in",
			req:     UploadRequest{FileName: "marketing_copy.txt"},
			wantErr: ErrParentRequired,
		},
		{
			name:    "parentless with opt-in",
			req:     UploadRequest{FileName: "marketing_copy.txt", AllowRoot: true},
			wantErr: nil,
		},
		{
			name:    "unresolved parent",
			req:     UploadRequest{Parent: &UploadTarget{DisplayName: "x"}, FileName: "a.txt"},
			wantErr: ErrTargetNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestStorageInfo_HasSpaceFor(t *testing.T) {
	tests := []struct {
		name  string
		info  StorageInfo
		bytes int64
		want  bool
	}{
		{name: "enough space", info: StorageInfo{AvailableBytes: 100}, bytes: 50, want: true},
		{name: "exact fit", info: StorageInfo{AvailableBytes: 50}, bytes: 50, want: true},
		{name: "no quota", info: StorageInfo{AvailableBytes: 0}, bytes: 1, want: false},
		{name: "unlimited", info: StorageInfo{Unlimited: true}, bytes: 1 << 40, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.HasSpaceFor(tt.bytes); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestUploadError_Classification(t *testing.T) {
	apiErr := &APIError{StatusCode: 403, Reason: "storageQuotaExceeded", Message: "Service Accounts do not have storage quota.", Err: ErrQuotaExceeded}
	err := fmt.Errorf("export failed: %w", &UploadError{FileName: "marketing_copy.txt", Err: apiErr})

	if !errors.Is(err, ErrUpload) {
		t.Error("expected ErrUpload")
	}
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Error("expected ErrQuotaExceeded")
	}
	if errors.Is(err, ErrPermissionDenied) {
		t.Error("did not expect ErrPermissionDenied")
	}

	var got *APIError
	if !errors.As(err, &got) {
		t.Fatal("expected APIError in chain")
	}
	if got.StatusCode != 403 {
		t.Errorf("expected status 403, got %d", got.StatusCode)
	}
}

func TestLocatorError_Is(t *testing.T) {
	err := &LocatorError{Name: "NoSuchFolder", Scope: Scope{AllDrives: true}, Err: ErrNotFound}

	if !errors.Is(err, ErrLocator) {
		t.Error("expected ErrLocator")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("expected ErrNotFound")
	}
	if errors.Is(err, ErrUpload) {
		t.Error("did not expect ErrUpload")
	}
}

func TestIsTransient(t *testing.T) {
	if !IsTransient(&APIError{StatusCode: 503, Err: ErrUnavailable}) {
		t.Error("expected 503 to be transient")
	}
	if IsTransient(&APIError{StatusCode: 403, Err: ErrPermissionDenied}) {
		t.Error("expected 403 not to be transient")
	}
	if IsTransient(nil) {
		t.Error("expected nil not to be transient")
	}
}

func TestScope_String(t *testing.T) {
	if got := (Scope{SharedDrive: "Marketing"}).String(); got != `shared drive "Marketing"` {
		t.Errorf("unexpected %q", got)
	}
	if got := (Scope{AllDrives: true}).String(); got != "all drives" {
		t.Errorf("unexpected %q", got)
	}
	if got := (Scope{}).String(); got != "My Drive" {
		t.Errorf("unexpected %q", got)
	}
}
