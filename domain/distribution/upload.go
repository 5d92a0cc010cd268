package distribution

import (
	"fmt"
	"strings"
)

// Scope selects where a folder lookup searches
type Scope struct {
	SharedDrive string // Shared drive display name, resolved to an ID per lookup
	AllDrives   bool   // Search every drive the identity can see
}

// String describes the scope for messages
func (s Scope) String() string {
	switch {
	case s.SharedDrive != "":
		return fmt.Sprintf("shared drive %q", s.SharedDrive)
	case s.AllDrives:
		return "all drives"
	default:
		return "My Drive"
	}
}

// UploadTarget is a resolved parent location.
// ResolvedID is only trusted for the lifetime of one upload operation.
type UploadTarget struct {
	DisplayName   string
	ResolvedID    string
	ParentDriveID string // Shared drive ID, empty for My Drive
}

// UploadRequest contains the parameters needed to export content to Google Drive
type UploadRequest struct {
	Parent          *UploadTarget // Nil uploads into the identity's root
	FileName        string
	Content         []byte
	MimeType        string
	AllowRoot       bool // Opt-in for parentless uploads
	ReplaceExisting bool // Delete a same-named file in Parent first
	ShareWith       []Grant
}

// Validate checks the request before any Drive call is made
func (r *UploadRequest) Validate() error {
	if strings.TrimSpace(r.FileName) == "" {
		return ErrInvalidFileName
	}
	if strings.ContainsAny(r.FileName, "/\\") {
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidFileName, r.FileName)
	}
	if r.Parent == nil && !r.AllowRoot {
		return ErrParentRequired
	}
	if r.Parent != nil && r.Parent.ResolvedID == "" {
		return fmt.Errorf("%w: target %q is unresolved", ErrTargetNotFound, r.Parent.DisplayName)
	}
	return nil
}

// UploadResult contains the result of a successful upload
type UploadResult struct {
	FileID      string   // Google Drive file ID
	FileName    string   // Name of the uploaded file
	WebViewLink string   // URL for opening the file
	Size        int64    // Size of the uploaded file in bytes
	Warnings    []string // Non-fatal problems, e.g. a share that failed
}
