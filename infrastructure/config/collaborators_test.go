package config

import (
	"errors"
	"testing"

	"marketing-export/domain/distribution"
)

func TestCollaboratorLookup_LookupCollaborator(t *testing.T) {
	cfg := &Config{
		Collaborators: map[string]CollaboratorConfig{
			"priya": {Name: "Priya Raman", Address: "priya@example.com", Role: "writer"},
			"jane":  {Name: "Jane Doe", Address: "jane@example.com"},
			"john":  {Name: "John Smith", Address: "john@example.com", Role: "commenter"},
		},
	}
	lookup := NewCollaboratorLookup(cfg)

	tests := []struct {
		name      string
		query     string
		wantAddr  string
		wantRole  distribution.Role
		wantErr   error
		wantCount int
	}{
		{
			name:      "lookup by key",
			query:     "priya",
			wantAddr:  "priya@example.com",
			wantRole:  distribution.RoleWriter,
			wantCount: 1,
		},
		{
			name:      "lookup by first name defaults to reader",
			query:     "Jane",
			wantAddr:  "jane@example.com",
			wantRole:  distribution.RoleReader,
			wantCount: 1,
		},
		{
			name:      "lookup by last name",
			query:     "Smith",
			wantAddr:  "john@example.com",
			wantRole:  distribution.RoleCommenter,
			wantCount: 1,
		},
		{
			name:      "lookup by full name",
			query:     "Priya Raman",
			wantAddr:  "priya@example.com",
			wantRole:  distribution.RoleWriter,
			wantCount: 1,
		},
		{
			name:      "lookup by address",
			query:     "JOHN@example.com",
			wantAddr:  "john@example.com",
			wantRole:  distribution.RoleCommenter,
			wantCount: 1,
		},
		{
			name:    "not found",
			query:   "unknown",
			wantErr: ErrCollaboratorNotFound,
		},
		{
			name:    "empty query",
			query:   "",
			wantErr: ErrCollaboratorNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches, err := lookup.LookupCollaborator(tt.query)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("LookupCollaborator() error = %v, want %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("LookupCollaborator() error = %v", err)
			}
			if len(matches) != tt.wantCount {
				t.Fatalf("LookupCollaborator() got %d matches, want %d", len(matches), tt.wantCount)
			}
			if matches[0].EmailAddress != tt.wantAddr {
				t.Errorf("LookupCollaborator() address = %q, want %q", matches[0].EmailAddress, tt.wantAddr)
			}
			if matches[0].Role != tt.wantRole {
				t.Errorf("LookupCollaborator() role = %q, want %q", matches[0].Role, tt.wantRole)
			}
		})
	}
}

func TestCollaboratorLookup_LookupGrants(t *testing.T) {
	cfg := &Config{
		Collaborators: map[string]CollaboratorConfig{
			"priya": {Name: "Priya Raman", Address: "priya@example.com", Role: "writer"},
			"jane":  {Name: "Jane Doe", Address: "jane@example.com"},
		},
	}
	lookup := NewCollaboratorLookup(cfg)

	grants, err := lookup.LookupGrants([]string{"priya", "jane"})
	if err != nil {
		t.Fatalf("LookupGrants() error = %v", err)
	}
	if len(grants) != 2 {
		t.Errorf("LookupGrants() got %d grants, want 2", len(grants))
	}

	grants, err = lookup.LookupGrants([]string{"priya, jane"})
	if err != nil {
		t.Fatalf("LookupGrants() error = %v", err)
	}
	if len(grants) != 2 {
		t.Errorf("LookupGrants() comma-separated got %d grants, want 2", len(grants))
	}

	grants, err = lookup.LookupGrants([]string{"priya", "Priya@Example.com"})
	if err != nil {
		t.Fatalf("LookupGrants() error = %v", err)
	}
	if len(grants) != 1 {
		t.Errorf("LookupGrants() should deduplicate, got %d", len(grants))
	}

	grants, err = lookup.LookupGrants([]string{"outsider@example.org"})
	if err != nil {
		t.Fatalf("LookupGrants() error = %v", err)
	}
	if len(grants) != 1 || grants[0].Role != distribution.RoleReader || grants[0].EmailAddress != "outsider@example.org" {
		t.Errorf("LookupGrants() unconfigured address = %+v, want reader grant", grants)
	}

	grants, err = lookup.LookupGrants(nil)
	if err != nil || len(grants) != 0 {
		t.Errorf("LookupGrants(nil) = %v, %v, want no grants", grants, err)
	}

	if _, err := lookup.LookupGrants([]string{"nobody"}); !errors.Is(err, ErrCollaboratorNotFound) {
		t.Errorf("LookupGrants() error = %v, want ErrCollaboratorNotFound", err)
	}
}

func TestCollaboratorLookup_Ambiguous(t *testing.T) {
	cfg := &Config{
		Collaborators: map[string]CollaboratorConfig{
			"jane1": {Name: "Jane Doe", Address: "jane1@example.com"},
			"jane2": {Name: "Jane Smith", Address: "jane2@example.com"},
		},
	}
	lookup := NewCollaboratorLookup(cfg)

	matches, err := lookup.LookupCollaborator("jane")
	if err != nil {
		t.Fatalf("LookupCollaborator() error = %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("LookupCollaborator() should return 2 matches for ambiguous query, got %d", len(matches))
	}

	_, err = lookup.LookupGrants([]string{"jane"})
	if !errors.Is(err, ErrAmbiguousCollaborator) {
		t.Errorf("LookupGrants() error = %v, want ErrAmbiguousCollaborator", err)
	}

	grants, err := lookup.LookupGrants([]string{"smith"})
	if err != nil {
		t.Fatalf("LookupGrants() error = %v", err)
	}
	if len(grants) != 1 || grants[0].EmailAddress != "jane2@example.com" {
		t.Errorf("LookupGrants() should disambiguate by last name, got %+v", grants)
	}
}

func TestCollaboratorLookup_LookupTarget(t *testing.T) {
	cfg := &Config{
		Targets: map[string]TargetConfig{
			"launch": {FolderName: "Launch Assets", SharedDrive: "Marketing"},
		},
	}
	lookup := NewCollaboratorLookup(cfg)

	tc, err := lookup.LookupTarget("LAUNCH")
	if err != nil {
		t.Fatalf("LookupTarget() error = %v", err)
	}
	if tc.FolderName != "Launch Assets" || tc.SharedDrive != "Marketing" {
		t.Errorf("LookupTarget() = %+v", tc)
	}

	if _, err := lookup.LookupTarget("missing"); !errors.Is(err, ErrTargetNotFound) {
		t.Errorf("LookupTarget() error = %v, want ErrTargetNotFound", err)
	}
}
