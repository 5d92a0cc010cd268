package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Errors for config management
var (
	ErrTargetNotFound       = errors.New("target not found")
	ErrCollaboratorNotFound = errors.New("collaborator not found")
	ErrDuplicateKey         = errors.New("key already exists")
	ErrInvalidEmail         = errors.New("invalid email format")
	ErrInvalidRole          = errors.New("invalid role")
)

// ConfigManager provides CRUD operations for config entries
type ConfigManager struct {
	config     *Config
	configPath string
}

// NewConfigManager creates a new config manager
func NewConfigManager(cfg *Config, configPath string) *ConfigManager {
	return &ConfigManager{
		config:     cfg,
		configPath: configPath,
	}
}

// Target represents a named upload destination
type Target struct {
	Key         string
	FolderName  string
	FolderID    string
	SharedDrive string
	FileName    string
}

// Collaborator represents someone uploads can be shared with
type Collaborator struct {
	Key     string
	Name    string
	Address string
	Role    string
}

// --- Target CRUD ---

// AddTarget adds a new upload target to config
func (m *ConfigManager) AddTarget(key string, t TargetConfig) error {
	key = normalizeKey(key)
	t = trimTarget(t)

	if key == "" {
		return fmt.Errorf("target key is required")
	}
	if t.FolderName == "" && t.FolderID == "" {
		return fmt.Errorf("target folder name or folder id is required")
	}
	if strings.ContainsAny(t.FileName, "/\\") {
		return fmt.Errorf("target file name %q contains a path separator", t.FileName)
	}

	if m.config.Targets == nil {
		m.config.Targets = make(map[string]TargetConfig)
	}

	if _, exists := m.config.Targets[key]; exists {
		return fmt.Errorf("%w: target %q", ErrDuplicateKey, key)
	}

	m.config.Targets[key] = t
	return Save(m.config, m.configPath)
}

// ListTargets returns all targets sorted by key
func (m *ConfigManager) ListTargets() []Target {
	result := make([]Target, 0, len(m.config.Targets))
	for key, tc := range m.config.Targets {
		result = append(result, toTarget(key, tc))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result
}

// GetTarget gets a target by key (case-insensitive)
func (m *ConfigManager) GetTarget(key string) (Target, error) {
	key = normalizeKey(key)
	if tc, exists := m.config.Targets[key]; exists {
		return toTarget(key, tc), nil
	}
	return Target{}, fmt.Errorf("%w: %q", ErrTargetNotFound, key)
}

// RemoveTarget removes a target by key
func (m *ConfigManager) RemoveTarget(key string) error {
	key = normalizeKey(key)
	if _, exists := m.config.Targets[key]; !exists {
		return fmt.Errorf("%w: %q", ErrTargetNotFound, key)
	}

	delete(m.config.Targets, key)
	return Save(m.config, m.configPath)
}

// UpdateTarget updates a target. Only non-empty fields are changed;
// setting a folder name clears a stored folder id and vice versa.
func (m *ConfigManager) UpdateTarget(key string, t TargetConfig) error {
	key = normalizeKey(key)
	tc, exists := m.config.Targets[key]
	if !exists {
		return fmt.Errorf("%w: %q", ErrTargetNotFound, key)
	}

	t = trimTarget(t)
	switch {
	case t.FolderName != "":
		tc.FolderName = t.FolderName
		tc.FolderID = ""
	case t.FolderID != "":
		tc.FolderID = t.FolderID
		tc.FolderName = ""
	}
	if t.SharedDrive != "" {
		tc.SharedDrive = t.SharedDrive
	}
	if t.FileName != "" {
		if strings.ContainsAny(t.FileName, "/\\") {
			return fmt.Errorf("target file name %q contains a path separator", t.FileName)
		}
		tc.FileName = t.FileName
	}

	m.config.Targets[key] = tc
	return Save(m.config, m.configPath)
}

// --- Collaborator CRUD ---

// AddCollaborator adds a new collaborator to config
func (m *ConfigManager) AddCollaborator(key, name, email, role string) error {
	key = normalizeKey(key)
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if key == "" {
		return fmt.Errorf("collaborator key is required")
	}
	if name == "" {
		return fmt.Errorf("collaborator name is required")
	}
	if !isValidEmail(email) {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	r, err := parseRole(role)
	if err != nil {
		return err
	}

	if m.config.Collaborators == nil {
		m.config.Collaborators = make(map[string]CollaboratorConfig)
	}

	if _, exists := m.config.Collaborators[key]; exists {
		return fmt.Errorf("%w: collaborator %q", ErrDuplicateKey, key)
	}

	m.config.Collaborators[key] = CollaboratorConfig{
		Name:    name,
		Address: email,
		Role:    string(r),
	}
	return Save(m.config, m.configPath)
}

// ListCollaborators returns all collaborators sorted by key
func (m *ConfigManager) ListCollaborators() []Collaborator {
	result := make([]Collaborator, 0, len(m.config.Collaborators))
	for key, cc := range m.config.Collaborators {
		result = append(result, Collaborator{
			Key:     key,
			Name:    cc.Name,
			Address: cc.Address,
			Role:    roleOrDefault(cc.Role),
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result
}

// GetCollaborator gets a collaborator by key (case-insensitive)
func (m *ConfigManager) GetCollaborator(key string) (Collaborator, error) {
	key = normalizeKey(key)
	if cc, exists := m.config.Collaborators[key]; exists {
		return Collaborator{Key: key, Name: cc.Name, Address: cc.Address, Role: roleOrDefault(cc.Role)}, nil
	}
	return Collaborator{}, fmt.Errorf("%w: %q", ErrCollaboratorNotFound, key)
}

// RemoveCollaborator removes a collaborator by key
func (m *ConfigManager) RemoveCollaborator(key string) error {
	key = normalizeKey(key)
	if _, exists := m.config.Collaborators[key]; !exists {
		return fmt.Errorf("%w: %q", ErrCollaboratorNotFound, key)
	}

	delete(m.config.Collaborators, key)
	return Save(m.config, m.configPath)
}

// UpdateCollaborator updates a collaborator's name, email and/or role
func (m *ConfigManager) UpdateCollaborator(key, name, email, role string) error {
	key = normalizeKey(key)
	cc, exists := m.config.Collaborators[key]
	if !exists {
		return fmt.Errorf("%w: %q", ErrCollaboratorNotFound, key)
	}

	// Update only provided values
	if name = strings.TrimSpace(name); name != "" {
		cc.Name = name
	}
	if email = strings.TrimSpace(email); email != "" {
		if !isValidEmail(email) {
			return fmt.Errorf("%w: %q", ErrInvalidEmail, email)
		}
		cc.Address = email
	}
	if role = strings.TrimSpace(role); role != "" {
		r, err := parseRole(role)
		if err != nil {
			return err
		}
		cc.Role = string(r)
	}

	m.config.Collaborators[key] = cc
	return Save(m.config, m.configPath)
}

// isValidEmail performs basic email validation
func isValidEmail(email string) bool {
	if email == "" {
		return false
	}
	// Basic check: contains @ and at least one . after @
	atIdx := strings.Index(email, "@")
	if atIdx < 1 {
		return false
	}
	domain := email[atIdx+1:]
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return false
	}
	return true
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func trimTarget(t TargetConfig) TargetConfig {
	return TargetConfig{
		FolderName:  strings.TrimSpace(t.FolderName),
		FolderID:    strings.TrimSpace(t.FolderID),
		SharedDrive: strings.TrimSpace(t.SharedDrive),
		FileName:    strings.TrimSpace(t.FileName),
	}
}

func toTarget(key string, tc TargetConfig) Target {
	return Target{
		Key:         key,
		FolderName:  tc.FolderName,
		FolderID:    tc.FolderID,
		SharedDrive: tc.SharedDrive,
		FileName:    tc.FileName,
	}
}

// SuggestAddTargetCommand returns the command to add a missing target
func SuggestAddTargetCommand(key string) string {
	return fmt.Sprintf(`marketing-export config add target --key %s --folder "Folder Name"`, key)
}

// SuggestAddCollaboratorCommand returns the command to add a missing collaborator
func SuggestAddCollaboratorCommand(key string) string {
	return fmt.Sprintf(`marketing-export config add collaborator --key %s --name "Name" --email "email@example.com"`, key)
}
