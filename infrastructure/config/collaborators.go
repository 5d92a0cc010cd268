package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"marketing-export/domain/distribution"
)

// ErrAmbiguousCollaborator is returned when a query matches more than one collaborator
var ErrAmbiguousCollaborator = errors.New("ambiguous collaborator")

// CollaboratorLookup resolves share queries and named targets from config
type CollaboratorLookup struct {
	config *Config
}

// NewCollaboratorLookup creates a new collaborator lookup from config
func NewCollaboratorLookup(cfg *Config) *CollaboratorLookup {
	return &CollaboratorLookup{config: cfg}
}

// LookupCollaborator finds grants matching the query (key, first name,
// last name, full name, or address). Returns all matches; caller should
// handle ambiguity.
func (l *CollaboratorLookup) LookupCollaborator(query string) ([]distribution.Grant, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, ErrCollaboratorNotFound
	}

	keys := make([]string, 0, len(l.config.Collaborators))
	for key := range l.config.Collaborators {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var matches []distribution.Grant
	for _, key := range keys {
		cc := l.config.Collaborators[key]
		nameLower := strings.ToLower(cc.Name)
		nameParts := strings.Fields(nameLower)

		var firstName, lastName string
		if len(nameParts) > 0 {
			firstName = nameParts[0]
		}
		if len(nameParts) > 1 {
			lastName = nameParts[len(nameParts)-1]
		}

		if strings.ToLower(key) == query || firstName == query || lastName == query ||
			nameLower == query || strings.ToLower(cc.Address) == query {
			role, err := parseRole(cc.Role)
			if err != nil {
				return nil, fmt.Errorf("collaborator %q: %w", key, err)
			}
			matches = append(matches, distribution.Grant{EmailAddress: cc.Address, Role: role})
		}
	}

	if len(matches) == 0 {
		return nil, ErrCollaboratorNotFound
	}

	return matches, nil
}

// LookupGrants resolves multiple queries. Queries may be comma-separated.
// A well-formed address that is not configured is granted reader access.
func (l *CollaboratorLookup) LookupGrants(queries []string) ([]distribution.Grant, error) {
	var grants []distribution.Grant
	seen := make(map[string]bool)

	for _, q := range queries {
		for _, query := range strings.Split(q, ",") {
			query = strings.TrimSpace(query)
			if query == "" {
				continue
			}

			matches, err := l.LookupCollaborator(query)
			if errors.Is(err, ErrCollaboratorNotFound) && isValidEmail(query) {
				matches, err = []distribution.Grant{{EmailAddress: query, Role: distribution.RoleReader}}, nil
			}
			if err != nil {
				return nil, fmt.Errorf("collaborator %q: %w", query, err)
			}

			if len(matches) > 1 {
				addrs := make([]string, len(matches))
				for i, m := range matches {
					addrs[i] = m.EmailAddress
				}
				return nil, fmt.Errorf("%w: %q matches %s - use a key or full name to disambiguate",
					ErrAmbiguousCollaborator, query, strings.Join(addrs, ", "))
			}

			addr := strings.ToLower(matches[0].EmailAddress)
			if !seen[addr] {
				seen[addr] = true
				grants = append(grants, matches[0])
			}
		}
	}

	return grants, nil
}

// LookupTarget returns the named upload target
func (l *CollaboratorLookup) LookupTarget(key string) (TargetConfig, error) {
	key = normalizeKey(key)
	if tc, ok := l.config.Targets[key]; ok {
		return tc, nil
	}
	return TargetConfig{}, fmt.Errorf("%w: %q", ErrTargetNotFound, key)
}

func parseRole(role string) (distribution.Role, error) {
	switch distribution.Role(strings.ToLower(strings.TrimSpace(role))) {
	case "", distribution.RoleReader:
		return distribution.RoleReader, nil
	case distribution.RoleCommenter:
		return distribution.RoleCommenter, nil
	case distribution.RoleWriter:
		return distribution.RoleWriter, nil
	default:
		return "", fmt.Errorf("%w: %q (want reader, commenter or writer)", ErrInvalidRole, role)
	}
}

func roleOrDefault(role string) string {
	r, err := parseRole(role)
	if err != nil {
		return role
	}
	return string(r)
}
