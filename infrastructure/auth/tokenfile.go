package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
)

const (
	tokenFilePerms = 0o600
	tokenDirPerms  = 0o700
)

// tokenFile is the on-disk format of the installed-app token cache
type tokenFile struct {
	Token  *oauth2.Token `json:"token"`
	Scopes []string      `json:"scopes,omitempty"`
}

// loadToken reads a saved token. Returns (nil, nil, nil) if the file does not exist.
func loadToken(path string) (*oauth2.Token, []string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading token file %s: %w", path, err)
	}

	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, nil, fmt.Errorf("decoding token file %s: %w", path, err)
	}
	if tf.Token == nil {
		return nil, nil, fmt.Errorf("token file %s has no token", path)
	}
	return tf.Token, tf.Scopes, nil
}

// saveToken writes the token atomically with owner-only permissions
func saveToken(path string, tok *oauth2.Token, scopes []string) error {
	data, err := json.MarshalIndent(tokenFile{Token: tok, Scopes: scopes}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, tokenDirPerms); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	// Temp file in the same directory so the rename stays on one filesystem
	tmp, err := os.CreateTemp(dir, ".token-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, tokenFilePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("setting permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing token: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing token: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing token file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming token file: %w", err)
	}

	success = true
	return nil
}

// removeToken deletes the token file. A missing file is not an error.
func removeToken(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing token file: %w", err)
	}
	return nil
}
