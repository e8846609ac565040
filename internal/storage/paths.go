package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Root manages the on-disk media tree: one directory per account handle,
// containing the four classifier buckets. Only relative paths are persisted
// in the store, so the whole tree can be relocated by changing the root.
type Root struct {
	base string
}

// NewRoot returns a Root rooted at base, creating it if needed.
func NewRoot(base string) (*Root, error) {
	if base == "" {
		return nil, fmt.Errorf("storage root is empty")
	}
	if err := os.MkdirAll(base, 0700); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Root{base: base}, nil
}

// Base returns the root directory.
func (r *Root) Base() string {
	return r.base
}

// AccountDir returns the media directory for an account handle.
func (r *Root) AccountDir(handle string) string {
	return filepath.Join(r.base, handle)
}

// Resolve turns a persisted relative media path into an absolute one.
// Paths escaping the account directory are rejected.
func (r *Root) Resolve(handle, relPath string) (string, error) {
	if err := validateHandle(handle); err != nil {
		return "", err
	}
	clean := filepath.Clean(relPath)
	if clean == "" || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid media path %q", relPath)
	}
	return filepath.Join(r.AccountDir(handle), clean), nil
}

// RemoveAccount deletes an account's entire media directory. Called by the
// deletion flow after the store cascade; the store itself never touches disk.
func (r *Root) RemoveAccount(handle string) error {
	if err := validateHandle(handle); err != nil {
		return err
	}
	return os.RemoveAll(r.AccountDir(handle))
}

func validateHandle(handle string) error {
	if handle == "" || handle == "." || handle == ".." || strings.ContainsAny(handle, `/\`) {
		return fmt.Errorf("invalid account handle %q", handle)
	}
	return nil
}
