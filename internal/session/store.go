package session

import (
	"fmt"
	"os"
	"path/filepath"
)

// credentialDirMode restricts credential directories to the service user.
const credentialDirMode = 0700

// Store maps session identifiers to filesystem locations holding the
// persisted authentication material the external client manages.
// Presence of a session's directory is the source of truth for "this
// session was provisioned before" and therefore for reconnect
// eligibility. The store never interprets the directory contents.
type Store struct {
	root string
}

// NewStore creates a credential store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{root: dir}
}

// Root returns the store's root directory.
func (s *Store) Root() string { return s.root }

// PathFor returns the credential directory for a session id.
// Returns ErrInvalidSession for ids that could escape the root; reconnect
// accepts caller-supplied ids, so this is a request-input boundary.
func (s *Store) PathFor(id string) (string, error) {
	if !validID(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSession, id)
	}
	return filepath.Join(s.root, id), nil
}

// Exists reports whether a credential directory exists for the session.
func (s *Store) Exists(id string) bool {
	path, err := s.PathFor(id)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// EnsureCreated creates the credential directory (and the store root) for
// a new session.
func (s *Store) EnsureCreated(id string) error {
	path, err := s.PathFor(id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(path, credentialDirMode); err != nil {
		return fmt.Errorf("creating credential directory: %w", err)
	}
	return nil
}

// validID accepts only ids that are safe to use as a directory name
// under the store root. Generated tokens are lowercase hex, but reconnect
// ids arrive from request bodies.
func validID(id string) bool {
	if id == "" || len(id) > 128 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}
