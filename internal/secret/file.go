package secret

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// File stores the credential in a 0600 file under the user config
// directory. It is the fallback for headless machines without a keyring.
type File struct {
	path string
	mu   sync.Mutex
}

// NewFile creates a file store at ~/.config/vitals/credential.
func NewFile() (*File, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, err
	}
	return NewFileWithPath(filepath.Join(configDir, "vitals", "credential")), nil
}

// NewFileWithPath creates a file store at the given path (for testing).
func NewFileWithPath(path string) *File {
	return &File{path: path}
}

// Path returns the location of the credential file.
func (f *File) Path() string {
	return f.path
}

func (f *File) Save(credential string) error {
	if err := validate(credential); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}

	// Write to a temp file and rename so a crash never leaves a torn token.
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strings.TrimSpace(credential)), 0600); err != nil {
		return fmt.Errorf("failed to write credential: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write credential: %w", err)
	}
	return nil
}

func (f *File) Retrieve() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	value := strings.TrimSpace(string(data))
	if value == "" {
		return "", ErrNotFound
	}
	return value, nil
}

func (f *File) Delete() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}

func (f *File) Has() bool {
	_, err := f.Retrieve()
	return err == nil
}

var _ Store = (*File)(nil)
