// Package secret stores the personal access token outside of config files.
package secret

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrNotFound is returned when no credential has been saved yet.
	// Callers treat it as the expected first-run state.
	ErrNotFound = errors.New("credential not found")

	// ErrUnavailable is returned when the backing store cannot be reached.
	ErrUnavailable = errors.New("credential store is not available")
)

// Store is a single-slot key-value secret store for the bearer credential.
type Store interface {
	Save(credential string) error
	Retrieve() (string, error)
	Delete() error
	Has() bool
}

// Backend names accepted by New.
const (
	BackendKeyring = "keyring"
	BackendFile    = "file"
)

// New returns the store for the named backend.
func New(backend string) (Store, error) {
	switch strings.ToLower(backend) {
	case "", BackendKeyring:
		return NewKeyring(), nil
	case BackendFile:
		return NewFile()
	default:
		return nil, fmt.Errorf("unknown credential store %q (must be keyring or file)", backend)
	}
}

func validate(credential string) error {
	if strings.TrimSpace(credential) == "" {
		return errors.New("credential cannot be empty")
	}
	return nil
}

// Memory keeps the credential in process memory. Used for tests and for
// one-shot commands that receive the token on the command line.
type Memory struct {
	mu    sync.RWMutex
	value string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Save(credential string) error {
	if err := validate(credential); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = credential
	return nil
}

func (m *Memory) Retrieve() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.value == "" {
		return "", ErrNotFound
	}
	return m.value, nil
}

func (m *Memory) Delete() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.value == "" {
		return ErrNotFound
	}
	m.value = ""
	return nil
}

func (m *Memory) Has() bool {
	_, err := m.Retrieve()
	return err == nil
}

var _ Store = (*Memory)(nil)
