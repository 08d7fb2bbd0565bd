package secret

import (
	"errors"
	"fmt"

	"github.com/spiffcs/vitals/internal/constants"
	"github.com/zalando/go-keyring"
)

// Keyring stores the credential in the OS keyring (Keychain, Secret
// Service, Windows Credential Manager).
type Keyring struct {
	service string
	user    string
}

// NewKeyring returns a keyring store using the application's service name.
func NewKeyring() *Keyring {
	return &Keyring{
		service: constants.KeyringService,
		user:    constants.KeyringUser,
	}
}

func (k *Keyring) Save(credential string) error {
	if err := validate(credential); err != nil {
		return err
	}
	if err := keyring.Set(k.service, k.user, credential); err != nil {
		return fmt.Errorf("failed to store credential in keyring: %w", err)
	}
	return nil
}

func (k *Keyring) Retrieve() (string, error) {
	value, err := keyring.Get(k.service, k.user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return value, nil
}

func (k *Keyring) Delete() error {
	if err := keyring.Delete(k.service, k.user); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete credential from keyring: %w", err)
	}
	return nil
}

func (k *Keyring) Has() bool {
	_, err := k.Retrieve()
	return err == nil
}

var _ Store = (*Keyring)(nil)
