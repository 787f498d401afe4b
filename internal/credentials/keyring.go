package credentials

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// Service is the keyring service name used for bslocal entries.
	Service = "bslocal"
	// AccessKeyUser is the account name the access key is stored under.
	AccessKeyUser = "access_key"
)

var (
	// ErrNotFound is returned when no access key is stored.
	ErrNotFound = errors.New("access key not found in keyring")
	// ErrUnavailable is returned when the keyring service cannot be reached.
	ErrUnavailable = errors.New("keyring unavailable")
)

// Store reads and writes the access key entry.
type Store struct {
	service string
	user    string
}

// NewStore returns a store bound to the default service and account.
func NewStore() Store {
	return Store{service: Service, user: AccessKeyUser}
}

// AccessKey returns the stored access key.
func (s Store) AccessKey() (string, error) {
	value, err := keyring.Get(s.service, s.user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", ErrNotFound
	}
	return value, nil
}

// SetAccessKey stores key, replacing any previous entry.
func (s Store) SetAccessKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("access key is empty")
	}
	if err := keyring.Set(s.service, s.user, key); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// DeleteAccessKey removes the stored key. Deleting a missing entry is not an
// error.
func (s Store) DeleteAccessKey() error {
	err := keyring.Delete(s.service, s.user)
	if err == nil || errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// Lookup returns the stored key, or "" when none is stored or the keyring
// cannot be reached.
func (s Store) Lookup() string {
	key, err := s.AccessKey()
	if err != nil {
		return ""
	}
	return key
}
