// Package secrets implements the get/set/delete contract for the
// remote provider's API key. The production backend stores the key in
// the OS keychain so it never touches the JSON settings file in
// cleartext.
package secrets

import (
	"errors"

	"github.com/zalando/go-keyring"
)

const service = "dictatord"

// ErrNotFound is returned by Get when no key is stored for account.
var ErrNotFound = errors.New("secrets: not found")

// Store is the get/set/delete contract for a single named credential
// store keyed by account (e.g. "groq").
type Store interface {
	Get(account string) (string, error)
	Set(account, value string) error
	Delete(account string) error
}

// Keyring is the OS-keychain-backed Store.
type Keyring struct{}

// NewKeyring constructs a Keyring store.
func NewKeyring() Keyring { return Keyring{} }

func (Keyring) Get(account string) (string, error) {
	value, err := keyring.Get(service, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return value, nil
}

func (Keyring) Set(account, value string) error {
	return keyring.Set(service, account, value)
}

func (Keyring) Delete(account string) error {
	err := keyring.Delete(service, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// Fake is an in-memory Store for tests.
type Fake struct {
	values map[string]string
}

// NewFake constructs an empty Fake store.
func NewFake() *Fake {
	return &Fake{values: make(map[string]string)}
}

func (f *Fake) Get(account string) (string, error) {
	v, ok := f.values[account]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (f *Fake) Set(account, value string) error {
	f.values[account] = value
	return nil
}

func (f *Fake) Delete(account string) error {
	delete(f.values, account)
	return nil
}

// RemoteAdapter adapts a Store to the three-value Get signature the
// remote transcription provider consumes (value, found, error) so the
// provider package never imports this one directly.
type RemoteAdapter struct {
	Store Store
}

// Get reports the stored secret, whether it was found, and any
// non-not-found error encountered reading it.
func (a RemoteAdapter) Get(account string) (string, bool, error) {
	v, err := a.Store.Get(account)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// IsConfigured reports whether a non-empty secret is stored for
// account, so callers never read the raw key just to check presence.
func IsConfigured(s Store, account string) bool {
	v, err := s.Get(account)
	return err == nil && v != ""
}
