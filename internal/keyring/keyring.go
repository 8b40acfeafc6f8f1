// Package keyring caches store passwords in the OS keyring.
//
// Entries live under the "upm" service. The account name joins the
// installation id with the absolute store path, so two installations
// sharing a keyring never see each other's entries.
package keyring

import (
	"errors"
	"path/filepath"

	"github.com/zalando/go-keyring"
)

const serviceName = "upm"

// ErrNotFound is returned when no password is stored
var ErrNotFound = keyring.ErrNotFound

// Entry identifies one cached password
type Entry struct {
	VaultID   string
	StorePath string
}

func (e Entry) account() string {
	path := e.StorePath
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return e.VaultID + ":" + path
}

// SavePassword stores a password in the OS keyring
func SavePassword(e Entry, password []byte) error {
	return keyring.Set(serviceName, e.account(), string(password))
}

// GetPassword retrieves a password from the OS keyring
func GetPassword(e Entry) ([]byte, error) {
	password, err := keyring.Get(serviceName, e.account())
	if err != nil {
		return nil, err
	}
	return []byte(password), nil
}

// DeletePassword removes a password from the OS keyring. A missing entry is
// not an error.
func DeletePassword(e Entry) error {
	err := keyring.Delete(serviceName, e.account())
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// HasPassword checks if a password is stored in the keyring
func HasPassword(e Entry) bool {
	_, err := keyring.Get(serviceName, e.account())
	return err == nil
}
