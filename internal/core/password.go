package core

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/illarion/upm/internal/config"
	"github.com/illarion/upm/internal/crypto"
	"github.com/illarion/upm/internal/keyring"
)

// ReadPassword reads a password from the terminal without echoing. The
// prompt goes to stderr so stdout stays clean for command output.
func ReadPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	return password, nil
}

// ReadPasswordConfirm reads a new password twice and ensures they match and
// are long enough
func ReadPasswordConfirm() ([]byte, error) {
	password1, err := ReadPassword("Enter password: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(password1)

	if err := ValidatePassword(password1); err != nil {
		return nil, err
	}

	password2, err := ReadPassword("Confirm password: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(password2)

	if !crypto.ConstantTimeCompare(password1, password2) {
		return nil, ErrPasswordMismatch
	}

	return append([]byte(nil), password1...), nil
}

// Password finds the store password: UPM_PASSWORD first, then the keyring,
// then a prompt. The caller clears the returned bytes.
func (u *UPM) Password(prompt string) ([]byte, error) {
	if password := config.PasswordFromEnv(); password != nil {
		return password, nil
	}

	if password, err := u.rememberedPassword(); err == nil {
		return password, nil
	} else if !errors.Is(err, keyring.ErrNotFound) && !errors.Is(err, ErrNoState) {
		u.logger.Debug("keyring lookup failed", zap.Error(err))
	}

	return ReadPassword(prompt)
}

// KeyringEntry identifies the keyring entry of this store
func (u *UPM) KeyringEntry() (keyring.Entry, error) {
	if u.state == nil {
		return keyring.Entry{}, ErrNoState
	}
	id, err := u.state.GetOrCreateVaultID()
	if err != nil {
		return keyring.Entry{}, err
	}
	return keyring.Entry{VaultID: id, StorePath: u.path}, nil
}

// RememberPassword verifies password against the store and caches it in
// the OS keyring
func (u *UPM) RememberPassword(password []byte) error {
	st, err := u.Open(password)
	if err != nil {
		return err
	}
	st.Destroy()
	return u.rememberPassword(password)
}

func (u *UPM) rememberPassword(password []byte) error {
	entry, err := u.KeyringEntry()
	if err != nil {
		return err
	}
	if err := keyring.SavePassword(entry, password); err != nil {
		return fmt.Errorf("failed to save to keyring: %w", err)
	}
	return nil
}

func (u *UPM) rememberedPassword() ([]byte, error) {
	entry, err := u.KeyringEntry()
	if err != nil {
		return nil, err
	}
	return keyring.GetPassword(entry)
}

// ForgetPassword removes the cached password
func (u *UPM) ForgetPassword() error {
	entry, err := u.KeyringEntry()
	if err != nil {
		return err
	}
	return keyring.DeletePassword(entry)
}

// HasRememberedPassword reports whether the keyring holds a password
func (u *UPM) HasRememberedPassword() bool {
	entry, err := u.KeyringEntry()
	if err != nil {
		return false
	}
	return keyring.HasPassword(entry)
}
