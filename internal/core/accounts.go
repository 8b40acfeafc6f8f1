package core

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/illarion/upm/internal/record"
	"github.com/illarion/upm/internal/store"
)

// ValidatePassword enforces the minimum password length
func ValidatePassword(password []byte) error {
	if utf8.RuneCount(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

// AddAccount adds a new account and saves st
func (u *UPM) AddAccount(st *store.Store, a *record.Account) error {
	if a.Name == "" {
		return ErrEmptyAccountName
	}
	if st.Has(a.Name) {
		return fmt.Errorf("%w: %s", ErrAccountExists, a.Name)
	}

	st.Put(a)
	if err := st.Save(); err != nil {
		st.Delete(a.Name)
		return err
	}

	u.logger.Debug("account added", zap.String("account", a.Name))
	return nil
}

// UpdateAccount replaces the account called name with a. A different
// a.Name renames the account; the new name must be free. A renamed auth
// entry account stays the auth entry.
func (u *UPM) UpdateAccount(st *store.Store, name string, a *record.Account) error {
	if a.Name == "" {
		return ErrEmptyAccountName
	}
	old, ok := st.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, name)
	}
	defer old.Destroy()

	renamed := a.Name != name
	if renamed && st.Has(a.Name) {
		return fmt.Errorf("%w: %s", ErrAccountExists, a.Name)
	}

	opts := st.Options()
	st.Delete(name)
	st.Put(a)
	if renamed && opts.AuthEntry == name {
		moved := opts
		moved.AuthEntry = a.Name
		st.SetOptions(moved)
	}

	if err := st.Save(); err != nil {
		st.Delete(a.Name)
		st.Put(old)
		st.SetOptions(opts)
		return err
	}

	u.logger.Debug("account updated", zap.String("account", name), zap.Bool("renamed", renamed))
	return nil
}

// DeleteAccount removes the named accounts and saves st once. Nothing is
// removed unless every name exists, and the account holding the remote
// credentials cannot be removed while it is the auth entry.
func (u *UPM) DeleteAccount(st *store.Store, names ...string) error {
	if len(names) == 0 {
		return nil
	}

	removed := make([]*record.Account, 0, len(names))
	defer func() {
		for _, a := range removed {
			a.Destroy()
		}
	}()

	auth := st.Options().AuthEntry
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		old, ok := st.Get(name)
		if !ok {
			return fmt.Errorf("%w: %s", ErrAccountNotFound, name)
		}
		removed = append(removed, old)
		if auth == name {
			return fmt.Errorf("%w: %s", ErrAccountInUse, name)
		}
	}

	for _, a := range removed {
		st.Delete(a.Name)
	}
	if err := st.Save(); err != nil {
		for _, a := range removed {
			st.Put(a)
		}
		return err
	}

	u.logger.Debug("accounts deleted", zap.Strings("accounts", names))
	return nil
}

// SetRemote sets the remote location and the account whose login and
// secret authenticate against it. An empty location disables sync; an
// empty authEntry means no credentials.
func (u *UPM) SetRemote(st *store.Store, location, authEntry string) error {
	location = strings.TrimSpace(location)
	if authEntry != "" && !st.Has(authEntry) {
		return fmt.Errorf("auth entry: %w: %s", ErrAccountNotFound, authEntry)
	}

	old := st.Options()
	st.SetOptions(record.Options{RemoteLocation: location, AuthEntry: authEntry})
	if err := st.Save(); err != nil {
		st.SetOptions(old)
		return err
	}
	return nil
}

// ChangePassword re-keys st with a new password and saves it. A password
// cached in the keyring is replaced.
func (u *UPM) ChangePassword(st *store.Store, password []byte) error {
	if err := ValidatePassword(password); err != nil {
		return err
	}
	if err := st.ChangePassword(password); err != nil {
		return err
	}
	if err := st.Save(); err != nil {
		return err
	}

	if u.HasRememberedPassword() {
		if err := u.rememberPassword(password); err != nil {
			u.logger.Warn("failed to update keyring", zap.Error(err))
			return fmt.Errorf("password changed but keyring update failed: %w", err)
		}
	}

	u.logger.Info("password changed", zap.String("path", u.path))
	return nil
}
