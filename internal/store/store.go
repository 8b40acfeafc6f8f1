package store

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/text/encoding"

	"github.com/illarion/upm/internal/container"
	"github.com/illarion/upm/internal/crypto"
	"github.com/illarion/upm/internal/record"
)

// FileMode is the permission of container files written by Save
const FileMode os.FileMode = 0600

var (
	ErrIO            = errors.New("store i/o error")
	ErrAlreadyExists = errors.New("store already exists")
)

// Store is an open password store
type Store struct {
	path     string
	cipher   *crypto.Cipher
	revision int
	options  record.Options
	accounts map[string]*record.Account
	format   string
}

type openOptions struct {
	decode []container.Option
}

// Option configures Open and OpenWithKey
type Option func(*openOptions)

// WithLegacyCharset sets the text charset of version 2 containers
func WithLegacyCharset(enc encoding.Encoding) Option {
	return func(o *openOptions) {
		o.decode = append(o.decode, container.WithLegacyCharset(enc))
	}
}

// Create initializes an empty store bound to path with a fresh salt. Nothing
// is written until Save. An existing file at path is ErrAlreadyExists unless
// overwrite is set.
func Create(path string, password []byte, overwrite bool) (*Store, error) {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", ErrIO, err)
		}
	}

	c, err := crypto.NewCipherWithFreshSalt(crypto.NewKey(password))
	if err != nil {
		return nil, err
	}

	return &Store{
		path:     path,
		cipher:   c,
		accounts: make(map[string]*record.Account),
		format:   container.Formats.Latest().Name,
	}, nil
}

// Open loads the store at path with a password
func Open(path string, password []byte, opts ...Option) (*Store, error) {
	return OpenWithKey(path, crypto.NewKey(password), opts...)
}

// OpenWithKey loads the store at path with an already known key. Decode
// errors from the container package are returned unchanged so callers can
// match crypto.ErrInvalidPassword, container.ErrUnsupportedVersion and
// container.ErrNotAPasswordStore.
func OpenWithKey(path string, key *crypto.Key, opts ...Option) (*Store, error) {
	var o openOptions
	for _, opt := range opts {
		opt(&o)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	contents, err := container.Decode(data, key, o.decode...)
	if err != nil {
		return nil, err
	}

	s := &Store{
		path:     path,
		cipher:   contents.Cipher,
		revision: contents.Revision,
		options:  contents.Options,
		accounts: make(map[string]*record.Account, len(contents.Accounts)),
		format:   contents.Format,
	}
	for _, a := range contents.Accounts {
		s.accounts[a.Name] = a
	}
	return s, nil
}

// Put inserts or replaces the account with the same name
func (s *Store) Put(a *record.Account) {
	s.accounts[a.Name] = a.Clone()
}

// Get returns a copy of the named account
func (s *Store) Get(name string) (*record.Account, bool) {
	a, ok := s.accounts[name]
	if !ok {
		return nil, false
	}
	return a.Clone(), true
}

// Has reports whether an account with exactly this name exists
func (s *Store) Has(name string) bool {
	_, ok := s.accounts[name]
	return ok
}

// Delete removes the named account. Deleting a missing name is a no-op.
func (s *Store) Delete(name string) {
	if a, ok := s.accounts[name]; ok {
		a.Destroy()
		delete(s.accounts, name)
	}
}

// Names returns the account names sorted case-insensitively
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.accounts))
	for name := range s.accounts {
		names = append(names, name)
	}
	slices.SortFunc(names, record.CompareNames)
	return names
}

// Accounts returns copies of all accounts in Names order
func (s *Store) Accounts() []*record.Account {
	out := make([]*record.Account, 0, len(s.accounts))
	for _, name := range s.Names() {
		out = append(out, s.accounts[name].Clone())
	}
	return out
}

// Len returns the number of accounts
func (s *Store) Len() int {
	return len(s.accounts)
}

func (s *Store) Options() record.Options {
	return s.options
}

func (s *Store) SetOptions(o record.Options) {
	s.options = o
}

func (s *Store) Revision() int {
	return s.revision
}

// Path returns the file Save writes to
func (s *Store) Path() string {
	return s.path
}

// Key returns the password secret, reusable to open other containers
func (s *Store) Key() *crypto.Key {
	return s.cipher.Key()
}

func (s *Store) Salt() []byte {
	return s.cipher.Salt()
}

// Format names the container layout the store was loaded from. It becomes
// the newest format after the first Save.
func (s *Store) Format() string {
	return s.format
}

// RemoteCredentials returns the login and secret of the account named by
// the AuthEntry option
func (s *Store) RemoteCredentials() (login, secret []byte, ok bool) {
	if s.options.AuthEntry == "" {
		return nil, nil, false
	}
	a, ok := s.accounts[s.options.AuthEntry]
	if !ok {
		return nil, nil, false
	}
	return append([]byte(nil), a.Login...), append([]byte(nil), a.Secret...), true
}

// ChangePassword re-keys the store with a fresh salt. The revision is left
// alone; the next Save writes the container under the new password.
func (s *Store) ChangePassword(password []byte) error {
	c, err := crypto.NewCipherWithFreshSalt(crypto.NewKey(password))
	if err != nil {
		return err
	}
	s.cipher = c
	return nil
}

// Save increments the revision and writes the store. The revision only
// advances when the file was written.
func (s *Store) Save() error {
	next := s.revision + 1
	data, err := s.encode(next)
	if err != nil {
		return err
	}

	if err := WriteFile(s.path, data, FileMode); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	s.revision = next
	s.format = container.Formats.Latest().Name
	return nil
}

// Repoint changes the file Save writes to. Nothing is read or written.
func (s *Store) Repoint(path string) {
	s.path = path
}

// Fingerprint hashes the options and accounts, ignoring the revision and the
// salt. Two stores with equal fingerprints hold the same data.
func (s *Store) Fingerprint() [blake2b.Size256]byte {
	h, _ := blake2b.New256(nil)
	_ = s.options.Encode(h)
	for _, name := range s.Names() {
		_ = s.accounts[name].Encode(h)
	}

	var sum [blake2b.Size256]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

// Destroy clears account secrets and the key
func (s *Store) Destroy() {
	for _, a := range s.accounts {
		a.Destroy()
	}
	s.cipher.Key().Destroy()
}

func (s *Store) encode(revision int) ([]byte, error) {
	contents := &container.Contents{
		Revision: revision,
		Options:  s.options,
	}
	for _, name := range s.Names() {
		contents.Accounts = append(contents.Accounts, s.accounts[name])
	}

	data, err := container.Encode(contents, s.cipher)
	if err != nil {
		return nil, fmt.Errorf("failed to encode store: %w", err)
	}
	return data, nil
}
