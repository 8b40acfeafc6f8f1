package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"

	"github.com/illarion/upm/internal/crypto"
	"github.com/illarion/upm/internal/state"
	"github.com/illarion/upm/internal/store"
	"github.com/illarion/upm/internal/syncer"
	"github.com/illarion/upm/internal/transport"
)

const MinPasswordLength = 6

var (
	ErrNotInitialized   = errors.New("store not initialized")
	ErrAccountExists    = errors.New("account already exists")
	ErrAccountNotFound  = errors.New("account not found")
	ErrAccountInUse     = errors.New("account holds the remote credentials")
	ErrEmptyAccountName = errors.New("account name is empty")
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrNoState          = errors.New("installation state not available")
)

// UPM runs operations on the store at one path
type UPM struct {
	path          string
	state         *state.State
	logger        *zap.Logger
	legacyCharset encoding.Encoding
	httpTimeout   time.Duration
	syncInterval  time.Duration
	tempDir       string
	now           func() time.Time
}

// Option configures a UPM
type Option func(*UPM)

// WithState enables sync records and the keyring, both keyed by state
func WithState(s *state.State) Option {
	return func(u *UPM) { u.state = s }
}

func WithLogger(logger *zap.Logger) Option {
	return func(u *UPM) { u.logger = logger }
}

// WithLegacyCharset sets the charset version 2 containers are decoded with
func WithLegacyCharset(enc encoding.Encoding) Option {
	return func(u *UPM) { u.legacyCharset = enc }
}

func WithHTTPTimeout(d time.Duration) Option {
	return func(u *UPM) { u.httpTimeout = d }
}

// WithSyncInterval sets how long a sync stays fresh for SyncIfDue
func WithSyncInterval(d time.Duration) Option {
	return func(u *UPM) { u.syncInterval = d }
}

// WithTempDir sets where sync downloads are staged
func WithTempDir(dir string) Option {
	return func(u *UPM) { u.tempDir = dir }
}

func WithClock(now func() time.Time) Option {
	return func(u *UPM) { u.now = now }
}

// New creates a UPM for the store at path
func New(path string, opts ...Option) *UPM {
	u := &UPM{
		path:         path,
		logger:       zap.NewNop(),
		syncInterval: syncer.DefaultInterval,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Path returns the store path
func (u *UPM) Path() string {
	return u.path
}

// State returns the installation state, nil when not configured
func (u *UPM) State() *state.State {
	return u.state
}

// Exists reports whether a store file is present
func (u *UPM) Exists() bool {
	_, err := os.Stat(u.path)
	return err == nil
}

// Init creates and saves an empty store. An existing store is only replaced
// when overwrite is set.
func (u *UPM) Init(password []byte, overwrite bool) (*store.Store, error) {
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	st, err := store.Create(u.path, password, overwrite)
	if err != nil {
		return nil, err
	}
	if err := st.Save(); err != nil {
		st.Destroy()
		return nil, err
	}

	u.logger.Info("store created", zap.String("path", u.path))
	return st, nil
}

// Open loads the store with a password
func (u *UPM) Open(password []byte) (*store.Store, error) {
	return u.OpenWithKey(crypto.NewKey(password))
}

// OpenWithKey loads the store with a key
func (u *UPM) OpenWithKey(key *crypto.Key) (*store.Store, error) {
	if !u.Exists() {
		return nil, ErrNotInitialized
	}
	return store.OpenWithKey(u.path, key, u.storeOptions()...)
}

// OpenFile loads another container, e.g. to diff against. The key is
// cloned so destroying either store leaves the other usable.
func (u *UPM) OpenFile(path string, key *crypto.Key) (*store.Store, error) {
	return store.OpenWithKey(path, key.Clone(), u.storeOptions()...)
}

func (u *UPM) storeOptions() []store.Option {
	if u.legacyCharset == nil {
		return nil
	}
	return []store.Option{store.WithLegacyCharset(u.legacyCharset)}
}

// Transport builds the transport for the remote location of st, using the
// account named by the auth entry as credentials
func (u *UPM) Transport(st *store.Store) (syncer.Transport, error) {
	opts := st.Options()
	if !opts.SyncEnabled() {
		return nil, syncer.ErrNoRemote
	}

	cfg := transport.Config{
		Timeout: u.httpTimeout,
		Logger:  u.logger,
	}
	if login, secret, ok := st.RemoteCredentials(); ok {
		cfg.Username = string(login)
		cfg.Password = string(secret)
		crypto.ClearBytes(login)
		crypto.ClearBytes(secret)
	}

	return transport.ForLocation(opts.RemoteLocation, cfg)
}

// Sync reconciles st with its remote copy. When the result is
// AdoptedRemote, Result.Store replaces st and the caller destroys st.
func (u *UPM) Sync(ctx context.Context, st *store.Store, reauth syncer.Reauthenticator) (*syncer.Result, error) {
	t, err := u.Transport(st)
	if err != nil {
		return nil, err
	}
	return u.engine(t, reauth).Sync(ctx, st)
}

// SyncIfDue syncs st when a remote is configured and the last recorded sync
// is older than the sync interval. The boolean reports whether a sync ran.
func (u *UPM) SyncIfDue(ctx context.Context, st *store.Store, reauth syncer.Reauthenticator) (*syncer.Result, bool, error) {
	var last time.Time
	if u.state != nil {
		t, err := u.state.LastSyncTime(st.Path())
		if err != nil {
			return nil, false, err
		}
		last = t
	}

	if !syncer.Due(st.Options(), last, u.now(), u.syncInterval) {
		return nil, false, nil
	}

	res, err := u.Sync(ctx, st, reauth)
	return res, true, err
}

func (u *UPM) engine(t syncer.Transport, reauth syncer.Reauthenticator) *syncer.Engine {
	opts := []syncer.Option{
		syncer.WithLogger(u.logger),
		syncer.WithStoreOptions(u.storeOptions()...),
		syncer.WithClock(u.now),
	}
	if reauth != nil {
		opts = append(opts, syncer.WithReauthenticator(reauth))
	}
	if u.state != nil {
		opts = append(opts, syncer.WithRecorder(u.state))
	}
	if u.tempDir != "" {
		opts = append(opts, syncer.WithTempDir(u.tempDir))
	}
	return syncer.New(t, opts...)
}
