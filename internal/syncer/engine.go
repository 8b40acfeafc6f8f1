package syncer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/illarion/upm/internal/container"
	"github.com/illarion/upm/internal/crypto"
	"github.com/illarion/upm/internal/store"
)

var (
	ErrNoRemote       = errors.New("no remote location configured")
	ErrNotAStore      = errors.New("remote file is not a password store")
	ErrSyncInProgress = errors.New("sync already in progress")
	ErrTransport      = errors.New("transport error")
	ErrRemoteNotFound = errors.New("remote file not found")
)

// Transport moves container bytes to and from the remote location.
// Fetch returns ErrRemoteNotFound when there is no remote copy.
type Transport interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
	Push(ctx context.Context, name string, data []byte) error
	Delete(ctx context.Context, name string) error
}

// Reauthenticator is asked for the password of a remote copy that the local
// key cannot open. Returning a nil key gives up.
type Reauthenticator func(ctx context.Context, location string) (*crypto.Key, error)

// Recorder persists the outcome of a finished sync
type Recorder interface {
	RecordSync(path string, rec Record) error
}

// Record is what gets persisted after a sync
type Record struct {
	Time           time.Time
	Outcome        Outcome
	LocalRevision  int
	RemoteRevision int
	Diverged       bool
}

// Result describes a finished sync
type Result struct {
	Outcome Outcome
	// Store is the store to keep using: the local one, or after
	// AdoptedRemote the remote copy bound to the local path.
	Store          *store.Store
	LocalRevision  int
	RemoteRevision int
	RemoteFound    bool
	// Diverged is set for InSync when both copies carry the same revision
	// but different contents.
	Diverged bool
	// Err is only used by SyncAsync
	Err error
}

// Engine runs syncs. One sync at a time per engine.
type Engine struct {
	transport Transport
	logger    *zap.Logger
	recorder  Recorder
	reauth    Reauthenticator
	storeOpts []store.Option
	tempDir   string
	now       func() time.Time

	running atomic.Bool
}

// Option configures an Engine
type Option func(*Engine)

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

func WithReauthenticator(fn Reauthenticator) Option {
	return func(e *Engine) { e.reauth = fn }
}

// WithStoreOptions passes options to the decoding of remote copies
func WithStoreOptions(opts ...store.Option) Option {
	return func(e *Engine) { e.storeOpts = append(e.storeOpts, opts...) }
}

// WithTempDir sets where downloads are staged. Defaults to os.TempDir.
func WithTempDir(dir string) Option {
	return func(e *Engine) { e.tempDir = dir }
}

// WithClock overrides the time source used for records
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an engine over t
func New(t Transport, opts ...Option) *Engine {
	e := &Engine{
		transport: t,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RemoteName is the name the remote copy of st is stored under
func RemoteName(st *store.Store) string {
	return filepath.Base(st.Path())
}

// Sync reconciles st with its remote copy.
//
// The context may be cancelled at any point. Up to the decision nothing
// local is touched, and a transport call that never returns is abandoned.
func (e *Engine) Sync(ctx context.Context, st *store.Store) (*Result, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, ErrSyncInProgress
	}
	defer e.running.Store(false)

	opts := st.Options()
	if !opts.SyncEnabled() {
		return nil, ErrNoRemote
	}

	name := RemoteName(st)
	log := e.logger.With(
		zap.String("remote", opts.RemoteLocation),
		zap.String("name", name),
	)

	data, err := e.fetch(ctx, name)
	found := true
	if errors.Is(err, ErrRemoteNotFound) {
		found = false
	} else if err != nil {
		log.Warn("failed to fetch remote copy", zap.Error(err))
		return nil, err
	}

	var remote *store.Store
	adopted := false
	defer func() {
		if remote != nil && !adopted {
			remote.Destroy()
		}
	}()
	if found {
		if !container.IsContainer(data) {
			return nil, ErrNotAStore
		}
		remote, err = e.openRemote(ctx, data, st.Key(), opts.RemoteLocation, log)
		if err != nil {
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{
		Store:         st,
		LocalRevision: st.Revision(),
		RemoteFound:   found,
	}
	if remote != nil {
		result.RemoteRevision = remote.Revision()
	}

	switch {
	case remote == nil || remote.Revision() < st.Revision():
		local, err := os.ReadFile(st.Path())
		if err != nil {
			return nil, fmt.Errorf("%w: %w", store.ErrIO, err)
		}
		if err := e.push(ctx, name, local); err != nil {
			log.Warn("failed to upload local copy", zap.Error(err))
			return nil, err
		}
		result.Outcome = UploadedLocal

	case remote.Revision() > st.Revision():
		if err := store.WriteFile(st.Path(), data, store.FileMode); err != nil {
			return nil, fmt.Errorf("%w: %w", store.ErrIO, err)
		}
		remote.Repoint(st.Path())
		adopted = true
		result.Store = remote
		result.Outcome = AdoptedRemote

	default:
		result.Outcome = InSync
		result.Diverged = remote.Fingerprint() != st.Fingerprint()
		if result.Diverged {
			log.Warn("local and remote copies differ at the same revision",
				zap.Int("revision", st.Revision()))
		}
	}

	log.Info("sync finished",
		zap.Stringer("outcome", result.Outcome),
		zap.Int("local_revision", result.LocalRevision),
		zap.Int("remote_revision", result.RemoteRevision),
		zap.Bool("remote_found", found),
	)
	e.record(st.Path(), result, log)
	return result, nil
}

// SyncAsync runs Sync in the background and delivers the result on the
// returned channel, which is closed afterwards.
func (e *Engine) SyncAsync(ctx context.Context, st *store.Store) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		res, err := e.Sync(ctx, st)
		if res == nil {
			res = &Result{}
		}
		res.Err = err
		ch <- *res
	}()
	return ch
}

// InProgress reports whether a sync is running
func (e *Engine) InProgress() bool {
	return e.running.Load()
}

func (e *Engine) fetch(ctx context.Context, name string) ([]byte, error) {
	return await(ctx, func() ([]byte, error) {
		return e.transport.Fetch(ctx, name)
	})
}

func (e *Engine) push(ctx context.Context, name string, data []byte) error {
	_, err := await(ctx, func() (struct{}, error) {
		return struct{}{}, e.transport.Push(ctx, name, data)
	})
	return err
}

type reply[T any] struct {
	value T
	err   error
}

// await runs fn on its own goroutine so a cancelled context returns at once
// even when the transport ignores it. Errors other than ErrRemoteNotFound
// are wrapped in ErrTransport.
func await[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	done := make(chan reply[T], 1)
	go func() {
		v, err := fn()
		done <- reply[T]{value: v, err: err}
	}()

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case r := <-done:
		if r.err == nil || errors.Is(r.err, ErrRemoteNotFound) {
			return r.value, r.err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		return zero, fmt.Errorf("%w: %w", ErrTransport, r.err)
	}
}

// openRemote stages the downloaded bytes in a temp file and opens them with
// key, asking for another password once if key does not fit.
func (e *Engine) openRemote(ctx context.Context, data []byte, key *crypto.Key, location string, log *zap.Logger) (*store.Store, error) {
	tmp, err := os.CreateTemp(e.tempDir, "upm-sync-*")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrIO, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	_, err = tmp.Write(data)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrIO, err)
	}

	remote, err := store.OpenWithKey(tmpPath, key.Clone(), e.storeOpts...)
	if !errors.Is(err, crypto.ErrInvalidPassword) || e.reauth == nil {
		return remote, err
	}

	log.Info("remote copy uses a different password")
	other, rerr := e.reauth(ctx, location)
	if rerr != nil {
		return nil, rerr
	}
	if other == nil {
		return nil, err
	}
	return store.OpenWithKey(tmpPath, other, e.storeOpts...)
}

func (e *Engine) record(path string, result *Result, log *zap.Logger) {
	if e.recorder == nil {
		return
	}
	rec := Record{
		Time:           e.now(),
		Outcome:        result.Outcome,
		LocalRevision:  result.LocalRevision,
		RemoteRevision: result.RemoteRevision,
		Diverged:       result.Diverged,
	}
	if err := e.recorder.RecordSync(path, rec); err != nil {
		log.Warn("failed to record sync", zap.Error(err))
	}
}
