package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gokeyring "github.com/zalando/go-keyring"

	"github.com/illarion/upm/internal/config"
	"github.com/illarion/upm/internal/crypto"
	"github.com/illarion/upm/internal/record"
	"github.com/illarion/upm/internal/state"
	"github.com/illarion/upm/internal/store"
	"github.com/illarion/upm/internal/syncer"
	"github.com/illarion/upm/internal/transport"
)

const testPassword = "correct horse"

func newTestUPM(t *testing.T, dir string, opts ...Option) *UPM {
	t.Helper()
	return New(filepath.Join(dir, "store.upm"), opts...)
}

func initStore(t *testing.T, u *UPM) *store.Store {
	t.Helper()
	st, err := u.Init([]byte(testPassword), false)
	require.NoError(t, err)
	t.Cleanup(st.Destroy)
	return st
}

func openState(t *testing.T) *state.State {
	t.Helper()
	s, err := state.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func account(name string) *record.Account {
	return &record.Account{
		Name:   name,
		Login:  []byte(name + "-user"),
		Secret: []byte(name + "-secret"),
	}
}

func TestInitAndOpen(t *testing.T) {
	u := newTestUPM(t, t.TempDir())

	_, err := u.Open([]byte(testPassword))
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = u.Init([]byte("short"), false)
	assert.ErrorIs(t, err, ErrPasswordTooShort)
	assert.False(t, u.Exists())

	st := initStore(t, u)
	assert.Equal(t, 1, st.Revision())
	assert.True(t, u.Exists())

	_, err = u.Init([]byte(testPassword), false)
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	_, err = u.Open([]byte("wrong password"))
	assert.ErrorIs(t, err, crypto.ErrInvalidPassword)

	reopened, err := u.Open([]byte(testPassword))
	require.NoError(t, err)
	defer reopened.Destroy()
	assert.Equal(t, 1, reopened.Revision())
	assert.Zero(t, reopened.Len())

	replaced, err := u.Init([]byte("another password"), true)
	require.NoError(t, err)
	defer replaced.Destroy()
	assert.Equal(t, 1, replaced.Revision())
}

func TestValidatePasswordCountsCharacters(t *testing.T) {
	assert.ErrorIs(t, ValidatePassword([]byte("12345")), ErrPasswordTooShort)
	assert.NoError(t, ValidatePassword([]byte("123456")))
	// five characters, ten bytes
	assert.ErrorIs(t, ValidatePassword([]byte("ééééé")), ErrPasswordTooShort)
}

func TestAddAccount(t *testing.T) {
	u := newTestUPM(t, t.TempDir())
	st := initStore(t, u)

	require.NoError(t, u.AddAccount(st, account("bank")))
	assert.Equal(t, 2, st.Revision())

	err := u.AddAccount(st, account("bank"))
	assert.ErrorIs(t, err, ErrAccountExists)
	assert.Equal(t, 2, st.Revision())

	assert.ErrorIs(t, u.AddAccount(st, &record.Account{}), ErrEmptyAccountName)

	reopened, err := u.Open([]byte(testPassword))
	require.NoError(t, err)
	defer reopened.Destroy()
	got, ok := reopened.Get("bank")
	require.True(t, ok)
	assert.Equal(t, []byte("bank-secret"), got.Secret)
}

func TestUpdateAccount(t *testing.T) {
	u := newTestUPM(t, t.TempDir())
	st := initStore(t, u)
	require.NoError(t, u.AddAccount(st, account("bank")))
	require.NoError(t, u.AddAccount(st, account("mail")))
	require.NoError(t, u.SetRemote(st, "https://example.com/upm/", "bank"))

	t.Run("in place", func(t *testing.T) {
		a := account("mail")
		a.Notes = []byte("new notes")
		require.NoError(t, u.UpdateAccount(st, "mail", a))
		got, _ := st.Get("mail")
		assert.Equal(t, []byte("new notes"), got.Notes)
	})

	t.Run("rename clash", func(t *testing.T) {
		err := u.UpdateAccount(st, "mail", account("bank"))
		assert.ErrorIs(t, err, ErrAccountExists)
		assert.True(t, st.Has("mail"))
	})

	t.Run("missing", func(t *testing.T) {
		err := u.UpdateAccount(st, "nope", account("nope"))
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})

	t.Run("rename auth entry", func(t *testing.T) {
		require.NoError(t, u.UpdateAccount(st, "bank", account("Bank")))
		assert.False(t, st.Has("bank"))
		assert.True(t, st.Has("Bank"))
		assert.Equal(t, "Bank", st.Options().AuthEntry)
	})
}

func TestDeleteAccount(t *testing.T) {
	u := newTestUPM(t, t.TempDir())
	st := initStore(t, u)
	require.NoError(t, u.AddAccount(st, account("bank")))
	require.NoError(t, u.AddAccount(st, account("webdav")))
	require.NoError(t, u.SetRemote(st, "https://example.com/upm/", "webdav"))

	assert.ErrorIs(t, u.DeleteAccount(st, "nope"), ErrAccountNotFound)
	assert.ErrorIs(t, u.DeleteAccount(st, "webdav"), ErrAccountInUse)

	require.NoError(t, u.DeleteAccount(st, "bank"))
	assert.False(t, st.Has("bank"))
	assert.Equal(t, []string{"webdav"}, st.Names())
}

func TestDeleteSeveralAccountsSavesOnce(t *testing.T) {
	u := newTestUPM(t, t.TempDir())
	st := initStore(t, u)
	for _, name := range []string{"a", "b", "c", "webdav"} {
		require.NoError(t, u.AddAccount(st, account(name)))
	}
	require.NoError(t, u.SetRemote(st, "https://example.com/upm/", "webdav"))
	rev := st.Revision()

	assert.ErrorIs(t, u.DeleteAccount(st, "a", "nope"), ErrAccountNotFound)
	assert.ErrorIs(t, u.DeleteAccount(st, "a", "webdav"), ErrAccountInUse)
	assert.Equal(t, []string{"a", "b", "c", "webdav"}, st.Names())
	assert.Equal(t, rev, st.Revision())

	require.NoError(t, u.DeleteAccount(st, "a", "b", "a"))
	assert.Equal(t, []string{"c", "webdav"}, st.Names())
	assert.Equal(t, rev+1, st.Revision())

	reopened, err := u.Open([]byte(testPassword))
	require.NoError(t, err)
	defer reopened.Destroy()
	assert.Equal(t, []string{"c", "webdav"}, reopened.Names())
}

func TestSetRemote(t *testing.T) {
	u := newTestUPM(t, t.TempDir())
	st := initStore(t, u)

	err := u.SetRemote(st, "https://example.com/upm/", "webdav")
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.False(t, st.Options().SyncEnabled())

	require.NoError(t, u.AddAccount(st, account("webdav")))
	require.NoError(t, u.SetRemote(st, "  https://example.com/upm/  ", "webdav"))
	assert.Equal(t, record.Options{RemoteLocation: "https://example.com/upm/", AuthEntry: "webdav"}, st.Options())

	require.NoError(t, u.SetRemote(st, "", ""))
	assert.False(t, st.Options().SyncEnabled())
}

func TestFailedSaveRollsBack(t *testing.T) {
	dir := t.TempDir()
	u := newTestUPM(t, dir)
	st := initStore(t, u)
	require.NoError(t, u.AddAccount(st, account("bank")))

	st.Repoint(filepath.Join(dir, "missing", "store.upm"))

	assert.ErrorIs(t, u.AddAccount(st, account("mail")), store.ErrIO)
	assert.False(t, st.Has("mail"))

	assert.ErrorIs(t, u.DeleteAccount(st, "bank"), store.ErrIO)
	assert.True(t, st.Has("bank"))

	assert.ErrorIs(t, u.UpdateAccount(st, "bank", account("renamed")), store.ErrIO)
	assert.True(t, st.Has("bank"))
	assert.False(t, st.Has("renamed"))

	assert.ErrorIs(t, u.SetRemote(st, "https://example.com/", ""), store.ErrIO)
	assert.False(t, st.Options().SyncEnabled())

	assert.Equal(t, 2, st.Revision())
}

func TestChangePassword(t *testing.T) {
	gokeyring.MockInit()

	u := newTestUPM(t, t.TempDir(), WithState(openState(t)))
	st := initStore(t, u)
	require.NoError(t, u.RememberPassword([]byte(testPassword)))

	assert.ErrorIs(t, u.ChangePassword(st, []byte("tiny")), ErrPasswordTooShort)

	require.NoError(t, u.ChangePassword(st, []byte("new password")))
	assert.Equal(t, 2, st.Revision())

	_, err := u.Open([]byte(testPassword))
	assert.ErrorIs(t, err, crypto.ErrInvalidPassword)

	reopened, err := u.Open([]byte("new password"))
	require.NoError(t, err)
	reopened.Destroy()

	t.Setenv(config.PasswordEnv, "")
	password, err := u.Password("unused: ")
	require.NoError(t, err)
	assert.Equal(t, []byte("new password"), password)
}

func TestPasswordSources(t *testing.T) {
	gokeyring.MockInit()

	u := newTestUPM(t, t.TempDir(), WithState(openState(t)))
	initStore(t, u)

	t.Setenv(config.PasswordEnv, "from env")
	password, err := u.Password("unused: ")
	require.NoError(t, err)
	assert.Equal(t, []byte("from env"), password)

	t.Setenv(config.PasswordEnv, "")
	assert.False(t, u.HasRememberedPassword())
	require.NoError(t, u.RememberPassword([]byte(testPassword)))
	assert.True(t, u.HasRememberedPassword())

	password, err = u.Password("unused: ")
	require.NoError(t, err)
	assert.Equal(t, []byte(testPassword), password)

	require.NoError(t, u.ForgetPassword())
	assert.False(t, u.HasRememberedPassword())
	require.NoError(t, u.ForgetPassword())
}

func TestRememberPasswordVerifies(t *testing.T) {
	gokeyring.MockInit()

	u := newTestUPM(t, t.TempDir(), WithState(openState(t)))
	initStore(t, u)

	assert.ErrorIs(t, u.RememberPassword([]byte("wrong password")), crypto.ErrInvalidPassword)
	assert.False(t, u.HasRememberedPassword())
}

func TestKeyringNeedsState(t *testing.T) {
	u := newTestUPM(t, t.TempDir())

	_, err := u.KeyringEntry()
	assert.ErrorIs(t, err, ErrNoState)
	assert.False(t, u.HasRememberedPassword())
	assert.ErrorIs(t, u.ForgetPassword(), ErrNoState)
}

func TestTransport(t *testing.T) {
	u := newTestUPM(t, t.TempDir())
	st := initStore(t, u)

	_, err := u.Transport(st)
	assert.ErrorIs(t, err, syncer.ErrNoRemote)

	require.NoError(t, u.SetRemote(st, t.TempDir(), ""))
	tr, err := u.Transport(st)
	require.NoError(t, err)
	assert.IsType(t, &transport.Dir{}, tr)

	require.NoError(t, u.AddAccount(st, account("webdav")))
	require.NoError(t, u.SetRemote(st, "https://example.com/upm/", "webdav"))
	tr, err = u.Transport(st)
	require.NoError(t, err)
	assert.IsType(t, &transport.HTTP{}, tr)
}

func TestSyncThroughDirectory(t *testing.T) {
	remote := t.TempDir()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	ctx := context.Background()

	first := newTestUPM(t, t.TempDir(), WithState(openState(t)), WithClock(clock))
	st1 := initStore(t, first)
	require.NoError(t, first.SetRemote(st1, remote, ""))
	require.NoError(t, first.AddAccount(st1, account("bank")))

	res, err := first.Sync(ctx, st1, nil)
	require.NoError(t, err)
	assert.Equal(t, syncer.UploadedLocal, res.Outcome)
	assert.FileExists(t, filepath.Join(remote, "store.upm"))

	res, ran, err := first.SyncIfDue(ctx, st1, nil)
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Nil(t, res)

	now = now.Add(syncer.DefaultInterval + time.Second)
	res, ran, err = first.SyncIfDue(ctx, st1, nil)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, syncer.InSync, res.Outcome)

	second := newTestUPM(t, t.TempDir(), WithState(openState(t)), WithClock(clock))
	st2 := initStore(t, second)
	require.NoError(t, second.SetRemote(st2, remote, ""))

	res, err = second.Sync(ctx, st2, nil)
	require.NoError(t, err)
	require.Equal(t, syncer.AdoptedRemote, res.Outcome)
	defer res.Store.Destroy()
	assert.True(t, res.Store.Has("bank"))
	assert.Equal(t, second.Path(), res.Store.Path())

	entry, err := second.State().LastSync(second.Path())
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.True(t, now.Equal(entry.Time))
}

func TestSyncIfDueWithoutRemote(t *testing.T) {
	u := newTestUPM(t, t.TempDir())
	st := initStore(t, u)

	res, ran, err := u.SyncIfDue(context.Background(), st, nil)
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Nil(t, res)
}

func TestOpenFileKeepsKeysIndependent(t *testing.T) {
	dir := t.TempDir()
	u := newTestUPM(t, dir)
	st := initStore(t, u)

	other := filepath.Join(dir, "copy.upm")
	data, err := os.ReadFile(u.Path())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(other, data, 0600))

	copied, err := u.OpenFile(other, st.Key())
	require.NoError(t, err)
	copied.Destroy()

	reopened, err := u.OpenWithKey(st.Key())
	require.NoError(t, err)
	reopened.Destroy()
}
