package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/illarion/upm/internal/container"
	"github.com/illarion/upm/internal/core"
	"github.com/illarion/upm/internal/crypto"
	"github.com/illarion/upm/internal/store"
	"github.com/illarion/upm/internal/syncer"
)

var (
	okMark   = color.New(color.FgGreen).Sprint("✓")
	warnMark = color.New(color.FgYellow).Sprint("!")
	errLabel = color.New(color.FgRed, color.Bold).Sprint("Error:")
)

// openStore builds the service and opens the store, asking for the
// password when needed. The caller destroys the store.
func openStore() (*core.UPM, *store.Store, error) {
	app, err := newApp()
	if err != nil {
		return nil, nil, err
	}
	if !app.Exists() {
		return nil, nil, core.ErrNotInitialized
	}

	password, err := app.Password("Password: ")
	if err != nil {
		return nil, nil, err
	}
	defer crypto.ClearBytes(password)

	st, err := app.Open(password)
	if err != nil {
		return nil, nil, err
	}
	return app, st, nil
}

// reauthenticate asks for the password of a remote copy the store password
// does not open. Without a terminal, or with an empty answer, the sync
// gives up.
func reauthenticate(_ context.Context, location string) (*crypto.Key, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, nil
	}

	fmt.Fprintf(os.Stderr, "%s The copy at %s uses a different password\n", warnMark, location)
	password, err := core.ReadPassword("Remote password (empty to skip): ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(password)

	if len(password) == 0 {
		return nil, nil
	}
	return crypto.NewKey(password), nil
}

// syncAfterChange uploads a changed store when a remote is configured.
// The local change is already saved, so a failed sync is only a warning.
// The returned store replaces st.
func syncAfterChange(ctx context.Context, app *core.UPM, st *store.Store) *store.Store {
	if offline || !st.Options().SyncEnabled() {
		return st
	}

	res, err := app.Sync(ctx, st, reauthenticate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s Saved locally, sync failed: %s\n", warnMark, err)
		return st
	}
	printSyncResult(res)
	if res.Store != st {
		st.Destroy()
	}
	return res.Store
}

func printSyncResult(res *syncer.Result) {
	switch res.Outcome {
	case syncer.UploadedLocal:
		fmt.Printf("%s Uploaded revision %d\n", okMark, res.LocalRevision)
	case syncer.AdoptedRemote:
		fmt.Printf("%s Replaced local revision %d with remote revision %d\n", okMark, res.LocalRevision, res.RemoteRevision)
	default:
		fmt.Printf("%s In sync at revision %d\n", okMark, res.LocalRevision)
	}
	if res.Diverged {
		fmt.Printf("%s Local and remote copies differ at the same revision\n", warnMark)
		fmt.Println("  Use 'upm diff' against the remote file, then save a change to upload yours")
	}
}

// HandleError prints err and exits
func HandleError(err error) {
	switch {
	case errors.Is(err, core.ErrNotInitialized):
		fmt.Fprintf(os.Stderr, "%s no password store at %s\n", errLabel, storePath())
		fmt.Fprintf(os.Stderr, "Run 'upm init' first\n")
	case errors.Is(err, store.ErrAlreadyExists):
		fmt.Fprintf(os.Stderr, "%s a password store already exists at %s\n", errLabel, storePath())
		fmt.Fprintf(os.Stderr, "Use 'upm init --force' to replace it\n")
	case errors.Is(err, crypto.ErrInvalidPassword):
		fmt.Fprintf(os.Stderr, "%s wrong password, or the store is damaged\n", errLabel)
	case errors.Is(err, container.ErrNotAPasswordStore):
		fmt.Fprintf(os.Stderr, "%s not a password store\n", errLabel)
	case errors.Is(err, container.ErrUnsupportedVersion):
		fmt.Fprintf(os.Stderr, "%s %s\n", errLabel, err)
		fmt.Fprintf(os.Stderr, "The store was written by a newer version of upm\n")
	case errors.Is(err, syncer.ErrNoRemote):
		fmt.Fprintf(os.Stderr, "%s no remote location configured\n", errLabel)
		fmt.Fprintf(os.Stderr, "Use 'upm remote set' first\n")
	case errors.Is(err, syncer.ErrNotAStore):
		fmt.Fprintf(os.Stderr, "%s the remote file is not a password store\n", errLabel)
	case errors.Is(err, syncer.ErrTransport):
		fmt.Fprintf(os.Stderr, "%s cannot reach the remote location: %s\n", errLabel, err)
	default:
		fmt.Fprintf(os.Stderr, "%s %s\n", errLabel, err)
	}
	os.Exit(1)
}

func storePath() string {
	if cfg == nil {
		return "the configured path"
	}
	return cfg.Database
}
