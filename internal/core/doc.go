// Package core provides the upm operations the command line is built on.
//
// Core operations include:
//   - Init/Open: create or load the store at the configured path
//   - AddAccount/UpdateAccount/DeleteAccount: edit accounts, keeping names unique;
//     DeleteAccount removes several accounts with one save
//   - SetRemote: point the store at a remote copy and pick the account
//     holding its credentials
//   - ChangePassword: re-key the store and refresh the cached password
//   - Sync/SyncIfDue: reconcile with the remote copy
//   - Diff: compare two stores as text, secrets masked unless asked for
//
// Every operation that changes a store saves it. When the save fails the
// change is rolled back in memory.
package core
