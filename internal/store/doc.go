// Package store holds an open password store: the accounts, the options and
// the revision counter, together with the cipher for the container file the
// store is bound to.
//
// A Store is created empty with Create or loaded with Open/OpenWithKey.
// Changes stay in memory until Save, which bumps the revision and rewrites
// the container in the newest format. A Store does no locking; callers
// serialize access.
package store
