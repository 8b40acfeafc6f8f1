// Package state provides the BBolt database holding per-installation state
// for upm.
//
// Database structure uses two buckets:
//   - config: installation id, format version, creation time
//   - sync: one entry per store path with the time and outcome of the
//     last sync and the revisions seen on both sides
//
// Nothing secret is kept here; the file can be deleted at any time, the
// only cost being an extra sync.
package state
