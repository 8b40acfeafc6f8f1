// Package syncer keeps a local store and its single remote copy in step.
//
// There is no merging. The revision counter decides: a remote that is
// missing or older is overwritten with the local file, a newer remote
// replaces the local file byte for byte, equal revisions are left alone.
// Moving bytes is the job of a Transport; the engine never sees the wire.
package syncer
