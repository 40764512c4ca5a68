// Package state defines persistence-facing contracts for loading and saving
// whole documents, plus an Editor that runs read-modify-write cycles under a
// per-document lock.
//
// Responsibilities:
//   - Store[T] only loads/saves one snapshot for one Ref. A Ref that has never
//     been written loads with ok=false; first use is not an error.
//   - Editor[T] serialises load -> mutate -> save per Ref.Identifier() so two
//     concurrent edits of the same document cannot interleave.
//   - Encoding lives behind Codec[T]; FileStore never interprets the bytes.
//
// Data flow:
//
//	Editor.Edit -> KeyedMutex.Lock(id) -> Store.Load -> Mutator -> Store.Save -> Unlock
//
// Provenance:
//
//	Meta.SnapshotID is a fresh UUID per save and Meta.ETag is a content hash,
//	so callers can detect a document changed underneath them (ErrETagMismatch).
package state
