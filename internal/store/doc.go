// Package store implements the per-document tiddler store.
//
// A Store owns one SQLite file. Every operation runs under a single mutex,
// so a revision read, its increment and the write of the new record form
// one critical section, and a multi-step read (see ReadView) observes no
// concurrent write. Operations are detached from caller cancellation: once
// started, a write runs to completion or to a storage failure.
//
// Failures of the storage layer are returned as *common.StorageError
// (errors.Is(err, common.ErrStorage)); rejected input matches
// common.ErrValidation and leaves the store unchanged.
package store
