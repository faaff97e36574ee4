// Package tiddlers provides the persistence layer for tiddler records.
//
// # Overview
//
// The package defines a Repository interface for CRUD and change queries on
// models.Tiddler values. The SQLite implementation (SQLiteRepository) works
// over a dbx.DBTX, so the same code runs against *sql.DB or inside a
// transaction opened by the store.
//
// # Data Model
//
// One row per title: the store-assigned revision, the canonical modified
// stamp (indexed, so change queries stay cheap), the text body in its own
// column (skipped by skinny listings) and every other field as one canonical
// JSON blob.
//
// # System entries
//
// Listing and change queries skip titles starting with "$:/"; Get, Upsert
// and Delete treat them like any other title.
//
// Typical Usage
//
//	repo := tiddlers.NewSQLiteRepository(tx)
//	rev, _ := repo.Revision(ctx, title)
//	_ = repo.Upsert(ctx, &models.Tiddler{Title: title, Revision: rev + 1, Fields: f})
//	changed, _ := repo.ModifiedAfter(ctx, "20260101000000000")
package tiddlers
