package store

import (
	"github.com/ykanchan/pywebview-tw/internal/dbx"
	"github.com/ykanchan/pywebview-tw/internal/repositories/metadata"
	"github.com/ykanchan/pywebview-tw/internal/repositories/tiddlers"
)

// RepositoryManager vends repositories bound to a connection or a
// transaction.
type RepositoryManager interface {
	Tiddlers(db dbx.DBTX) tiddlers.Repository
	Metadata(db dbx.DBTX) metadata.Repository
}

// SQLiteRepositoryManager vends the SQLite repositories.
type SQLiteRepositoryManager struct{}

func (SQLiteRepositoryManager) Tiddlers(db dbx.DBTX) tiddlers.Repository {
	return tiddlers.NewSQLiteRepository(db)
}

func (SQLiteRepositoryManager) Metadata(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}
