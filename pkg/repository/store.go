package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jinzhu/gorm"
	"github.com/mattn/go-sqlite3"
)

// Store implements every repository interface on top of a gorm connection.
type Store struct {
	db *gorm.DB
}

var (
	_ UserRepository        = (*Store)(nil)
	_ VideoRepository       = (*Store)(nil)
	_ InteractionRepository = (*Store)(nil)
	_ SessionRepository     = (*Store)(nil)
)

func NewStore(db *gorm.DB) *Store {
	if db == nil {
		panic("database connection cannot be nil for Store")
	}
	return &Store{db: db}
}

// Ping checks the underlying connection.
func (s *Store) Ping() error {
	return s.db.DB().Ping()
}

// isDuplicateEntryError recognises unique constraint violations from the
// drivers we support.
func isDuplicateEntryError(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint &&
			(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey)
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry")
}
