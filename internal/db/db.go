package db

import "database/sql"

// DB wraps the sql pool so store constructors take one concrete type.
type DB struct {
	*sql.DB
}
