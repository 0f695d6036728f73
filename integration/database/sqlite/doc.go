// Package sqlite opens SQLite databases through mattn/go-sqlite3 and applies
// goose migrations. DATABASE_URL values starting with sqlite:// select it.
package sqlite
