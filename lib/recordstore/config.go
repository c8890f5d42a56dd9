package recordstore

import (
	"database/sql"
	_ "embed"
	"fmt"
	"net/url"
	"strings"

	devenv "esic-scraper/dev/env"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

// Config picks the database. File is a local sqlite path (it may start with
// <dev_state>), URL a remote libsql database, which wins when both are set.
type Config struct {
	File      string `json:"file"`
	URL       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

// OpenDB opens the database and makes sure the schema exists.
func (config Config) OpenDB() (*sql.DB, error) {
	db, err := config.open()
	if err != nil {
		return nil, err
	}
	_, err = db.Exec(Schema)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return db, nil
}

func (config Config) open() (*sql.DB, error) {
	if config.URL != "" {
		return openLibsql(config.URL, config.AuthToken)
	}
	if config.File == "" {
		return nil, fmt.Errorf("a database file or url was not specified")
	}

	dbpath := config.File
	if dbpath != ":memory:" {
		var err error
		dbpath, err = devenv.ResolvePath(dbpath)
		if err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dbpath)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer, a shared connection also keeps
	// :memory: databases alive between statements
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func openLibsql(rawURL, authToken string) (*sql.DB, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(u.Scheme) {
	case "libsql", "http", "https", "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported database url scheme %q", u.Scheme)
	}
	if authToken != "" {
		query := u.Query()
		query.Set("authToken", authToken)
		u.RawQuery = query.Encode()
	}
	return sql.Open("libsql", u.String())
}
