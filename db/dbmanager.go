package db

import (
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// All timestamps are written by the service in Pakistan Standard Time (UTC+5),
// never by the database.
var pkt = time.FixedZone("PKT", 5*60*60)

const timeLayout = "2006-01-02 15:04:05"

// Now returns the current PKT timestamp in the storage format.
func Now() string {
	return time.Now().In(pkt).Format(timeLayout)
}

type DBManager struct {
	DB *sqlx.DB
}

func NewDBConnection(dbPath, migrationsURL string) (*DBManager, error) {
	dbx, err := sqlx.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	driver, err := sqlite3.WithInstance(dbx.DB, &sqlite3.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(migrationsURL, "sqlite3", driver)
	if err != nil {
		return nil, fmt.Errorf("init migrations: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &DBManager{
		DB: dbx,
	}, nil
}
