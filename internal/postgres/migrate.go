package postgres

import (
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/pkg/errors"
)

// Migrate menjalankan semua file .sql di dir terhadap database di dsn.
func Migrate(dsn, dir string) error {
	m, err := migrate.New("file://"+dir, migrateDSN(dsn))
	if err != nil {
		return errors.Wrap(err, "migrate init")
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "migrate up")
	}
	return nil
}

// driver pgx/v5 di golang-migrate terdaftar dengan scheme pgx5.
func migrateDSN(dsn string) string {
	return strings.Replace(dsn, "postgres://", "pgx5://", 1)
}
