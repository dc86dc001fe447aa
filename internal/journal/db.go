// Package journal хранит результаты воспроизводимых подборов кривой в
// SQLite, чтобы повторный запуск с тем же сидом на той же гистограмме
// не повторял поиск.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store: журнал подборов поверх одной базы SQLite.
type Store struct {
	db *sql.DB
}

// Open открывает или создаёт базу по пути path и применяет миграции.
func Open(path string) (*Store, error) {
	database, err := openDB(path)
	if err != nil {
		return nil, err
	}
	if err := runMigrations(database); err != nil {
		database.Close()
		return nil, err
	}
	return &Store{db: database}, nil
}

func openDB(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("каталог журнала: %w", err)
	}

	database, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("открытие sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, pragma := range pragmas {
		if _, err := database.Exec(pragma); err != nil {
			database.Close()
			return nil, fmt.Errorf("sqlite pragma %q: %w", pragma, err)
		}
	}

	if err := database.PingContext(context.Background()); err != nil {
		database.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return database, nil
}

// Close закрывает базу.
func (s *Store) Close() error {
	return s.db.Close()
}
