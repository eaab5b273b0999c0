package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // Драйвер SQLite, импортируем для регистрации
)

const (
	createKVTableQuery = `CREATE TABLE IF NOT EXISTS kv (key TEXT PRIMARY KEY, value TEXT NOT NULL)`
	selectValueQuery   = `SELECT value FROM kv WHERE key = ?`
	upsertValueQuery   = `INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	deleteValueQuery   = `DELETE FROM kv WHERE key = ?`
)

// SQLite хранит пары ключ/значение в таблице kv файла SQLite.
type SQLite struct {
	db *sqlx.DB
}

// OpenSQLite открывает (или создает) файл SQLite и подготавливает схему.
func OpenSQLite(path string) (*SQLite, error) {
	slog.Debug("Открытие хранилища SQLite", "path", path)

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия SQLite '%s': %w", path, err)
	}
	// SQLite не любит конкурентную запись из нескольких соединений
	db.SetMaxOpenConns(1)

	s := NewSQLite(db)
	if err = s.Migrate(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("Ошибка закрытия SQLite после неудачной миграции", "error", closeErr)
		}
		return nil, err
	}
	return s, nil
}

// NewSQLite создает хранилище поверх уже открытого соединения.
// Схема не создается, для этого нужно вызвать Migrate.
func NewSQLite(db *sqlx.DB) *SQLite {
	return &SQLite{db: db}
}

// Migrate создает таблицу kv, если ее еще нет.
func (s *SQLite) Migrate() error {
	if _, err := s.db.Exec(createKVTableQuery); err != nil {
		return fmt.Errorf("ошибка создания таблицы kv: %w", err)
	}
	return nil
}

// Get возвращает значение по ключу.
func (s *SQLite) Get(key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	var value string
	err := s.db.Get(&value, selectValueQuery, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("ошибка чтения ключа '%s': %w", key, err)
	}
	return value, true, nil
}

// Set сохраняет значение по ключу.
func (s *SQLite) Set(key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if _, err := s.db.Exec(upsertValueQuery, key, value); err != nil {
		return fmt.Errorf("ошибка записи ключа '%s': %w", key, err)
	}
	return nil
}

// Delete удаляет значение по ключу.
func (s *SQLite) Delete(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if _, err := s.db.Exec(deleteValueQuery, key); err != nil {
		return fmt.Errorf("ошибка удаления ключа '%s': %w", key, err)
	}
	return nil
}

// Close закрывает соединение с базой.
func (s *SQLite) Close() error {
	return s.db.Close()
}
