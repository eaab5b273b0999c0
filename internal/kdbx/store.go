package kdbx

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"github.com/tobischo/gokeepasslib/v3"
)

// customDataPrefix отделяет ключи клиента от чужих данных в CustomData.
const customDataPrefix = "BookSwap."

// ErrEmptyKey возвращается при попытке использовать пустой ключ.
var ErrEmptyKey = errors.New("ключ не может быть пустым")

// Store - хранилище ключ/значение в Meta.CustomData файла KDBX.
// Каждое изменение сразу сохраняется в файл.
type Store struct {
	mu       sync.Mutex
	path     string
	password string
	db       *gokeepasslib.Database
	now      func() time.Time
}

// Open открывает файл KDBX или создает новый, если файла еще нет.
func Open(path, password string) (*Store, error) {
	db, err := OpenFile(path, password)
	switch {
	case err == nil:
		slog.Debug("Открыт файл KDBX", "path", path)
	case errors.Is(err, fs.ErrNotExist):
		slog.Info("Файл KDBX не найден, создаем новый", "path", path)
		if db, err = CreateDatabase(password); err != nil {
			return nil, err
		}
		if err = SaveFile(db, path, password); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if db.Content == nil || db.Content.Meta == nil {
		return nil, fmt.Errorf("файл '%s' не содержит метаданных KDBX", path)
	}

	return &Store{path: path, password: password, db: db, now: time.Now}, nil
}

// Path возвращает путь к файлу базы.
func (s *Store) Path() string {
	return s.path
}

// Get возвращает значение по ключу.
func (s *Store) Get(key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	value, found := lookupCustomDataValue(s.db.Content.Meta.CustomData, customDataPrefix+key)
	return value, found, nil
}

// Set сохраняет значение и записывает файл, если данные изменились.
func (s *Store) Set(key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return s.mutate(func(data []gokeepasslib.CustomData) ([]gokeepasslib.CustomData, bool) {
		return setCustomDataValue(data, customDataPrefix+key, value)
	})
}

// Delete удаляет значение и записывает файл, если ключ был.
func (s *Store) Delete(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return s.mutate(func(data []gokeepasslib.CustomData) ([]gokeepasslib.CustomData, bool) {
		return removeCustomDataValue(data, customDataPrefix+key)
	})
}

// Close ничего не держит открытым, метод нужен для единообразия с другими хранилищами.
func (s *Store) Close() error {
	return nil
}

// mutate применяет изменение к CustomData и сохраняет файл.
// При ошибке сохранения данные в памяти откатываются.
func (s *Store) mutate(
	change func([]gokeepasslib.CustomData) ([]gokeepasslib.CustomData, bool),
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta := s.db.Content.Meta
	initial := make([]gokeepasslib.CustomData, len(meta.CustomData))
	copy(initial, meta.CustomData)

	updated, changed := change(meta.CustomData)
	if !changed {
		return nil
	}
	meta.CustomData = updated
	touchRootGroup(s.db, s.now())

	if err := SaveFile(s.db, s.path, s.password); err != nil {
		meta.CustomData = initial
		return err
	}
	return nil
}
