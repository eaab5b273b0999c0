// Package kdbx хранит данные сессии в метаданных файла KeePass (KDBX),
// защищенного мастер-паролем.
package kdbx

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/tobischo/gokeepasslib/v3"
)

// rootGroupName - имя корневой группы создаваемой базы.
const rootGroupName = "BookSwap"

// ErrEmptyPassword возвращается, если мастер-пароль не задан.
var ErrEmptyPassword = errors.New("мастер-пароль KDBX не может быть пустым")

// OpenFile открывает и дешифрует KDBX файл по указанному пути и паролю.
func OpenFile(filePath string, password string) (*gokeepasslib.Database, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия файла '%s': %w", filePath, err)
	}
	defer file.Close()

	db := gokeepasslib.NewDatabase()
	db.Credentials = gokeepasslib.NewPasswordCredentials(password)

	if err = gokeepasslib.NewDecoder(file).Decode(db); err != nil {
		return nil, fmt.Errorf("ошибка дешифрования файла '%s': %w", filePath, err)
	}

	// Разблокируем защищенные значения
	if err = db.UnlockProtectedEntries(); err != nil {
		return nil, fmt.Errorf("ошибка разблокировки защищенных полей: %w", err)
	}

	return db, nil
}

// CreateDatabase создает новую пустую базу KDBX в памяти.
// На диск база попадает только после SaveFile.
func CreateDatabase(password string) (*gokeepasslib.Database, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}

	db := gokeepasslib.NewDatabase()
	db.Credentials = gokeepasslib.NewPasswordCredentials(password)
	db.Content = gokeepasslib.NewContent()
	db.Content.Meta.DatabaseName = rootGroupName
	db.Content.Meta.CustomData = []gokeepasslib.CustomData{}

	rootGroup := gokeepasslib.NewGroup()
	rootGroup.Name = rootGroupName
	db.Content.Root = &gokeepasslib.RootData{
		Groups: []gokeepasslib.Group{rootGroup},
	}

	return db, nil
}

// SaveFile кодирует и сохраняет базу данных KDBX в указанный файл.
// Запись идет во временный файл рядом, который затем переименовывается.
func SaveFile(db *gokeepasslib.Database, filePath string, password string) error {
	if db == nil {
		return errors.New("база данных не инициализирована (nil)")
	}

	if db.Credentials == nil {
		if password == "" {
			return ErrEmptyPassword
		}
		db.Credentials = gokeepasslib.NewPasswordCredentials(password)
	}

	// Перед кодированием защищенные поля должны быть заблокированы
	if err := db.LockProtectedEntries(); err != nil {
		slog.Warn("Не удалось заблокировать поля перед сохранением", "error", err)
	}
	defer func() {
		if err := db.UnlockProtectedEntries(); err != nil {
			slog.Warn("Не удалось разблокировать поля после сохранения", "error", err)
		}
	}()

	tmpPath := filePath + ".tmp"
	file, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("ошибка создания файла '%s' для записи: %w", tmpPath, err)
	}

	if err = gokeepasslib.NewEncoder(file).Encode(db); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("ошибка кодирования и записи БД в файл '%s': %w", filePath, err)
	}
	if err = file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("ошибка закрытия файла '%s': %w", tmpPath, err)
	}
	if err = os.Rename(tmpPath, filePath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("ошибка замены файла '%s': %w", filePath, err)
	}

	return nil
}
