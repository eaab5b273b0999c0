package storage

import (
	"fmt"
	"log/slog"

	"github.com/gofrs/flock"
)

// FileLock - межпроцессная блокировка файла хранилища.
// Блокируется соседний файл "<path>.lock", а не само хранилище.
type FileLock struct {
	lock     *flock.Flock
	acquired bool
}

// NewFileLock создает блокировку для файла хранилища path.
func NewFileLock(path string) *FileLock {
	return &FileLock{lock: flock.New(path + ".lock")}
}

// TryLock пытается захватить блокировку без ожидания.
// Возвращает false, если блокировка удерживается другим процессом.
func (l *FileLock) TryLock() (bool, error) {
	acquired, err := l.lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("ошибка блокировки файла %s: %w", l.lock.Path(), err)
	}
	l.acquired = acquired
	if !acquired {
		slog.Warn("Файл хранилища заблокирован другим процессом", "lockPath", l.lock.Path())
	}
	return acquired, nil
}

// Acquired сообщает, удерживается ли блокировка этим процессом.
func (l *FileLock) Acquired() bool {
	return l.acquired
}

// Path возвращает путь к файлу блокировки.
func (l *FileLock) Path() string {
	return l.lock.Path()
}

// Unlock освобождает блокировку. Повторный вызов безопасен.
func (l *FileLock) Unlock() error {
	if !l.acquired {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("ошибка снятия блокировки %s: %w", l.lock.Path(), err)
	}
	l.acquired = false
	return nil
}
