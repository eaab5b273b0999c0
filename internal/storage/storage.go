// Package storage содержит долговременные хранилища пар ключ/значение,
// в которых клиент сохраняет данные сессии между запусками.
package storage

import (
	"errors"
	"sync"
)

// ErrEmptyKey возвращается при попытке использовать пустой ключ.
var ErrEmptyKey = errors.New("ключ не может быть пустым")

// Storage определяет хранилище строковых значений по строковым ключам.
type Storage interface {
	// Get возвращает значение и признак его наличия.
	Get(key string) (string, bool, error)
	// Set сохраняет значение, перезаписывая предыдущее.
	Set(key, value string) error
	// Delete удаляет ключ. Удаление отсутствующего ключа не является ошибкой.
	Delete(key string) error
}

// Memory - хранилище в памяти процесса. Данные теряются при выходе.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemory создает пустое хранилище в памяти.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

// Get возвращает значение по ключу.
func (m *Memory) Get(key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.data[key]
	return value, ok, nil
}

// Set сохраняет значение по ключу.
func (m *Memory) Set(key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// Delete удаляет значение по ключу.
func (m *Memory) Delete(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Len возвращает количество сохраненных ключей.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
