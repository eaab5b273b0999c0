package kdbx

import (
	"log/slog"
	"time"

	"github.com/tobischo/gokeepasslib/v3"
	"github.com/tobischo/gokeepasslib/v3/wrappers"
)

// lookupCustomDataValue ищет значение в слайсе CustomData по ключу.
func lookupCustomDataValue(customDataSlice []gokeepasslib.CustomData, key string) (string, bool) {
	for _, item := range customDataSlice {
		if item.Key == key {
			return item.Value, true
		}
	}
	return "", false
}

// setCustomDataValue обновляет или добавляет значение в слайс CustomData.
// Возвращает обновленный слайс и признак того, что данные изменились.
func setCustomDataValue(
	customDataSlice []gokeepasslib.CustomData, key, value string,
) ([]gokeepasslib.CustomData, bool) {
	for i := range customDataSlice {
		if customDataSlice[i].Key != key {
			continue
		}
		if customDataSlice[i].Value == value {
			return customDataSlice, false
		}
		customDataSlice[i].Value = value
		slog.Debug("Обновлено значение CustomData", "key", key)
		return customDataSlice, true
	}

	customDataSlice = append(customDataSlice, gokeepasslib.CustomData{Key: key, Value: value})
	slog.Debug("Добавлено новое значение CustomData", "key", key)
	return customDataSlice, true
}

// removeCustomDataValue удаляет значение из слайса CustomData по ключу.
// Возвращает новый слайс и признак того, что что-то было удалено.
func removeCustomDataValue(
	customDataSlice []gokeepasslib.CustomData, key string,
) ([]gokeepasslib.CustomData, bool) {
	newSlice := make([]gokeepasslib.CustomData, 0, len(customDataSlice))
	removed := false
	for _, item := range customDataSlice {
		if item.Key == key {
			removed = true
			continue
		}
		newSlice = append(newSlice, item)
	}
	if removed {
		slog.Debug("Удалено значение из CustomData", "key", key)
	}
	return newSlice, removed
}

// touchRootGroup обновляет LastModificationTime корневой группы.
func touchRootGroup(db *gokeepasslib.Database, now time.Time) {
	if db.Content == nil || db.Content.Root == nil || len(db.Content.Root.Groups) == 0 {
		slog.Warn("Не удалось обновить LastModificationTime корневой группы: корневая группа отсутствует")
		return
	}
	rootGroup := &db.Content.Root.Groups[0]
	modTime := wrappers.TimeWrapper{Time: now.UTC()}
	rootGroup.Times.LastModificationTime = &modTime
}
