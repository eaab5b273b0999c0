package listing

import (
	"strings"

	"github.com/maynagashev/bookswap/models"
)

// Filter возвращает книги, у которых query (без учета регистра) входит
// в название, автора, жанр или место. Порядок сохраняется.
// Пустой запрос подходит всем книгам, пробелы не обрезаются.
func Filter(books []models.Book, query string) []models.Book {
	result := make([]models.Book, 0, len(books))
	if query == "" {
		return append(result, books...)
	}

	q := strings.ToLower(query)
	for _, b := range books {
		if matches(b, q) {
			result = append(result, b)
		}
	}
	return result
}

func matches(b models.Book, lowerQuery string) bool {
	for _, field := range []string{b.Title, b.Author, b.Genre, b.Location} {
		if strings.Contains(strings.ToLower(field), lowerQuery) {
			return true
		}
	}
	return false
}
