package models

import (
	"strings"
	"time"
)

// Book представляет книгу, выставленную пользователем для обмена.
// ID назначается сервером, у еще не созданной книги он равен 0.
type Book struct {
	ID                 int64     `json:"bookId"`
	Title              string    `json:"title"`
	Author             string    `json:"author"`
	Genre              string    `json:"genre"`
	Condition          string    `json:"condition"`
	AvailabilityStatus string    `json:"availabilityStatus"`
	Location           string    `json:"location"`
	OwnerUserID        int64     `json:"userId"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// BookFields - поля книги, которые пользователь заполняет в форме.
type BookFields struct {
	Title              string
	Author             string
	Genre              string
	Condition          string
	AvailabilityStatus string
	Location           string
}

// Fields возвращает редактируемые поля книги.
func (b Book) Fields() BookFields {
	return BookFields{
		Title:              b.Title,
		Author:             b.Author,
		Genre:              b.Genre,
		Condition:          b.Condition,
		AvailabilityStatus: b.AvailabilityStatus,
		Location:           b.Location,
	}
}

// WithFields возвращает копию книги с подставленными полями формы.
func (b Book) WithFields(f BookFields) Book {
	b.Title = f.Title
	b.Author = f.Author
	b.Genre = f.Genre
	b.Condition = f.Condition
	b.AvailabilityStatus = f.AvailabilityStatus
	b.Location = f.Location
	return b
}

// Missing возвращает имена незаполненных полей формы (пробелы не считаются значением).
func (f BookFields) Missing() []string {
	var missing []string
	check := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	check("title", f.Title)
	check("author", f.Author)
	check("genre", f.Genre)
	check("condition", f.Condition)
	check("availabilityStatus", f.AvailabilityStatus)
	check("location", f.Location)
	return missing
}

// BooksResponse представляет ответ API со списком книг.
type BooksResponse struct {
	Books []Book `json:"books"`
}
