package apitest

import (
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/maynagashev/bookswap/models"
)

// AddBook добавляет книгу напрямую, минуя HTTP. ID назначается сервером.
func (s *Server) AddBook(book models.Book) models.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addBookLocked(book)
}

func (s *Server) addBookLocked(book models.Book) models.Book {
	book.ID = s.nextBookID
	s.nextBookID++
	if book.CreatedAt.IsZero() {
		book.CreatedAt = time.Now().UTC()
	}
	if book.UpdatedAt.IsZero() {
		book.UpdatedAt = book.CreatedAt
	}
	s.books = append(s.books, book)
	return book
}

// Books возвращает копию всех книг сервера.
func (s *Server) Books() []models.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.books)
}

func pathInt(r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return v, err == nil
}

func (s *Server) listBooks(w http.ResponseWriter, r *http.Request, own bool) {
	userID, ok := pathInt(r, "userId")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid user id.")
		return
	}

	s.mu.Lock()
	books := make([]models.Book, 0, len(s.books))
	for _, b := range s.books {
		if (b.OwnerUserID == userID) == own {
			books = append(books, b)
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, models.BooksResponse{Books: books})
}

func (s *Server) handleUserBooks(w http.ResponseWriter, r *http.Request) {
	s.listBooks(w, r, true)
}

func (s *Server) handleOtherBooks(w http.ResponseWriter, r *http.Request) {
	s.listBooks(w, r, false)
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	callerID, _ := userIDFromContext(r.Context())

	var book models.Book
	if err := decodeBody(r, &book); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if book.ID != 0 {
		writeMessage(w, http.StatusBadRequest, "New book must not have an id.")
		return
	}
	if book.OwnerUserID != callerID {
		writeMessage(w, http.StatusForbidden, "You can only add books for yourself.")
		return
	}
	if book.Title == "" {
		writeMessage(w, http.StatusBadRequest, "Title is required.")
		return
	}

	s.mu.Lock()
	s.addBookLocked(book)
	s.mu.Unlock()
	writeMessage(w, http.StatusCreated, "Book added successfully!")
}

func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	callerID, _ := userIDFromContext(r.Context())
	bookID, ok := pathInt(r, "bookId")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid book id.")
		return
	}

	var book models.Book
	if err := decodeBody(r, &book); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx := slices.IndexFunc(s.books, func(b models.Book) bool { return b.ID == bookID })
	if idx < 0 {
		writeMessage(w, http.StatusNotFound, "Book not found.")
		return
	}
	if s.books[idx].OwnerUserID != callerID {
		writeMessage(w, http.StatusForbidden, "You can only edit your own books.")
		return
	}
	book.ID = bookID
	book.OwnerUserID = callerID
	book.CreatedAt = s.books[idx].CreatedAt
	book.UpdatedAt = time.Now().UTC()
	s.books[idx] = book
	writeMessage(w, http.StatusOK, "Book updated successfully!")
}

func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	callerID, _ := userIDFromContext(r.Context())
	bookID, ok := pathInt(r, "bookId")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid book id.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx := slices.IndexFunc(s.books, func(b models.Book) bool { return b.ID == bookID })
	if idx < 0 {
		writeMessage(w, http.StatusNotFound, "Book not found.")
		return
	}
	if s.books[idx].OwnerUserID != callerID {
		writeMessage(w, http.StatusForbidden, "You can only delete your own books.")
		return
	}
	s.books = slices.Delete(s.books, idx, idx+1)
	w.WriteHeader(http.StatusNoContent)
}
