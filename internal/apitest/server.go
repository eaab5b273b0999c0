// Package apitest поднимает в тестах поддельный сервер Books/Auth API.
// Данные хранятся в памяти, маршруты совпадают с настоящим API.
package apitest

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/maynagashev/bookswap/models"
)

// Маршруты сервера в виде "МЕТОД шаблон" для FailNext, Hold и CallCount.
const (
	RouteRegister       = "POST /auth/register"
	RouteLogin          = "POST /auth/login"
	RouteResetPassword  = "POST /auth/reset-password"
	RouteUpdatePassword = "PUT /auth/update-password"
	RouteUserBooks      = "GET /books/user/{userId}"
	RouteOtherBooks     = "GET /books/excludeUser/{userId}"
	RouteCreateBook     = "POST /books"
	RouteUpdateBook     = "PUT /books/{bookId}"
	RouteDeleteBook     = "DELETE /books/{bookId}"
)

// Call описывает запрос, полученный сервером.
type Call struct {
	Route string
	Path  string
}

type failure struct {
	status  int
	message string
}

type user struct {
	id           int64
	name         string
	email        string
	passwordHash []byte
}

// Server - поддельный API поверх httptest.Server.
type Server struct {
	srv    *httptest.Server
	secret []byte

	mu          sync.Mutex
	users       map[string]*user // По email
	books       []models.Book
	nextUserID  int64
	nextBookID  int64
	resetTokens map[string]string // Токен сброса -> email
	failures    map[string][]failure
	holds       map[string]chan struct{}
	calls       []Call
}

// NewServer запускает сервер и останавливает его по завершении теста.
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		secret:      []byte("apitest-secret"),
		users:       make(map[string]*user),
		nextUserID:  1,
		nextBookID:  1,
		resetTokens: make(map[string]string),
		failures:    make(map[string][]failure),
		holds:       make(map[string]chan struct{}),
	}
	s.srv = httptest.NewServer(s.router())
	t.Cleanup(s.Close)
	return s
}

// URL возвращает базовый адрес API, как его ожидает клиент.
func (s *Server) URL() string {
	return s.srv.URL + "/api"
}

// Close останавливает сервер и отпускает удерживаемые запросы.
func (s *Server) Close() {
	s.mu.Lock()
	for route, ch := range s.holds {
		close(ch)
		delete(s.holds, route)
	}
	s.mu.Unlock()
	s.srv.Close()
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.wrap(RouteRegister, s.handleRegister))
		r.Post("/auth/login", s.wrap(RouteLogin, s.handleLogin))
		r.Post("/auth/reset-password", s.wrap(RouteResetPassword, s.handleResetPassword))
		r.Put("/auth/update-password", s.wrap(RouteUpdatePassword, s.handleUpdatePassword))

		// Маршруты, требующие аутентификации
		r.Group(func(r chi.Router) {
			r.Use(s.authenticator)
			r.Get("/books/user/{userId}", s.wrap(RouteUserBooks, s.handleUserBooks))
			r.Get("/books/excludeUser/{userId}", s.wrap(RouteOtherBooks, s.handleOtherBooks))
			r.Post("/books", s.wrap(RouteCreateBook, s.handleCreateBook))
			r.Put("/books/{bookId}", s.wrap(RouteUpdateBook, s.handleUpdateBook))
			r.Delete("/books/{bookId}", s.wrap(RouteDeleteBook, s.handleDeleteBook))
		})
	})
	return r
}

// wrap учитывает вызов, применяет удержание и внедренные ошибки.
func (s *Server) wrap(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls = append(s.calls, Call{Route: route, Path: r.URL.Path})
		hold := s.holds[route]
		var injected *failure
		if queue := s.failures[route]; len(queue) > 0 {
			injected = &queue[0]
			s.failures[route] = queue[1:]
		}
		s.mu.Unlock()

		if hold != nil {
			select {
			case <-hold:
			case <-r.Context().Done():
				return
			}
		}

		if injected != nil {
			slog.Debug("apitest: внедренная ошибка", "route", route, "status", injected.status)
			writeMessage(w, injected.status, injected.message)
			return
		}
		next(w, r)
	}
}

// FailNext заставляет следующий запрос к route вернуть status с сообщением message.
// Повторные вызовы ставят ошибки в очередь.
func (s *Server) FailNext(route string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = append(s.failures[route], failure{status: status, message: message})
}

// Hold задерживает ответы на route до вызова release.
func (s *Server) Hold(route string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.holds[route] = ch
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.holds[route] == ch {
				delete(s.holds, route)
				close(ch)
			}
			s.mu.Unlock()
		})
	}
}

// Calls возвращает все полученные запросы по порядку.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallCount возвращает число запросов к route.
func (s *Server) CallCount(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Route == route {
			n++
		}
	}
	return n
}

// writeJSON отправляет ответ в формате JSON.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("apitest: ошибка кодирования ответа", "error", err)
	}
}

// writeMessage отправляет ответ вида {"message": ...}.
func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.MessageResponse{Message: message})
}
