package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/maynagashev/bookswap/models"
)

// DefaultTimeout - таймаут HTTP-запросов по умолчанию.
const DefaultTimeout = 30 * time.Second

// Ограничение на размер тела ответа с ошибкой, которое мы читаем.
const maxErrorBodySize = 64 << 10

var (
	// ErrAuthorization сигнализирует об ошибке авторизации (401).
	ErrAuthorization = errors.New("ошибка авторизации")
	// ErrNotFound сигнализирует, что ресурс не найден на сервере (404).
	ErrNotFound = errors.New("ресурс не найден на сервере")
	// ErrMissingToken возвращается, если запрос требует токен, а его нет.
	ErrMissingToken = errors.New("токен аутентификации отсутствует")
)

// StatusError описывает ответ сервера с неуспешным статусом.
type StatusError struct {
	StatusCode int
	Message    string // Поле message из тела ответа, если сервер его прислал
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("сервер вернул статус %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("сервер вернул статус %d", e.StatusCode)
}

// Unwrap позволяет проверять типовые статусы через errors.Is.
func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return ErrAuthorization
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return nil
	}
}

// Client определяет интерфейс для взаимодействия с API сервиса обмена книгами.
type Client interface {
	// Register регистрирует нового пользователя и возвращает сообщение сервера.
	Register(ctx context.Context, req models.RegisterRequest) (string, error)
	// Login аутентифицирует пользователя и возвращает токен и данные пользователя.
	Login(ctx context.Context, email, password string) (*models.LoginResponse, error)
	// RequestPasswordReset запрашивает отправку ссылки для сброса пароля.
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	// ResetPassword устанавливает новый пароль по токену сброса.
	ResetPassword(ctx context.Context, resetToken, newPassword string) (string, error)
	// UpdatePassword обновляет пароль по токену.
	UpdatePassword(ctx context.Context, resetToken, newPassword string) (string, error)

	// ListUserBooks возвращает книги пользователя userID.
	ListUserBooks(ctx context.Context, token string, userID int64) ([]models.Book, error)
	// ListOtherUsersBooks возвращает книги всех пользователей, кроме userID.
	ListOtherUsersBooks(ctx context.Context, token string, userID int64) ([]models.Book, error)
	// CreateBook создает книгу и возвращает сообщение сервера.
	CreateBook(ctx context.Context, token string, book models.Book) (string, error)
	// UpdateBook полностью заменяет книгу book.ID.
	UpdateBook(ctx context.Context, token string, book models.Book) (string, error)
	// DeleteBook удаляет книгу.
	DeleteBook(ctx context.Context, token string, id int64) error
}

// Option настраивает HTTP клиент.
type Option func(c *httpClient)

// WithTimeout задает таймаут на один запрос.
func WithTimeout(timeout time.Duration) Option {
	return func(c *httpClient) {
		c.httpClient.Timeout = timeout
	}
}

// WithInsecureSkipVerify отключает проверку TLS-сертификата сервера.
// Нужен для локального сервера с самоподписанным сертификатом.
func WithInsecureSkipVerify() Option {
	return func(c *httpClient) {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		//nolint:gosec // Включается только явным флагом для локальной разработки
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		c.httpClient.Transport = transport
	}
}

// WithHTTPClient подменяет используемый *http.Client (например, в тестах).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.httpClient = hc
	}
}

// httpClient реализует интерфейс Client поверх HTTP.
type httpClient struct {
	baseURL    string       // Базовый URL API, например "https://localhost:7004/api"
	httpClient *http.Client // HTTP клиент для выполнения запросов
}

// NewHTTPClient создает новый экземпляр API клиента.
func NewHTTPClient(baseURL string, opts ...Option) Client {
	c := &httpClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register отправляет запрос на регистрацию.
func (c *httpClient) Register(ctx context.Context, req models.RegisterRequest) (string, error) {
	var resp models.MessageResponse
	if err := c.doJSON(ctx, http.MethodPost, "", req, &resp, "auth", "register"); err != nil {
		return "", fmt.Errorf("ошибка регистрации: %w", err)
	}
	return resp.Message, nil
}

// Login отправляет запрос на вход и возвращает данные сессии.
func (c *httpClient) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	req := models.LoginRequest{Email: email, Password: password}
	if err := c.doJSON(ctx, http.MethodPost, "", req, &resp, "auth", "login"); err != nil {
		return nil, fmt.Errorf("ошибка входа: %w", err)
	}
	if resp.Token == "" {
		return nil, errors.New("сервер вернул пустой токен")
	}
	return &resp, nil
}

// RequestPasswordReset запрашивает ссылку для сброса пароля.
func (c *httpClient) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	var resp models.MessageResponse
	req := models.PasswordResetRequest{Email: email}
	if err := c.doJSON(ctx, http.MethodPost, "", req, &resp, "auth", "reset-password"); err != nil {
		return "", fmt.Errorf("ошибка запроса сброса пароля: %w", err)
	}
	return resp.Message, nil
}

// ResetPassword подтверждает сброс пароля токеном из письма.
func (c *httpClient) ResetPassword(ctx context.Context, resetToken, newPassword string) (string, error) {
	var resp models.MessageResponse
	req := models.PasswordResetConfirm{Token: resetToken, NewPassword: newPassword}
	if err := c.doJSON(ctx, http.MethodPost, "", req, &resp, "auth", "reset-password"); err != nil {
		return "", fmt.Errorf("ошибка сброса пароля: %w", err)
	}
	return resp.Message, nil
}

// UpdatePassword обновляет пароль токеном из письма.
func (c *httpClient) UpdatePassword(ctx context.Context, resetToken, newPassword string) (string, error) {
	var resp models.MessageResponse
	req := models.PasswordResetConfirm{Token: resetToken, NewPassword: newPassword}
	if err := c.doJSON(ctx, http.MethodPut, "", req, &resp, "auth", "update-password"); err != nil {
		return "", fmt.Errorf("ошибка обновления пароля: %w", err)
	}
	return resp.Message, nil
}

// ListUserBooks получает книги пользователя.
func (c *httpClient) ListUserBooks(ctx context.Context, token string, userID int64) ([]models.Book, error) {
	books, err := c.listBooks(ctx, token, "user", userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения книг пользователя: %w", err)
	}
	return books, nil
}

// ListOtherUsersBooks получает книги остальных пользователей.
func (c *httpClient) ListOtherUsersBooks(ctx context.Context, token string, userID int64) ([]models.Book, error) {
	books, err := c.listBooks(ctx, token, "excludeUser", userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения книг других пользователей: %w", err)
	}
	return books, nil
}

func (c *httpClient) listBooks(ctx context.Context, token, scope string, userID int64) ([]models.Book, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	var resp models.BooksResponse
	err := c.doJSON(ctx, http.MethodGet, token, nil, &resp, "books", scope, strconv.FormatInt(userID, 10))
	if err != nil {
		return nil, err
	}
	if resp.Books == nil {
		// Сервер может прислать null вместо пустого массива
		return []models.Book{}, nil
	}
	return resp.Books, nil
}

// CreateBook отправляет новую книгу на сервер.
func (c *httpClient) CreateBook(ctx context.Context, token string, book models.Book) (string, error) {
	if token == "" {
		return "", ErrMissingToken
	}
	var resp models.MessageResponse
	if err := c.doJSON(ctx, http.MethodPost, token, book, &resp, "books"); err != nil {
		return "", fmt.Errorf("ошибка добавления книги: %w", err)
	}
	return resp.Message, nil
}

// UpdateBook отправляет полную запись книги на сервер.
func (c *httpClient) UpdateBook(ctx context.Context, token string, book models.Book) (string, error) {
	if token == "" {
		return "", ErrMissingToken
	}
	var resp models.MessageResponse
	err := c.doJSON(ctx, http.MethodPut, token, book, &resp, "books", strconv.FormatInt(book.ID, 10))
	if err != nil {
		return "", fmt.Errorf("ошибка обновления книги %d: %w", book.ID, err)
	}
	return resp.Message, nil
}

// DeleteBook удаляет книгу на сервере.
func (c *httpClient) DeleteBook(ctx context.Context, token string, id int64) error {
	if token == "" {
		return ErrMissingToken
	}
	if err := c.doJSON(ctx, http.MethodDelete, token, nil, nil, "books", strconv.FormatInt(id, 10)); err != nil {
		return fmt.Errorf("ошибка удаления книги %d: %w", id, err)
	}
	return nil
}

// doJSON выполняет запрос с JSON-телом и декодирует JSON-ответ в out.
// Пустое тело успешного ответа допустимо: out остается нетронутым.
func (c *httpClient) doJSON(ctx context.Context, method, token string, in, out any, path ...string) error {
	endpoint, err := url.JoinPath(c.baseURL, path...)
	if err != nil {
		return fmt.Errorf("ошибка формирования URL: %w", err)
	}

	var body io.Reader
	if in != nil {
		jsonData, errMarshal := json.Marshal(in)
		if errMarshal != nil {
			return fmt.Errorf("ошибка кодирования запроса: %w", errMarshal)
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.handleRequestError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return handleErrorResponse(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err = json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("ошибка декодирования ответа: %w", err)
	}
	return nil
}

// handleRequestError превращает ошибки транспорта в понятные сообщения.
func (c *httpClient) handleRequestError(ctx context.Context, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return fmt.Errorf("запрос отменен: %w", err)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("превышено время ожидания ответа: %w", err)
	default:
		return fmt.Errorf("не удалось подключиться к серверу %s: %w", c.baseURL, err)
	}
}

// handleErrorResponse читает тело ответа с ошибкой и извлекает поле message.
func handleErrorResponse(resp *http.Response) error {
	statusErr := &StatusError{StatusCode: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil || len(data) == 0 {
		return statusErr
	}
	var payload models.MessageResponse
	if json.Unmarshal(data, &payload) == nil {
		statusErr.Message = payload.Message
	}
	return statusErr
}
