package apitest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/maynagashev/bookswap/models"
)

// Тип для ключа контекста.
type contextKey string

// userIDKey - ключ ID пользователя в контексте запроса.
const userIDKey contextKey = "userID"

const tokenTTL = time.Hour

// jwtClaims - пользовательские данные в JWT.
type jwtClaims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// AddUser регистрирует пользователя напрямую, минуя HTTP. Возвращает его ID.
func (s *Server) AddUser(name, email, password string) int64 {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(fmt.Sprintf("apitest: ошибка хеширования пароля: %v", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(name, email, hash)
}

func (s *Server) addUserLocked(name, email string, hash []byte) int64 {
	id := s.nextUserID
	s.nextUserID++
	s.users[strings.ToLower(email)] = &user{id: id, name: name, email: email, passwordHash: hash}
	return id
}

// Token выдает действующий токен для пользователя userID.
func (s *Server) Token(userID int64) string {
	token, err := s.generateJWT(userID, time.Now().Add(tokenTTL))
	if err != nil {
		panic(fmt.Sprintf("apitest: ошибка генерации токена: %v", err))
	}
	return token
}

// ExpiredToken выдает просроченный токен для пользователя userID.
func (s *Server) ExpiredToken(userID int64) string {
	token, err := s.generateJWT(userID, time.Now().Add(-time.Minute))
	if err != nil {
		panic(fmt.Sprintf("apitest: ошибка генерации токена: %v", err))
	}
	return token
}

// ResetToken возвращает действующий токен сброса пароля для email.
func (s *Server) ResetToken(email string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, owner := range s.resetTokens {
		if strings.EqualFold(owner, email) {
			return token, true
		}
	}
	return "", false
}

// CheckPassword сообщает, подходит ли пароль пользователю email.
func (s *Server) CheckPassword(email, password string) bool {
	s.mu.Lock()
	u, ok := s.users[strings.ToLower(email)]
	s.mu.Unlock()
	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword(u.passwordHash, []byte(password)) == nil
}

// generateJWT создает и подписывает JWT токен для пользователя.
func (s *Server) generateJWT(userID int64, expiresAt time.Time) (string, error) {
	now := time.Now()
	claims := jwtClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "bookswap-apitest",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("ошибка подписи JWT: %w", err)
	}
	return signed, nil
}

// authenticator проверяет JWT токен из заголовка Authorization.
func (s *Server) authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		scheme, tokenString, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "bearer") || tokenString == "" {
			writeMessage(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		claims := &jwtClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("неожиданный метод подписи: %v", token.Header["alg"])
			}
			return s.secret, nil
		})
		if err != nil || !token.Valid {
			slog.Debug("apitest: невалидный токен", "error", err)
			writeMessage(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(userIDKey).(int64)
	return userID, ok
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("invalid request body")
	}
	return nil
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" || req.Password == "" || req.Name == "" {
		writeMessage(w, http.StatusBadRequest, "Name, email and password are required.")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[strings.ToLower(req.Email)]; exists {
		writeMessage(w, http.StatusConflict, "User with this email already exists.")
		return
	}
	s.addUserLocked(req.Name, req.Email, hash)
	writeMessage(w, http.StatusCreated, "Registration successful! Please log in.")
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	u, ok := s.users[strings.ToLower(req.Email)]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(u.passwordHash, []byte(req.Password)) != nil {
		writeMessage(w, http.StatusUnauthorized, "Invalid email or password.")
		return
	}

	token, err := s.generateJWT(u.id, time.Now().Add(tokenTTL))
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, models.LoginResponse{Token: token, UserID: u.id, Name: u.name})
}

// resetPasswordBody объединяет обе формы запроса на /auth/reset-password.
type resetPasswordBody struct {
	Email       string `json:"email"`
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordBody
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Token != "" {
		s.confirmReset(w, req.Token, req.NewPassword, "Password has been reset successfully.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[strings.ToLower(req.Email)]; !ok {
		writeMessage(w, http.StatusNotFound, "User not found.")
		return
	}
	s.resetTokens[uuid.NewString()] = req.Email
	writeMessage(w, http.StatusOK, "Password reset link has been sent to your email.")
}

func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req models.PasswordResetConfirm
	if err := decodeBody(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	s.confirmReset(w, req.Token, req.NewPassword, "Password updated successfully.")
}

// confirmReset меняет пароль по одноразовому токену сброса.
func (s *Server) confirmReset(w http.ResponseWriter, resetToken, newPassword, message string) {
	if newPassword == "" {
		writeMessage(w, http.StatusBadRequest, "New password is required.")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.MinCost)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	email, ok := s.resetTokens[resetToken]
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Invalid or expired reset token.")
		return
	}
	delete(s.resetTokens, resetToken)
	s.users[strings.ToLower(email)].passwordHash = hash
	writeMessage(w, http.StatusOK, message)
}
