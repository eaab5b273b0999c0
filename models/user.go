package models

// RegisterRequest представляет тело запроса на регистрацию.
type RegisterRequest struct {
	Name              string `json:"name"`
	Email             string `json:"email"`
	Password          string `json:"password"`
	FavouriteGenre    string `json:"favouriteGenre"`
	ReadingPreference string `json:"readingPreference"`
}

// LoginRequest представляет тело запроса на вход.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse представляет тело ответа при успешном входе.
// Из него собирается текущая сессия клиента.
type LoginResponse struct {
	Token  string `json:"token"`
	UserID int64  `json:"userId"`
	Name   string `json:"name"`
}

// PasswordResetRequest запрашивает отправку ссылки для сброса пароля.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// PasswordResetConfirm устанавливает новый пароль по токену сброса.
// Используется и для сброса, и для обновления пароля.
type PasswordResetConfirm struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// MessageResponse - стандартный ответ API с текстовым сообщением.
// В таком же виде сервер присылает и описание ошибки.
type MessageResponse struct {
	Message string `json:"message"`
}
