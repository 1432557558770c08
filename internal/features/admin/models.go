// Package admin реализует парольную аутентификацию для привилегированных
// операций: выставление лотов, создание и расчёт прогнозов, управление складом.
// models.go описывает структуры сессий и попыток входа.
package admin

import "time"

// AdminSession — активная сессия администратора.
type AdminSession struct {
	ID              int64     `db:"id"`
	UserID          string    `db:"user_id"`
	SessionToken    string    `db:"session_token"`
	AuthenticatedAt time.Time `db:"authenticated_at"`
	ExpiresAt       time.Time `db:"expires_at"`
	LastActivity    time.Time `db:"last_activity"`
	IsActive        bool      `db:"is_active"`
}

// LoginAttempt — попытка входа (для защиты от brute-force).
type LoginAttempt struct {
	ID        int64     `db:"id"`
	UserID    string    `db:"user_id"`
	Success   bool      `db:"success"`
	CreatedAt time.Time `db:"created_at"`
}

// AdminState — состояние диалога с админом (конечный автомат).
// Привилегированные команды работают по шагам: логин → действие.
type AdminState struct {
	State     string      // Текущее состояние ("", "awaiting_password", ...)
	Data      interface{} // Данные контекста шага
	ExpiresAt time.Time   // Когда состояние истекает (5 минут)
}

// Возможные состояния админ-диалога
const (
	StateNone             = ""                  // Нет активного состояния
	StateAwaitingPassword = "awaiting_password" // Ждём пароль в личных сообщениях
)
