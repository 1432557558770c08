// Package members — реестр участников сервера.
// models.go описывает структуру участника.
package members

import "time"

// Member представляет участника сервера.
// Запись создаётся при первой команде пользователя боту.
type Member struct {
	ID          int64     `db:"id"`
	UserID      string    `db:"user_id"`      // Discord user ID (snowflake)
	Username    string    `db:"username"`     // Глобальное имя аккаунта
	DisplayName string    `db:"display_name"` // Ник на сервере
	IsAdmin     bool      `db:"is_admin"`
	IsBanned    bool      `db:"is_banned"` // Забаненным бот не отвечает
	JoinedAt    time.Time `db:"joined_at"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}
