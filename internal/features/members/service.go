// Package members — service.go содержит бизнес-логику реестра участников.
package members

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"discord-bot/internal/common"
)

// Service управляет реестром участников.
type Service struct {
	repo *Repository
}

// NewService создаёт сервис участников.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// EnsureMember регистрирует участника при первом обращении
// (или обновляет его имена). Идемпотентна.
func (s *Service) EnsureMember(ctx context.Context, userID, username, displayName string) error {
	return s.repo.Create(ctx, &Member{
		UserID:      userID,
		Username:    username,
		DisplayName: displayName,
	})
}

// IsMember проверяет, известен ли пользователь боту.
func (s *Service) IsMember(ctx context.Context, userID string) (bool, error) {
	return s.repo.IsMember(ctx, userID)
}

// IsBanned проверяет бан. Неизвестный пользователь не забанен.
func (s *Service) IsBanned(ctx context.Context, userID string) bool {
	m, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			log.WithError(err).WithField("user_id", userID).Warn("Не удалось проверить бан")
		}
		return false
	}
	return m.IsBanned
}

// GetByUserID возвращает участника.
func (s *Service) GetByUserID(ctx context.Context, userID string) (*Member, error) {
	return s.repo.GetByUserID(ctx, userID)
}

// SetBanned выставляет флаг бана (админская операция).
func (s *Service) SetBanned(ctx context.Context, userID string, banned bool) error {
	return s.repo.SetBanned(ctx, userID, banned)
}
